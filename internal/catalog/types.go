package catalog

// Entry is the durable, published record for one song: its public image
// urls in performance order plus the upload timestamp.
type Entry struct {
	Links      []string `json:"links"`
	UploadDate string   `json:"uploadDate"`
}

// Catalog is the persisted catalog document: a mapping from song key to
// entry plus a catalog-wide last-update timestamp. The catalog file is the
// sole source of truth for the published song set; the browsing surface
// never looks at the filesystem.
type Catalog struct {
	UpdateDate string           `json:"updateDate"`
	Songs      map[string]Entry `json:"songs"`
}
