package util

// data directory names under the configured data root
const (
	DirStaging = "pptxs" // uploaded documents awaiting conversion
	DirPdfs    = "pdfs"  // pdf intermediates
	DirSongs   = "pngs"  // per-song slide directories awaiting review
	DirTemp    = "temp"  // per-document rasterization scratch, under DirSongs
)

// slide naming convention for staged song directories
const (
	SlidePrefix = "slide-"
	SlideExt    = ".png"
)

// CatalogFile is the json catalog file name under the data root.
const CatalogFile = "songs.json"
