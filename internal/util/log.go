package util

const (
	// package keys
	PackageKey = "package"

	PackageMain     = "main"
	PackageAuth     = "auth"
	PackageCantor   = "cantor"
	PackageCatalog  = "catalog"
	PackagePipeline = "pipeline"
	PackagePublish  = "publish"
	PackageReview   = "review"
	PackageSong     = "song"
	PackageStorage  = "storage"
	PackageUpload   = "upload"

	// component keys
	ComponentKey = "component"

	ComponentMain           = "main"
	ComponentCantor         = "cantor"
	ComponentAuth           = "auth"
	ComponentCatalogHandler = "catalog handler"
	ComponentCatalogStore   = "catalog store"
	ComponentConverter      = "converter"
	ComponentDiskGuard      = "disk guard"
	ComponentObjectStorage  = "object storage"
	ComponentPipeline       = "ingestion pipeline"
	ComponentPublisher      = "publisher"
	ComponentRegistry       = "upload registry"
	ComponentReviewHandler  = "review handler"
	ComponentReviewService  = "review service"
	ComponentTrimmer        = "slide trimmer"
	ComponentUploadHandler  = "upload handler"

	// service keys
	ServiceKey = "service"

	ServiceCantor = "cantor"
)
