package domain

// Source identifies how a candidate entered the pipeline.
type Source string

const (
	// SourceNewListing marks a candidate discovered from a curve creation event.
	SourceNewListing Source = "NEW_LISTING"

	// SourceTrending marks a candidate discovered by the periodic trending scan.
	SourceTrending Source = "TRENDING"
)
