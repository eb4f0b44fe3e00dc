// Package search ranks library entries against free-text queries using
// trigram coverage.
package search

// Item is anything the matcher can index.
type Item interface {
	// FilterValue returns the text matched against queries.
	FilterValue() string
	// DisplayText returns the text shown in results.
	DisplayText() string
}
