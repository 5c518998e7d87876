package store

import "context"

// Entry is one embedded chunk held by a vector store.
type Entry struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// Result is an entry returned from a similarity search.
type Result struct {
	Entry
	Similarity float32
}

// Metadata keys shared by all backends.
const (
	MetaSource = "source"
	MetaTitle  = "title"
	MetaSeq    = "seq"
)

// VectorStore holds the index for the currently loaded content. Replace
// swaps in a complete new set of entries; a reader must never observe a mix
// of old and new entries.
type VectorStore interface {
	Replace(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, embedding []float32, k int) ([]Result, error)
	Count() int
}
