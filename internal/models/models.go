package models

// Document is one normalized web page or local file, tagged with where it
// came from.
type Document struct {
	Content string
	Source  string
	Title   string
}

// Chunk is the retrieval unit: a bounded slice of one document's content.
// Seq is the insertion order across a whole index build and breaks
// similarity ties so retrieval stays deterministic.
type Chunk struct {
	Content string
	Source  string
	Title   string
	Seq     int
}

// SearchResult pairs a retrieved chunk with its similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float32
}

// QueryResult is the answer to one question plus the deduplicated sources
// of the chunks that made it into the completion context.
type QueryResult struct {
	Answer  string
	Sources []string
}
