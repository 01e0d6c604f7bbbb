package domain

// NoteDocument is the unit stored in the vector index: one note, keyed
// by its unique name, with opaque structured metadata. Content longer
// than the indexing cap is stored truncated.
type NoteDocument struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// IndexedNote is a NoteDocument together with its stored embedding.
type IndexedNote struct {
	NoteDocument
	Vector []float32
}

// SearchResult is a single semantic search match, ordered by
// descending similarity.
type SearchResult struct {
	Score    float32
	ID       string
	Metadata map[string]any
	Content  string
}
