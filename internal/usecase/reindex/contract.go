package reindex

import "context"

// Indexer is the consumer interface over the note vector index.
type Indexer interface {
	IndexNote(ctx context.Context, id, content string, metadata map[string]any) error
}
