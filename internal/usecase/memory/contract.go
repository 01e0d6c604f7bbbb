package memory

import (
	"context"

	"github.com/k4ditano/notnative-app/internal/domain"
)

// Repository defines the storage contract for the note vector index.
type Repository interface {
	Upsert(ctx context.Context, doc domain.NoteDocument, vec []float32) error
	Delete(ctx context.Context, id string) error
	LoadAll(ctx context.Context) ([]domain.IndexedNote, error)
	DropAll(ctx context.Context) error
}

// Embedder vectorizes text into embeddings. Queries and documents must
// go through the same embedder so they share one embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
