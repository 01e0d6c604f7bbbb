// Package memory is the note vector index: it embeds note content,
// persists the vectors and answers semantic queries.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/k4ditano/notnative-app/internal/domain"
)

const (
	// maxContentBytes caps the content embedded and stored per note.
	// Longer notes are truncated, not multi-chunk indexed.
	maxContentBytes = 25000

	defaultSearchLimit = 10
)

// NoteMemory owns the persistent vector index for notes. Search takes
// a read guard; ClearAll takes the write guard for the duration of the
// schema rebuild. Index and Remove serialize through the store's
// single-writer connection.
type NoteMemory struct {
	mu            sync.RWMutex
	repo          Repository
	embedder      Embedder
	dimension     int
	minSimilarity float64
	logger        *zap.Logger
}

// New creates the note vector index. dimension, when positive, is
// enforced on every vector before it is persisted. minSimilarity
// filters search results below the threshold.
func New(repo Repository, embedder Embedder, dimension int, minSimilarity float64, logger *zap.Logger) *NoteMemory {
	return &NoteMemory{
		repo:          repo,
		embedder:      embedder,
		dimension:     dimension,
		minSimilarity: minSimilarity,
		logger:        logger,
	}
}

// IndexNote embeds (possibly truncated) content and upserts the note
// row with its vector. The write is atomic: a failure leaves any
// previous document intact.
func (m *NoteMemory) IndexNote(ctx context.Context, id, content string, metadata map[string]any) error {
	if id == "" {
		return fmt.Errorf("note id is empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	truncated := truncateUTF8(content, maxContentBytes)
	if len(truncated) < len(content) {
		m.logger.Warn("Note content truncated before embedding",
			zap.String("id", id),
			zap.Int("original_bytes", len(content)),
			zap.Int("stored_bytes", len(truncated)),
		)
	}

	result, err := m.embedder.Embed(ctx, truncated)
	if err != nil {
		return fmt.Errorf("embed note %s: %w", id, err)
	}

	if m.dimension > 0 && len(result.Embedding) != m.dimension {
		return fmt.Errorf(
			"vector for %s has %d dimensions, want %d: %w",
			id, len(result.Embedding), m.dimension, domain.ErrVectorDimMismatch,
		)
	}

	doc := domain.NoteDocument{ID: id, Content: truncated, Metadata: metadata}
	if err := m.repo.Upsert(ctx, doc, result.Embedding); err != nil {
		return fmt.Errorf("store note %s: %w", id, err)
	}

	m.logger.Debug("Indexed note",
		zap.String("id", id),
		zap.Int("content_bytes", len(truncated)),
		zap.Int("dimension", len(result.Embedding)),
	)
	return nil
}

// RemoveNote deletes a note's vector and content row. Removing an
// absent note is a no-op success.
func (m *NoteMemory) RemoveNote(ctx context.Context, id string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove note %s: %w", id, err)
	}
	return nil
}

// Search embeds the query and ranks stored notes by cosine similarity,
// descending, bounded by limit and floored at the configured minimum
// similarity. It never mutates state.
func (m *NoteMemory) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := result.Embedding

	stored, err := m.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load indexed notes: %w", err)
	}

	matches := make([]domain.SearchResult, 0, len(stored))
	for _, note := range stored {
		score, err := cosineSimilarity(queryVec, note.Vector)
		if err != nil {
			// A stale vector from an earlier model must not poison the query.
			m.logger.Warn("Skipping note with incomparable vector",
				zap.String("id", note.ID), zap.Error(err))
			continue
		}
		if score < m.minSimilarity {
			continue
		}
		matches = append(matches, domain.SearchResult{
			Score:    float32(score),
			ID:       note.ID,
			Metadata: note.Metadata,
			Content:  note.Content,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// ClearAll drops the whole vector schema and recreates it empty.
// Exclusive with respect to concurrent index/search calls and
// non-cancellable once started: aborting between drops would leave a
// half-removed table family.
func (m *NoteMemory) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.repo.DropAll(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("clear note index: %w", err)
	}

	m.logger.Info("Cleared note index")
	return nil
}

// truncateUTF8 cuts s at max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
