// Package reindex orchestrates bulk indexing of a note collection,
// accumulating per-run statistics.
package reindex

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/k4ditano/notnative-app/internal/chunker"
	"github.com/k4ditano/notnative-app/internal/domain"
)

// Note is one unit of input for a reindex run.
type Note struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// Service walks a note collection and indexes each note, recording
// failures per note instead of aborting the run. The chunker is used
// for token/chunk accounting in the stats.
type Service struct {
	indexer Indexer
	chunker *chunker.Chunker
	logger  *zap.Logger
}

// New creates a reindex service.
func New(indexer Indexer, c *chunker.Chunker, logger *zap.Logger) *Service {
	return &Service{indexer: indexer, chunker: c, logger: logger}
}

// Reindex indexes every note in order. Empty notes are skipped;
// per-note failures are collected in the stats. Cancelling the context
// stops between notes and returns the stats gathered so far.
func (s *Service) Reindex(ctx context.Context, notes []Note) (domain.IndexStats, error) {
	stats := domain.IndexStats{TotalNotes: len(notes)}

	for _, note := range notes {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		if strings.TrimSpace(note.Content) == "" {
			stats.SkipNote()
			continue
		}

		chunks, err := s.chunker.ChunkText(note.Content)
		if err != nil {
			stats.AddError(fmt.Sprintf("%s: chunk: %v", note.ID, err))
			continue
		}
		tokens := 0
		for _, c := range chunks {
			tokens += c.TokenCount
		}

		if err := s.indexer.IndexNote(ctx, note.ID, note.Content, note.Metadata); err != nil {
			s.logger.Warn("Failed to index note", zap.String("id", note.ID), zap.Error(err))
			stats.AddError(fmt.Sprintf("%s: %v", note.ID, err))
			continue
		}

		stats.AddNote(len(chunks), tokens)
	}

	s.logger.Info("Reindex run finished",
		zap.Int("total", stats.TotalNotes),
		zap.Int("indexed", stats.IndexedNotes),
		zap.Int("skipped", stats.SkippedNotes),
		zap.Int("errors", len(stats.Errors)),
	)
	return stats, nil
}
