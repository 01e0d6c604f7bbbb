package memory

import (
	"context"
	"math"

	"github.com/k4ditano/notnative-app/internal/domain"
)

// mockRepo is an in-memory Repository for unit tests.
type mockRepo struct {
	notes     map[string]domain.IndexedNote
	upsertErr error
	deleteErr error
	loadErr   error
	dropErr   error
	deletes   []string
	dropped   bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{notes: map[string]domain.IndexedNote{}}
}

func (m *mockRepo) Upsert(_ context.Context, doc domain.NoteDocument, vec []float32) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.notes[doc.ID] = domain.IndexedNote{NoteDocument: doc, Vector: vec}
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletes = append(m.deletes, id)
	delete(m.notes, id)
	return nil
}

func (m *mockRepo) LoadAll(_ context.Context) ([]domain.IndexedNote, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]domain.IndexedNote, 0, len(m.notes))
	for _, n := range m.notes {
		out = append(out, n)
	}
	return out, nil
}

func (m *mockRepo) DropAll(_ context.Context) error {
	if m.dropErr != nil {
		return m.dropErr
	}
	m.dropped = true
	m.notes = map[string]domain.IndexedNote{}
	return nil
}

// mockEmbedder returns a configurable vector per call.
type mockEmbedder struct {
	vecFn func(text string) []float32
	err   error
	calls []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls = append(m.calls, text)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vecFn(text)}, nil
}

// hashVec maps text deterministically onto a unit vector, so equal
// texts land on the same point and different texts mostly do not.
func hashVec(dim int) func(string) []float32 {
	return func(text string) []float32 {
		vec := make([]float32, dim)
		var h uint32 = 2166136261
		for i := 0; i < len(text); i++ {
			h = (h ^ uint32(text[i])) * 16777619
			vec[i%dim] += float32(h%1000)/1000 + 0.01
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			norm = 1
		}
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
		return vec
	}
}
