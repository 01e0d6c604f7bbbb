package domain

// IndexStats accumulates counters during a bulk reindex run. Purely
// additive; owned by the caller orchestrating the run.
type IndexStats struct {
	TotalNotes   int
	IndexedNotes int
	TotalChunks  int
	TotalTokens  int
	SkippedNotes int
	Errors       []string
}

// AddNote records one successfully indexed note.
func (s *IndexStats) AddNote(chunks, tokens int) {
	s.IndexedNotes++
	s.TotalChunks += chunks
	s.TotalTokens += tokens
}

// AddError records a per-note failure without aborting the run.
func (s *IndexStats) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// SkipNote records a note excluded from indexing (e.g. empty content).
func (s *IndexStats) SkipNote() {
	s.SkippedNotes++
}

// SuccessRate returns the indexed fraction as a percentage.
func (s *IndexStats) SuccessRate() float64 {
	if s.TotalNotes == 0 {
		return 0
	}
	return float64(s.IndexedNotes) / float64(s.TotalNotes) * 100
}
