// Package health aggregates readiness checks for the operational
// listener.
package health

import "context"

// Status is the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult is an individual component check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing check.
	CheckError CheckResult = "error"
)

// Report aggregates component check results.
type Report struct {
	Status       Status                 `json:"status"`
	Checks       map[string]CheckResult `json:"checks"`
	IndexedNotes int                    `json:"indexed_notes"`
}

// Service coordinates readiness checks against the note store.
type Service struct {
	store StorePinger
	index IndexCounter
}

// New creates a Service. index can be nil.
func New(store StorePinger, index IndexCounter) *Service {
	return &Service{store: store, index: index}
}

// Check runs all component checks and aggregates the result.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	report := Report{Checks: checks}

	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = CheckError
	} else {
		checks["store"] = CheckOK
	}

	if s.index != nil {
		n, err := s.index.Count(ctx)
		if err != nil {
			checks["note_index"] = CheckError
		} else {
			checks["note_index"] = CheckOK
			report.IndexedNotes = n
		}
	}

	report.Status = Healthy
	for _, v := range checks {
		if v == CheckError {
			report.Status = Degraded
			break
		}
	}
	return report
}
