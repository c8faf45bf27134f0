package model

// OutcomeKind classifies what happened to one candidate during a run.
type OutcomeKind string

const (
	// OutcomeProcessed means a transaction was persisted.
	OutcomeProcessed OutcomeKind = "processed"
	// OutcomeDuplicate means the source was already imported.
	OutcomeDuplicate OutcomeKind = "duplicate"
	// OutcomeRejected means required fields could not be resolved.
	OutcomeRejected OutcomeKind = "rejected"
	// OutcomeSkipped means the source was not usable (too short, declined, unreachable).
	OutcomeSkipped OutcomeKind = "skipped"
	// OutcomeErrored means reading, extraction or persistence failed.
	OutcomeErrored OutcomeKind = "errored"
)

// Outcome is the result of processing a single candidate. Reason is a short,
// human-readable explanation safe to show to the user.
type Outcome struct {
	Kind          OutcomeKind
	ExternalID    string
	TransactionID string
	Reason        string
}

// SyncStats aggregates the outcomes of a sync run.
type SyncStats struct {
	Outcomes   []Outcome
	WindowDays int
	Candidates int
	Processed  int
	Duplicates int
	Rejected   int
	Skipped    int
	Errored    int
}

// Record adds an outcome to the aggregate counts.
func (s *SyncStats) Record(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Kind {
	case OutcomeProcessed:
		s.Processed++
	case OutcomeDuplicate:
		s.Duplicates++
	case OutcomeRejected:
		s.Rejected++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeErrored:
		s.Errored++
	}
}
