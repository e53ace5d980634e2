package updater

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusUpdated Status = "updated"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is one library's result within a run. Skipped and failed items
// always carry a reason; silent omission is a defect.
type Outcome struct {
	LibraryID   uint
	GameName    string
	Filename    string
	Type        string
	FromVersion string
	ToVersion   string
	Status      Status
	Reason      string
}

// RunReport aggregates one batch, suitable for direct display.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Updated    []Outcome
	Skipped    []Outcome
	Failed     []Outcome
}

func (r *RunReport) add(o Outcome) {
	switch o.Status {
	case StatusUpdated:
		r.Updated = append(r.Updated, o)
	case StatusFailed:
		r.Failed = append(r.Failed, o)
	default:
		r.Skipped = append(r.Skipped, o)
	}
}

// Total is the number of libraries the run processed.
func (r *RunReport) Total() int {
	return len(r.Updated) + len(r.Skipped) + len(r.Failed)
}

func (r *RunReport) Summary() string {
	return fmt.Sprintf("Updated %d, skipped %d, failed %d (of %d processed)",
		len(r.Updated), len(r.Skipped), len(r.Failed), r.Total())
}
