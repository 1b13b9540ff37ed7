package output

import (
	"context"
	"encoding/json"
	"time"

	"github.com/YoshitsuguKoike/gba/internal/domain/execution"
)

// EventJournal records run events durably for later inspection
type EventJournal interface {
	StartRun(ctx context.Context, runID, slug string) error
	Append(ctx context.Context, runID string, seq int, event execution.Event) error
	FinishRun(ctx context.Context, runID string, status execution.Status) error
	ListRuns(ctx context.Context, slug string) ([]RunSummary, error)
	Events(ctx context.Context, runID string) ([]JournalEntry, error)
}

// RunSummary is one row of the run index
type RunSummary struct {
	RunID      string
	Slug       string
	Status     execution.Status
	StartedAt  time.Time
	FinishedAt *time.Time
}

// JournalEntry is one persisted event
type JournalEntry struct {
	RunID     string
	Seq       int
	Kind      execution.EventKind
	Payload   json.RawMessage
	CreatedAt time.Time
}
