package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/domain/execution"
)

// EventJournalImpl implements output.EventJournal with SQLite
type EventJournalImpl struct {
	db  *sql.DB
	now func() time.Time
}

// NewEventJournal creates a new SQLite-based event journal on a migrated database
func NewEventJournal(db *sql.DB) *EventJournalImpl {
	return &EventJournalImpl{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// StartRun registers a run as in progress
func (j *EventJournalImpl) StartRun(ctx context.Context, runID, slug string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, feature_slug, status, started_at) VALUES (?, ?, ?, ?)`,
		runID, slug, string(execution.StatusInProgress), j.now().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

// Append stores one event of a started run
func (j *EventJournalImpl) Append(ctx context.Context, runID string, seq int, event execution.Event) error {
	payload, err := encodePayload(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Kind(), err)
	}

	result, err := j.db.ExecContext(ctx,
		`INSERT INTO run_events (run_id, feature_slug, seq, kind, payload, created_at)
		 SELECT run_id, feature_slug, ?, ?, ?, ? FROM runs WHERE run_id = ?`,
		seq, string(event.Kind()), string(payload), j.now().Format(time.RFC3339Nano), runID)
	if err != nil {
		return fmt.Errorf("insert event %d of run %s: %w", seq, runID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("unknown run: %s", runID)
	}
	return nil
}

// FinishRun records the final status of a run
func (j *EventJournalImpl) FinishRun(ctx context.Context, runID string, status execution.Status) error {
	result, err := j.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE run_id = ?`,
		string(status), j.now().Format(time.RFC3339Nano), runID)
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("unknown run: %s", runID)
	}
	return nil
}

// ListRuns returns runs newest first; an empty slug lists every feature
func (j *EventJournalImpl) ListRuns(ctx context.Context, slug string) ([]output.RunSummary, error) {
	query := `SELECT run_id, feature_slug, status, started_at, finished_at FROM runs`
	var args []interface{}
	if slug != "" {
		query += ` WHERE feature_slug = ?`
		args = append(args, slug)
	}
	query += ` ORDER BY started_at DESC, run_id DESC`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []output.RunSummary
	for rows.Next() {
		var (
			run        output.RunSummary
			status     string
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&run.RunID, &run.Slug, &status, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = execution.Status(status)
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if finishedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, finishedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse finished_at: %w", err)
			}
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Events returns the events of a run in emission order
func (j *EventJournalImpl) Events(ctx context.Context, runID string) ([]output.JournalEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, seq, kind, payload, created_at FROM run_events WHERE run_id = ? ORDER BY seq`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var entries []output.JournalEntry
	for rows.Next() {
		var (
			entry     output.JournalEntry
			kind      string
			payload   string
			createdAt string
		)
		if err := rows.Scan(&entry.RunID, &entry.Seq, &kind, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		entry.Kind = execution.EventKind(kind)
		entry.Payload = json.RawMessage(payload)
		if entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// payloader is implemented by events whose wire form differs from their struct
type payloader interface {
	Payload() interface{}
}

func encodePayload(event execution.Event) ([]byte, error) {
	if p, ok := event.(payloader); ok {
		return json.Marshal(p.Payload())
	}
	return json.Marshal(event)
}

var _ output.EventJournal = (*EventJournalImpl)(nil)
