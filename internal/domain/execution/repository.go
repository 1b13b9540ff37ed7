package execution

import "context"

// RecordRepository defines persistence for execution records, keyed by feature slug
type RecordRepository interface {
	// Load reads the record; a record that was never planned yields RECORD_MISSING
	Load(ctx context.Context, slug string) (*ExecutionRecord, error)

	// Save replaces the record atomically
	Save(ctx context.Context, slug string, record *ExecutionRecord) error

	// Exists reports whether a record has been planned for slug
	Exists(ctx context.Context, slug string) (bool, error)
}
