package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/gba/internal/domain/execution"
	"github.com/YoshitsuguKoike/gba/internal/pkg/featurepath"
)

// YAMLRecordStore persists execution records as <gbaDir>/features/<slug>/phases.yaml
type YAMLRecordStore struct {
	fs     afero.Fs
	gbaDir string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewYAMLRecordStore creates a record store rooted at gbaDir (usually ".gba")
func NewYAMLRecordStore(fs afero.Fs, gbaDir string, logger *zap.Logger) *YAMLRecordStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YAMLRecordStore{fs: fs, gbaDir: gbaDir, logger: logger.Named("records")}
}

// Path returns the record file for slug
func (s *YAMLRecordStore) Path(slug string) string {
	return featurepath.RecordPath(s.gbaDir, slug)
}

// Load reads and validates the record of slug
func (s *YAMLRecordStore) Load(ctx context.Context, slug string) (*execution.ExecutionRecord, error) {
	if err := featurepath.ValidateSlug(slug); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(s.fs, s.Path(slug))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, execution.ErrRecordMissing(slug)
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.Path(slug), err)
	}

	record, err := decodeRecord(data)
	if err != nil {
		return nil, execution.ErrRecordInvalid(slug, err)
	}
	return record, nil
}

// Save validates record and replaces the stored file atomically
func (s *YAMLRecordStore) Save(ctx context.Context, slug string, record *execution.ExecutionRecord) error {
	if err := featurepath.ValidateSlug(slug); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("cannot save nil record for %s", slug)
	}
	if err := record.Validate(); err != nil {
		return execution.ErrRecordInvalid(slug, err)
	}

	data, err := encodeRecord(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := WriteFileAtomic(s.fs, s.Path(slug), data, 0o644); err != nil {
		return err
	}
	s.logger.Debug("record saved", zap.String("slug", slug), zap.Int("bytes", len(data)))
	return nil
}

// Exists reports whether slug has a record
func (s *YAMLRecordStore) Exists(ctx context.Context, slug string) (bool, error) {
	if err := featurepath.ValidateSlug(slug); err != nil {
		return false, err
	}
	return afero.Exists(s.fs, s.Path(slug))
}

// LoadDesignSpec reads the design document written by the planner
func (s *YAMLRecordStore) LoadDesignSpec(ctx context.Context, slug string) (string, error) {
	if err := featurepath.ValidateSlug(slug); err != nil {
		return "", err
	}
	data, err := afero.ReadFile(s.fs, featurepath.DesignSpecPath(s.gbaDir, slug))
	if err != nil {
		return "", fmt.Errorf("failed to read design spec: %w", err)
	}
	return string(data), nil
}

func decodeRecord(data []byte) (*execution.ExecutionRecord, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var record execution.ExecutionRecord
	if err := dec.Decode(&record); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("record file is empty")
		}
		return nil, err
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return &record, nil
}

func encodeRecord(record *execution.ExecutionRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(record); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ execution.RecordRepository = (*YAMLRecordStore)(nil)
