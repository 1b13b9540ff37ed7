package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/domain/execution"
)

// stubJournal serves fixed entries per run
type stubJournal struct {
	entries map[string][]output.JournalEntry
	err     error
}

func (s *stubJournal) StartRun(ctx context.Context, runID, slug string) error { return nil }
func (s *stubJournal) Append(ctx context.Context, runID string, seq int, event execution.Event) error {
	return nil
}
func (s *stubJournal) FinishRun(ctx context.Context, runID string, status execution.Status) error {
	return nil
}
func (s *stubJournal) ListRuns(ctx context.Context, slug string) ([]output.RunSummary, error) {
	return nil, nil
}
func (s *stubJournal) Events(ctx context.Context, runID string) ([]output.JournalEntry, error) {
	return s.entries[runID], s.err
}

// memArtifacts keeps saved artifacts in memory
type memArtifacts struct {
	saved   []*output.Artifact
	listErr error
}

func (m *memArtifacts) SaveArtifact(ctx context.Context, req output.SaveArtifactRequest) (*output.ArtifactMetadata, error) {
	meta := output.ArtifactMetadata{
		ID:         fmt.Sprintf("a%d", len(m.saved)+1),
		RunID:      req.RunID,
		Name:       req.Name,
		Type:       req.ArtifactType,
		Size:       int64(len(req.Content)),
		UploadedAt: time.Now(),
	}
	m.saved = append(m.saved, &output.Artifact{ID: meta.ID, Content: req.Content, Metadata: meta})
	return &meta, nil
}

func (m *memArtifacts) LoadArtifact(ctx context.Context, artifactID string) (*output.Artifact, error) {
	for _, a := range m.saved {
		if a.ID == artifactID {
			return a, nil
		}
	}
	return nil, fmt.Errorf("artifact not found: %s", artifactID)
}

func (m *memArtifacts) ListArtifacts(ctx context.Context, runID string) ([]*output.ArtifactMetadata, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var list []*output.ArtifactMetadata
	for _, a := range m.saved {
		if a.Metadata.RunID == runID {
			meta := a.Metadata
			list = append(list, &meta)
		}
	}
	return list, nil
}

func eventsFixture(t *testing.T) (*stubJournal, *memArtifacts) {
	t.Helper()
	journal := &stubJournal{entries: map[string][]output.JournalEntry{
		"run-1": {
			{RunID: "run-1", Seq: 0, Kind: execution.EventStarted, Payload: json.RawMessage(`{}`)},
			{RunID: "run-1", Seq: 1, Kind: execution.EventPhaseStarted, Payload: json.RawMessage(`{"index":0}`)},
		},
	}}
	artifacts := &memArtifacts{}
	ctx := context.Background()
	for _, req := range []output.SaveArtifactRequest{
		{RunID: "run-1", ArtifactType: output.ArtifactTypeAgentOutput, Name: "phase-1-code-task", Content: []byte("implemented")},
		{RunID: "run-1", ArtifactType: output.ArtifactTypeHookLog, Name: "phase-1-hook-build", Content: []byte("ok")},
		{RunID: "run-2", ArtifactType: output.ArtifactTypeAgentOutput, Name: "phase-1-code-task", Content: []byte("other")},
	} {
		_, err := artifacts.SaveArtifact(ctx, req)
		require.NoError(t, err)
	}
	return journal, artifacts
}

func TestRunEvents_ListsEventsAndArtifacts(t *testing.T) {
	journal, artifacts := eventsFixture(t)

	out, err := NewRunEventsUseCase(journal, artifacts).Execute(context.Background(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", out.RunID)
	require.Len(t, out.Events, 2)
	assert.Equal(t, execution.EventStarted, out.Events[0].Kind)
	require.Len(t, out.Artifacts, 2)
	assert.Equal(t, "phase-1-code-task", out.Artifacts[0].Name)
	assert.Equal(t, "agent-output", out.Artifacts[0].Type)
	assert.Equal(t, int64(len("implemented")), out.Artifacts[0].Size)
	assert.Equal(t, "hook-log", out.Artifacts[1].Type)
}

func TestRunEvents_ArtifactsDisabled(t *testing.T) {
	journal, _ := eventsFixture(t)
	uc := NewRunEventsUseCase(journal, nil)

	out, err := uc.Execute(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Len(t, out.Events, 2)
	assert.Empty(t, out.Artifacts)

	_, err = uc.Artifact(context.Background(), "a1")
	assert.ErrorIs(t, err, ErrArtifactsDisabled)
}

func TestRunEvents_LoadArtifact(t *testing.T) {
	journal, artifacts := eventsFixture(t)
	uc := NewRunEventsUseCase(journal, artifacts)

	a, err := uc.Artifact(context.Background(), "a2")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(a.Content))
	assert.Equal(t, output.ArtifactTypeHookLog, a.Metadata.Type)

	_, err = uc.Artifact(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRunEvents_Errors(t *testing.T) {
	journal, artifacts := eventsFixture(t)
	artifacts.listErr = errors.New("access denied")

	_, err := NewRunEventsUseCase(journal, artifacts).Execute(context.Background(), "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	journal.err = errors.New("database is locked")
	_, err = NewRunEventsUseCase(journal, nil).Execute(context.Background(), "run-1")
	assert.EqualError(t, err, "database is locked")
}
