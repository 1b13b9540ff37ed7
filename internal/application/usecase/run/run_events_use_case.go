package run

import (
	"context"
	"errors"
	"fmt"

	"github.com/YoshitsuguKoike/gba/internal/application/dto"
	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
)

// ErrArtifactsDisabled is returned when no artifact backend is configured
var ErrArtifactsDisabled = errors.New("artifact storage is disabled (artifacts.backend=none)")

// RunEventsUseCase reads back what a run left behind: its journal and,
// when a backend is configured, the agent output and hook logs it stored
type RunEventsUseCase struct {
	journal   output.EventJournal
	artifacts output.ArtifactGateway // nil when artifacts are disabled
}

// NewRunEventsUseCase creates a new RunEventsUseCase
func NewRunEventsUseCase(journal output.EventJournal, artifacts output.ArtifactGateway) *RunEventsUseCase {
	return &RunEventsUseCase{journal: journal, artifacts: artifacts}
}

// Execute returns the events of runID in order and the run's artifacts
func (uc *RunEventsUseCase) Execute(ctx context.Context, runID string) (*dto.RunEventsDTO, error) {
	entries, err := uc.journal.Events(ctx, runID)
	if err != nil {
		return nil, err
	}

	out := &dto.RunEventsDTO{RunID: runID, Events: entries, Artifacts: []dto.ArtifactDTO{}}
	if uc.artifacts == nil {
		return out, nil
	}

	list, err := uc.artifacts.ListArtifacts(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts of run %s: %w", runID, err)
	}
	for _, m := range list {
		out.Artifacts = append(out.Artifacts, dto.ArtifactDTO{
			ID:         m.ID,
			Name:       m.Name,
			Type:       string(m.Type),
			Size:       m.Size,
			UploadedAt: m.UploadedAt,
		})
	}
	return out, nil
}

// Artifact loads one stored artifact by ID
func (uc *RunEventsUseCase) Artifact(ctx context.Context, artifactID string) (*output.Artifact, error) {
	if uc.artifacts == nil {
		return nil, ErrArtifactsDisabled
	}
	return uc.artifacts.LoadArtifact(ctx, artifactID)
}
