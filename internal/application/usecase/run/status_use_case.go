package run

import (
	"context"

	"github.com/YoshitsuguKoike/gba/internal/application/dto"
	"github.com/YoshitsuguKoike/gba/internal/domain/execution"
)

// FeatureStatusUseCase reports the persisted progress of a feature
type FeatureStatusUseCase struct {
	records execution.RecordRepository
}

// NewFeatureStatusUseCase creates a new FeatureStatusUseCase
func NewFeatureStatusUseCase(records execution.RecordRepository) *FeatureStatusUseCase {
	return &FeatureStatusUseCase{records: records}
}

// Execute loads the record for slug and summarises it
func (uc *FeatureStatusUseCase) Execute(ctx context.Context, slug string) (*dto.FeatureStatusDTO, error) {
	rec, err := uc.records.Load(ctx, slug)
	if err != nil {
		return nil, err
	}

	out := &dto.FeatureStatusDTO{
		Slug:    slug,
		Feature: rec.Feature,
		Status:  execution.StatusPending.String(),
	}
	for i := range rec.Phases {
		p := &rec.Phases[i]
		ps := dto.PhaseStatusDTO{Index: i + 1, Name: p.Name, Status: p.PhaseStatus().String()}
		if p.Result != nil {
			ps.Turns = p.Result.Turns
			ps.Commit = p.Result.Commit
		}
		out.Phases = append(out.Phases, ps)
	}

	if e := rec.Execution; e != nil {
		out.Status = e.Status.String()
		out.TotalTurns = e.TotalTurns
		out.ReviewTurns = e.Review.Turns
		out.IssuesFound = e.Review.IssuesFound
		out.IssuesFixed = e.Review.IssuesFixed
		out.VerificationRan = e.Verification.Turns > 0
		out.VerificationPass = e.Verification.Passed
		out.PR = e.PR
	}
	return out, nil
}
