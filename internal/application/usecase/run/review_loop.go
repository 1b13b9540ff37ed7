package run

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/domain/execution"
)

// runReview reviews the accumulated diff and asks the agent to fix what it
// finds, up to Review.MaxIterations fix rounds. Issues left after the last
// round are recorded in the tally and only halt the run when FailOnUnresolved is set.
// An iteration that fails part way leaves the tally as the last completed one did.
func (uc *RunFeatureUseCase) runReview(ctx context.Context, st *runState) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}

	uc.emit(ctx, st, execution.ReviewStartedEvent{})
	review := &st.record.Execution.Review
	loop := execution.NewBoundedLoop(uc.opts.Review.MaxIterations)

	for {
		completed := *review
		discard := func(err error) error {
			*review = completed
			return err
		}

		diff, err := uc.git.Diff(ctx, st.worktree, uc.opts.BaseBranch)
		if err != nil {
			if ctx.Err() != nil {
				return execution.ErrCancelled(ctx.Err())
			}
			return execution.ErrGit("diff", err)
		}
		if strings.TrimSpace(diff) == "" {
			st.log.Info("no changes against base branch, skipping review", zap.String("base", uc.opts.BaseBranch))
			uc.emit(ctx, st, execution.ReviewCompletedEvent{IssuesFound: review.IssuesFound, IssuesFixed: review.IssuesFixed})
			return nil
		}

		iteration := loop.Attempt + 1
		resp, err := uc.invoke(ctx, st, output.PromptReviewTask, output.ProfileReview, map[string]interface{}{
			"diff":          diff,
			"iteration":     iteration,
			"criteria":      st.record.Verification.Criteria,
			"test_commands": st.record.Verification.TestCommands,
		}, fmt.Sprintf("review-%d", iteration))
		if err != nil {
			return discard(err)
		}
		review.Turns += resp.Turns

		issues := execution.ParseIssues(resp.Output)
		st.log.Info("review iteration", zap.Int("iteration", iteration), zap.Int("issues", len(issues)))

		switch loop.Next(len(issues) == 0) {
		case execution.LoopDone:
			if err := uc.persist(ctx, st); err != nil {
				return discard(err)
			}
			uc.emit(ctx, st, execution.ReviewCompletedEvent{IssuesFound: review.IssuesFound, IssuesFixed: review.IssuesFixed})
			return nil

		case execution.LoopExhausted:
			review.Record(len(issues), 0)
			if err := uc.persist(ctx, st); err != nil {
				return discard(err)
			}
			st.log.Warn("review finished with unresolved issues",
				zap.Int("unresolved", review.Unresolved()), zap.Int("iterations", iteration))
			uc.emit(ctx, st, execution.ReviewCompletedEvent{
				Issues:      issues,
				IssuesFound: review.IssuesFound,
				IssuesFixed: review.IssuesFixed,
			})
			if uc.opts.Review.FailOnUnresolved {
				return execution.ErrReviewUnresolved(review.IssuesFound, review.IssuesFixed)
			}
			return nil
		}

		fixResp, err := uc.invoke(ctx, st, output.PromptReviewFix, output.ProfileCode, map[string]interface{}{
			"issues":    issues,
			"iteration": iteration,
		}, fmt.Sprintf("review-%d-fix", iteration))
		if err != nil {
			return discard(err)
		}
		review.Turns += fixResp.Turns
		review.Record(len(issues), ParseFixedCount(fixResp.Output, len(issues)))

		if uc.opts.AutoCommit {
			if _, err := uc.commit(ctx, st, fmt.Sprintf("fix(%s): review iteration %d fixes", st.slug, iteration)); err != nil {
				return discard(err)
			}
		}
		if err := uc.persist(ctx, st); err != nil {
			return discard(err)
		}
		loop = loop.Advance()
	}
}
