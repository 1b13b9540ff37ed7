package run

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/domain/execution"
)

// runVerification checks the feature against its verification plan, with up
// to Verification.MaxIterations fix rounds. Failing the last check halts the
// run with VERIFICATION_FAILED before any pull request is attempted. An iteration
// that fails part way leaves the result as the last completed one did.
func (uc *RunFeatureUseCase) runVerification(ctx context.Context, st *runState) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}

	uc.emit(ctx, st, execution.VerificationStartedEvent{})
	result := &st.record.Execution.Verification
	result.Passed = false
	plan := st.record.Verification
	loop := execution.NewBoundedLoop(uc.opts.Verification.MaxIterations)

	for {
		completed := *result
		discard := func(err error) error {
			*result = completed
			return err
		}

		iteration := loop.Attempt + 1
		resp, err := uc.invoke(ctx, st, output.PromptVerifyTask, output.ProfileVerify, map[string]interface{}{
			"criteria":      plan.Criteria,
			"test_commands": plan.TestCommands,
			"iteration":     iteration,
		}, fmt.Sprintf("verify-%d", iteration))
		if err != nil {
			return discard(err)
		}
		result.Turns += resp.Turns

		passed := VerificationPassed(resp)
		st.log.Info("verification iteration", zap.Int("iteration", iteration), zap.Bool("passed", passed))

		switch loop.Next(passed) {
		case execution.LoopDone:
			result.Passed = true
			if err := uc.persist(ctx, st); err != nil {
				return discard(err)
			}
			uc.emit(ctx, st, execution.VerificationCompletedEvent{Passed: true, Details: resp.Output})
			return nil

		case execution.LoopExhausted:
			if err := uc.persist(ctx, st); err != nil {
				return discard(err)
			}
			uc.emit(ctx, st, execution.VerificationCompletedEvent{Passed: false, Details: resp.Output})
			return execution.ErrVerificationFailed(loop.Max, resp.Output)
		}

		fixResp, err := uc.invoke(ctx, st, output.PromptVerifyFix, output.ProfileCode, map[string]interface{}{
			"failures":      resp.Output,
			"issues":        execution.ParseIssues(resp.Output),
			"criteria":      plan.Criteria,
			"test_commands": plan.TestCommands,
			"iteration":     iteration,
		}, fmt.Sprintf("verify-%d-fix", iteration))
		if err != nil {
			return discard(err)
		}
		result.Turns += fixResp.Turns

		if uc.opts.AutoCommit {
			if _, err := uc.commit(ctx, st, fmt.Sprintf("fix(%s): verification iteration %d fixes", st.slug, iteration)); err != nil {
				return discard(err)
			}
		}
		if err := uc.persist(ctx, st); err != nil {
			return discard(err)
		}
		loop = loop.Advance()
	}
}
