package run

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/domain/execution"
)

// runPhase drives one phase: coding, the hook retry cycle, then commit.
// The record is persisted as soon as the phase is committed; on failure the
// phase is marked failed and the error is returned so the run halts.
func (uc *RunFeatureUseCase) runPhase(ctx context.Context, st *runState, index int) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}

	phase := &st.record.Phases[index]
	log := st.log.With(zap.Int("phase", index+1), zap.String("name", phase.Name))

	// Turns of an earlier failed attempt stay counted so the total never shrinks
	turns := 0
	if phase.Result != nil && phase.Result.Status == execution.StatusFailed {
		turns = phase.Result.Turns
	}

	uc.emit(ctx, st, execution.PhaseStartedEvent{Index: index, Name: phase.Name})
	log.Info("phase started")

	fail := func(err error) error {
		if !execution.IsCancelled(err) {
			if ferr := st.record.FailPhase(index, turns); ferr != nil {
				log.Error("failed to mark phase failed", zap.Error(ferr))
			}
		}
		if execErr, ok := execution.AsExecutionError(err); ok {
			return execErr.WithDetail("phase", index)
		}
		return err
	}

	codingTurns, err := uc.codePhase(ctx, st, index)
	turns += codingTurns
	if err != nil {
		return fail(err)
	}

	fixTurns, err := uc.runHookCycle(ctx, st, index)
	turns += fixTurns
	if err != nil {
		log.Warn("phase failed in hook cycle", zap.Error(err))
		return fail(err)
	}

	commit := ""
	if uc.opts.AutoCommit {
		message := fmt.Sprintf("feat(%s): phase %d - %s", st.slug, index+1, phase.Name)
		commit, err = uc.commit(ctx, st, message)
		if err != nil {
			return fail(err)
		}
	}

	if err := st.record.CompletePhase(index, turns, commit); err != nil {
		return err
	}
	if err := uc.persist(ctx, st); err != nil {
		return err
	}

	log.Info("phase committed", zap.String("commit", commit), zap.Int("turns", turns))
	shown := commit
	if shown == "" {
		shown = "(no changes)"
	}
	uc.emit(ctx, st, execution.PhaseCommittedEvent{Index: index, Commit: shown})
	return nil
}

// codePhase runs the coding prompt. The resume variant is used whenever some
// phase is already completed, and it names those phases so the agent does not redo them.
func (uc *RunFeatureUseCase) codePhase(ctx context.Context, st *runState, index int) (int, error) {
	phase := st.record.Phases[index]
	completed := st.record.CompletedPhases()

	key := output.PromptCodeTask
	if len(completed) > 0 {
		key = output.PromptCodeResume
	}

	vars := map[string]interface{}{
		"phase": map[string]interface{}{
			"name":        phase.Name,
			"description": phase.Description,
			"tasks":       phase.Tasks,
		},
		"phase_index":      index + 1,
		"total_phases":     len(st.record.Phases),
		"completed_phases": completed,
	}

	resp, err := uc.invoke(ctx, st, key, output.ProfileCode, vars, fmt.Sprintf("phase-%d-code", index+1))
	if err != nil {
		return 0, err
	}
	uc.emit(ctx, st, execution.CodingOutputEvent{Phase: index, Text: resp.Output})
	return resp.Turns, nil
}

// runHookCycle runs the hooks until they all pass, asking the agent to fix
// each failing hook in between. With MaxRetries = n at most n fix rounds are
// made. It returns the turns spent on fixes.
func (uc *RunFeatureUseCase) runHookCycle(ctx context.Context, st *runState, index int) (int, error) {
	if len(uc.opts.Hooks) == 0 {
		return 0, nil
	}

	phase := st.record.Phases[index]
	loop := execution.NewBoundedLoop(uc.opts.MaxRetries)
	turns := 0

	for {
		if err := checkCancelled(ctx); err != nil {
			return turns, err
		}

		outcomes := uc.hooks.RunAll(ctx, uc.opts.Hooks, st.worktree)
		if err := checkCancelled(ctx); err != nil {
			return turns, err
		}
		for _, o := range outcomes {
			uc.emit(ctx, st, execution.HookResultEvent{
				Phase:   index,
				Hook:    o.Name,
				Passed:  o.Passed,
				Attempt: loop.Attempt,
			})
		}

		switch loop.Next(output.AllPassed(outcomes)) {
		case execution.LoopDone:
			return turns, nil
		case execution.LoopExhausted:
			var names []string
			for _, o := range output.FailedHooks(outcomes) {
				names = append(names, o.Name)
			}
			st.log.Error("hooks failed after exhausting retries",
				zap.Int("phase", index+1), zap.Strings("hooks", names), zap.Int("max_retries", loop.Max))
			return turns, execution.ErrHookExhausted(index, phase.Name, names, loop.Max)
		}

		for _, failed := range output.FailedHooks(outcomes) {
			label := fmt.Sprintf("phase-%d-hook-%s-attempt-%d", index+1, failed.Name, loop.Attempt+1)
			uc.saveArtifact(ctx, st, output.ArtifactTypeHookLog, label, []byte(failed.Output), map[string]string{
				"hook":    failed.Name,
				"command": failed.Command,
			})

			resp, err := uc.invoke(ctx, st, output.PromptHookFix, output.ProfileCode, map[string]interface{}{
				"phase_index":  index + 1,
				"hook_name":    failed.Name,
				"hook_command": failed.Command,
				"hook_output":  failed.Output,
				"attempt":      loop.Attempt + 1,
				"max_retries":  loop.Max,
			}, label+"-fix")
			if err != nil {
				return turns, err
			}
			turns += resp.Turns
		}
		loop = loop.Advance()
	}
}
