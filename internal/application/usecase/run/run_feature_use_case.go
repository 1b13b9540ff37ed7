package run

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/YoshitsuguKoike/gba/internal/application/dto"
	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/domain/execution"
)

// DesignSource loads the design document the planner wrote for a feature
type DesignSource interface {
	LoadDesignSpec(ctx context.Context, slug string) (string, error)
}

// Dependencies are the collaborators of a run. Design, Artifacts and Journal are optional.
type Dependencies struct {
	Records      execution.RecordRepository
	Agent        output.AgentGateway
	Hooks        output.HookRunner
	Git          output.GitGateway
	PullRequests output.PullRequestCreator
	Design       DesignSource
	Artifacts    output.ArtifactGateway
	Journal      output.EventJournal
}

// RunFeatureUseCase drives one feature through its phases, the review loop,
// the verification loop and pull request creation
type RunFeatureUseCase struct {
	records   execution.RecordRepository
	agent     output.AgentGateway
	hooks     output.HookRunner
	git       output.GitGateway
	prs       output.PullRequestCreator
	design    DesignSource
	artifacts output.ArtifactGateway
	journal   output.EventJournal
	opts      Options
	logger    *zap.Logger
	newRunID  func() string
}

// NewRunFeatureUseCase creates a new RunFeatureUseCase
func NewRunFeatureUseCase(deps Dependencies, opts Options, logger *zap.Logger) *RunFeatureUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunFeatureUseCase{
		records:   deps.Records,
		agent:     deps.Agent,
		hooks:     deps.Hooks,
		git:       deps.Git,
		prs:       deps.PullRequests,
		design:    deps.Design,
		artifacts: deps.Artifacts,
		journal:   deps.Journal,
		opts:      opts.normalized(),
		logger:    logger.Named("run"),
		newRunID:  func() string { return ulid.Make().String() },
	}
}

// runState is the mutable state of one run. Only the goroutine driving the
// run touches it.
type runState struct {
	runID    string
	slug     string
	record   *execution.ExecutionRecord
	worktree string
	design   string
	seq      int
	sink     func(execution.Event)
	log      *zap.Logger
}

// Execute loads the record and prepares the worktree, then drives the run in
// the background. The returned channel yields events in order and is closed
// after the terminal Finished or Failed event. Loading failures, such as
// RECORD_MISSING, are returned directly and no stream is started.
func (uc *RunFeatureUseCase) Execute(ctx context.Context, input dto.RunFeatureInput) (<-chan execution.Event, error) {
	st, err := uc.prepare(ctx, input.Slug)
	if err != nil {
		return nil, err
	}

	events := make(chan execution.Event, eventBufferSize)
	go func() {
		defer close(events)
		uc.drive(ctx, st, func(e execution.Event) {
			select {
			case events <- e:
				return
			default:
			}
			select {
			case events <- e:
			case <-ctx.Done():
			}
		})
	}()

	return events, nil
}

// Run is the synchronous form of Execute. sink receives every event, in order,
// on the calling goroutine.
func (uc *RunFeatureUseCase) Run(ctx context.Context, input dto.RunFeatureInput, sink func(execution.Event)) (*dto.RunFeatureOutput, error) {
	st, err := uc.prepare(ctx, input.Slug)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = func(execution.Event) {}
	}
	return uc.drive(ctx, st, sink), nil
}

func (uc *RunFeatureUseCase) prepare(ctx context.Context, slug string) (*runState, error) {
	if slug == "" {
		return nil, errors.New("feature slug is required")
	}

	record, err := uc.records.Load(ctx, slug)
	if err != nil {
		return nil, err
	}

	worktree, err := uc.git.EnsureWorktree(ctx, slug)
	if err != nil {
		return nil, execution.ErrGit("worktree", err)
	}

	design := ""
	if uc.design != nil {
		design, err = uc.design.LoadDesignSpec(ctx, slug)
		if err != nil {
			uc.logger.Warn("design spec missing, continuing with empty context",
				zap.String("slug", slug), zap.Error(err))
			design = ""
		}
	}

	runID := uc.newRunID()
	return &runState{
		runID:    runID,
		slug:     slug,
		record:   record,
		worktree: worktree,
		design:   design,
		log:      uc.logger.With(zap.String("slug", slug), zap.String("run_id", runID)),
	}, nil
}

// drive runs every stage and emits exactly one terminal event
func (uc *RunFeatureUseCase) drive(ctx context.Context, st *runState, sink func(execution.Event)) *dto.RunFeatureOutput {
	start := time.Now()
	st.sink = sink

	if uc.journal != nil {
		if err := uc.journal.StartRun(context.WithoutCancel(ctx), st.runID, st.slug); err != nil {
			st.log.Warn("failed to journal run start", zap.Error(err))
		}
	}

	err := uc.execute(ctx, st)

	out := &dto.RunFeatureOutput{RunID: st.runID, Slug: st.slug}
	status := execution.StatusCompleted
	if err != nil {
		status = execution.StatusFailed
		execErr := uc.classify(ctx, err)
		if !execution.IsCancelled(execErr) {
			st.record.Finish(execution.StatusFailed)
			if perr := uc.persist(ctx, st); perr != nil {
				st.log.Error("failed to persist halted run", zap.Error(perr))
			}
		}
		st.log.Warn("run halted", zap.String("code", execErr.Code), zap.Error(execErr))
		uc.emit(ctx, st, execution.FailedEvent{Err: execErr})
		out.ErrorCode = execErr.Code
		out.ErrorMsg = execErr.Error()
	} else {
		st.log.Info("run finished", zap.Int("total_turns", st.record.Execution.TotalTurns))
		uc.emit(ctx, st, execution.FinishedEvent{TotalTurns: st.record.Execution.TotalTurns})
	}

	if uc.journal != nil {
		if jerr := uc.journal.FinishRun(context.WithoutCancel(ctx), st.runID, status); jerr != nil {
			st.log.Warn("failed to journal run finish", zap.Error(jerr))
		}
	}

	out.Status = status.String()
	if st.record.Execution != nil {
		out.TotalTurns = st.record.Execution.TotalTurns
		out.PR = st.record.Execution.PR
	}
	out.ElapsedMs = time.Since(start).Milliseconds()
	out.FinishedAt = time.Now()
	return out
}

func (uc *RunFeatureUseCase) execute(ctx context.Context, st *runState) error {
	rec := st.record
	if rec.Execution != nil && rec.Execution.Status == execution.StatusCompleted {
		st.log.Info("feature already completed, nothing to do", zap.String("pr", rec.Execution.PR))
		uc.emit(ctx, st, execution.StartedEvent{Feature: rec.Feature, TotalPhases: len(rec.Phases), Resume: true})
		return nil
	}

	rec.Begin()
	if err := uc.persist(ctx, st); err != nil {
		return err
	}

	resume := rec.IsResume()
	st.log.Info("run started", zap.Int("phases", len(rec.Phases)), zap.Bool("resume", resume))
	uc.emit(ctx, st, execution.StartedEvent{
		Feature:     rec.Feature,
		TotalPhases: len(rec.Phases),
		Resume:      resume,
	})

	for i := range rec.Phases {
		if rec.Phases[i].IsCompleted() {
			st.log.Debug("skipping completed phase", zap.Int("phase", i+1), zap.String("name", rec.Phases[i].Name))
			continue
		}
		if err := uc.runPhase(ctx, st, i); err != nil {
			return err
		}
	}

	if uc.opts.Review.Enabled {
		if err := uc.runReview(ctx, st); err != nil {
			return err
		}
	}

	if uc.opts.Verification.Enabled {
		if rec.Verification.IsEmpty() {
			st.log.Debug("no verification criteria or commands, skipping verification")
		} else if err := uc.runVerification(ctx, st); err != nil {
			return err
		}
	}

	return uc.createPullRequest(ctx, st)
}

// persist recomputes the turn total and saves the record. A completed
// transition is saved even if ctx was cancelled meanwhile.
func (uc *RunFeatureUseCase) persist(ctx context.Context, st *runState) error {
	st.record.RecomputeTotalTurns()
	saveCtx := context.WithoutCancel(ctx)
	if err := uc.records.Save(saveCtx, st.slug, st.record); err != nil {
		return execution.ErrPersistence(err)
	}
	uc.mirrorRecord(saveCtx, st)
	return nil
}

func (uc *RunFeatureUseCase) emit(ctx context.Context, st *runState, e execution.Event) {
	st.seq++
	if uc.journal != nil {
		if err := uc.journal.Append(context.WithoutCancel(ctx), st.runID, st.seq, e); err != nil {
			st.log.Warn("failed to journal event", zap.String("kind", string(e.Kind())), zap.Error(err))
		}
	}
	st.sink(e)
}

// classify converts any error into the run's error taxonomy
func (uc *RunFeatureUseCase) classify(ctx context.Context, err error) *execution.ExecutionError {
	if execErr, ok := execution.AsExecutionError(err); ok {
		return execErr
	}
	if ctx.Err() != nil {
		return execution.ErrCancelled(err)
	}
	return execution.NewExecutionError(execution.CodeAgentError, "run failed", nil).WithCause(err)
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return execution.ErrCancelled(err)
	}
	return nil
}

// invoke calls the agent with the shared run variables merged under vars
func (uc *RunFeatureUseCase) invoke(
	ctx context.Context,
	st *runState,
	key output.PromptKey,
	profile output.ToolProfile,
	vars map[string]interface{},
	label string,
) (*output.AgentResponse, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	req := output.AgentRequest{
		PromptKey: key,
		Variables: uc.variables(st, vars),
		Profile:   profile,
		WorkDir:   st.worktree,
	}

	st.log.Debug("invoking agent", zap.String("prompt", string(key)), zap.String("profile", string(profile)))
	resp, err := uc.agent.Execute(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, execution.ErrCancelled(ctx.Err())
		}
		st.log.Error("agent call failed", zap.String("prompt", string(key)), zap.Error(err))
		return nil, execution.ErrAgent(string(key), err)
	}

	// Verify stages report failures as error results; anywhere else the call failed
	if resp.IsError && key != output.PromptVerifyTask {
		st.log.Error("agent returned an error result", zap.String("prompt", string(key)))
		return nil, execution.ErrAgent(string(key), errors.New(strings.TrimSpace(resp.Output)))
	}

	out := *resp
	if out.Turns <= 0 {
		out.Turns = 1
	}
	uc.saveArtifact(ctx, st, output.ArtifactTypeAgentOutput, label, []byte(out.Output), map[string]string{
		"prompt": string(key),
		"turns":  fmt.Sprintf("%d", out.Turns),
	})
	return &out, nil
}

func (uc *RunFeatureUseCase) variables(st *runState, vars map[string]interface{}) map[string]interface{} {
	merged := map[string]interface{}{
		"repo_path":           uc.opts.RepoPath,
		"feature_slug":        st.slug,
		"feature_description": st.record.Feature,
		"design_spec":         st.design,
		"worktree":            st.worktree,
		"branch":              uc.git.BranchName(st.slug),
		"base_branch":         uc.opts.BaseBranch,
	}
	for k, v := range vars {
		merged[k] = v
	}
	return merged
}

// commit records the current worktree state. A clean tree is not an error
// and yields an empty hash.
func (uc *RunFeatureUseCase) commit(ctx context.Context, st *runState, message string) (string, error) {
	hash, err := uc.git.Commit(ctx, st.worktree, message)
	if errors.Is(err, output.ErrNothingToCommit) {
		st.log.Debug("no changes to commit", zap.String("message", message))
		return "", nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", execution.ErrCancelled(ctx.Err())
		}
		return "", execution.ErrGit("commit", err)
	}
	return hash, nil
}
