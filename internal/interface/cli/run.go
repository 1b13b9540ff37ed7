package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/YoshitsuguKoike/gba/internal/application/dto"
	"github.com/YoshitsuguKoike/gba/internal/domain/execution"
	"github.com/YoshitsuguKoike/gba/internal/infra/config"
	"github.com/YoshitsuguKoike/gba/internal/infra/fs"
)

// Exit codes of `gba run`
const (
	exitFailed      = 1
	exitInterrupted = 130
)

type runOptions struct {
	maxRetries int
	noReview   bool
	noVerify   bool
	noCommit   bool
}

func newRunCmd(g *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <feature-slug>",
		Short: "Run a planned feature to a pull request",
		Long: `Run executes the phases recorded in .gba/features/<slug>/phases.yaml in a
dedicated worktree, then reviews and verifies the result and opens a pull
request. Completed phases are skipped, so an interrupted run can be resumed
by running the same command again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupSignalHandler(cmd.Context())
			defer cancel()
			return runFeature(ctx, cmd, g, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.maxRetries, "max-retries", 0, "Hook fix attempts per phase; overrides hooks.maxRetries")
	cmd.Flags().BoolVar(&opts.noReview, "no-review", false, "Skip the review loop")
	cmd.Flags().BoolVar(&opts.noVerify, "no-verify", false, "Skip the verification loop")
	cmd.Flags().BoolVar(&opts.noCommit, "no-commit", false, "Do not commit phase results")
	return cmd
}

func (o *runOptions) apply(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		if cmd.Flags().Changed("max-retries") {
			cfg.Hooks.MaxRetries = o.maxRetries
		}
		if o.noReview {
			cfg.Review.Enabled = false
		}
		if o.noVerify {
			cfg.Verification.Enabled = false
		}
		if o.noCommit {
			cfg.Git.AutoCommit = false
		}
	}
}

func runFeature(ctx context.Context, cmd *cobra.Command, g *globalOptions, opts *runOptions, slug string) error {
	container, err := g.newContainer(ctx, cmd, opts.apply(cmd))
	if err != nil {
		return err
	}
	defer container.Close()

	p := container.GetPresenter()
	logger := container.Logger()

	lock, err := fs.AcquireRunLock(filepath.Join(container.Paths().Var, "locks"), slug)
	if err != nil {
		_ = p.PresentError(err)
		return &ExitError{Code: exitFailed, Err: err}
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release run lock", zap.String("path", lock.Path()), zap.Error(err))
		}
	}()

	events, err := container.GetRunUseCase().Execute(ctx, dto.RunFeatureInput{Slug: slug})
	if err != nil {
		_ = p.PresentError(err)
		return &ExitError{Code: exitFailed, Err: err}
	}

	var failure *execution.ExecutionError
	for event := range events {
		if err := p.PresentEvent(event); err != nil {
			logger.Warn("failed to present event", zap.String("kind", string(event.Kind())), zap.Error(err))
		}
		if f, ok := event.(execution.FailedEvent); ok {
			failure = f.Err
		}
	}

	switch {
	case failure != nil && failure.Code == execution.CodeCancelled:
		return &ExitError{Code: exitInterrupted, Err: failure}
	case failure != nil:
		return &ExitError{Code: exitFailed, Err: failure}
	case ctx.Err() != nil:
		// The stream was cut before its terminal event
		return &ExitError{Code: exitInterrupted, Err: fmt.Errorf("run interrupted: %w", ctx.Err())}
	}
	return nil
}
