package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/YoshitsuguKoike/gba/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/gba/internal/app"
	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/buildinfo"
	"github.com/YoshitsuguKoike/gba/internal/infra/config"
	"github.com/YoshitsuguKoike/gba/internal/infrastructure/di"
)

// ExitError carries the exit status of a failure that was already shown to the user
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	repo     string
	output   string
	logLevel string
	verbose  bool

	fs afero.Fs
}

// NewRoot creates the gba root command
func NewRoot() *cobra.Command {
	return newRoot(afero.NewOsFs())
}

func newRoot(fs afero.Fs) *cobra.Command {
	g := &globalOptions{fs: fs}

	cmd := &cobra.Command{
		Use:   "gba",
		Short: "gba - drive planned features through coding, review and verification",
		Long: `gba runs a planned feature to completion: each phase is coded by an AI agent,
checked by pre-commit hooks and committed, then the branch is reviewed,
verified and opened as a pull request.`,
		Version:       buildinfo.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(c *cobra.Command, _ []string) error { return c.Help() },
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.repo, "repo", ".", "Repository root")
	flags.StringVarP(&g.output, "output", "o", di.OutputCLI, "Output format (cli, json)")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides log.level")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "Print agent output as it arrives")

	cmd.AddCommand(newRunCmd(g))
	cmd.AddCommand(newStatusCmd(g))
	cmd.AddCommand(newEventsCmd(g))
	cmd.AddCommand(newDoctorCmd(g))
	cmd.AddCommand(newPromptsCmd(g))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// repoDir returns the absolute repository root
func (g *globalOptions) repoDir() (string, error) {
	dir, err := filepath.Abs(g.repo)
	if err != nil {
		return "", fmt.Errorf("resolve repository %s: %w", g.repo, err)
	}
	return dir, nil
}

// loadSettings reads .gba/config.yaml and GBA_* variables, then applies
// flag overrides through mutate
func (g *globalOptions) loadSettings(mutate func(*config.Config)) (*config.Config, string, error) {
	repo, err := g.repoDir()
	if err != nil {
		return nil, "", err
	}
	settings, err := config.Load(g.fs, repo)
	if err != nil {
		return nil, "", err
	}
	if g.logLevel != "" {
		settings.Log.Level = g.logLevel
	}
	if mutate != nil {
		mutate(settings)
	}
	if err := settings.Validate(); err != nil {
		return nil, "", err
	}
	return settings, repo, nil
}

// newLogger builds the process logger from settings and installs it globally
func newLogger(cmd *cobra.Command, settings *config.Config) (*zap.Logger, error) {
	logger, err := app.NewLoggerTo(cmd.ErrOrStderr(), settings.Log.Level, settings.Log.Format)
	if err != nil {
		return nil, err
	}
	app.SetLogger(logger)
	return logger, nil
}

// newContainer wires every component for commands that drive or inspect runs
func (g *globalOptions) newContainer(ctx context.Context, cmd *cobra.Command, mutate func(*config.Config)) (*di.Container, error) {
	settings, repo, err := g.loadSettings(mutate)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd, settings)
	if err != nil {
		return nil, err
	}
	return di.NewContainer(ctx, di.Config{
		Settings:     settings,
		RepoDir:      repo,
		Fs:           g.fs,
		OutputFormat: g.output,
		OutputWriter: cmd.OutOrStdout(),
		Verbose:      g.verbose,
		Logger:       logger,
	})
}

// presenter returns a presenter for commands that do not need the container
func (g *globalOptions) presenter(w io.Writer) output.EventPresenter {
	if g.output == di.OutputJSON {
		return presenter.NewJSONPresenter(w)
	}
	return presenter.NewCLIRunPresenter(w, g.verbose)
}

// setupSignalHandler cancels the returned context on SIGINT/SIGTERM
func setupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent,
		os.Interrupt,    // Ctrl+C (SIGINT)
		syscall.SIGTERM, // kill command
	)
}
