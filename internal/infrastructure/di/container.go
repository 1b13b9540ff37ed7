package di

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	agentgateway "github.com/YoshitsuguKoike/gba/internal/adapter/gateway/agent"
	gitgateway "github.com/YoshitsuguKoike/gba/internal/adapter/gateway/git"
	hookgateway "github.com/YoshitsuguKoike/gba/internal/adapter/gateway/hook"
	storagegateway "github.com/YoshitsuguKoike/gba/internal/adapter/gateway/storage"
	"github.com/YoshitsuguKoike/gba/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/gba/internal/app"
	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/application/usecase/run"
	"github.com/YoshitsuguKoike/gba/internal/infra/config"
	"github.com/YoshitsuguKoike/gba/internal/infra/persistence/file"
	sqliterepo "github.com/YoshitsuguKoike/gba/internal/infrastructure/persistence/sqlite"
)

// Output formats
const (
	OutputCLI  = "cli"
	OutputJSON = "json"
)

// Container is the DI container that holds all dependencies
// This implements manual dependency injection for Clean Architecture
type Container struct {
	// Infrastructure Layer - Database
	db *sql.DB

	// Infrastructure Layer - Persistence
	records *file.YAMLRecordStore
	journal output.EventJournal

	// Infrastructure Layer - Gateways
	renderer     *agentgateway.PromptRenderer
	agentGateway output.AgentGateway
	hookRunner   output.HookRunner
	gitGateway   *gitgateway.GitGateway
	prCreator    output.PullRequestCreator
	artifacts    output.ArtifactGateway

	// Application Layer - Use Cases
	runUseCase    *run.RunFeatureUseCase
	statusUseCase *run.FeatureStatusUseCase

	// Adapter Layer - Presenters
	presenter output.EventPresenter

	paths  app.Paths
	logger *zap.Logger
	config Config
}

// Config holds configuration for the container
type Config struct {
	Settings     *config.Config
	RepoDir      string
	Fs           afero.Fs // defaults to the OS filesystem
	OutputFormat string   // cli or json
	OutputWriter io.Writer
	Verbose      bool // echo agent output
	Logger       *zap.Logger
}

// NewContainer creates and initializes the DI container
func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	if cfg.Settings == nil {
		return nil, fmt.Errorf("container requires settings")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.OutputWriter == nil {
		cfg.OutputWriter = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := cfg.Settings
	c := &Container{
		config: cfg,
		logger: cfg.Logger,
		paths:  app.ResolvePaths(cfg.RepoDir, s.Artifacts.Dir, s.Journal.Path),
	}

	// Initialize dependencies in dependency order
	if err := c.initializeInfrastructure(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	c.initializeApplication()
	c.initializeAdapters()
	return c, nil
}

// initializeInfrastructure initializes infrastructure layer components
func (c *Container) initializeInfrastructure(ctx context.Context) error {
	s := c.config.Settings

	// 1. Execution records and design documents
	c.records = file.NewYAMLRecordStore(c.config.Fs, c.paths.Home, c.logger)

	// 2. Prompt renderer, configured include dirs first, then .gba/prompts
	includes := make([]string, 0, len(s.Prompts.Include)+1)
	for _, dir := range s.Prompts.Include {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(c.paths.Repo, dir)
		}
		includes = append(includes, dir)
	}
	includes = append(includes, c.paths.Prompts)
	c.renderer = agentgateway.NewPromptRenderer(c.config.Fs, includes...)

	// 3. Agent gateway
	gateway, err := agentgateway.NewAgentGateway(agentgateway.FactoryConfig{
		Type:           s.Agent.Type,
		Bin:            s.Agent.Bin,
		Model:          s.Agent.Model,
		MaxTokens:      s.Agent.MaxTokens,
		Timeout:        s.Agent.Timeout,
		PermissionMode: s.Agent.PermissionMode,
		Renderer:       c.renderer,
		Logger:         c.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create agent gateway: %w", err)
	}
	c.agentGateway = gateway

	// 4. Hooks and git
	c.hookRunner = hookgateway.NewShellHookRunner(s.Hooks.Timeout, c.logger).
		WithEnv("GBA_REPO="+c.paths.Repo)
	c.gitGateway = gitgateway.NewGitGateway(gitgateway.Options{
		RepoDir:       c.paths.Repo,
		BaseBranch:    s.Git.BaseBranch,
		BranchPattern: s.Git.BranchPattern,
	}, c.logger)

	// 5. Pull requests through the GitHub API when a token is configured
	if s.Git.GithubToken != "" {
		creator, err := gitgateway.NewGitHubPullRequestCreator(ctx, gitgateway.GitHubOptions{
			Token:   s.Git.GithubToken,
			Remote:  s.Git.Remote,
			RepoDir: c.paths.Repo,
		}, c.logger)
		if err != nil {
			return fmt.Errorf("failed to create GitHub client: %w", err)
		}
		c.prCreator = creator
	} else {
		c.prCreator = run.NewAgentPullRequestCreator(c.agentGateway, c.logger)
	}

	// 6. Artifact storage based on configuration
	artifacts, err := NewArtifactGateway(ctx, s, c.config.Fs, c.paths.Artifacts)
	if err != nil {
		return err
	}
	c.artifacts = artifacts

	// 7. Event journal
	if s.Journal.Enabled {
		db, err := sqliterepo.Open(ctx, c.paths.Journal)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		c.db = db
		c.journal = sqliterepo.NewEventJournal(db)
	}

	return nil
}

// initializeApplication initializes application layer components
func (c *Container) initializeApplication() {
	s := c.config.Settings

	c.runUseCase = run.NewRunFeatureUseCase(run.Dependencies{
		Records:      c.records,
		Agent:        c.agentGateway,
		Hooks:        c.hookRunner,
		Git:          c.gitGateway,
		PullRequests: c.prCreator,
		Design:       c.records,
		Artifacts:    c.artifacts,
		Journal:      c.journal,
	}, RunOptions(s, c.paths.Repo), c.logger)

	c.statusUseCase = run.NewFeatureStatusUseCase(c.records)
}

// initializeAdapters initializes adapter layer components
func (c *Container) initializeAdapters() {
	switch c.config.OutputFormat {
	case OutputJSON:
		c.presenter = presenter.NewJSONPresenter(c.config.OutputWriter)
	default: // "cli"
		c.presenter = presenter.NewCLIRunPresenter(c.config.OutputWriter, c.config.Verbose)
	}
}

// RunOptions maps settings onto the options of a run
func RunOptions(s *config.Config, repoDir string) run.Options {
	return run.Options{
		RepoPath:   repoDir,
		BaseBranch: s.Git.BaseBranch,
		AutoCommit: s.Git.AutoCommit,
		Hooks:      s.Hooks.PreCommit,
		MaxRetries: s.Hooks.MaxRetries,
		Review: run.ReviewOptions{
			Enabled:          s.Review.Enabled,
			MaxIterations:    s.Review.MaxIterations,
			FailOnUnresolved: s.Review.FailOnUnresolved,
		},
		Verification: run.VerificationOptions{
			Enabled:       s.Verification.Enabled,
			MaxIterations: s.Verification.MaxIterations,
		},
	}
}

// NewArtifactGateway builds the artifact store selected by settings.
// It returns nil when artifacts are disabled.
func NewArtifactGateway(ctx context.Context, s *config.Config, fs afero.Fs, localDir string) (output.ArtifactGateway, error) {
	switch s.Artifacts.Backend {
	case config.BackendLocal:
		local, err := storagegateway.NewLocalStorageGateway(fs, localDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create local storage gateway: %w", err)
		}
		return local, nil

	case config.BackendS3:
		remote, err := storagegateway.NewS3StorageGateway(ctx, storagegateway.S3Config{
			BucketName: s.Artifacts.S3.Bucket,
			Prefix:     s.Artifacts.S3.Prefix,
			Region:     s.Artifacts.S3.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 storage gateway: %w", err)
		}
		return remote, nil

	case config.BackendNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown artifacts backend: %s", s.Artifacts.Backend)
	}
}

// GetRunUseCase returns the run use case
func (c *Container) GetRunUseCase() *run.RunFeatureUseCase {
	return c.runUseCase
}

// GetStatusUseCase returns the status use case
func (c *Container) GetStatusUseCase() *run.FeatureStatusUseCase {
	return c.statusUseCase
}

// GetPresenter returns the presenter
func (c *Container) GetPresenter() output.EventPresenter {
	return c.presenter
}

// GetAgentGateway returns the agent gateway
func (c *Container) GetAgentGateway() output.AgentGateway {
	return c.agentGateway
}

// GetGitGateway returns the git gateway
func (c *Container) GetGitGateway() *gitgateway.GitGateway {
	return c.gitGateway
}

// GetPromptRenderer returns the prompt renderer
func (c *Container) GetPromptRenderer() *agentgateway.PromptRenderer {
	return c.renderer
}

// GetRecordStore returns the execution record store
func (c *Container) GetRecordStore() *file.YAMLRecordStore {
	return c.records
}

// GetArtifactGateway returns the artifact gateway, nil when artifacts are disabled
func (c *Container) GetArtifactGateway() output.ArtifactGateway {
	return c.artifacts
}

// GetEventJournal returns the event journal, nil when the journal is disabled
func (c *Container) GetEventJournal() output.EventJournal {
	return c.journal
}

// Settings returns the configuration the container was built from
func (c *Container) Settings() *config.Config {
	return c.config.Settings
}

// Logger returns the logger shared by all components
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Paths returns the resolved repository paths
func (c *Container) Paths() app.Paths {
	return c.paths
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.db != nil {
		err := c.db.Close()
		c.db = nil
		return err
	}
	return nil
}
