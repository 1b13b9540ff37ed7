package di

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/gba/internal/adapter/gateway/agent"
	"github.com/YoshitsuguKoike/gba/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/application/usecase/run"
	"github.com/YoshitsuguKoike/gba/internal/infra/config"
)

func testSettings(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(afero.NewMemMapFs(), "/unused")
	require.NoError(t, err)
	cfg.Agent.Type = agent.TypeMock
	return cfg
}

func TestContainer_DefaultWiring(t *testing.T) {
	repo := t.TempDir()
	settings := testSettings(t)

	c, err := NewContainer(context.Background(), Config{
		Settings:     settings,
		RepoDir:      repo,
		OutputWriter: &bytes.Buffer{},
	})
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.GetRunUseCase())
	assert.NotNil(t, c.GetStatusUseCase())
	assert.IsType(t, &agent.MockAgentGateway{}, c.GetAgentGateway())
	assert.IsType(t, &presenter.CLIRunPresenter{}, c.GetPresenter())
	assert.NotNil(t, c.GetArtifactGateway(), "local artifacts are on by default")
	assert.IsType(t, &run.AgentPullRequestCreator{}, c.prCreator, "no token means the agent opens the PR")

	require.NotNil(t, c.GetEventJournal())
	assert.FileExists(t, filepath.Join(repo, ".gba", "var", "gba.db"))
	assert.Equal(t, filepath.Join(repo, ".gba", "features", "0001_x", "phases.yaml"), c.GetRecordStore().Path("0001_x"))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "close is idempotent")
}

func TestContainer_OptionalComponentsOff(t *testing.T) {
	settings := testSettings(t)
	settings.Artifacts.Backend = config.BackendNone
	settings.Journal.Enabled = false

	c, err := NewContainer(context.Background(), Config{
		Settings:     settings,
		RepoDir:      t.TempDir(),
		Fs:           afero.NewMemMapFs(),
		OutputFormat: OutputJSON,
	})
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.GetArtifactGateway())
	assert.Nil(t, c.GetEventJournal())
	assert.IsType(t, &presenter.JSONPresenter{}, c.GetPresenter())
}

func TestContainer_GitHubTokenSelectsAPICreator(t *testing.T) {
	settings := testSettings(t)
	settings.Git.GithubToken = "ghp_test"
	settings.Journal.Enabled = false

	c, err := NewContainer(context.Background(), Config{
		Settings: settings,
		RepoDir:  t.TempDir(),
		Fs:       afero.NewMemMapFs(),
	})
	require.NoError(t, err)
	defer c.Close()

	_, isAgent := c.prCreator.(*run.AgentPullRequestCreator)
	assert.False(t, isAgent)
	assert.NotNil(t, c.prCreator)
}

func TestContainer_UnknownAgent(t *testing.T) {
	settings := testSettings(t)
	settings.Agent.Type = "gpt"

	_, err := NewContainer(context.Background(), Config{Settings: settings, RepoDir: t.TempDir(), Fs: afero.NewMemMapFs()})
	assert.Error(t, err)
}

func TestContainer_RequiresSettings(t *testing.T) {
	_, err := NewContainer(context.Background(), Config{})
	assert.Error(t, err)
}

func TestRunOptions(t *testing.T) {
	settings := testSettings(t)
	settings.Hooks.PreCommit = []output.Hook{{Name: "build", Command: "go build ./..."}}
	settings.Review.FailOnUnresolved = true

	opts := RunOptions(settings, "/repo")
	assert.Equal(t, "/repo", opts.RepoPath)
	assert.Equal(t, "main", opts.BaseBranch)
	assert.True(t, opts.AutoCommit)
	assert.Equal(t, 5, opts.MaxRetries)
	assert.Len(t, opts.Hooks, 1)
	assert.True(t, opts.Review.FailOnUnresolved)
	assert.Equal(t, 3, opts.Verification.MaxIterations)
}

func TestNewArtifactGateway(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(t)
	fs := afero.NewMemMapFs()

	gateway, err := NewArtifactGateway(ctx, settings, fs, "/repo/.gba/var/artifacts")
	require.NoError(t, err)
	require.NotNil(t, gateway)
	exists, err := afero.DirExists(fs, "/repo/.gba/var/artifacts")
	require.NoError(t, err)
	assert.True(t, exists)

	settings.Artifacts.Backend = config.BackendNone
	gateway, err = NewArtifactGateway(ctx, settings, fs, "/repo/.gba/var/artifacts")
	require.NoError(t, err)
	assert.Nil(t, gateway)

	settings.Artifacts.Backend = "ftp"
	_, err = NewArtifactGateway(ctx, settings, fs, "/repo/.gba/var/artifacts")
	assert.ErrorContains(t, err, "unknown artifacts backend: ftp")
}
