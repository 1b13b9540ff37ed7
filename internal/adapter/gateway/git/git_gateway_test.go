package git

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
)

// TestMain runs goleak verification for all tests in this package
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// net/http keep-alive connections from the fake GitHub server
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// initRepo creates a repository on branch main with one commit
func initRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# uploader\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir, repo
}

func requireGitBinary(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func TestGitGateway_BranchName(t *testing.T) {
	gw := NewGitGateway(Options{RepoDir: "/repo"}, nil)
	assert.Equal(t, "feat/0001-0001_web_frontend", gw.BranchName("0001_web_frontend"))

	custom := NewGitGateway(Options{RepoDir: "/repo", BranchPattern: "gba/{slug}"}, nil)
	assert.Equal(t, "gba/0001_web_frontend", custom.BranchName("0001_web_frontend"))
}

func TestGitGateway_Commit(t *testing.T) {
	dir, repo := initRepo(t)
	gw := NewGitGateway(Options{RepoDir: dir, AuthorName: "gba", AuthorEmail: "gba@example.com"}, nil)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "upload.go"), []byte("package upload\n"), 0o644))
	hash, err := gw.Commit(ctx, dir, "feat(0001_upload): phase 1 - model")
	require.NoError(t, err)
	assert.Len(t, hash, 7)

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, hash, head.Hash().String()[:7])

	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "feat(0001_upload): phase 1 - model", commit.Message)
	assert.Equal(t, "gba", commit.Author.Name)

	_, err = commit.File("upload.go")
	assert.NoError(t, err, "new files are staged")
}

func TestGitGateway_CommitStagesDeletions(t *testing.T) {
	dir, repo := initRepo(t)
	gw := NewGitGateway(Options{RepoDir: dir}, nil)

	require.NoError(t, os.Remove(filepath.Join(dir, "README.md")))
	_, err := gw.Commit(context.Background(), dir, "remove readme")
	require.NoError(t, err)

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	_, err = commit.File("README.md")
	assert.Error(t, err)
}

func TestGitGateway_CommitCleanTree(t *testing.T) {
	dir, _ := initRepo(t)
	gw := NewGitGateway(Options{RepoDir: dir}, nil)

	_, err := gw.Commit(context.Background(), dir, "nothing")
	assert.ErrorIs(t, err, output.ErrNothingToCommit)
}

func TestGitGateway_CommitNotARepository(t *testing.T) {
	gw := NewGitGateway(Options{}, nil)
	_, err := gw.Commit(context.Background(), t.TempDir(), "msg")
	assert.Error(t, err)
}

func TestGitGateway_CommitCancelled(t *testing.T) {
	dir, _ := initRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGitGateway(Options{RepoDir: dir}, nil).Commit(ctx, dir, "msg")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGitGateway_EnsureWorktree(t *testing.T) {
	requireGitBinary(t)
	dir, _ := initRepo(t)
	gw := NewGitGateway(Options{RepoDir: dir}, nil)
	ctx := context.Background()

	path, err := gw.EnsureWorktree(ctx, "0001_upload")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".trees", "0001_upload"), path)
	assert.FileExists(t, filepath.Join(path, "README.md"))

	branch, err := gw.CurrentBranch(path)
	require.NoError(t, err)
	assert.Equal(t, "feat/0001-0001_upload", branch)

	again, err := gw.EnsureWorktree(ctx, "0001_upload")
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestGitGateway_EnsureWorktreeReusesExistingBranch(t *testing.T) {
	requireGitBinary(t)
	dir, _ := initRepo(t)
	gw := NewGitGateway(Options{RepoDir: dir}, nil)
	ctx := context.Background()

	path, err := gw.EnsureWorktree(ctx, "0002_cache")
	require.NoError(t, err)

	_, err = gw.run(ctx, dir, "worktree", "remove", "--force", path)
	require.NoError(t, err)
	require.NoDirExists(t, path)

	path, err = gw.EnsureWorktree(ctx, "0002_cache")
	require.NoError(t, err)
	assert.DirExists(t, path)
}

func TestGitGateway_EnsureWorktreeRejectsBadSlug(t *testing.T) {
	gw := NewGitGateway(Options{RepoDir: t.TempDir()}, nil)
	_, err := gw.EnsureWorktree(context.Background(), "../escape")
	assert.Error(t, err)
}

func TestGitGateway_EnsureWorktreeUnknownBase(t *testing.T) {
	requireGitBinary(t)
	dir, _ := initRepo(t)
	gw := NewGitGateway(Options{RepoDir: dir, BaseBranch: "does-not-exist"}, nil)

	_, err := gw.EnsureWorktree(context.Background(), "0003_x")
	assert.Error(t, err)
}

func TestGitGateway_Diff(t *testing.T) {
	requireGitBinary(t)
	dir, _ := initRepo(t)
	gw := NewGitGateway(Options{RepoDir: dir}, nil)
	ctx := context.Background()

	diff, err := gw.Diff(ctx, dir, "main")
	require.NoError(t, err)
	assert.Empty(t, diff)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# uploader\nretries\n"), 0o644))
	diff, err = gw.Diff(ctx, dir, "")
	require.NoError(t, err)
	assert.Contains(t, diff, "+retries")

	_, err = gw.Diff(ctx, dir, "no-such-ref")
	assert.Error(t, err)
}

func TestParseGitHubRemote(t *testing.T) {
	tests := []struct {
		remote    string
		owner     string
		repo      string
		wantError bool
	}{
		{remote: "git@github.com:acme/uploader.git", owner: "acme", repo: "uploader"},
		{remote: "git@github.com:acme/uploader", owner: "acme", repo: "uploader"},
		{remote: "https://github.com/acme/uploader.git", owner: "acme", repo: "uploader"},
		{remote: "https://github.com/acme/uploader", owner: "acme", repo: "uploader"},
		{remote: "ssh://git@github.com/acme/uploader.git", owner: "acme", repo: "uploader"},
		{remote: "https://gitlab.com/acme/uploader.git", wantError: true},
		{remote: "https://github.com/acme", wantError: true},
		{remote: "not a url", wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			owner, repo, err := ParseGitHubRemote(tt.remote)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.repo, repo)
		})
	}
}

func TestNewGitHubPullRequestCreator_RequiresToken(t *testing.T) {
	_, err := NewGitHubPullRequestCreator(context.Background(), GitHubOptions{}, nil)
	assert.ErrorIs(t, err, errTokenNotSet)
}

func TestGitHubPullRequestCreator_CreatePR(t *testing.T) {
	dir, repo := initRepo(t)
	_, err := repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:acme/uploader.git"},
	})
	require.NoError(t, err)

	var got github.NewPullRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/uploader/pulls", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number":42,"html_url":"https://github.com/acme/uploader/pull/42"}`))
	}))
	defer srv.Close()

	client := github.NewClient(srv.Client())
	client.BaseURL, err = url.Parse(srv.URL + "/")
	require.NoError(t, err)

	var pushed []string
	creator := &GitHubPullRequestCreator{
		client: client,
		opts:   GitHubOptions{Remote: "origin", RepoDir: dir},
		logger: zap.NewNop(),
		push: func(_ context.Context, d, remote, branch string) error {
			pushed = append(pushed, d, remote, branch)
			return nil
		},
	}

	prURL, err := creator.CreatePR(context.Background(), output.PullRequestRequest{
		Slug:    "0001_upload",
		Title:   "feat(0001_upload): upload retries",
		Body:    "## Summary",
		Branch:  "feat/0001-0001_upload",
		Base:    "main",
		WorkDir: dir,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/uploader/pull/42", prURL)
	assert.Equal(t, []string{dir, "origin", "feat/0001-0001_upload"}, pushed)
	assert.Equal(t, "feat/0001-0001_upload", got.GetHead())
	assert.Equal(t, "main", got.GetBase())
	assert.Equal(t, "feat(0001_upload): upload retries", got.GetTitle())
	assert.Equal(t, "## Summary", got.GetBody())
}

func TestGitHubPullRequestCreator_MissingRemote(t *testing.T) {
	dir, _ := initRepo(t)
	creator := &GitHubPullRequestCreator{
		client: github.NewClient(nil),
		opts:   GitHubOptions{Remote: "origin", RepoDir: dir},
		logger: zap.NewNop(),
		push: func(context.Context, string, string, string) error {
			t.Fatal("push must not run without a remote")
			return nil
		},
	}

	_, err := creator.CreatePR(context.Background(), output.PullRequestRequest{Branch: "feat/x", Base: "main"})
	assert.Error(t, err)
}
