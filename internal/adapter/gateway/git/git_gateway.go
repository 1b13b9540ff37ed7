package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/pkg/featurepath"
)

const shortHashLen = 7

// Options configures the git gateway
type Options struct {
	RepoDir       string // Main repository; worktrees live under <RepoDir>/.trees
	BaseBranch    string // Branch new feature branches start from (default "main")
	BranchPattern string // e.g. "feat/{id}-{slug}"
	AuthorName    string // Commit author; falls back to git config, then "gba"
	AuthorEmail   string
}

// GitGateway implements output.GitGateway with go-git for commits and the
// git binary for worktrees and diffs.
type GitGateway struct {
	opts   Options
	bin    string
	logger *zap.Logger
}

// NewGitGateway creates a git gateway for the repository in opts.RepoDir
func NewGitGateway(opts Options, logger *zap.Logger) *GitGateway {
	if opts.BaseBranch == "" {
		opts.BaseBranch = "main"
	}
	if opts.BranchPattern == "" {
		opts.BranchPattern = featurepath.DefaultBranchPattern
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitGateway{opts: opts, bin: "git", logger: logger.Named("git")}
}

// BranchName returns the feature branch for slug
func (g *GitGateway) BranchName(slug string) string {
	return featurepath.BranchName(g.opts.BranchPattern, slug)
}

// EnsureWorktree returns <repo>/.trees/<slug>, creating branch and worktree when missing
func (g *GitGateway) EnsureWorktree(ctx context.Context, slug string) (string, error) {
	if err := featurepath.ValidateSlug(slug); err != nil {
		return "", err
	}

	path := featurepath.WorktreePath(g.opts.RepoDir, slug)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		g.logger.Debug("worktree already exists", zap.String("slug", slug), zap.String("path", path))
		return path, nil
	}

	branch := g.BranchName(slug)
	g.logger.Info("creating worktree",
		zap.String("slug", slug),
		zap.String("branch", branch),
		zap.String("path", path))

	_, err := g.run(ctx, g.opts.RepoDir, "worktree", "add", "-b", branch, path, g.opts.BaseBranch)
	if err == nil {
		return path, nil
	}

	// The branch survives a removed worktree; check it out again instead of recreating it
	if g.branchExists(ctx, branch) {
		if _, retryErr := g.run(ctx, g.opts.RepoDir, "worktree", "add", path, branch); retryErr == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("failed to create worktree for %s: %w", slug, err)
}

// Commit stages every change in dir and commits it, returning the short hash.
// A clean tree yields output.ErrNothingToCommit.
func (g *GitGateway) Commit(ctx context.Context, dir, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to open repository %s: %w", dir, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("git status failed: %w", err)
	}
	if status.IsClean() {
		return "", output.ErrNothingToCommit
	}

	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("git add failed: %w", err)
	}

	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: g.signature(repo)})
	if err != nil {
		if errors.Is(err, gogit.ErrEmptyCommit) {
			return "", output.ErrNothingToCommit
		}
		return "", fmt.Errorf("git commit failed: %w", err)
	}

	short := hash.String()[:shortHashLen]
	g.logger.Debug("committed changes", zap.String("hash", short), zap.String("dir", dir))
	return short, nil
}

// Diff returns `git diff <base>` for dir
func (g *GitGateway) Diff(ctx context.Context, dir, base string) (string, error) {
	if base == "" {
		base = g.opts.BaseBranch
	}
	out, err := g.run(ctx, dir, "diff", base)
	if err != nil {
		return "", fmt.Errorf("git diff failed: %w", err)
	}
	return out, nil
}

// CurrentBranch returns the branch checked out in dir
func (g *GitGateway) CurrentBranch(dir string) (string, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s", head.Hash().String()[:shortHashLen])
	}
	return head.Name().Short(), nil
}

func (g *GitGateway) branchExists(ctx context.Context, branch string) bool {
	_, err := g.run(ctx, g.opts.RepoDir, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

func (g *GitGateway) signature(repo *gogit.Repository) *object.Signature {
	name, email := g.opts.AuthorName, g.opts.AuthorEmail
	if name == "" || email == "" {
		if cfg, err := repo.ConfigScoped(config.GlobalScope); err == nil {
			if name == "" {
				name = cfg.User.Name
			}
			if email == "" {
				email = cfg.User.Email
			}
		}
	}
	if name == "" {
		name = "gba"
	}
	if email == "" {
		email = "gba@localhost"
	}
	return &object.Signature{Name: name, Email: email, When: time.Now()}
}

// run executes the git binary in dir and returns stdout
func (g *GitGateway) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.bin, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("git %s: %w", args[0], err)
		}
		return "", fmt.Errorf("git %s: %s: %w", args[0], msg, err)
	}
	return stdout.String(), nil
}

var _ output.GitGateway = (*GitGateway)(nil)
