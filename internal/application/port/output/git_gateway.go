package output

import (
	"context"
	"errors"
)

// ErrNothingToCommit is returned by Commit when the working tree is clean
var ErrNothingToCommit = errors.New("nothing to commit")

// GitGateway is the interface for git plumbing used by a run
type GitGateway interface {
	// EnsureWorktree returns the worktree for slug, creating branch and worktree if needed
	EnsureWorktree(ctx context.Context, slug string) (string, error)

	// Commit stages all changes in dir and commits them, returning the short hash
	Commit(ctx context.Context, dir, message string) (string, error)

	// Diff returns the diff of dir against base
	Diff(ctx context.Context, dir, base string) (string, error)

	// BranchName returns the feature branch for slug
	BranchName(slug string) string
}

// PullRequestCreator opens pull requests
type PullRequestCreator interface {
	CreatePR(ctx context.Context, req PullRequestRequest) (string, error)
}

// PullRequestRequest carries the metadata of a feature pull request
type PullRequestRequest struct {
	Slug      string
	Title     string
	Body      string
	Branch    string
	Base      string
	WorkDir   string
	Variables map[string]interface{} // Summary handed to agent-driven creators
}
