package git

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
)

var (
	sshRemotePattern   = regexp.MustCompile(`^[\w.-]+@([^:]+):([^/]+)/(.+?)(?:\.git)?/?$`)
	errTokenNotSet     = fmt.Errorf("GitHub token not set")
	errUnsupportedHost = fmt.Errorf("remote is not a GitHub repository")
)

// GitHubOptions configures pull request creation through the GitHub API
type GitHubOptions struct {
	Token   string
	Remote  string // Remote to push to and read owner/repo from (default "origin")
	RepoDir string
	BaseURL string // API base for GitHub Enterprise; empty means api.github.com
}

// GitHubPullRequestCreator pushes the feature branch and opens a pull request
type GitHubPullRequestCreator struct {
	client *github.Client
	opts   GitHubOptions
	push   func(ctx context.Context, dir, remote, branch string) error
	logger *zap.Logger
}

// NewGitHubClient creates a GitHub client authenticated with token
func NewGitHubClient(ctx context.Context, token, baseURL string) (*github.Client, error) {
	if token == "" {
		return nil, errTokenNotSet
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	if baseURL != "" {
		return client.WithEnterpriseURLs(baseURL, baseURL)
	}
	return client, nil
}

// NewGitHubPullRequestCreator creates a pull request creator backed by the GitHub API
func NewGitHubPullRequestCreator(ctx context.Context, opts GitHubOptions, logger *zap.Logger) (*GitHubPullRequestCreator, error) {
	client, err := NewGitHubClient(ctx, opts.Token, opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	gw := &GitGateway{bin: "git", opts: Options{RepoDir: opts.RepoDir}, logger: logger}
	return &GitHubPullRequestCreator{
		client: client,
		opts:   opts,
		logger: logger.Named("github"),
		push: func(ctx context.Context, dir, remote, branch string) error {
			_, err := gw.run(ctx, dir, "push", "--set-upstream", remote, branch)
			return err
		},
	}, nil
}

// CreatePR pushes req.Branch and opens a pull request against req.Base
func (c *GitHubPullRequestCreator) CreatePR(ctx context.Context, req output.PullRequestRequest) (string, error) {
	owner, repo, err := c.repository()
	if err != nil {
		return "", err
	}

	dir := req.WorkDir
	if dir == "" {
		dir = c.opts.RepoDir
	}
	if err := c.push(ctx, dir, c.opts.Remote, req.Branch); err != nil {
		return "", fmt.Errorf("failed to push %s: %w", req.Branch, err)
	}

	pr, _, err := c.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(req.Title),
		Head:  github.String(req.Branch),
		Base:  github.String(req.Base),
		Body:  github.String(req.Body),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create pull request on %s/%s: %w", owner, repo, err)
	}

	c.logger.Info("pull request created",
		zap.String("slug", req.Slug),
		zap.Int("number", pr.GetNumber()),
		zap.String("url", pr.GetHTMLURL()))
	return pr.GetHTMLURL(), nil
}

// repository reads owner and name from the configured remote
func (c *GitHubPullRequestCreator) repository() (string, string, error) {
	repo, err := gogit.PlainOpenWithOptions(c.opts.RepoDir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", "", fmt.Errorf("failed to open repository: %w", err)
	}
	remote, err := repo.Remote(c.opts.Remote)
	if err != nil {
		return "", "", fmt.Errorf("remote %q: %w", c.opts.Remote, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", "", fmt.Errorf("remote %q has no URL", c.opts.Remote)
	}
	return ParseGitHubRemote(urls[0])
}

// ParseGitHubRemote extracts owner and repository from a remote URL.
// Supports: git@github.com:owner/repo.git, https://github.com/owner/repo(.git), ssh://git@github.com/owner/repo.git
func ParseGitHubRemote(remote string) (string, string, error) {
	remote = strings.TrimSpace(remote)

	if m := sshRemotePattern.FindStringSubmatch(remote); m != nil {
		if !strings.Contains(m[1], "github") {
			return "", "", fmt.Errorf("%w: %s", errUnsupportedHost, remote)
		}
		return m[2], m[3], nil
	}

	u, err := url.Parse(remote)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("cannot parse remote URL %q", remote)
	}
	if !strings.Contains(u.Hostname(), "github") {
		return "", "", fmt.Errorf("%w: %s", errUnsupportedHost, remote)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot parse owner/repo from %q", remote)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

var _ output.PullRequestCreator = (*GitHubPullRequestCreator)(nil)
