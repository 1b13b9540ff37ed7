package run

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/domain/execution"
)

// createPullRequest opens the feature pull request and completes the run.
// A failure leaves phases, review and verification recorded as they are.
func (uc *RunFeatureUseCase) createPullRequest(ctx context.Context, st *runState) error {
	if err := checkCancelled(ctx); err != nil {
		return err
	}
	if uc.prs == nil {
		return execution.ErrGit("pr", errors.New("no pull request creator configured"))
	}

	rec := st.record
	req := output.PullRequestRequest{
		Slug:    st.slug,
		Title:   pullRequestTitle(st.slug, rec.Feature),
		Body:    buildPRBody(rec),
		Branch:  uc.git.BranchName(st.slug),
		Base:    uc.opts.BaseBranch,
		WorkDir: st.worktree,
		Variables: uc.variables(st, map[string]interface{}{
			"completed_phases": rec.CompletedPhases(),
			"review":           rec.Execution.Review,
			"verification":     rec.Execution.Verification,
		}),
	}

	st.log.Info("creating pull request", zap.String("branch", req.Branch), zap.String("base", req.Base))
	url, err := uc.prs.CreatePR(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return execution.ErrCancelled(ctx.Err())
		}
		return execution.ErrGit("pr", err)
	}
	if url == "" {
		return execution.ErrGit("pr", errors.New("pull request creator returned no URL"))
	}

	rec.Execution.PR = url
	rec.Finish(execution.StatusCompleted)
	if err := uc.persist(ctx, st); err != nil {
		return err
	}
	uc.emit(ctx, st, execution.PrCreatedEvent{URL: url})
	return nil
}

func pullRequestTitle(slug, feature string) string {
	summary, _, _ := strings.Cut(strings.TrimSpace(feature), "\n")
	if r := []rune(summary); len(r) > 72 {
		summary = string(r[:69]) + "..."
	}
	return fmt.Sprintf("feat(%s): %s", slug, summary)
}

// buildPRBody renders the markdown summary of the run
func buildPRBody(rec *execution.ExecutionRecord) string {
	var b strings.Builder
	b.WriteString("## Summary\n\n")
	b.WriteString(strings.TrimSpace(rec.Feature))
	b.WriteString("\n\n## Phases\n\n")
	for i := range rec.Phases {
		p := &rec.Phases[i]
		commit := "-"
		if p.Result != nil && p.Result.Commit != "" {
			commit = p.Result.Commit
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, p.Name, commit)
	}

	if e := rec.Execution; e != nil {
		b.WriteString("\n## Review\n\n")
		fmt.Fprintf(&b, "- Issues found: %d\n- Issues fixed: %d\n", e.Review.IssuesFound, e.Review.IssuesFixed)
		if n := e.Review.Unresolved(); n > 0 {
			fmt.Fprintf(&b, "- Unresolved: %d\n", n)
		}

		b.WriteString("\n## Verification\n\n")
		switch {
		case rec.Verification.IsEmpty():
			b.WriteString("- No verification plan\n")
		case e.Verification.Passed:
			b.WriteString("- Passed\n")
		default:
			b.WriteString("- Not run\n")
		}
		for _, c := range rec.Verification.Criteria {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
	}
	return b.String()
}

// AgentPullRequestCreator asks the agent to push the branch and open the pull
// request, then reads the URL from its output
type AgentPullRequestCreator struct {
	agent  output.AgentGateway
	logger *zap.Logger
}

// NewAgentPullRequestCreator creates an AgentPullRequestCreator
func NewAgentPullRequestCreator(agent output.AgentGateway, logger *zap.Logger) *AgentPullRequestCreator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentPullRequestCreator{agent: agent, logger: logger}
}

// CreatePR implements output.PullRequestCreator
func (c *AgentPullRequestCreator) CreatePR(ctx context.Context, req output.PullRequestRequest) (string, error) {
	vars := make(map[string]interface{}, len(req.Variables)+3)
	for k, v := range req.Variables {
		vars[k] = v
	}
	vars["pr_title"] = req.Title
	vars["pr_body"] = req.Body
	vars["branch"] = req.Branch

	resp, err := c.agent.Execute(ctx, output.AgentRequest{
		PromptKey: output.PromptPullRequest,
		Variables: vars,
		Profile:   output.ProfileCode,
		WorkDir:   req.WorkDir,
	})
	if err != nil {
		return "", err
	}
	if resp.IsError {
		return "", fmt.Errorf("agent reported an error: %s", resp.Output)
	}

	url, ok := ExtractPRURL(resp.Output)
	if !ok {
		c.logger.Warn("agent output contains no pull request URL", zap.String("branch", req.Branch))
		return "", errors.New("no pull request URL in agent output")
	}
	return url, nil
}

var _ output.PullRequestCreator = (*AgentPullRequestCreator)(nil)
