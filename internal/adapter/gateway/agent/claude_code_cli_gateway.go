package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/interface/external/claudecli"
)

// Tool sets granted to each profile
var profileTools = map[output.ToolProfile][]string{
	output.ProfileCode:   {"Read", "Write", "Edit", "MultiEdit", "Glob", "Grep", "Bash"},
	output.ProfileReview: {"Read", "Glob", "Grep"},
	output.ProfileVerify: {"Read", "Glob", "Grep", "Bash"},
}

// CLIOptions configures the claude CLI gateway
type CLIOptions struct {
	Bin            string
	Model          string
	Timeout        time.Duration
	PermissionMode string
}

// ClaudeCodeCLIGateway implements AgentGateway using Claude Code CLI
// This executes `claude -p --output-format json "prompt"` in the feature worktree
type ClaudeCodeCLIGateway struct {
	runner   *claudecli.Runner
	renderer *PromptRenderer
	opts     CLIOptions
	logger   *zap.Logger
}

// NewClaudeCodeCLIGateway creates a new Claude Code CLI gateway
func NewClaudeCodeCLIGateway(opts CLIOptions, renderer *PromptRenderer, logger *zap.Logger) *ClaudeCodeCLIGateway {
	if opts.Bin == "" {
		opts.Bin = "claude"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Minute
	}
	if opts.PermissionMode == "" {
		opts.PermissionMode = "acceptEdits"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ClaudeCodeCLIGateway{
		runner: &claudecli.Runner{
			Bin:     opts.Bin,
			Timeout: opts.Timeout,
		},
		renderer: renderer,
		opts:     opts,
		logger:   logger.Named("claude-cli"),
	}
}

// Execute renders the prompt and runs Claude Code CLI with the profile's tools
func (g *ClaudeCodeCLIGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	prompt, err := g.renderer.Render(req.PromptKey, req.Variables)
	if err != nil {
		return nil, err
	}

	runner := *g.runner
	if req.Timeout > 0 {
		runner.Timeout = req.Timeout
	}

	tools, ok := profileTools[req.Profile]
	if !ok {
		tools = profileTools[output.ProfileReview]
	}

	g.logger.Debug("running claude",
		zap.String("prompt", string(req.PromptKey)),
		zap.String("profile", string(req.Profile)),
		zap.String("dir", req.WorkDir),
		zap.Int("prompt_bytes", len(prompt)))

	result, err := runner.RunWithOptions(ctx, prompt, &claudecli.RunOptions{
		AllowedTools:   tools,
		Model:          g.opts.Model,
		PermissionMode: g.opts.PermissionMode,
		WorkDir:        req.WorkDir,
	})
	if err != nil {
		return nil, fmt.Errorf("claude CLI execution failed: %w", err)
	}

	turns := result.Turns
	if turns <= 0 {
		turns = 1
	}

	return &output.AgentResponse{
		Output:    result.Text,
		Turns:     turns,
		IsError:   result.IsError,
		Duration:  result.Duration,
		AgentType: "claude-code-cli",
		Metadata: map[string]string{
			"working_dir": req.WorkDir,
			"session_id":  result.SessionID,
			"cost_usd":    fmt.Sprintf("%.4f", result.CostUSD),
		},
	}, nil
}

// GetCapability returns Claude Code CLI's capabilities
func (g *ClaudeCodeCLIGateway) GetCapability() output.AgentCapability {
	return output.AgentCapability{
		SupportsTools: true,
		MaxPromptSize: 200000, // 200k tokens
		AgentType:     "claude-code-cli",
	}
}

// HealthCheck verifies if claude CLI is available
func (g *ClaudeCodeCLIGateway) HealthCheck(ctx context.Context) error {
	runner := *g.runner
	runner.Timeout = 30 * time.Second

	result, err := runner.RunWithOptions(ctx, "Reply with the single word: pong", &claudecli.RunOptions{Model: g.opts.Model})
	if err != nil {
		return fmt.Errorf("claude CLI health check failed: %w", err)
	}
	if result.IsError {
		return fmt.Errorf("claude CLI health check failed: %s", result.Text)
	}
	return nil
}
