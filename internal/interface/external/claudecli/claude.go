package claudecli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/gba/internal/pkg/procgroup"
)

type Runner struct {
	Bin     string
	Timeout time.Duration
}

// ClaudeResponse represents the JSON response from claude
type ClaudeResponse struct {
	Type       string  `json:"type"`
	Subtype    string  `json:"subtype"`
	IsError    bool    `json:"is_error"`
	DurationMs int     `json:"duration_ms"`
	NumTurns   int     `json:"num_turns"`
	Result     string  `json:"result"`
	SessionID  string  `json:"session_id"`
	TotalCost  float64 `json:"total_cost_usd"`
	UUID       string  `json:"uuid"`
}

// RunOptions contains options for Claude Code execution
type RunOptions struct {
	AllowedTools    []string // Tools to allow (e.g., "Read", "Edit", "Bash")
	DisallowedTools []string // Tools to disallow
	Model           string   // --model, empty for the CLI default
	PermissionMode  string   // --permission-mode, e.g. "acceptEdits"
	WorkDir         string   // Directory claude runs in
}

// Result is the parsed outcome of one claude invocation
type Result struct {
	Text      string
	Turns     int
	IsError   bool
	Duration  time.Duration
	CostUSD   float64
	SessionID string
	Raw       bool // Output was not JSON and Text holds it verbatim
}

func (r Runner) Run(ctx context.Context, prompt string, extraArgs ...string) (*Result, error) {
	return r.RunWithOptions(ctx, prompt, nil, extraArgs...)
}

// Args builds the claude command line for prompt
func (r Runner) Args(prompt string, opts *RunOptions, extraArgs ...string) []string {
	args := []string{"-p", "--output-format", "json"}

	if opts != nil {
		if len(opts.AllowedTools) > 0 {
			args = append(args, "--allowed-tools", strings.Join(opts.AllowedTools, ","))
		}
		if len(opts.DisallowedTools) > 0 {
			args = append(args, "--disallowed-tools", strings.Join(opts.DisallowedTools, ","))
		}
		if opts.Model != "" {
			args = append(args, "--model", opts.Model)
		}
		if opts.PermissionMode != "" {
			args = append(args, "--permission-mode", opts.PermissionMode)
		}
	}

	args = append(args, extraArgs...)
	return append(args, prompt)
}

func (r Runner) RunWithOptions(ctx context.Context, prompt string, opts *RunOptions, extraArgs ...string) (*Result, error) {
	cctx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(cctx, r.Bin, r.Args(prompt, opts, extraArgs...)...)
	if opts != nil && opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}
	procgroup.Configure(cmd)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if cctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, fmt.Errorf("claude timed out after %s: %w", r.Timeout, err)
		}
		return nil, fmt.Errorf("claude execution failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	var response ClaudeResponse
	if err := json.Unmarshal(bytes.TrimSpace(out), &response); err != nil {
		// Older CLIs print plain text
		return &Result{Text: string(out), Duration: time.Since(start), Raw: true}, nil
	}

	duration := time.Duration(response.DurationMs) * time.Millisecond
	if duration == 0 {
		duration = time.Since(start)
	}
	return &Result{
		Text:      response.Result,
		Turns:     response.NumTurns,
		IsError:   response.IsError,
		Duration:  duration,
		CostUSD:   response.TotalCost,
		SessionID: response.SessionID,
	}, nil
}
