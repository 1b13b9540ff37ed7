package hook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/pkg/procgroup"
)

const (
	// DefaultTimeout bounds a single hook command
	DefaultTimeout = 10 * time.Minute

	// maxOutputBytes keeps the tail of long hook output
	maxOutputBytes = 64 * 1024
)

// ShellHookRunner runs hooks with `sh -c` inside the feature worktree
type ShellHookRunner struct {
	shell   string
	timeout time.Duration
	env     []string
	logger  *zap.Logger
}

// NewShellHookRunner creates a hook runner. A zero timeout uses DefaultTimeout.
func NewShellHookRunner(timeout time.Duration, logger *zap.Logger) *ShellHookRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShellHookRunner{
		shell:   "sh",
		timeout: timeout,
		logger:  logger.Named("hooks"),
	}
}

// WithEnv adds environment variables (KEY=VALUE) to every hook
func (r *ShellHookRunner) WithEnv(env ...string) *ShellHookRunner {
	cp := *r
	cp.env = append(append([]string(nil), r.env...), env...)
	return &cp
}

// RunAll runs every hook in order. A failing hook does not stop the ones after it.
func (r *ShellHookRunner) RunAll(ctx context.Context, hooks []output.Hook, workDir string) []output.HookOutcome {
	outcomes := make([]output.HookOutcome, 0, len(hooks))
	for _, h := range hooks {
		outcomes = append(outcomes, r.run(ctx, h, workDir))
	}
	return outcomes
}

func (r *ShellHookRunner) run(ctx context.Context, h output.Hook, workDir string) output.HookOutcome {
	outcome := output.HookOutcome{Name: h.Name, Command: h.Command}
	if ctx.Err() != nil {
		outcome.Output = "skipped: " + ctx.Err().Error()
		return outcome
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(cctx, r.shell, "-c", h.Command)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), r.env...)
	procgroup.Configure(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	outcome.Output = combine(stdout.Bytes(), stderr.Bytes())

	switch {
	case err == nil:
		outcome.Passed = true
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		outcome.Output = fmt.Sprintf("%s\nhook timed out after %s", outcome.Output, r.timeout)
	default:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// The shell itself could not be started
			outcome.Output = fmt.Sprintf("%s\nfailed to run hook: %v", outcome.Output, err)
		}
	}

	r.logger.Debug("hook finished",
		zap.String("hook", h.Name),
		zap.Bool("passed", outcome.Passed),
		zap.Duration("duration", time.Since(start)))
	return outcome
}

// combine joins stdout and stderr, keeping only the tail of long output
func combine(stdout, stderr []byte) string {
	var buf bytes.Buffer
	buf.Write(bytes.TrimRight(stdout, "\n"))
	if len(stderr) > 0 {
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(bytes.TrimRight(stderr, "\n"))
	}

	out := buf.Bytes()
	if len(out) > maxOutputBytes {
		tail := out[len(out)-maxOutputBytes:]
		// Start at a character boundary
		for len(tail) > 0 && !utf8.RuneStart(tail[0]) {
			tail = tail[1:]
		}
		out = append([]byte("...(truncated)\n"), tail...)
	}
	return string(out)
}

var _ output.HookRunner = (*ShellHookRunner)(nil)
