package output

import "context"

// Hook is a named shell command gating a phase commit
type Hook struct {
	Name    string `koanf:"name" yaml:"name"`
	Command string `koanf:"command" yaml:"command"`
}

// HookOutcome is the result of one hook execution
type HookOutcome struct {
	Name    string
	Command string
	Passed  bool
	Output  string // stdout followed by stderr
}

// HookRunner executes verification hooks against a working tree.
// Command failures are data, not errors: RunAll always returns one outcome per hook.
type HookRunner interface {
	RunAll(ctx context.Context, hooks []Hook, workDir string) []HookOutcome
}

// AllPassed reports whether every outcome passed
func AllPassed(outcomes []HookOutcome) bool {
	for _, o := range outcomes {
		if !o.Passed {
			return false
		}
	}
	return true
}

// FailedHooks returns the failing outcomes in order
func FailedHooks(outcomes []HookOutcome) []HookOutcome {
	var failed []HookOutcome
	for _, o := range outcomes {
		if !o.Passed {
			failed = append(failed, o)
		}
	}
	return failed
}
