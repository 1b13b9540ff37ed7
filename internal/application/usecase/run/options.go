package run

import "github.com/YoshitsuguKoike/gba/internal/application/port/output"

const (
	DefaultMaxRetries    = 5
	DefaultMaxIterations = 3
	DefaultBaseBranch    = "main"

	// eventBufferSize bounds how far the engine may run ahead of a slow reader
	eventBufferSize = 100
)

// ReviewOptions configures the review loop
type ReviewOptions struct {
	Enabled       bool
	MaxIterations int
	// FailOnUnresolved halts the run when issues remain after the last iteration
	FailOnUnresolved bool
}

// VerificationOptions configures the verification loop
type VerificationOptions struct {
	Enabled       bool
	MaxIterations int
}

// Options are the read-only inputs of a run
type Options struct {
	RepoPath     string
	BaseBranch   string
	AutoCommit   bool
	Hooks        []output.Hook
	MaxRetries   int
	Review       ReviewOptions
	Verification VerificationOptions
}

// DefaultOptions returns the defaults used when no configuration is present
func DefaultOptions() Options {
	return Options{
		BaseBranch: DefaultBaseBranch,
		AutoCommit: true,
		MaxRetries: DefaultMaxRetries,
		Review: ReviewOptions{
			Enabled:       true,
			MaxIterations: DefaultMaxIterations,
		},
		Verification: VerificationOptions{
			Enabled:       true,
			MaxIterations: DefaultMaxIterations,
		},
	}
}

func (o Options) normalized() Options {
	if o.BaseBranch == "" {
		o.BaseBranch = DefaultBaseBranch
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.Review.MaxIterations < 0 {
		o.Review.MaxIterations = 0
	}
	if o.Verification.MaxIterations < 0 {
		o.Verification.MaxIterations = 0
	}
	return o
}
