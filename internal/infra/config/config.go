package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
)

// Config is the project configuration read from .gba/config.yaml and GBA_* variables
type Config struct {
	Agent        AgentConfig        `koanf:"agent"`
	Prompts      PromptsConfig      `koanf:"prompts"`
	Git          GitConfig          `koanf:"git"`
	Review       ReviewConfig       `koanf:"review"`
	Verification VerificationConfig `koanf:"verification"`
	Hooks        HooksConfig        `koanf:"hooks"`
	Artifacts    ArtifactsConfig    `koanf:"artifacts"`
	Journal      JournalConfig      `koanf:"journal"`
	Log          LogConfig          `koanf:"log"`
}

// AgentConfig selects the coding agent
type AgentConfig struct {
	Type           string        `koanf:"type"` // claude-code-cli, claude-code, mock
	Bin            string        `koanf:"bin"`
	Model          string        `koanf:"model"`
	MaxTokens      int           `koanf:"maxTokens"`
	Timeout        time.Duration `koanf:"timeout"`
	PermissionMode string        `koanf:"permissionMode"`
}

// PromptsConfig lists directories searched for prompt overrides
type PromptsConfig struct {
	Include []string `koanf:"include"`
}

// GitConfig controls branches, commits and pull requests
type GitConfig struct {
	AutoCommit    bool   `koanf:"autoCommit"`
	BranchPattern string `koanf:"branchPattern"`
	BaseBranch    string `koanf:"baseBranch"`
	GithubToken   string `koanf:"githubToken"` // When empty, pull requests are opened by the agent
	Remote        string `koanf:"remote"`
}

// ReviewConfig controls the review loop
type ReviewConfig struct {
	Enabled          bool `koanf:"enabled"`
	MaxIterations    int  `koanf:"maxIterations"`
	FailOnUnresolved bool `koanf:"failOnUnresolved"`
}

// VerificationConfig controls the verification loop
type VerificationConfig struct {
	Enabled       bool `koanf:"enabled"`
	MaxIterations int  `koanf:"maxIterations"`
}

// HooksConfig lists the commands gating every phase commit
type HooksConfig struct {
	PreCommit  []output.Hook `koanf:"preCommit"`
	MaxRetries int           `koanf:"maxRetries"`
	Timeout    time.Duration `koanf:"timeout"`
}

// ArtifactsConfig selects where agent output and hook logs are kept
type ArtifactsConfig struct {
	Backend string   `koanf:"backend"` // local, s3, none
	Dir     string   `koanf:"dir"`
	S3      S3Config `koanf:"s3"`
}

// S3Config locates the artifact bucket
type S3Config struct {
	Bucket string `koanf:"bucket"`
	Prefix string `koanf:"prefix"`
	Region string `koanf:"region"`
}

// JournalConfig controls the SQLite event journal
type JournalConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // console, json
}

// Artifact backends
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendNone  = "none"
)

// Validate checks value ranges and cross-field requirements
func (c *Config) Validate() error {
	var errs []error

	if c.Hooks.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("hooks.maxRetries must be >= 0, got %d", c.Hooks.MaxRetries))
	}
	if c.Review.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("review.maxIterations must be >= 0, got %d", c.Review.MaxIterations))
	}
	if c.Verification.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("verification.maxIterations must be >= 0, got %d", c.Verification.MaxIterations))
	}
	for i, h := range c.Hooks.PreCommit {
		if h.Name == "" || h.Command == "" {
			errs = append(errs, fmt.Errorf("hooks.preCommit[%d] needs a name and a command", i))
		}
	}

	switch c.Artifacts.Backend {
	case BackendLocal, BackendNone:
	case BackendS3:
		if c.Artifacts.S3.Bucket == "" {
			errs = append(errs, errors.New("artifacts.s3.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("artifacts.backend must be local, s3 or none, got %q", c.Artifacts.Backend))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
