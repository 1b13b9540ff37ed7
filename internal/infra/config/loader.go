package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/afero"
)

const (
	// EnvPrefix is the prefix of environment overrides, e.g. GBA_HOOKS_MAXRETRIES
	EnvPrefix = "GBA_"

	// FileName is the project configuration file inside the .gba directory
	FileName = "config.yaml"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

const defaults = `
agent:
  type: claude-code-cli
  bin: claude
  model: ""
  maxTokens: 8192
  timeout: 30m
  permissionMode: acceptEdits
prompts:
  include: []
git:
  autoCommit: true
  branchPattern: "feat/{id}-{slug}"
  baseBranch: main
  githubToken: ""
  remote: origin
review:
  enabled: true
  maxIterations: 3
  failOnUnresolved: false
verification:
  enabled: true
  maxIterations: 3
hooks:
  preCommit: []
  maxRetries: 5
  timeout: 10m
artifacts:
  backend: local
  dir: .gba/var/artifacts
  s3:
    bucket: ""
    prefix: ""
    region: ""
journal:
  enabled: true
  path: .gba/var/gba.db
log:
  level: info
  format: console
`

// Load reads configuration for the project rooted at repoDir.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (GBA_REVIEW_MAXITERATIONS, GBA_ARTIFACTS_S3_BUCKET, ...)
//  2. <repoDir>/.gba/config.yaml
//  3. Built-in defaults
//
// Command line flags are applied by the caller on the returned Config.
func Load(fs afero.Fs, repoDir string) (*Config, error) {
	return LoadFile(fs, filepath.Join(repoDir, ".gba", FileName))
}

// LoadFile is Load with an explicit config file path; a missing file means defaults
func LoadFile(fs afero.Fs, path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaults)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Env keys arrive upper-cased; map them back onto the camelCase keys
	known := make(map[string]string)
	for _, key := range k.Keys() {
		known[strings.ToLower(key)] = key
	}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if exists {
		info, err := fs.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
		}
		content, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Unknown variables map to "" and are skipped by the provider
	if err := k.Load(env.Provider(EnvPrefix, ".", func(key string) string {
		name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		return known[strings.ReplaceAll(name, "_", ".")]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}
