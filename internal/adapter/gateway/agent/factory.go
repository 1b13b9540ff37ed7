package agent

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
)

// Supported agent types
const (
	TypeClaudeCodeCLI = "claude-code-cli"
	TypeClaudeCode    = "claude-code"
	TypeMock          = "mock"
)

// FactoryConfig selects and configures an agent gateway
type FactoryConfig struct {
	Type           string
	Bin            string
	Model          string
	MaxTokens      int
	Timeout        time.Duration
	PermissionMode string
	Renderer       *PromptRenderer
	Logger         *zap.Logger
}

// NewAgentGateway creates an agent gateway based on agent type
// Supported types: claude-code-cli, claude-code, mock
// Note: User is responsible for ensuring the agent is available (e.g., claude CLI installed)
func NewAgentGateway(cfg FactoryConfig) (output.AgentGateway, error) {
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("agent gateway requires a prompt renderer")
	}

	agentType := cfg.Type
	if agentType == "" {
		agentType = GetDefaultAgent()
	}

	switch agentType {
	case TypeClaudeCodeCLI:
		return NewClaudeCodeCLIGateway(CLIOptions{
			Bin:            cfg.Bin,
			Model:          cfg.Model,
			Timeout:        cfg.Timeout,
			PermissionMode: cfg.PermissionMode,
		}, cfg.Renderer, cfg.Logger), nil

	case TypeClaudeCode:
		// API version (requires ANTHROPIC_API_KEY)
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set for claude-code")
		}
		return NewClaudeCodeGateway(APIOptions{
			APIKey:    apiKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		}, cfg.Renderer, cfg.Logger), nil

	case TypeMock:
		return NewMockAgentGateway(cfg.Renderer), nil

	default:
		return nil, fmt.Errorf("unknown agent type: %s (supported: %s, %s, %s)", agentType, TypeClaudeCodeCLI, TypeClaudeCode, TypeMock)
	}
}

// GetAvailableAgents returns a list of available agent types
func GetAvailableAgents() []string {
	agents := []string{TypeClaudeCodeCLI}

	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		agents = append(agents, TypeClaudeCode)
	}

	// Mock agent is always available
	return append(agents, TypeMock)
}

// GetDefaultAgent returns the default agent type to use
func GetDefaultAgent() string {
	// Default to Claude Code CLI (assumes user has it installed)
	return TypeClaudeCodeCLI
}
