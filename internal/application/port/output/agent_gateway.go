package output

import (
	"context"
	"time"
)

// PromptKey names a prompt template, e.g. "code/task"
type PromptKey string

const (
	PromptCodeTask    PromptKey = "code/task"
	PromptCodeResume  PromptKey = "code/resume"
	PromptHookFix     PromptKey = "code/hook_fix"
	PromptReviewTask  PromptKey = "review/task"
	PromptReviewFix   PromptKey = "review/fix"
	PromptVerifyTask  PromptKey = "verify/task"
	PromptVerifyFix   PromptKey = "verify/fix"
	PromptPullRequest PromptKey = "code/pr"
)

// AllPromptKeys lists every prompt the engine renders
var AllPromptKeys = []PromptKey{
	PromptCodeTask, PromptCodeResume, PromptHookFix,
	PromptReviewTask, PromptReviewFix,
	PromptVerifyTask, PromptVerifyFix,
	PromptPullRequest,
}

// ToolProfile is the tool permission profile granted to an agent call
type ToolProfile string

const (
	ProfileCode   ToolProfile = "code"   // read, write, shell
	ProfileReview ToolProfile = "review" // read only
	ProfileVerify ToolProfile = "verify" // read and shell
)

// AgentGateway is the interface for AI agent execution
// This abstraction allows different AI backends (Claude CLI, Claude API)
type AgentGateway interface {
	// Execute renders the prompt named by req.PromptKey and runs the agent
	Execute(ctx context.Context, req AgentRequest) (*AgentResponse, error)

	// GetCapability returns the agent's capabilities
	GetCapability() AgentCapability

	// HealthCheck verifies if the agent is available
	HealthCheck(ctx context.Context) error
}

// AgentRequest represents a request to an AI agent
type AgentRequest struct {
	PromptKey PromptKey              // Template to render
	Variables map[string]interface{} // Template variables
	Profile   ToolProfile            // Tool permissions
	WorkDir   string                 // Working directory (the feature worktree)
	Timeout   time.Duration          // Execution timeout, zero for the gateway default
	MaxTokens int                    // Maximum tokens to generate (if applicable)
}

// AgentResponse represents the response from an AI agent
type AgentResponse struct {
	Output     string            // Final text output
	Turns      int               // Agent round-trips consumed
	IsError    bool              // Agent reported an error result
	Duration   time.Duration     // Execution duration
	TokensUsed int               // Number of tokens used (if applicable)
	AgentType  string            // Type of agent that executed
	Metadata   map[string]string // Additional metadata
}

// AgentCapability describes what an agent can do
type AgentCapability struct {
	SupportsTools bool   // Can edit files and run commands itself
	MaxPromptSize int    // Maximum prompt size in bytes
	AgentType     string // Agent type identifier
}
