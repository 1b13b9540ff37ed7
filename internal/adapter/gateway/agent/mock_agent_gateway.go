package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
)

// MockAgentGateway is an offline agent for dry runs. It renders every prompt
// so template errors surface, changes nothing, and answers review and
// verification prompts with a clean result.
type MockAgentGateway struct {
	renderer *PromptRenderer
}

// NewMockAgentGateway creates a new mock gateway
func NewMockAgentGateway(renderer *PromptRenderer) *MockAgentGateway {
	return &MockAgentGateway{renderer: renderer}
}

// Execute renders the prompt and returns a canned answer for its stage
func (g *MockAgentGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prompt := ""
	if g.renderer != nil {
		rendered, err := g.renderer.Render(req.PromptKey, req.Variables)
		if err != nil {
			return nil, err
		}
		prompt = rendered
	}

	var out string
	switch req.PromptKey {
	case output.PromptReviewTask:
		out = "No issues found."
	case output.PromptVerifyTask:
		out = "VERIFICATION: PASS"
	case output.PromptReviewFix:
		out = "FIXED: 0"
	default:
		out = fmt.Sprintf("[mock] %s (%d prompt bytes)", req.PromptKey, len(prompt))
	}

	return &output.AgentResponse{
		Output:     out,
		Turns:      1,
		Duration:   time.Millisecond,
		TokensUsed: len(prompt) / 4, // Rough estimate
		AgentType:  "mock",
		Metadata: map[string]string{
			"mock": "true",
		},
	}, nil
}

// GetCapability returns the mock capabilities
func (g *MockAgentGateway) GetCapability() output.AgentCapability {
	return output.AgentCapability{
		SupportsTools: false,
		MaxPromptSize: 200000,
		AgentType:     "mock",
	}
}

// HealthCheck always returns success for mock
func (g *MockAgentGateway) HealthCheck(ctx context.Context) error {
	return nil
}
