package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
)

const (
	defaultAPIURL    = "https://api.anthropic.com/v1/messages"
	defaultAPIModel  = "claude-sonnet-4-5"
	defaultMaxTokens = 8192
)

// APIOptions configures the Messages API gateway
type APIOptions struct {
	APIKey    string
	URL       string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// ClaudeCodeGateway implements AgentGateway for the Claude Messages API.
// The API has no tool access, so every call is one turn of text in, text out.
type ClaudeCodeGateway struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	model      string
	maxTokens  int
	renderer   *PromptRenderer
	logger     *zap.Logger
}

// NewClaudeCodeGateway creates a new Claude Code gateway
func NewClaudeCodeGateway(opts APIOptions, renderer *PromptRenderer, logger *zap.Logger) *ClaudeCodeGateway {
	if opts.URL == "" {
		opts.URL = defaultAPIURL
	}
	if opts.Model == "" {
		opts.Model = defaultAPIModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ClaudeCodeGateway{
		apiKey: opts.APIKey,
		apiURL: opts.URL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		renderer:  renderer,
		logger:    logger.Named("claude-api"),
	}
}

// Execute renders the prompt and sends it to the Messages API
func (g *ClaudeCodeGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	start := time.Now()

	prompt, err := g.renderer.Render(req.PromptKey, req.Variables)
	if err != nil {
		return nil, err
	}

	maxTokens := g.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	resp, err := g.callClaudeAPI(ctx, ClaudeRequest{
		Model:     g.model,
		MaxTokens: maxTokens,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" || block.Type == "" {
			text.WriteString(block.Text)
		}
	}

	g.logger.Debug("claude api call finished",
		zap.String("prompt", string(req.PromptKey)),
		zap.String("stop_reason", resp.StopReason),
		zap.Int("output_tokens", resp.Usage.OutputTokens))

	return &output.AgentResponse{
		Output:     text.String(),
		Turns:      1,
		Duration:   time.Since(start),
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
		AgentType:  "claude-code",
		Metadata: map[string]string{
			"model":         g.model,
			"stop_reason":   resp.StopReason,
			"input_tokens":  fmt.Sprintf("%d", resp.Usage.InputTokens),
			"output_tokens": fmt.Sprintf("%d", resp.Usage.OutputTokens),
		},
	}, nil
}

// GetCapability returns Claude Code's capabilities
func (g *ClaudeCodeGateway) GetCapability() output.AgentCapability {
	return output.AgentCapability{
		SupportsTools: false,
		MaxPromptSize: 200000, // 200k tokens
		AgentType:     "claude-code",
	}
}

// HealthCheck verifies if Claude API is accessible
func (g *ClaudeCodeGateway) HealthCheck(ctx context.Context) error {
	_, err := g.callClaudeAPI(ctx, ClaudeRequest{
		Model:     g.model,
		MaxTokens: 10,
		Messages: []Message{
			{Role: "user", Content: "ping"},
		},
	})
	return err
}

// callClaudeAPI makes an HTTP request to Claude API
func (g *ClaudeCodeGateway) callClaudeAPI(ctx context.Context, req ClaudeRequest) (*ClaudeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", g.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer httpResp.Body.Close()

	var claudeResp ClaudeResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&claudeResp); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		if claudeResp.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s - %s", httpResp.StatusCode, claudeResp.Error.Type, claudeResp.Error.Message)
		}
		return nil, fmt.Errorf("API error: status %d", httpResp.StatusCode)
	}

	return &claudeResp, nil
}

// Claude API request/response types
type ClaudeRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ClaudeResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Role       string          `json:"role"`
	Content    []ContentBlock  `json:"content"`
	Model      string          `json:"model"`
	StopReason string          `json:"stop_reason"`
	Usage      Usage           `json:"usage"`
	Error      ClaudeErrorResp `json:"error,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type ClaudeErrorResp struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
