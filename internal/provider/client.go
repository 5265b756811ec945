package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/iishyfishyy/sgpt/internal/config"
)

// Backend presets. Both speak the OpenAI chat-completions wire format, so a
// single client serves them; the preset only picks the base URL.
const (
	DeepSeekBaseURL = "https://api.deepseek.com/v1"
	OpenAIBaseURL   = "https://api.openai.com/v1"
)

var (
	ErrMissingModel = errors.New("model is required")
	ErrEmptyReply   = errors.New("empty response from model")
)

// Client implements Provider against any OpenAI-compatible chat-completions
// endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for an explicit base URL
func NewClient(apiKey, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// FromConfig builds the client selected by the configuration. The base_url
// setting, when present, overrides the preset.
func FromConfig(cfg *config.Config, httpClient *http.Client) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch cfg.Provider {
		case config.ProviderDeepSeek:
			baseURL = DeepSeekBaseURL
		case config.ProviderOpenAI:
			baseURL = OpenAIBaseURL
		default:
			return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
		}
	}
	return NewClient(cfg.APIKey, baseURL, httpClient), nil
}

type wireRequest struct {
	Model       string     `json:"model"`
	Messages    []Message  `json:"messages"`
	Temperature float64    `json:"temperature"`
	TopP        float64    `json:"top_p"`
	Tools       []wireTool `json:"tools,omitempty"`
}

type wireTool struct {
	Type     string   `json:"type"`
	Function ToolSpec `json:"function"`
}

type wireResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type wireError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one chat-completion request. One attempt, no retries; the
// timeout comes from the injected http.Client.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if c.apiKey == "" {
		return nil, config.ErrMissingAPIKey
	}
	if req.Model == "" {
		return nil, ErrMissingModel
	}

	body := wireRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	for _, tool := range req.Tools {
		body.Tools = append(body.Tools, wireTool{Type: "function", Function: tool})
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr wireError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("provider error (status %d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed wireResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, ErrEmptyReply
	}

	choice := parsed.Choices[0]
	if len(choice.Message.ToolCalls) > 0 {
		call := choice.Message.ToolCalls[0]
		return &Response{Content: choice.Message.Content, FunctionCall: &call}, nil
	}
	if choice.Message.Content == "" {
		return nil, ErrEmptyReply
	}
	return &Response{Content: choice.Message.Content}, nil
}
