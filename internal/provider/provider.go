package provider

import "context"

// Message roles understood by chat-completion backends
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single chat message in a completion request
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a function invocation requested by the model
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and its JSON-encoded arguments
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec describes a callable function advertised to the model
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the provider-independent completion request
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	TopP        float64
	Tools       []ToolSpec
}

// Response is a single completion reply. Exactly one of Content or
// FunctionCall is meaningful; FunctionCall is set when the model asked for a
// tool invocation instead of answering in text.
type Response struct {
	Content      string
	FunctionCall *ToolCall
}

// Provider sends one completion request and returns one reply or one error.
// Implementations make exactly one attempt per call.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
