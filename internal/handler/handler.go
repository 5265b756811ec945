// Package handler assembles completion requests from a role and a prompt,
// dispatches them to the configured provider, and runs the function-call
// loop when tools are enabled.
package handler

import (
	"context"
	"fmt"
	"os"

	"github.com/iishyfishyy/sgpt/internal/cache"
	"github.com/iishyfishyy/sgpt/internal/function"
	"github.com/iishyfishyy/sgpt/internal/provider"
	"github.com/iishyfishyy/sgpt/internal/role"
)

// maxFunctionRounds bounds the tool-call loop so a misbehaving model cannot
// spin forever.
const maxFunctionRounds = 8

// Options are the per-invocation dispatch parameters
type Options struct {
	Model       string
	Temperature float64
	TopP        float64
	Caching     bool
	// Functions is nil when function calling is disabled; no tool payload
	// is constructed in that case.
	Functions *function.Registry
	Debug     bool
}

// Handler dispatches prompts for a single role
type Handler struct {
	provider provider.Provider
	role     *role.SystemRole
	cache    *cache.Cache
	opts     Options
}

// New creates a dispatcher. cache may be nil to disable caching entirely.
func New(p provider.Provider, r *role.SystemRole, c *cache.Cache, opts Options) *Handler {
	return &Handler{provider: p, role: r, cache: c, opts: opts}
}

// Role returns the role this handler dispatches for
func (h *Handler) Role() *role.SystemRole {
	return h.role
}

// Handle sends a single prompt with the role's system message and returns
// the reply.
func (h *Handler) Handle(ctx context.Context, prompt string) (string, error) {
	messages := []provider.Message{
		{Role: provider.RoleSystem, Content: h.role.Role},
		{Role: provider.RoleUser, Content: prompt},
	}
	reply, _, err := h.complete(ctx, messages)
	return reply, err
}

// cacheKeyPayload is the canonical payload hashed into the cache key
type cacheKeyPayload struct {
	Model       string             `json:"model"`
	Messages    []provider.Message `json:"messages"`
	Temperature float64            `json:"temperature"`
	TopP        float64            `json:"top_p"`
}

// complete dispatches the messages and returns the final reply along with
// the full message list including any tool exchange.
func (h *Handler) complete(ctx context.Context, messages []provider.Message) (string, []provider.Message, error) {
	req := provider.Request{
		Model:       h.opts.Model,
		Messages:    messages,
		Temperature: h.opts.Temperature,
		TopP:        h.opts.TopP,
	}
	if h.opts.Functions != nil {
		req.Tools = h.opts.Functions.Specs()
	}

	// Tool exchanges are interactive with the local machine; only plain
	// completions are cached.
	useCache := h.cache != nil && h.opts.Caching && h.opts.Functions == nil
	key := ""
	if useCache {
		key = cache.Key(cacheKeyPayload{
			Model:       req.Model,
			Messages:    req.Messages,
			Temperature: req.Temperature,
			TopP:        req.TopP,
		})
		if reply, found, err := h.cache.Get(ctx, key); err == nil && found {
			if h.opts.Debug {
				fmt.Fprintf(os.Stderr, "[DEBUG] Handler: cache hit\n")
			}
			messages = append(messages, provider.Message{Role: provider.RoleAssistant, Content: reply})
			return reply, messages, nil
		}
	}

	for round := 0; round < maxFunctionRounds; round++ {
		resp, err := h.provider.Complete(ctx, req)
		if err != nil {
			return "", nil, err
		}

		if resp.FunctionCall == nil {
			messages = append(req.Messages, provider.Message{
				Role:    provider.RoleAssistant,
				Content: resp.Content,
			})
			if useCache {
				if err := h.cache.Put(ctx, key, resp.Content); err != nil && h.opts.Debug {
					fmt.Fprintf(os.Stderr, "[DEBUG] Handler: cache write failed: %v\n", err)
				}
			}
			return resp.Content, messages, nil
		}

		if h.opts.Functions == nil {
			return "", nil, fmt.Errorf("provider returned a function call but function calling is disabled")
		}

		call := resp.FunctionCall
		if h.opts.Debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Handler: function call %s(%s)\n", call.Function.Name, call.Function.Arguments)
		}

		output, err := h.opts.Functions.Execute(ctx, call.Function.Name, call.Function.Arguments)
		if err != nil {
			// The model gets the failure and may recover with another
			// call or a plain answer.
			output = fmt.Sprintf("Error: %v", err)
		}

		req.Messages = append(req.Messages,
			provider.Message{
				Role:      provider.RoleAssistant,
				Content:   resp.Content,
				ToolCalls: []provider.ToolCall{*call},
			},
			provider.Message{
				Role:       provider.RoleTool,
				ToolCallID: call.ID,
				Content:    output,
			},
		)
	}

	return "", nil, fmt.Errorf("function call loop exceeded %d rounds", maxFunctionRounds)
}
