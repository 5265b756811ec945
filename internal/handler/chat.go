package handler

import (
	"context"
	"fmt"

	"github.com/iishyfishyy/sgpt/internal/chat"
	"github.com/iishyfishyy/sgpt/internal/provider"
	"github.com/iishyfishyy/sgpt/internal/role"
)

// ChatHandler dispatches prompts inside a persistent chat session
type ChatHandler struct {
	*Handler
	store  *chat.Store
	chatID string
}

// NewChat creates a dispatcher that splices the stored session into every
// request and persists the exchange afterwards. The temp session id starts
// fresh on every invocation.
func NewChat(base *Handler, store *chat.Store, chatID string) (*ChatHandler, error) {
	if chatID == chat.TempID {
		if err := store.Invalidate(chatID); err != nil {
			return nil, err
		}
	}
	return &ChatHandler{Handler: base, store: store, chatID: chatID}, nil
}

// Handle sends one prompt inside the session and persists the exchange
func (h *ChatHandler) Handle(ctx context.Context, prompt string) (string, error) {
	messages, err := h.sessionMessages()
	if err != nil {
		return "", err
	}

	messages = append(messages, provider.Message{Role: provider.RoleUser, Content: prompt})

	reply, full, err := h.complete(ctx, messages)
	if err != nil {
		return "", err
	}

	if err := h.store.Write(h.chatID, full); err != nil {
		return "", fmt.Errorf("failed to save chat session: %w", err)
	}
	return reply, nil
}

// Initiated reports whether the session already has stored messages
func (h *ChatHandler) Initiated() bool {
	return h.store.Exists(h.chatID)
}

// ChatID returns the session id
func (h *ChatHandler) ChatID() string {
	return h.chatID
}

// sessionMessages loads the stored session, or starts one from the role.
// Resuming a session created for a different role is an error; the stored
// system message decides.
func (h *ChatHandler) sessionMessages() ([]provider.Message, error) {
	if !h.store.Exists(h.chatID) {
		return []provider.Message{{Role: provider.RoleSystem, Content: h.role.Role}}, nil
	}

	messages, err := h.store.Read(h.chatID)
	if err != nil {
		return nil, err
	}

	if len(messages) > 0 && messages[0].Role == provider.RoleSystem {
		if !h.role.SameRole(messages[0].Content) {
			existing := role.NameFromMessage(messages[0].Content)
			return nil, fmt.Errorf(
				"chat session %q was started with role %q and cannot continue with role %q",
				h.chatID, existing, h.role.Name)
		}
	}
	return messages, nil
}
