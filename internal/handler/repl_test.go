package handler

import (
	"context"
	"strings"
	"testing"

	"github.com/iishyfishyy/sgpt/internal/chat"
	"github.com/iishyfishyy/sgpt/internal/provider"
	"github.com/iishyfishyy/sgpt/internal/role"
)

func newTestRepl(t *testing.T, r *role.SystemRole, mock *mockProvider) *ReplHandler {
	t.Helper()
	store := chat.NewStore(t.TempDir(), 100)
	ch, err := NewChat(New(mock, r, nil, testOptions()), store, chat.TempID)
	if err != nil {
		t.Fatalf("NewChat failed: %v", err)
	}
	return NewRepl(ch)
}

func TestReplExitWithoutPrompt(t *testing.T) {
	mock := &mockProvider{
		CompleteFn: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			t.Error("provider must not be called")
			return nil, nil
		},
	}

	repl := newTestRepl(t, testRole(), mock)
	var out strings.Builder
	if err := repl.Run(context.Background(), "", strings.NewReader("exit()\n"), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "Entering REPL mode") {
		t.Error("missing REPL banner")
	}
}

func TestReplDispatchesPrompt(t *testing.T) {
	mock := &mockProvider{
		CompleteFn: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			return &provider.Response{Content: "df -h"}, nil
		},
	}

	repl := newTestRepl(t, testRole(), mock)
	var out strings.Builder
	input := "show disk usage\nexit()\n"
	if err := repl.Run(context.Background(), "", strings.NewReader(input), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "df -h") {
		t.Errorf("reply not printed, output: %q", out.String())
	}
	if len(mock.requests) != 1 {
		t.Errorf("expected 1 provider call, got %d", len(mock.requests))
	}
}

func TestReplShellModeExecutesLastCompletion(t *testing.T) {
	mock := &mockProvider{
		CompleteFn: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			return &provider.Response{Content: "uptime"}, nil
		},
	}

	repl := newTestRepl(t, testRole(), mock)
	executed := ""
	repl.Execute = func(command string) error {
		executed = command
		return nil
	}

	var out strings.Builder
	input := "how long has this machine been up\ne\nexit()\n"
	if err := repl.Run(context.Background(), "", strings.NewReader(input), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if executed != "uptime" {
		t.Errorf("expected uptime to be executed, got %q", executed)
	}
}

func TestReplExecuteBeforeCompletion(t *testing.T) {
	mock := &mockProvider{
		CompleteFn: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			t.Error("provider must not be called")
			return nil, nil
		},
	}

	repl := newTestRepl(t, testRole(), mock)
	repl.Execute = func(command string) error {
		t.Error("nothing should be executed yet")
		return nil
	}

	var out strings.Builder
	if err := repl.Run(context.Background(), "", strings.NewReader("e\nexit()\n"), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "Nothing to execute yet.") {
		t.Errorf("missing guard message, output: %q", out.String())
	}
}

func TestReplDescribeLastCompletion(t *testing.T) {
	mock := &mockProvider{
		CompleteFn: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			return &provider.Response{Content: "uptime"}, nil
		},
	}

	repl := newTestRepl(t, testRole(), mock)
	repl.Describe = func(ctx context.Context, command string) (string, error) {
		return "Shows how long the system has been running: " + command, nil
	}

	var out strings.Builder
	input := "how long has this machine been up\nd\nexit()\n"
	if err := repl.Run(context.Background(), "", strings.NewReader(input), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "Shows how long the system has been running: uptime") {
		t.Errorf("description not printed, output: %q", out.String())
	}
}

func TestReplMultilinePrompt(t *testing.T) {
	mock := &mockProvider{
		CompleteFn: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			return &provider.Response{Content: "done"}, nil
		},
	}

	defaultRole := &role.SystemRole{Name: role.DefaultRoleName, Role: "You are ShellGPT\nHelp."}
	repl := newTestRepl(t, defaultRole, mock)

	var out strings.Builder
	input := "\"\"\"\nline one\nline two\n\"\"\"\nexit()\n"
	if err := repl.Run(context.Background(), "", strings.NewReader(input), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(mock.requests) != 1 {
		t.Fatalf("expected 1 provider call, got %d", len(mock.requests))
	}
	prompt := mock.requests[0].Messages[len(mock.requests[0].Messages)-1].Content
	if !strings.Contains(prompt, "line one") || !strings.Contains(prompt, "line two") {
		t.Errorf("multiline prompt not assembled, got %q", prompt)
	}
}

func TestReplInitPromptPrependedOnce(t *testing.T) {
	mock := &mockProvider{
		CompleteFn: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			return &provider.Response{Content: "reply"}, nil
		},
	}

	defaultRole := &role.SystemRole{Name: role.DefaultRoleName, Role: "You are ShellGPT\nHelp."}
	repl := newTestRepl(t, defaultRole, mock)

	var out strings.Builder
	input := "follow-up one\nfollow-up two\nexit()\n"
	if err := repl.Run(context.Background(), "initial context", strings.NewReader(input), &out); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(mock.requests) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(mock.requests))
	}
	first := mock.requests[0].Messages[1].Content
	if !strings.HasPrefix(first, "initial context") || !strings.Contains(first, "follow-up one") {
		t.Errorf("init prompt not prepended to first exchange, got %q", first)
	}
	second := mock.requests[1].Messages[3].Content
	if strings.Contains(second, "initial context") {
		t.Errorf("init prompt must only apply to the first exchange, got %q", second)
	}
}
