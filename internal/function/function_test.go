package function

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/iishyfishyy/sgpt/internal/provider"
)

func TestNewRegistryHasBuiltin(t *testing.T) {
	r := NewRegistry()

	specs := r.Specs()
	if len(specs) != 1 {
		t.Fatalf("expected 1 builtin spec, got %d", len(specs))
	}
	if specs[0].Name != "execute_shell_command" {
		t.Errorf("unexpected builtin name %q", specs[0].Name)
	}
}

func TestExecuteBuiltin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell")
	}
	t.Setenv("SHELL", "/bin/sh")

	r := NewRegistry()
	output, err := r.Execute(context.Background(), "execute_shell_command", `{"shell_command":"echo hi"}`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(output, "Exit code: 0") {
		t.Errorf("output missing exit code: %q", output)
	}
	if !strings.Contains(output, "hi") {
		t.Errorf("output missing command output: %q", output)
	}
}

func TestExecuteBuiltinReportsFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell")
	}
	t.Setenv("SHELL", "/bin/sh")

	r := NewRegistry()
	output, err := r.Execute(context.Background(), "execute_shell_command", `{"shell_command":"exit 3"}`)
	if err != nil {
		t.Fatalf("Execute must report failures in the output, not as an error: %v", err)
	}
	if !strings.Contains(output, "Exit code: 3") {
		t.Errorf("output missing failure exit code: %q", output)
	}
}

func TestExecuteUnknownFunction(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Execute(context.Background(), "no_such_function", `{}`); err == nil {
		t.Fatal("expected error for unknown function")
	}
}

func TestExecuteMalformedArguments(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Execute(context.Background(), "execute_shell_command", `{not json`); err == nil {
		t.Fatal("expected error for malformed arguments")
	}
}

func TestExecuteMissingRequiredArgument(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Execute(context.Background(), "execute_shell_command", `{}`); err == nil {
		t.Fatal("expected error when shell_command is absent")
	}
}

func TestRegisterPreservesOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(Function{
		Spec: provider.ToolSpec{Name: "beta", Parameters: map[string]any{"type": "object"}},
		Run:  func(ctx context.Context, args map[string]any) (string, error) { return "", nil },
	})
	r.Register(Function{
		Spec: provider.ToolSpec{Name: "alpha", Parameters: map[string]any{"type": "object"}},
		Run:  func(ctx context.Context, args map[string]any) (string, error) { return "", nil },
	})

	specs := r.Specs()
	if len(specs) != 3 {
		t.Fatalf("expected 3 specs, got %d", len(specs))
	}
	if specs[1].Name != "beta" || specs[2].Name != "alpha" {
		t.Errorf("registration order not preserved: %v", []string{specs[0].Name, specs[1].Name, specs[2].Name})
	}
}

func TestLoadDirRegistersSpecs(t *testing.T) {
	dir := t.TempDir()
	spec := `{
		"name": "get_weather",
		"description": "Get the weather for a city.",
		"executable": "/usr/local/bin/weather",
		"parameters": {
			"type": "object",
			"properties": {"city": {"type": "string"}}
		}
	}`
	if err := os.WriteFile(filepath.Join(dir, "weather.json"), []byte(spec), 0644); err != nil {
		t.Fatalf("failed to write spec file: %v", err)
	}

	r := NewRegistry()
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	specs := r.Specs()
	if len(specs) != 2 {
		t.Fatalf("expected builtin + loaded spec, got %d", len(specs))
	}
	if specs[1].Name != "get_weather" {
		t.Errorf("unexpected loaded spec %q", specs[1].Name)
	}
}

func TestLoadDirMissingDirectory(t *testing.T) {
	r := NewRegistry()
	if err := r.LoadDir(filepath.Join(t.TempDir(), "never-created")); err != nil {
		t.Errorf("missing functions directory must not fail: %v", err)
	}
}

func TestLoadDirRejectsIncompleteSpec(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"name": "no_exec"}`), 0644); err != nil {
		t.Fatalf("failed to write spec file: %v", err)
	}

	r := NewRegistry()
	if err := r.LoadDir(dir); err == nil {
		t.Fatal("expected error for spec without an executable")
	}
}

func TestExecutableFunctionPassesJSONArgument(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell")
	}
	t.Setenv("SHELL", "/bin/sh")

	dir := t.TempDir()
	script := filepath.Join(dir, "echo-args.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho \"$1\"\n"), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	r := NewRegistry()
	r.Register(newExecutableFunction(fileSpec{
		Name:       "echo_args",
		Executable: script,
	}))

	output, err := r.Execute(context.Background(), "echo_args", `{"city":"Berlin"}`)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(output, `"city":"Berlin"`) {
		t.Errorf("executable did not receive the JSON arguments: %q", output)
	}
}
