// Package function implements the optional function-calling mode: a registry
// of callable tools advertised to the model, executed locally when the model
// requests them.
package function

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/iishyfishyy/sgpt/internal/provider"
)

// Handler executes a function with JSON-encoded arguments
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Function pairs a tool spec with its local implementation
type Function struct {
	Spec provider.ToolSpec
	Run  Handler
}

// Registry holds the callable functions for one invocation
type Registry struct {
	functions map[string]Function
	order     []string
}

// NewRegistry creates a registry containing the built-in
// execute_shell_command function.
func NewRegistry() *Registry {
	r := &Registry{functions: make(map[string]Function)}
	r.Register(executeShellCommand())
	return r
}

// Register adds a function, replacing any previous one with the same name
func (r *Registry) Register(f Function) {
	if _, exists := r.functions[f.Spec.Name]; !exists {
		r.order = append(r.order, f.Spec.Name)
	}
	r.functions[f.Spec.Name] = f
}

// Specs returns the tool specs in registration order
func (r *Registry) Specs() []provider.ToolSpec {
	specs := make([]provider.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.functions[name].Spec)
	}
	return specs
}

// Execute runs a function by name with the model-supplied JSON arguments.
// Unknown names and malformed arguments are returned as errors; the handler
// loop feeds them back to the model.
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	f, ok := r.functions[name]
	if !ok {
		return "", fmt.Errorf("unknown function %q", name)
	}

	args := map[string]any{}
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("invalid arguments for %q: %w", name, err)
		}
	}
	return f.Run(ctx, args)
}

// LoadDir registers user-declared functions from JSON spec files in dir.
// A missing directory is not an error.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read functions directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read function spec %s: %w", entry.Name(), err)
		}

		var spec fileSpec
		if err := json.Unmarshal(data, &spec); err != nil {
			return fmt.Errorf("failed to parse function spec %s: %w", entry.Name(), err)
		}
		if spec.Name == "" || spec.Executable == "" {
			return fmt.Errorf("function spec %s: name and executable are required", entry.Name())
		}
		r.Register(newExecutableFunction(spec))
	}
	return nil
}

// fileSpec is the on-disk shape of a user-declared function
type fileSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Executable  string         `json:"executable"`
	Parameters  map[string]any `json:"parameters"`
}

// newExecutableFunction wraps an external executable. The executable
// receives the arguments object as JSON in its first argument.
func newExecutableFunction(spec fileSpec) Function {
	params := spec.Parameters
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return Function{
		Spec: provider.ToolSpec{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  params,
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			argsJSON, err := json.Marshal(args)
			if err != nil {
				return "", fmt.Errorf("failed to encode arguments: %w", err)
			}
			line := shellquote.Join(spec.Executable, string(argsJSON))
			return runInShell(ctx, line)
		},
	}
}

// executeShellCommand is the built-in function letting the model run a shell
// command and read its output.
func executeShellCommand() Function {
	return Function{
		Spec: provider.ToolSpec{
			Name:        "execute_shell_command",
			Description: "Execute a shell command and return its output.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"shell_command": map[string]any{
						"type":        "string",
						"description": "The shell command to execute.",
					},
				},
				"required": []string{"shell_command"},
			},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			command, _ := args["shell_command"].(string)
			if command == "" {
				return "", fmt.Errorf("shell_command argument is required")
			}
			return runInShell(ctx, command)
		},
	}
}

// runInShell executes a command line in the user's shell and returns a
// report including exit code, so the model sees failures too.
func runInShell(ctx context.Context, command string) (string, error) {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		cmd = exec.CommandContext(ctx, shell, "-c", command)
	}

	output, err := cmd.CombinedOutput()
	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return "", fmt.Errorf("failed to execute command: %w", err)
		}
		exitCode = exitErr.ExitCode()
	}

	return fmt.Sprintf("Command: %s\nExit code: %d\nOutput:\n%s", command, exitCode, string(output)), nil
}
