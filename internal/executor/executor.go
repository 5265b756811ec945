package executor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// Executor runs confirmed shell commands in the user's shell
type Executor struct {
	// ShellName overrides shell detection when non-empty
	ShellName string
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	Debug     bool
}

// New returns an executor attached to the process stdio
func New(shellName string, debug bool) *Executor {
	return &Executor{
		ShellName: shellName,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Debug:     debug,
	}
}

// Run executes a command string in the user's shell
func (e *Executor) Run(command string) error {
	shell, args := e.shellCommand(command)

	if e.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Executor: running %q via %s\n", command, shell)
	}

	cmd := exec.Command(shell, args...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	if err := cmd.Run(); err != nil {
		if e.Debug {
			if exitErr, ok := err.(*exec.ExitError); ok {
				fmt.Fprintf(os.Stderr, "[DEBUG] Executor: command exited with code %d\n", exitErr.ExitCode())
			} else {
				fmt.Fprintf(os.Stderr, "[DEBUG] Executor: command failed: %v\n", err)
			}
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

// shellCommand resolves the shell binary and argument form for this platform
func (e *Executor) shellCommand(command string) (string, []string) {
	if runtime.GOOS == "windows" {
		shell := e.ShellName
		switch shell {
		case "powershell.exe":
			return "powershell.exe", []string{"-Command", command}
		case "", "auto", "cmd.exe":
			return "cmd", []string{"/C", command}
		default:
			return shell, []string{"/C", command}
		}
	}

	shell := e.ShellName
	if shell == "" || shell == "auto" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return shell, []string{"-c", command}
}
