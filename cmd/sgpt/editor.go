package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// getEditedPrompt opens the user's $EDITOR on a temp file and returns its
// contents as the prompt.
func getEditedPrompt() (string, error) {
	tmp, err := os.CreateTemp("", "sgpt-prompt-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vim"
	}

	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to run editor: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read edited prompt: %w", err)
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("could not get a valid prompt from $EDITOR")
	}
	return prompt, nil
}
