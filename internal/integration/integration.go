// Package integration installs the shell keybinding snippet that lets the
// user expand the current command-line buffer with sgpt via Ctrl+L.
package integration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const bashIntegration = `
# Shell-GPT integration BASH v0.2
_sgpt_bash() {
if [[ -n "$READLINE_LINE" ]]; then
    READLINE_LINE=$(sgpt --shell <<< "$READLINE_LINE" --no-interaction)
    READLINE_POINT=${#READLINE_LINE}
fi
}
bind -x '"\C-l": _sgpt_bash'
# Shell-GPT integration BASH v0.2
`

const zshIntegration = `
# Shell-GPT integration ZSH v0.2
_sgpt_zsh() {
if [[ -n "$BUFFER" ]]; then
    _sgpt_prev_cmd=$BUFFER
    BUFFER+="⌛"
    zle -I && zle redisplay
    BUFFER=$(sgpt --shell <<< "$_sgpt_prev_cmd" --no-interaction)
    zle end-of-line
fi
}
zle -N _sgpt_zsh
bindkey ^l _sgpt_zsh
# Shell-GPT integration ZSH v0.2
`

// Install appends the integration snippet to the rc file of the user's
// shell. Only bash and zsh are supported.
func Install() error {
	shell := os.Getenv("SHELL")

	var snippet, rcFile string
	switch {
	case strings.Contains(shell, "zsh"):
		snippet, rcFile = zshIntegration, ".zshrc"
	case strings.Contains(shell, "bash"):
		snippet, rcFile = bashIntegration, ".bashrc"
	default:
		return fmt.Errorf("shell integration is only available for bash and zsh, got %q", shell)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(home, rcFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", rcFile, err)
	}
	defer f.Close()

	if _, err := f.WriteString(snippet); err != nil {
		return fmt.Errorf("failed to write %s: %w", rcFile, err)
	}
	return nil
}
