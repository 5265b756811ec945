package handler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/iishyfishyy/sgpt/internal/role"
)

// ReplHandler runs an interactive read-eval-print session on top of a chat
// session.
type ReplHandler struct {
	*ChatHandler

	// Render formats a reply for display (markdown rendering or identity)
	Render func(reply string) string
	// Execute runs the last shell completion when the user enters "e"
	Execute func(command string) error
	// Describe explains the last shell completion when the user enters "d"
	Describe func(ctx context.Context, command string) (string, error)
}

// NewRepl wraps a chat dispatcher in a REPL
func NewRepl(chatHandler *ChatHandler) *ReplHandler {
	return &ReplHandler{
		ChatHandler: chatHandler,
		Render:      func(reply string) string { return reply },
	}
}

// Run loops reading prompts from in until EOF or exit(). In the shell role,
// "e" executes the last completion and "d" describes it.
func (h *ReplHandler) Run(ctx context.Context, initPrompt string, in io.Reader, out io.Writer) error {
	shellMode := h.role.Name == role.ShellRoleName

	if shellMode {
		fmt.Fprintln(out, `Entering REPL mode, type [e] to execute the last command or [d] to describe it, "exit()" to quit.`)
	} else {
		fmt.Fprintln(out, `Entering REPL mode, type "exit()" to quit.`)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lastCompletion := ""
	pendingInit := strings.TrimSpace(initPrompt)

	for {
		fmt.Fprint(out, ">>> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		prompt := scanner.Text()

		if prompt == `"""` {
			multiline, err := readMultiline(scanner, out)
			if err != nil {
				return err
			}
			prompt = multiline
		}

		if strings.TrimSpace(prompt) == "exit()" {
			return nil
		}
		if strings.TrimSpace(prompt) == "" {
			continue
		}

		if pendingInit != "" {
			prompt = pendingInit + "\n\n\n" + prompt
			pendingInit = ""
		}

		switch {
		case shellMode && prompt == "e":
			if lastCompletion == "" {
				fmt.Fprintln(out, "Nothing to execute yet.")
				continue
			}
			if h.Execute != nil {
				if err := h.Execute(lastCompletion); err != nil {
					fmt.Fprintf(out, "Command failed: %v\n", err)
				}
			}

		case shellMode && prompt == "d":
			if lastCompletion == "" {
				fmt.Fprintln(out, "Nothing to describe yet.")
				continue
			}
			if h.Describe != nil {
				description, err := h.Describe(ctx, lastCompletion)
				if err != nil {
					fmt.Fprintf(out, "Failed to describe command: %v\n", err)
					continue
				}
				fmt.Fprintln(out, description)
			}

		default:
			reply, err := h.Handle(ctx, prompt)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			lastCompletion = reply
			fmt.Fprintln(out, h.Render(reply))
		}
	}
}

// readMultiline collects lines until the closing triple quote
func readMultiline(scanner *bufio.Scanner, out io.Writer) (string, error) {
	var b strings.Builder
	for {
		fmt.Fprint(out, "... ")
		if !scanner.Scan() {
			return b.String(), scanner.Err()
		}
		line := scanner.Text()
		if line == `"""` {
			return b.String(), nil
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
}
