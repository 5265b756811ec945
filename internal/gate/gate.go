// Package gate implements the confirm-before-run step guarding host shell
// execution of a generated command. Nothing reaches the shell without an
// explicit execute choice.
package gate

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/iishyfishyy/sgpt/internal/ui"
)

// Action is the user's choice for a proposed command
type Action int

const (
	ActionExecute Action = iota
	ActionModify
	ActionDescribe
	ActionCopy
	ActionAbort
)

// Outcome is the terminal state of a gate run
type Outcome int

const (
	OutcomeExecuted Outcome = iota
	OutcomeAborted
)

// Result reports what happened at the gate
type Result struct {
	Outcome       Outcome
	FinalCommand  string
	Modifications []string
}

// Prompter obtains the user's decisions. Implemented by SurveyPrompter in
// production and by mocks in tests.
type Prompter interface {
	// Choose shows the command and returns the chosen action
	Choose(command string, defaultExecute bool) (Action, error)
	// EditCommand lets the user edit the command in place
	EditCommand(current string) (string, error)
}

// Gate runs the confirmation loop for a proposed shell command
type Gate struct {
	Prompter       Prompter
	Execute        func(command string) error
	Describe       func(ctx context.Context, command string) (string, error)
	Copy           func(text string) error
	DefaultExecute bool
}

// Run loops until the user executes or aborts. Modify and Describe return to
// the confirmation; the command is handed to Execute only on an explicit
// execute choice.
func (g *Gate) Run(ctx context.Context, command string) (*Result, error) {
	result := &Result{FinalCommand: command}

	for {
		action, err := g.Prompter.Choose(result.FinalCommand, g.DefaultExecute)
		if err != nil {
			return nil, fmt.Errorf("failed to get user confirmation: %w", err)
		}

		switch action {
		case ActionExecute:
			if err := g.Execute(result.FinalCommand); err != nil {
				ui.ShowError(fmt.Sprintf("Command failed: %v", err))
			}
			result.Outcome = OutcomeExecuted
			return result, nil

		case ActionModify:
			modified, err := g.Prompter.EditCommand(result.FinalCommand)
			if err != nil {
				return nil, fmt.Errorf("failed to get modification: %w", err)
			}
			result.Modifications = append(result.Modifications, modified)
			result.FinalCommand = modified

		case ActionDescribe:
			if g.Describe == nil {
				ui.ShowWarning("No describer available")
				continue
			}
			description, err := g.Describe(ctx, result.FinalCommand)
			if err != nil {
				ui.ShowError(fmt.Sprintf("Failed to describe command: %v", err))
				continue
			}
			fmt.Println("\n" + description)

		case ActionCopy:
			copyFn := g.Copy
			if copyFn == nil {
				copyFn = clipboard.WriteAll
			}
			if err := copyFn(result.FinalCommand); err != nil {
				ui.ShowError(fmt.Sprintf("Failed to copy to clipboard: %v", err))
			} else {
				ui.ShowSuccess("Command copied to clipboard!")
			}

		case ActionAbort:
			ui.ShowInfo("Aborted.")
			result.Outcome = OutcomeAborted
			return result, nil
		}
	}
}
