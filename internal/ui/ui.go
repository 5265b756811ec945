package ui

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	green := color.New(color.FgGreen, color.Bold)
	green.Printf("✓ %s\n", message)
}

// ShowError displays an error message
func ShowError(message string) {
	red := color.New(color.FgRed, color.Bold)
	red.Printf("✗ %s\n", message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Printf("! %s\n", message)
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	blue := color.New(color.FgBlue)
	blue.Println(message)
}

// ShowCommand displays a generated shell command
func ShowCommand(command string) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Println("\nGenerated command:")
	fmt.Printf("  %s\n\n", command)
}

// PromptInput asks for a required free-form input
func PromptInput(message string) (string, error) {
	var value string
	prompt := &survey.Input{Message: message}
	if err := survey.AskOne(prompt, &value, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return value, nil
}

// PromptInputWithDefault asks for input prefilled with a default the user can
// edit in place.
func PromptInputWithDefault(message, def string) (string, error) {
	var value string
	prompt := &survey.Input{Message: message, Default: def}
	if err := survey.AskOne(prompt, &value, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return value, nil
}

// PromptYesNo asks a yes/no question
func PromptYesNo(message string, def bool) (bool, error) {
	var confirmed bool
	prompt := &survey.Confirm{Message: message, Default: def}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}

// markdownRenderer renders markdown replies for terminal display. A nil
// renderer means initialization failed and output stays plain.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		markdownRenderer = nil
	}
}

// FormatMarkdown renders markdown content for the terminal, falling back to
// the raw text if rendering fails.
func FormatMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
