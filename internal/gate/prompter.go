package gate

import (
	"github.com/AlecAivazis/survey/v2"

	"github.com/iishyfishyy/sgpt/internal/ui"
)

const (
	choiceExecute  = "Execute it"
	choiceModify   = "Modify it"
	choiceDescribe = "Describe it"
	choiceCopy     = "Copy to clipboard"
	choiceAbort    = "Abort"
)

// SurveyPrompter implements Prompter with interactive terminal prompts
type SurveyPrompter struct{}

// Choose shows the command and asks the user what to do
func (SurveyPrompter) Choose(command string, defaultExecute bool) (Action, error) {
	ui.ShowCommand(command)

	def := choiceAbort
	if defaultExecute {
		def = choiceExecute
	}

	var choice string
	prompt := &survey.Select{
		Message: "What would you like to do?",
		Options: []string{choiceExecute, choiceModify, choiceDescribe, choiceCopy, choiceAbort},
		Default: def,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return ActionAbort, err
	}
	return actionFromChoice(choice), nil
}

// EditCommand lets the user edit the command text in place
func (SurveyPrompter) EditCommand(current string) (string, error) {
	return ui.PromptInputWithDefault("Edit command:", current)
}

func actionFromChoice(choice string) Action {
	switch choice {
	case choiceExecute:
		return ActionExecute
	case choiceModify:
		return ActionModify
	case choiceDescribe:
		return ActionDescribe
	case choiceCopy:
		return ActionCopy
	default:
		return ActionAbort
	}
}
