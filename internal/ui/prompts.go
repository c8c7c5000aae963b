package ui

import (
	"github.com/AlecAivazis/survey/v2"
)

// PromptYesNo prompts the user for a yes/no answer. In non-interactive mode
// the default answer is returned without prompting.
func (u *UI) PromptYesNo(prompt string, defaultYes bool) (bool, error) {
	if u.nonInteractive {
		return defaultYes, nil
	}

	var result bool
	p := &survey.Confirm{
		Message: prompt,
		Default: defaultYes,
	}

	err := survey.AskOne(p, &result)
	return result, err
}

// PromptInput prompts the user for text input. In non-interactive mode the
// default value is returned without prompting.
func (u *UI) PromptInput(prompt, defaultValue string) (string, error) {
	if u.nonInteractive {
		return defaultValue, nil
	}

	var result string
	p := &survey.Input{
		Message: prompt,
		Default: defaultValue,
	}

	err := survey.AskOne(p, &result)
	return result, err
}
