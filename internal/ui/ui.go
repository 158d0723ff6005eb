// Package ui provides interactive terminal prompts for destructive operations.
package ui

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
)

// Confirmer asks the user for confirmation before destructive actions.
type Confirmer struct{}

// NewConfirmer creates a new Confirmer.
func NewConfirmer() *Confirmer {
	return &Confirmer{}
}

// Confirm prompts the user with a yes/no question and returns the answer.
// The default answer is no.
func (c *Confirmer) Confirm(message string) (bool, error) {
	confirmed := false
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}

	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, fmt.Errorf("failed to get confirmation: %w", err)
	}

	return confirmed, nil
}
