package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
)

// Prompter asks the user for a missing flag value.
type Prompter interface {
	Input(title string, secret bool) (string, error)
}

type huhPrompter struct{}

func (huhPrompter) Input(title string, secret bool) (string, error) {
	if !isInteractive() {
		return "", errNoTerminal
	}
	var value string
	input := huh.NewInput().
		Title(title).
		Value(&value)
	if secret {
		input = input.EchoMode(huh.EchoModePassword)
	}
	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return value, nil
}

var errNoTerminal = errors.New("no terminal to prompt on")

func isInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// valueOrPrompt returns the flag value, prompting when it was left empty.
func (a *app) valueOrPrompt(value, flag, title string, secret bool) (string, error) {
	if strings.TrimSpace(value) != "" {
		return value, nil
	}
	got, err := a.prompt.Input(title, secret)
	if errors.Is(err, errNoTerminal) {
		return "", fmt.Errorf("--%s is required", flag)
	}
	if err != nil {
		return "", err
	}
	return got, nil
}
