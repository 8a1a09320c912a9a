package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// passwordEnv lets scripts supply the password without a prompt.
const passwordEnv = "CYBERVAULT_PASSWORD"

// errPrompt marks failures of the terminal prompt itself.
var errPrompt = errors.New("prompt")

func promptErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", errPrompt, err)
}

func promptEmail(initial string) (string, error) {
	if initial != "" {
		return initial, nil
	}
	p := promptui.Prompt{
		Label: "Email",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("email is required")
			}
			return nil
		},
	}
	v, err := p.Run()
	return v, promptErr(err)
}

func promptPassword() (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	p := promptui.Prompt{
		Label: "Password",
		Mask:  '*',
		Validate: func(s string) error {
			if s == "" {
				return errors.New("password is required")
			}
			return nil
		},
	}
	v, err := p.Run()
	return v, promptErr(err)
}

func promptText(label string) (string, error) {
	p := promptui.Prompt{Label: label}
	v, err := p.Run()
	return v, promptErr(err)
}

// confirm asks a yes/no question. Anything but y/yes is a no.
func confirm(label string) bool {
	p := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := p.Run()
	return err == nil
}

func selectItem(label string, items []string) (int, error) {
	s := promptui.Select{Label: label, Items: items, Size: 10}
	i, _, err := s.Run()
	return i, promptErr(err)
}

// isInterrupt reports whether the user aborted a prompt with Ctrl-C or Ctrl-D.
func isInterrupt(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF)
}
