package main

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// readPassword prompts on the terminal without echo. With confirm set the
// password is asked twice and must match.
func readPassword(prompt string, confirm bool) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password required: use --password when stdin is not a terminal")
	}

	pw, err := promptOnce(fd, prompt)
	if err != nil {
		return "", err
	}
	if confirm {
		again, err := promptOnce(fd, "Confirm password: ")
		if err != nil {
			return "", err
		}
		if again != pw {
			return "", errors.New("passwords do not match")
		}
	}
	return pw, nil
}

func promptOnce(fd int, prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}
