package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// maxPasswordAttempts bounds the confirm loop of PasswordConfirm.
const maxPasswordAttempts = 3

var errPasswordMismatch = errors.New("passwords do not match")

// prompter reads answers from the command input. Passwords are read without
// echo when the input is a terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

// Password prompts for a password without echoing to terminal
func (p *prompter) Password(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	if !p.tty {
		return p.line()
	}

	password, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

// PasswordConfirm prompts for a password twice until both entries match.
func (p *prompter) PasswordConfirm(prompt string) (string, error) {
	for i := 0; i < maxPasswordAttempts; i++ {
		password, err := p.Password(prompt)
		if err != nil {
			return "", err
		}
		confirm, err := p.Password("Re-enter your password: ")
		if err != nil {
			return "", err
		}
		if password == confirm {
			return password, nil
		}
		fmt.Fprintln(p.out, "Passwords do not match. Please try again.")
	}
	return "", errPasswordMismatch
}

// Input prompts for regular input
func (p *prompter) Input(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	return p.line()
}

// Confirm prompts for yes/no confirmation
func (p *prompter) Confirm(prompt string, defaultYes bool) (bool, error) {
	suffix := " [y/N]: "
	if defaultYes {
		suffix = " [Y/n]: "
	}

	input, err := p.Input(prompt + suffix)
	if err != nil {
		return false, err
	}

	input = strings.ToLower(input)
	if input == "" {
		return defaultYes, nil
	}
	return input == "y" || input == "yes", nil
}

func (p *prompter) line() (string, error) {
	input, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(input, "\r\n"), nil
}
