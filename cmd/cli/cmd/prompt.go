package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter читает ответы с терминала без эха или построчно из stdin
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	p := &prompter{in: bufio.NewReader(in), out: cmd.ErrOrStderr(), fd: -1}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}

	return p
}

func (p *prompter) line(prompt string) (string, error) {
	if p.tty {
		fmt.Fprint(p.out, prompt)
	}

	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		if errors.Is(err, io.EOF) {
			return "", errors.New("неожиданный конец ввода")
		}
		return "", err
	}

	return strings.TrimRight(s, "\r\n"), nil
}

func (p *prompter) secret(prompt string) (string, error) {
	if !p.tty {
		return p.line(prompt)
	}

	fmt.Fprint(p.out, prompt)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения пароля: %w", err)
	}

	return string(b), nil
}

// newSecret на терминале просит повторить ввод
func (p *prompter) newSecret(prompt string) (string, error) {
	first, err := p.secret(prompt)
	if err != nil {
		return "", err
	}
	if !p.tty {
		return first, nil
	}

	second, err := p.secret("Повторите пароль: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("пароли не совпадают")
	}

	return first, nil
}

func (p *prompter) confirm(prompt string) (bool, error) {
	answer, err := p.line(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
