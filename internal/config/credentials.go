package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

// KeyringService is the keyring service name the API token is stored under.
const KeyringService = "redub"

// TokenSource resolves the pipeline service API token: the environment
// first, then the system keyring, then an interactive prompt whose answer is
// saved to the keyring.
type TokenSource struct {
	User   string
	Getenv func(string) string
	// Prompt asks for the token. Nil means no prompt is possible.
	Prompt func() (string, error)
}

// NewTokenSource returns a source for the current OS user, prompting on the
// terminal when stdin is one.
func NewTokenSource(out io.Writer) TokenSource {
	s := TokenSource{User: systemUser(), Getenv: os.Getenv}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		s.Prompt = TerminalPrompt(fd, out)
	}
	return s
}

// Token returns the API token. An empty token with a nil error means none is
// configured and no prompt was possible; the service may not need one.
func (s TokenSource) Token() (string, error) {
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvAPIToken)); v != "" {
		return v, nil
	}

	tok, err := keyring.Get(KeyringService, s.User)
	switch {
	case err == nil && tok != "":
		return tok, nil
	case err != nil && !errors.Is(err, keyring.ErrNotFound):
		return "", fmt.Errorf("read keyring: %w", err)
	}

	if s.Prompt == nil {
		return "", nil
	}
	tok, err = s.Prompt()
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", nil
	}
	if err := keyring.Set(KeyringService, s.User, tok); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	return tok, nil
}

// TerminalPrompt reads a token from the terminal without echo.
func TerminalPrompt(fd int, out io.Writer) func() (string, error) {
	return func() (string, error) {
		fmt.Fprint(out, "Pipeline API token (empty for none): ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func systemUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "redub"
}
