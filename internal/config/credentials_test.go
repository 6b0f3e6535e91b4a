package config

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func envWith(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestTokenFromEnv(t *testing.T) {
	keyring.MockInit()
	s := TokenSource{
		User:   "tester",
		Getenv: envWith(map[string]string{EnvAPIToken: " env-token "}),
		Prompt: func() (string, error) { t.Error("prompt should not run"); return "", nil },
	}
	tok, err := s.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "env-token" {
		t.Errorf("token = %q, want env-token", tok)
	}
}

func TestTokenPromptSavesToKeyring(t *testing.T) {
	keyring.MockInit()
	prompts := 0
	s := TokenSource{
		User:   "tester",
		Getenv: envWith(nil),
		Prompt: func() (string, error) { prompts++; return "typed-token\n", nil },
	}

	tok, err := s.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "typed-token" {
		t.Errorf("token = %q, want typed-token", tok)
	}

	// Second lookup comes from the keyring.
	tok, err = s.Token()
	if err != nil {
		t.Fatalf("Token again: %v", err)
	}
	if tok != "typed-token" || prompts != 1 {
		t.Errorf("token = %q after %d prompts, want keyring hit", tok, prompts)
	}
}

func TestTokenWithoutPrompt(t *testing.T) {
	keyring.MockInit()
	tok, err := TokenSource{User: "nobody", Getenv: envWith(nil)}.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "" {
		t.Errorf("token = %q, want empty", tok)
	}
}

func TestTokenPromptError(t *testing.T) {
	keyring.MockInit()
	s := TokenSource{
		User:   "tester",
		Getenv: envWith(nil),
		Prompt: func() (string, error) { return "", errors.New("no tty") },
	}
	if _, err := s.Token(); err == nil {
		t.Error("expected prompt error")
	}
}
