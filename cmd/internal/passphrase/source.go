// Package passphrase resolves keystore passphrases for the command line
// tools, from the environment or an interactive prompt.
package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

var errMismatch = errors.New("passphrases do not match")

// Source lazily resolves a passphrase and caches the first result.
type Source struct {
	envVar  string
	label   string
	confirm bool

	// read prompts on the terminal; replaced in tests.
	read func(prompt string) (string, error)

	once  sync.Once
	value string
	err   error
}

// Option customises a Source.
type Option func(*Source)

// WithLabel names the secret in prompts and errors, e.g. "validator keystore".
func WithLabel(label string) Option {
	return func(s *Source) {
		if strings.TrimSpace(label) != "" {
			s.label = strings.TrimSpace(label)
		}
	}
}

// WithConfirm asks twice when prompting. Use it when creating a keystore.
func WithConfirm() Option {
	return func(s *Source) { s.confirm = true }
}

// NewSource builds a source that checks envVar before prompting.
func NewSource(envVar string, opts ...Option) *Source {
	s := &Source{envVar: strings.TrimSpace(envVar), label: "keystore", read: readTerminal}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the passphrase. A set environment variable is used verbatim;
// otherwise the operator is prompted on stderr. Blank passphrases are
// rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() { s.value, s.err = s.resolve() })
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.envVar != "" {
		if value, ok := os.LookupEnv(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%s is set but empty", s.envVar)
			}
			return value, nil
		}
	}
	value, err := s.read(fmt.Sprintf("Enter %s passphrase: ", s.label))
	if err != nil {
		if s.envVar != "" {
			return "", fmt.Errorf("%s passphrase required; set %s or run interactively: %w", s.label, s.envVar, err)
		}
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%s passphrase cannot be empty", s.label)
	}
	if s.confirm {
		again, err := s.read(fmt.Sprintf("Repeat %s passphrase: ", s.label))
		if err != nil {
			return "", err
		}
		if again != value {
			return "", errMismatch
		}
	}
	return value, nil
}

func readTerminal(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available")
	}
	return promptWith(os.Stderr, prompt, func() ([]byte, error) { return term.ReadPassword(fd) })
}

func promptWith(w io.Writer, prompt string, read func() ([]byte, error)) (string, error) {
	fmt.Fprint(w, prompt)
	raw, err := read()
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(raw), nil
}
