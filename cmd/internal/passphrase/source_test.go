package passphrase

import (
	"bytes"
	"errors"
	"testing"
)

func scripted(answers ...string) func(string) (string, error) {
	return func(string) (string, error) {
		if len(answers) == 0 {
			return "", errors.New("no more input")
		}
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}
}

func TestEnvironmentWins(t *testing.T) {
	t.Setenv("CASH_TEST_PASS", "from-env")
	s := NewSource("CASH_TEST_PASS")
	s.read = scripted("from-prompt")
	got, err := s.Get()
	if err != nil || got != "from-env" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestEmptyEnvironmentRejected(t *testing.T) {
	t.Setenv("CASH_TEST_PASS", "  ")
	if _, err := NewSource("CASH_TEST_PASS").Get(); err == nil {
		t.Fatalf("expected error for blank env passphrase")
	}
}

func TestPromptCachesValue(t *testing.T) {
	s := NewSource("", WithLabel("validator keystore"))
	s.read = scripted("hunter2")
	for i := 0; i < 2; i++ {
		got, err := s.Get()
		if err != nil || got != "hunter2" {
			t.Fatalf("call %d: got %q, %v", i, got, err)
		}
	}
}

func TestConfirmMismatch(t *testing.T) {
	s := NewSource("", WithConfirm())
	s.read = scripted("one", "two")
	if _, err := s.Get(); !errors.Is(err, errMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestBlankPromptRejected(t *testing.T) {
	s := NewSource("")
	s.read = scripted("   ")
	if _, err := s.Get(); err == nil {
		t.Fatalf("expected error for blank passphrase")
	}
}

func TestPromptWithWritesPrompt(t *testing.T) {
	var buf bytes.Buffer
	got, err := promptWith(&buf, "Enter: ", func() ([]byte, error) { return []byte("pw"), nil })
	if err != nil || got != "pw" {
		t.Fatalf("got %q, %v", got, err)
	}
	if buf.String() != "Enter: \n" {
		t.Fatalf("unexpected prompt output %q", buf.String())
	}
}
