package pipeline

import (
	"context"
	"strings"
	"testing"
)

func TestRunnerCapturesStdout(t *testing.T) {

	out, err := NewRunner().Run(context.Background(), "sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("expected command to succeed, got %v", err)
	}

	if strings.TrimSpace(out) != "hello" {
		t.Errorf("expected stdout 'hello', got %q", out)
	}
}

func TestRunnerErrorIncludesStderr(t *testing.T) {

	_, err := NewRunner().Run(context.Background(), "sh", "-c", "echo broken >&2; exit 1")
	if err == nil {
		t.Fatal("expected a failing command to return an error")
	}

	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("expected error to include captured stderr, got %v", err)
	}
}

func TestRunnerMissingProgram(t *testing.T) {

	if _, err := NewRunner().Run(context.Background(), "no-such-program-cantor"); err == nil {
		t.Error("expected an error for a missing program")
	}
}
