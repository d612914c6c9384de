package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := New(CodeNotRegistered, "player 42 is not registered")
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatal("expected errors.Is to match by code")
	}
	if errors.Is(err, ErrSessionCancelled) {
		t.Fatal("expected different codes not to match")
	}

	wrapped := fmt.Errorf("accept: %w", err)
	if !errors.Is(wrapped, ErrNotRegistered) {
		t.Fatal("expected match through fmt wrapping")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodePersistenceFailure, "save guild config", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if got, want := err.Error(), "save guild config: connection refused"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: errors.New("boom"), want: CodeUnknown},
		{name: "coded", err: New(CodeNotFound, "no config"), want: CodeNotFound},
		{name: "wrapped", err: fmt.Errorf("x: %w", ErrNotifyFailure), want: CodeNotifyFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Fatalf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPersistenceKeepsCodedErrors(t *testing.T) {
	if Persistence("x", nil) != nil {
		t.Fatal("expected nil for nil cause")
	}
	notFound := New(CodeNotFound, "guild 1 has no config")
	if got := Persistence("load config", notFound); !errors.Is(got, ErrNotFound) {
		t.Fatalf("expected not found to pass through, got %v", got)
	}
	if got := Persistence("load config", errors.New("timeout")); !errors.Is(got, ErrPersistenceFailure) {
		t.Fatalf("expected persistence failure, got %v", got)
	}
}
