package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// Each constructor must wrap exactly one sentinel so handlers can map it to a status.
func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("share", "python-1"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "Expired is still a NotFound",
			err:       Expired("share", "python-1"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("expiryTime", "invalid expiry time"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("share", "python-1"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "UnsupportedLanguage wraps ErrUnsupportedLanguage",
			err:       UnsupportedLanguage("cobol"),
			target:    ErrUnsupportedLanguage,
			wantMatch: true,
		},
		{
			name:      "Upstream survives fmt.Errorf wrapping",
			err:       fmt.Errorf("assist: %w", Upstream("model overloaded")),
			target:    ErrUpstream,
			wantMatch: true,
		},
		{
			name:      "ExecutionFailed wraps ErrExecution",
			err:       ExecutionFailed("dial tcp: timeout"),
			target:    ErrExecution,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("token missing"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("share", "python-1"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Upstream does NOT match ErrExecution",
			err:       Upstream("boom"),
			target:    ErrExecution,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("share", "go-abc"),
			wantMessage: "share not found with id go-abc",
		},
		{
			name:        "Expired message says expired",
			err:         Expired("share", "go-abc"),
			wantMessage: "share with id go-abc has expired",
		},
		{
			name:        "UnsupportedLanguage quotes the language",
			err:         UnsupportedLanguage("cobol"),
			wantMessage: `language "cobol" is not supported`,
		},
		{
			name:        "Upstream passes text through",
			err:         Upstream("429 Too Many Requests"),
			wantMessage: "429 Too Many Requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("share", "abc123")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestFieldIsRecorded(t *testing.T) {
	if err := ValidationFailed("expiryTime", "bad"); err.Field != "expiryTime" {
		t.Errorf("Field = %q, want %q", err.Field, "expiryTime")
	}
	if err := UnsupportedLanguage("cobol"); err.Field != "language" {
		t.Errorf("Field = %q, want %q", err.Field, "language")
	}
}
