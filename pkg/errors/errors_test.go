package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidMode, "unknown mode: %s", "4d")

	if err.Code != ErrCodeInvalidMode {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidMode)
	}

	if err.Message != "unknown mode: 4d" {
		t.Errorf("Message = %v, want %v", err.Message, "unknown mode: 4d")
	}

	expected := "INVALID_MODE: unknown mode: 4d"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeSourceUnavailable, cause, "load mongo topology")

	if err.Code != ErrCodeSourceUnavailable {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeSourceUnavailable)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	// Test Unwrap
	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	// Test errors.Is with wrapped error
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidInput,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeNetwork,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeNetwork, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeNetwork,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidSnapshot, "test"),
			expected: ErrCodeInvalidSnapshot,
		},
		{
			name:     "rate limited",
			err:      fmt.Errorf("refresh: %w", &RateLimitedError{RetryAfter: time.Second}),
			expected: ErrCodeRateLimited,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "no node with id \"db-9\""),
			expected: "no node with id \"db-9\"",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRateLimitedError(t *testing.T) {
	t.Run("with retry after", func(t *testing.T) {
		err := &RateLimitedError{RetryAfter: 1500 * time.Millisecond}
		expected := "rate limited: retry after 1.5s"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})

	t.Run("message wins", func(t *testing.T) {
		err := &RateLimitedError{RetryAfter: time.Second, Message: "refresh rate limited"}
		if err.Error() != "refresh rate limited" || UserMessage(err) != "refresh rate limited" {
			t.Errorf("Error() = %q, UserMessage() = %q", err.Error(), UserMessage(err))
		}
	})

	t.Run("code", func(t *testing.T) {
		err := &RateLimitedError{}
		if err.Code() != ErrCodeRateLimited || !Is(err, ErrCodeRateLimited) {
			t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeRateLimited)
		}
	})
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		secs   int
		wantOK bool
	}{
		{"rounds up", &RateLimitedError{RetryAfter: 1200 * time.Millisecond}, 2, true},
		{"at least one", &RateLimitedError{}, 1, true},
		{"wrapped", fmt.Errorf("x: %w", &RateLimitedError{RetryAfter: 3 * time.Second}), 3, true},
		{"other error", New(ErrCodeTimeout, "slow"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secs, ok := RetryAfterSeconds(tt.err)
			if secs != tt.secs || ok != tt.wantOK {
				t.Errorf("RetryAfterSeconds() = %d, %v, want %d, %v", secs, ok, tt.secs, tt.wantOK)
			}
		})
	}
}
