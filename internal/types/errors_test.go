package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestCoreErrorFormat(t *testing.T) {
	err := NewError(SESSION_NOT_FOUND, "no such session")
	want := "[SESSION_NOT_FOUND] no such session"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	cause := fmt.Errorf("boom")
	wrapped := WrapError(AGENT_FAILURE, "agent crashed", cause)
	want = "[AGENT_FAILURE] agent crashed: boom"
	if wrapped.Error() != want {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
	}
}

func TestCoreErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := WrapError(CONFIG_LOAD_FAILED, "load failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestCoreErrorIsMatchesByCode(t *testing.T) {
	a := NewError(AGENT_TIMEOUT, "first")
	b := NewError(AGENT_TIMEOUT, "second")
	c := NewError(AGENT_FAILURE, "other")

	if !errors.Is(a, b) {
		t.Error("errors with the same code should match")
	}
	if errors.Is(a, c) {
		t.Error("errors with different codes should not match")
	}
}

func TestRetryableFlag(t *testing.T) {
	if NewError(BUS_CLOSED, "closed").Retryable {
		t.Error("NewError should not be retryable")
	}
	if !NewRetryableError(AGENT_TIMEOUT, "slow").Retryable {
		t.Error("NewRetryableError should be retryable")
	}
}
