package execution

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestExecutionErrorError tests the Error() method implementation
func TestExecutionErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ExecutionError
		expected string
	}{
		{
			name:     "Error with code and message",
			err:      &ExecutionError{Code: "TEST_ERROR", Message: "Test error message"},
			expected: "[TEST_ERROR] Test error message",
		},
		{
			name:     "Error with cause",
			err:      &ExecutionError{Code: CodeGitError, Message: "git commit failed", Cause: errors.New("index locked")},
			expected: "[GIT_ERROR] git commit failed: index locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.err.Error(); result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestExecutionError_Helpers(t *testing.T) {
	cause := errors.New("quota exceeded")
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"record missing", ErrRecordMissing("0001_auth"), IsRecordMissing},
		{"agent", ErrAgent("code/task", cause), IsAgentError},
		{"git", ErrGit("commit", cause), IsGitError},
		{"hook exhausted", ErrHookExhausted(0, "model", []string{"build"}, 3), IsHookExhausted},
		{"verification failed", ErrVerificationFailed(3, "tests failing"), IsVerificationFailed},
		{"cancelled", ErrCancelled(cause), IsCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("Expected helper to match %v", tt.err)
			}
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !tt.check(wrapped) {
				t.Errorf("Expected helper to match wrapped error %v", wrapped)
			}
		})
	}

	if IsGitError(errors.New("plain")) {
		t.Error("Plain error must not match")
	}
}

func TestExecutionError_UnwrapAndDetails(t *testing.T) {
	cause := errors.New("connection reset")
	err := ErrAgent("review/task", cause)
	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to reach the cause")
	}

	withPhase := err.WithDetail("phase", 2)
	if withPhase.Details["phase"] != 2 || withPhase.Details["prompt"] != "review/task" {
		t.Errorf("Unexpected details: %v", withPhase.Details)
	}
	if _, ok := err.Details["phase"]; ok {
		t.Error("WithDetail must not modify the original error")
	}

	hookErr := ErrHookExhausted(1, "wire", []string{"lint", "test"}, 5)
	if !strings.Contains(hookErr.Message, "phase 2 (wire)") {
		t.Errorf("Expected 1-based phase in message, got %q", hookErr.Message)
	}
}
