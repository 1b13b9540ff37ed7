package execution

import (
	"errors"
	"fmt"
)

// Error codes for run failures
const (
	CodeRecordMissing      = "RECORD_MISSING"
	CodeRecordInvalid      = "RECORD_INVALID"
	CodeAgentError         = "AGENT_ERROR"
	CodeGitError           = "GIT_ERROR"
	CodeHookExhausted      = "HOOK_EXHAUSTED"
	CodeVerificationFailed = "VERIFICATION_FAILED"
	CodeReviewUnresolved   = "REVIEW_UNRESOLVED"
	CodeCancelled          = "CANCELLED"
	CodePersistence        = "PERSISTENCE_ERROR"
)

// ExecutionError represents domain-specific errors for a run
type ExecutionError struct {
	Code    string
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates a new execution error with details
func NewExecutionError(code, message string, details map[string]interface{}) *ExecutionError {
	return &ExecutionError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WithCause returns a copy of the error wrapping cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// WithDetail returns a copy of the error with one more detail entry
func (e *ExecutionError) WithDetail(key string, value interface{}) *ExecutionError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// ErrRecordMissing is returned when a feature was never planned
func ErrRecordMissing(slug string) *ExecutionError {
	return NewExecutionError(CodeRecordMissing,
		fmt.Sprintf("no execution record for feature %q; run the planner first", slug),
		map[string]interface{}{"slug": slug})
}

// ErrRecordInvalid is returned when a stored record cannot be decoded or fails validation
func ErrRecordInvalid(slug string, cause error) *ExecutionError {
	return NewExecutionError(CodeRecordInvalid,
		fmt.Sprintf("execution record for feature %q is invalid", slug),
		map[string]interface{}{"slug": slug}).WithCause(cause)
}

// ErrAgent wraps a failed agent gateway call
func ErrAgent(promptKey string, cause error) *ExecutionError {
	return NewExecutionError(CodeAgentError,
		fmt.Sprintf("agent call %s failed", promptKey),
		map[string]interface{}{"prompt": promptKey}).WithCause(cause)
}

// ErrGit wraps a failed git operation
func ErrGit(op string, cause error) *ExecutionError {
	return NewExecutionError(CodeGitError,
		fmt.Sprintf("git %s failed", op),
		map[string]interface{}{"operation": op}).WithCause(cause)
}

// ErrHookExhausted reports a phase whose hooks still fail after maxRetries fixes
func ErrHookExhausted(phaseIndex int, phaseName string, failing []string, maxRetries int) *ExecutionError {
	return NewExecutionError(CodeHookExhausted,
		fmt.Sprintf("phase %d (%s): hooks failed after %d retries: %v", phaseIndex+1, phaseName, maxRetries, failing),
		map[string]interface{}{
			"phase":       phaseIndex,
			"phase_name":  phaseName,
			"hooks":       failing,
			"max_retries": maxRetries,
		})
}

// ErrVerificationFailed reports verification still failing at the iteration bound
func ErrVerificationFailed(iterations int, details string) *ExecutionError {
	return NewExecutionError(CodeVerificationFailed,
		fmt.Sprintf("verification failed after %d fix iterations", iterations),
		map[string]interface{}{"iterations": iterations, "details": details})
}

// ErrReviewUnresolved reports review issues left over when policy forbids proceeding
func ErrReviewUnresolved(found, fixed int) *ExecutionError {
	return NewExecutionError(CodeReviewUnresolved,
		fmt.Sprintf("review left %d unresolved issues", found-fixed),
		map[string]interface{}{"issues_found": found, "issues_fixed": fixed})
}

// ErrCancelled reports an externally cancelled run
func ErrCancelled(cause error) *ExecutionError {
	return NewExecutionError(CodeCancelled, "run cancelled", nil).WithCause(cause)
}

// ErrPersistence wraps a failed record save
func ErrPersistence(cause error) *ExecutionError {
	return NewExecutionError(CodePersistence, "failed to persist execution record", nil).WithCause(cause)
}

// AsExecutionError extracts an ExecutionError from an error chain
func AsExecutionError(err error) (*ExecutionError, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr, true
	}
	return nil, false
}

func hasCode(err error, code string) bool {
	execErr, ok := AsExecutionError(err)
	return ok && execErr.Code == code
}

// IsRecordMissing checks if the error is a missing record error
func IsRecordMissing(err error) bool {
	return hasCode(err, CodeRecordMissing)
}

// IsRecordInvalid checks if the error is an invalid record error
func IsRecordInvalid(err error) bool {
	return hasCode(err, CodeRecordInvalid)
}

// IsAgentError checks if the error is an agent gateway error
func IsAgentError(err error) bool {
	return hasCode(err, CodeAgentError)
}

// IsGitError checks if the error is a git error
func IsGitError(err error) bool {
	return hasCode(err, CodeGitError)
}

// IsHookExhausted checks if the error is a hook exhaustion error
func IsHookExhausted(err error) bool {
	return hasCode(err, CodeHookExhausted)
}

// IsVerificationFailed checks if the error is a verification failure
func IsVerificationFailed(err error) bool {
	return hasCode(err, CodeVerificationFailed)
}

// IsCancelled checks if the error is a cancellation
func IsCancelled(err error) bool {
	return hasCode(err, CodeCancelled)
}
