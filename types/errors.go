package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the core taxonomy. Structured error types below wrap
// these so callers can match with errors.Is without losing detail.
var (
	// ErrConfiguration indicates invalid chunk parameters or an
	// unregistered model. Never retried internally.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrContextOverflow indicates a single logical unit exceeds the
	// model's context size and cannot be subdivided further.
	ErrContextOverflow = errors.New("context window exceeded")

	// ErrBudgetExceeded indicates iterative reduction failed to converge
	// within the allowed passes or the minimum-chunk floor.
	ErrBudgetExceeded = errors.New("token budget exceeded")

	// ErrBackend indicates the external completion call failed
	// (transport, auth, provider-side error).
	ErrBackend = errors.New("backend request failed")

	// ErrBackendTimeout indicates the completion call exceeded its
	// deadline. No partial Chunk/Summary state is left behind.
	ErrBackendTimeout = errors.New("backend request timed out")

	// ErrSchemaParse indicates the structured result did not conform to
	// the requested schema.
	ErrSchemaParse = errors.New("schema parse failed")
)

// ConfigurationError reports an invalid parameter or unregistered model.
type ConfigurationError struct {
	Op     string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrConfiguration, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError creates a ConfigurationError for the given operation.
func NewConfigurationError(op, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// ContextOverflowError reports an irreducible unit larger than the model's
// context window.
type ContextOverflowError struct {
	Op      string
	ModelID string
	Tokens  int
	Limit   int
}

func (e *ContextOverflowError) Error() string {
	return fmt.Sprintf("%s: %s: %d tokens against a %d token window (model %s)",
		e.Op, ErrContextOverflow, e.Tokens, e.Limit, e.ModelID)
}

func (e *ContextOverflowError) Unwrap() error { return ErrContextOverflow }

// BudgetExceededError reports a reduction that did not converge.
type BudgetExceededError struct {
	Op     string
	Passes int
	Tokens int
	Target int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("%s: %s: %d tokens above target %d after %d passes",
		e.Op, ErrBudgetExceeded, e.Tokens, e.Target, e.Passes)
}

func (e *BudgetExceededError) Unwrap() error { return ErrBudgetExceeded }

// BackendError reports a failed completion exchange. Timeout distinguishes
// deadline expiry from other transport or provider failures.
type BackendError struct {
	Op      string
	Backend string
	Status  int
	Timeout bool
	Err     error
}

func (e *BackendError) Error() string {
	kind := ErrBackend
	if e.Timeout {
		kind = ErrBackendTimeout
	}
	msg := fmt.Sprintf("%s: %s", e.Op, kind)
	if e.Backend != "" {
		msg += fmt.Sprintf(" (backend %s)", e.Backend)
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() error {
	if e.Timeout {
		return ErrBackendTimeout
	}
	return ErrBackend
}

// Cause returns the underlying transport error, if any.
func (e *BackendError) Cause() error { return e.Err }

// SchemaParseError reports model output that failed schema validation.
type SchemaParseError struct {
	Op     string
	Schema string
	Raw    string
	Err    error
}

func (e *SchemaParseError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, ErrSchemaParse)
	if e.Schema != "" {
		msg += fmt.Sprintf(" (schema %s)", e.Schema)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaParseError) Unwrap() error { return ErrSchemaParse }
