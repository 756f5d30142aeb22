package types

import (
	"errors"
	"fmt"
)

// ErrNotFound reports an unknown agent, profile or record.
var ErrNotFound = errors.New("not found")

// ConfigError is a fatal startup error for malformed profiles or thresholds.
type ConfigError struct {
	Source string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("invalid config %s: %s: %s", e.Source, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// NewConfigError builds a ConfigError with a formatted reason.
func NewConfigError(source, field, format string, args ...any) *ConfigError {
	return &ConfigError{Source: source, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ProviderError wraps a failed completion call.
type ProviderError struct {
	Provider string
	Model    string
	Err      error
	// Retryable is false for faults that will not heal, such as a missing model.
	Retryable bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (model %s): %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a ProviderError worth retrying.
func IsRetryable(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable
	}
	return false
}
