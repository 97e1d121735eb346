// Package resilience implements the provider call retry policy: a bounded
// number of attempts with a sentinel error variant that bypasses retry
// entirely.
package resilience

import (
	"errors"
	"fmt"
)

// ModelNotRecognizedError is the sentinel error variant a provider adapter
// returns when the vendor rejects the requested model outright. Retrying
// such a call cannot succeed, so Do does not retry it.
type ModelNotRecognizedError struct {
	Provider string
	Model    string
	Cause    error
}

func (e *ModelNotRecognizedError) Error() string {
	return fmt.Sprintf("resilience: provider %s does not recognize model %q: %v", e.Provider, e.Model, e.Cause)
}
func (e *ModelNotRecognizedError) Unwrap() error { return e.Cause }

// ProviderError is raised once every retry attempt has been exhausted. It
// preserves the last underlying cause.
type ProviderError struct {
	Provider string
	Attempts int
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("resilience: provider %s failed after %d attempt(s): %v", e.Provider, e.Attempts, e.Cause)
}
func (e *ProviderError) Unwrap() error { return e.Cause }

// Do runs fn up to maxRetries+1 times. A ModelNotRecognizedError short-
// circuits immediately without retrying. Any other error is retried until
// attempts are exhausted, at which point the last cause is wrapped in a
// ProviderError.
func Do(provider string, maxRetries int, fn func(attempt int) error) error {
	attempts := maxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		var notRecognized *ModelNotRecognizedError
		if errors.As(err, &notRecognized) {
			return err
		}

		lastErr = err
	}
	return &ProviderError{Provider: provider, Attempts: attempts, Cause: lastErr}
}
