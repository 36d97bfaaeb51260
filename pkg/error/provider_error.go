package error

import (
	"fmt"
	"net/http"
)

// ProviderError wraps a failed call against the upstream WhatsApp provider.
// Status carries the upstream HTTP status when one was received, 0 for
// transport-level failures (timeouts, connection resets).
type ProviderError struct {
	Op     string
	Status int
	Err    error
}

func (err *ProviderError) Error() string {
	if err.Status > 0 {
		return fmt.Sprintf("provider %s failed with status %d: %v", err.Op, err.Status, err.Err)
	}
	return fmt.Sprintf("provider %s failed: %v", err.Op, err.Err)
}

func (err *ProviderError) ErrCode() string {
	return "PROVIDER_ERROR"
}

func (err *ProviderError) StatusCode() int {
	return http.StatusBadGateway
}

func (err *ProviderError) Unwrap() error {
	return err.Err
}

// Temporary reports whether a retry could plausibly succeed. Transport
// failures and the throttling/timeout status family qualify, client errors
// do not.
func (err *ProviderError) Temporary() bool {
	if err.Status == 0 {
		return true
	}
	switch err.Status {
	case http.StatusTooManyRequests, http.StatusRequestTimeout, http.StatusTooEarly:
		return true
	}
	return err.Status >= 500
}
