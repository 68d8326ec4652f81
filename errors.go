package multiprovider

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// ErrNoProvidersConfigured is returned when a logical call is issued against
// an empty pool. It is distinct from exhaustion: no network activity has
// taken place.
var ErrNoProvidersConfigured = errors.New("multiprovider: no providers configured")

// UnsupportedProtocolError is returned at construction time when an endpoint
// address carries a scheme outside the allow-list.
type UnsupportedProtocolError struct {
	Scheme string
}

func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("multiprovider: protocol %q is not supported", e.Scheme)
}

// InitializationError is returned when the identity probe of an endpoint
// fails during construction. Provider carries the normalized address only.
type InitializationError struct {
	Provider string
	Cause    error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("multiprovider: failed to initialize provider %s: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *InitializationError) Unwrap() error {
	return e.Cause
}

// TransportError is a connectivity-class failure: connection errors,
// unexpected HTTP statuses and undecodable bodies. Transport errors
// participate in failover.
type TransportError struct {
	Provider   string
	StatusCode int
	Cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("multiprovider: transport failure against %s (status %d): %v", e.Provider, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("multiprovider: transport failure against %s: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// CallError is a caller-misuse failure: unencodable parameters, an empty
// method, or a 4xx REST response. Call errors propagate immediately and are
// never retried against another endpoint.
type CallError struct {
	Provider   string
	StatusCode int
	Cause      error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("multiprovider: bad request against %s (status %d): %v", e.Provider, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("multiprovider: bad request: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *CallError) Unwrap() error {
	return e.Cause
}

// NoActiveProviderError is raised when every candidate in the pool failed.
// It carries one error per pool member.
type NoActiveProviderError struct {
	err error
}

func newNoActiveProviderError(errs []error) *NoActiveProviderError {
	return &NoActiveProviderError{err: multierr.Combine(errs...)}
}

func (e *NoActiveProviderError) Error() string {
	return fmt.Sprintf("multiprovider: no active provider available: %v", e.err)
}

// Unwrap exposes the combined per-endpoint errors.
func (e *NoActiveProviderError) Unwrap() error {
	return e.err
}

// Errors returns the collected per-endpoint errors in attempt order.
func (e *NoActiveProviderError) Errors() []error {
	return multierr.Errors(e.err)
}

// IsTransient reports whether an error may succeed against another endpoint.
// Only transport-class failures qualify; caller misuse never does.
func IsTransient(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// redactError renders err with every occurrence of the raw endpoint address
// replaced, so vendor URLs (which may embed credentials) never reach logs.
func redactError(err error, endpoint string) string {
	if err == nil {
		return ""
	}
	if endpoint == "" {
		return err.Error()
	}
	return strings.ReplaceAll(err.Error(), endpoint, "****")
}
