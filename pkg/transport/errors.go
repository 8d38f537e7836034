package transport

import "errors"

var (
	ErrInvalidBaseURL = errors.New("transport: invalid base url")
	ErrEncodeBody     = errors.New("transport: failed to encode request body")
	ErrDecodeBody     = errors.New("transport: failed to decode response body")
	ErrRequestFailed  = errors.New("transport: request failed")
	ErrTimeout        = errors.New("transport: request timeout")
	ErrCircuitOpen    = errors.New("transport: circuit breaker is open")
)

// IsCircuitOpen checks if an error indicates the circuit breaker is open.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
