package authclient

import "errors"

var (
	// ErrUnauthenticated is the expected "nobody is signed in" outcome.
	ErrUnauthenticated = errors.New("authclient: not authenticated")
	// ErrUnexpectedStatus marks a status the endpoint is not documented to return.
	ErrUnexpectedStatus  = errors.New("authclient: unexpected status")
	ErrMalformedIdentity = errors.New("authclient: malformed identity")
	ErrAlreadyRunning    = errors.New("authclient: initialization already running")
	// ErrAlreadyInitialized is returned by a second initialization without an
	// Unmount in between.
	ErrAlreadyInitialized = errors.New("authclient: already initialized")
	ErrClosed             = errors.New("authclient: manager closed")
)

// RequestError is returned by Login and Register when the service rejects
// the request. Message is suitable for display.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// IsUnauthenticated reports whether err is the confirmed-absent outcome.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}
