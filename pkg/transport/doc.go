// Package transport is the credential-carrying HTTP client used by every auth
// flow.
//
// A Client joins a base URL and base path ("/auth" by default) with an
// endpoint, JSON-encodes the request body, and sends it through an
// *http.Client whose cookie jar attaches the ambient session cookie. The
// package never inspects, stores or logs cookie values: the jar does all of
// that on its own.
//
// HTTP status codes are never errors. Send returns a *Response for any status
// and reserves errors for I/O failure (ErrRequestFailed), per-request timeout
// (ErrTimeout), caller cancellation (the context error) and an open circuit
// breaker (ErrCircuitOpen).
//
//	client, err := transport.New("https://app.example.com",
//	    transport.WithTimeout(10*time.Second),
//	    transport.WithCircuitBreaker(transport.NewCircuitBreaker(5, 2, 30*time.Second)),
//	)
//	resp, err := client.Send(ctx, http.MethodGet, "/me", nil)
//	if err == nil && resp.Status == http.StatusOK {
//	    var id identity.Identity
//	    _ = resp.JSON(&id)
//	}
package transport
