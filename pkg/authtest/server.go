package authtest

import (
	"net/http/httptest"
	"testing"
)

// Server is a Service listening on a loopback address.
type Server struct {
	*Service
	URL string
}

// Start serves a new Service for the duration of the test.
func Start(tb testing.TB, opts ...Option) *Server {
	tb.Helper()

	svc := New(opts...)
	ts := httptest.NewServer(svc)
	tb.Cleanup(func() {
		svc.Release()
		ts.Close()
	})
	return &Server{Service: svc, URL: ts.URL}
}
