package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecodeBody, err)
	}
	return nil
}

// Text returns the body with surrounding whitespace removed.
func (r *Response) Text() string {
	return strings.TrimSpace(string(r.Body))
}

// StatusLine returns e.g. "401 Unauthorized".
func (r *Response) StatusLine() string {
	text := http.StatusText(r.Status)
	if text == "" {
		return fmt.Sprintf("%d", r.Status)
	}
	return fmt.Sprintf("%d %s", r.Status, text)
}
