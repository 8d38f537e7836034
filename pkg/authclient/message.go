package authclient

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/dmitrymomot/authsession/pkg/transport"
)

const maxMessageLength = 300

// errorMessage picks a human readable message from a failed response: the
// JSON "detail" field (a string or a list of {"msg": ...} items), then
// "message" or "error", then the raw body when it is not JSON, then the
// status line.
func errorMessage(resp *transport.Response) string {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		if msg := detailMessage(body.Detail); msg != "" {
			return truncate(msg)
		}
		if body.Message != "" {
			return truncate(body.Message)
		}
		if body.Error != "" {
			return truncate(body.Error)
		}
		return resp.StatusLine()
	}
	if text := resp.Text(); text != "" {
		return truncate(strings.Join(strings.Fields(text), " "))
	}
	return resp.StatusLine()
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}

	var items []json.RawMessage
	if json.Unmarshal(raw, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if msg := detailMessage(item); msg != "" {
				msgs = append(msgs, msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	var obj struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.Msg != "" {
			return strings.TrimSpace(obj.Msg)
		}
		return strings.TrimSpace(obj.Message)
	}
	return ""
}

// truncate cuts s to at most maxMessageLength bytes on a rune boundary.
func truncate(s string) string {
	if len(s) <= maxMessageLength {
		return s
	}
	n := maxMessageLength
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func newRequestError(resp *transport.Response) *RequestError {
	return &RequestError{Status: resp.Status, Message: errorMessage(resp)}
}
