// Package identity defines the client-side mirror of the authenticated user
// record returned by the auth service.
package identity

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// ErrMissingID is returned when a record has no usable identifier.
var ErrMissingID = errors.New("identity: missing id")

// Identity is the authenticated principal as known to the client. Only the
// named fields are interpreted; Raw keeps the full server document so callers
// can read attributes this package does not know about.
type Identity struct {
	ID         string          `json:"id"`
	Email      string          `json:"email"`
	Role       string          `json:"role,omitempty"`
	Tier       string          `json:"tier,omitempty"`
	IsVerified bool            `json:"is_verified"`
	Raw        json.RawMessage `json:"-"`
}

type wire struct {
	ID         json.RawMessage `json:"id"`
	Email      string          `json:"email"`
	Role       string          `json:"role"`
	Tier       string          `json:"tier"`
	IsVerified bool            `json:"is_verified"`
}

// UnmarshalJSON accepts ids encoded as JSON numbers or strings.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	id, err := decodeID(w.ID)
	if err != nil {
		return err
	}
	*i = Identity{
		ID:         id,
		Email:      w.Email,
		Role:       w.Role,
		Tier:       w.Tier,
		IsVerified: w.IsVerified,
		Raw:        append(json.RawMessage(nil), bytes.TrimSpace(data)...),
	}
	return nil
}

// MarshalJSON returns Raw when present so unknown fields survive a round trip.
func (i Identity) MarshalJSON() ([]byte, error) {
	if len(i.Raw) > 0 {
		return i.Raw, nil
	}
	type plain Identity
	return json.Marshal(plain(i))
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", ErrMissingID
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		if s == "" {
			return "", ErrMissingID
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Decode parses a single identity document.
func Decode(data []byte) (*Identity, error) {
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Equal reports whether both identities describe the same principal.
// Two nil identities are equal.
func (i *Identity) Equal(other *Identity) bool {
	if i == nil || other == nil {
		return i == other
	}
	return i.ID == other.ID && i.Email == other.Email
}

// Clone returns a deep copy. Nil stays nil.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.Raw != nil {
		c.Raw = append(json.RawMessage(nil), i.Raw...)
	}
	return &c
}

// String returns a log-safe description (id and email only).
func (i *Identity) String() string {
	if i == nil {
		return "<absent>"
	}
	return i.ID + " <" + i.Email + ">"
}
