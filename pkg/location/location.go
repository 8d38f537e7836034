// Package location abstracts the client's current address so auth flows can
// strip one-time tokens from it and trigger a hard reload of the entry point
// after logout.
package location

import (
	"net/url"
	"sync"
)

// Navigator is implemented by whatever owns the client's address.
type Navigator interface {
	// StripQueryParam removes name from the current address without navigating.
	StripQueryParam(name string)
	// Reload performs a full navigation to target, discarding in-memory state.
	Reload(target string)
}

// Memory tracks an address in memory. The zero value is usable.
type Memory struct {
	mu       sync.Mutex
	current  url.URL
	reloads  int
	onReload func(target string)
}

// NewMemory starts at rawURL. Unparsable input yields an empty address.
func NewMemory(rawURL string) *Memory {
	m := &Memory{}
	if u, err := url.Parse(rawURL); err == nil {
		m.current = *u
	}
	return m
}

// OnReload registers fn to run on every Reload, after the address changes.
func (m *Memory) OnReload(fn func(target string)) {
	m.mu.Lock()
	m.onReload = fn
	m.mu.Unlock()
}

func (m *Memory) StripQueryParam(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.current.Query()
	if !q.Has(name) {
		return
	}
	q.Del(name)
	m.current.RawQuery = q.Encode()
}

func (m *Memory) Reload(target string) {
	m.mu.Lock()
	if u, err := m.current.Parse(target); err == nil {
		m.current = *u
	}
	m.reloads++
	fn := m.onReload
	m.mu.Unlock()

	if fn != nil {
		fn(target)
	}
}

// URL returns the current address.
func (m *Memory) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.String()
}

// Reloads returns how many times Reload was called.
func (m *Memory) Reloads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reloads
}
