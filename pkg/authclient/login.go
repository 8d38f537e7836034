package authclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/authsession/pkg/async"
	"github.com/dmitrymomot/authsession/pkg/backoff"
	"github.com/dmitrymomot/authsession/pkg/identity"
	"github.com/dmitrymomot/authsession/pkg/logger"
)

var errSuperseded = errors.New("authclient: superseded by a newer operation")

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resolveResult int

const (
	resolveCommitted resolveResult = iota
	resolveSuperseded
	resolveExhausted
)

// Login signs in with creds. A rejected request returns *RequestError and
// leaves the identity unchanged. On success the identity is resolved with a
// short retry schedule; if that schedule runs out Login still returns nil and
// one more attempt runs in the background.
func (m *Manager) Login(ctx context.Context, creds Credentials) error {
	if m.isClosed() {
		return ErrClosed
	}

	gen := m.store.Begin()
	resp, err := m.client.Send(ctx, http.MethodPost, EndpointLogin, creds)
	if err != nil {
		m.store.Settle(gen)
		return fmt.Errorf("login: %w", err)
	}
	if !resp.OK() {
		m.store.Settle(gen)
		reqErr := newRequestError(resp)
		m.logger.DebugContext(ctx, "login rejected", logger.Status(reqErr.Status))
		return reqErr
	}

	switch m.resolveAfterLogin(ctx, gen) {
	case resolveCommitted, resolveSuperseded:
		return nil
	}

	if m.store.Settle(gen) {
		m.logger.WarnContext(ctx, "identity not available after login, retrying in background",
			logger.Attempt(m.cfg.LoginAttempts),
		)
		m.resolveInBackground(gen)
	}
	return nil
}

func (m *Manager) resolveAfterLogin(ctx context.Context, gen uint64) resolveResult {
	for attempt := 1; attempt <= m.cfg.LoginAttempts; attempt++ {
		if err := backoff.Sleep(ctx, m.loginBackoff.NextInterval(attempt)); err != nil {
			return resolveExhausted
		}
		if !m.store.Current(gen) {
			m.logger.DebugContext(ctx, "login superseded", logger.Generation(gen))
			return resolveSuperseded
		}

		id, err := m.resolver.Resolve(ctx)
		if err == nil {
			if !m.store.Commit(gen, id) {
				return resolveSuperseded
			}
			m.publish(ctx, KindSignedIn)
			return resolveCommitted
		}
		m.logger.DebugContext(ctx, "post-login resolution failed",
			logger.Attempt(attempt),
			logger.Error(err),
		)
		if ctx.Err() != nil {
			return resolveExhausted
		}
	}
	return resolveExhausted
}

// resolveInBackground makes one more attempt bound to the manager's
// lifetime rather than the caller's.
func (m *Manager) resolveInBackground(gen uint64) {
	delay := m.loginBackoff.NextInterval(m.cfg.LoginAttempts + 1)
	f := async.Go(m.lifetime, func(ctx context.Context) (*identity.Identity, error) {
		if err := backoff.Sleep(ctx, delay); err != nil {
			return nil, err
		}
		if !m.store.Current(gen) {
			return nil, errSuperseded
		}
		id, err := m.resolver.Resolve(ctx)
		if err != nil {
			m.logger.WarnContext(ctx, "background identity resolution failed", logger.Error(err))
			return nil, err
		}
		if !m.store.Commit(gen, id) {
			return nil, errSuperseded
		}
		m.publish(ctx, KindSignedIn)
		return id, nil
	})
	m.track(f)
}
