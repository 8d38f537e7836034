package authclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/authsession/pkg/identity"
	"github.com/dmitrymomot/authsession/pkg/logger"
)

// Registration is the register request body.
type Registration struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	VerificationToken string `json:"verification_token,omitempty"`
}

// Register creates an account and signs it in using the identity returned
// by the service. The verification token parameter is removed from the
// current location and the onboarding flag for the email is cleared.
func (m *Manager) Register(ctx context.Context, reg Registration) error {
	if m.isClosed() {
		return ErrClosed
	}

	gen := m.store.Begin()
	resp, err := m.client.Send(ctx, http.MethodPost, EndpointRegister, reg)
	if err != nil {
		m.store.Settle(gen)
		return fmt.Errorf("register: %w", err)
	}
	if !resp.OK() {
		m.store.Settle(gen)
		reqErr := newRequestError(resp)
		m.logger.DebugContext(ctx, "registration rejected", logger.Status(reqErr.Status))
		return reqErr
	}

	var body struct {
		User *identity.Identity `json:"user"`
	}
	if err := resp.JSON(&body); err != nil || body.User == nil {
		m.store.Settle(gen)
		m.logger.WarnContext(ctx, "malformed registration response", logger.Error(err))
		if err == nil {
			return fmt.Errorf("%w: missing user", ErrMalformedIdentity)
		}
		return fmt.Errorf("%w: %w", ErrMalformedIdentity, err)
	}

	m.navigator.StripQueryParam(m.cfg.TokenParam)

	email := body.User.Email
	if email == "" {
		email = reg.Email
	}
	if err := m.prefs.ClearOnboarding(ctx, email); err != nil {
		m.logger.WarnContext(ctx, "failed to clear onboarding flag", logger.Error(err))
	}

	if !m.store.Commit(gen, body.User) {
		m.logger.DebugContext(ctx, "registration superseded", logger.Generation(gen))
		return nil
	}
	m.publish(ctx, KindSignedIn)
	m.publish(ctx, KindRegistrationComplete)
	return nil
}
