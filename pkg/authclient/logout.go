package authclient

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/authsession/pkg/logger"
)

// Logout asks the service to revoke the session, then clears local state
// and reloads the entry point whatever the service answered.
func (m *Manager) Logout(ctx context.Context) {
	resp, err := m.client.Send(ctx, http.MethodPost, EndpointLogout, nil)
	switch {
	case err != nil:
		m.logger.WarnContext(ctx, "logout request failed", logger.Error(err))
	case !resp.OK():
		m.logger.WarnContext(ctx, "logout rejected", logger.Status(resp.Status))
	}

	m.store.Invalidate()
	m.keepalive.Stop()
	m.navigator.Reload(m.cfg.EntryPoint)
}
