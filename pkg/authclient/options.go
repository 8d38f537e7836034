package authclient

import (
	"log/slog"

	"github.com/dmitrymomot/authsession/pkg/authstate"
	"github.com/dmitrymomot/authsession/pkg/backoff"
	"github.com/dmitrymomot/authsession/pkg/broadcast"
	"github.com/dmitrymomot/authsession/pkg/location"
	"github.com/dmitrymomot/authsession/pkg/prefs"
)

// Option configures a Manager.
type Option func(*Manager)

// WithConfig replaces the configuration. Zero fields fall back to defaults.
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		m.cfg = cfg.withDefaults()
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithStore shares an existing session store, e.g. with a UI layer that
// already observes it.
func WithStore(s *authstate.Store) Option {
	return func(m *Manager) {
		if s != nil {
			m.store = s
		}
	}
}

// WithBroadcaster publishes notifications on bus. The manager does not close
// a bus it did not create.
func WithBroadcaster(bus broadcast.Broadcaster[Notification]) Option {
	return func(m *Manager) {
		if bus != nil {
			m.bus = bus
		}
	}
}

// WithPreferences sets the store whose onboarding flag is cleared after a
// successful registration.
func WithPreferences(p prefs.Store) Option {
	return func(m *Manager) {
		if p != nil {
			m.prefs = p
		}
	}
}

func WithNavigator(n location.Navigator) Option {
	return func(m *Manager) {
		if n != nil {
			m.navigator = n
		}
	}
}

// WithLoginBackoff overrides the post-login resolution schedule derived from
// the configuration.
func WithLoginBackoff(s backoff.Strategy) Option {
	return func(m *Manager) {
		if s != nil {
			m.loginBackoff = s
		}
	}
}
