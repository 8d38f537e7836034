package authclient

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/authsession/pkg/async"
	"github.com/dmitrymomot/authsession/pkg/authstate"
	"github.com/dmitrymomot/authsession/pkg/backoff"
	"github.com/dmitrymomot/authsession/pkg/broadcast"
	"github.com/dmitrymomot/authsession/pkg/identity"
	"github.com/dmitrymomot/authsession/pkg/location"
	"github.com/dmitrymomot/authsession/pkg/logger"
	"github.com/dmitrymomot/authsession/pkg/prefs"
	"github.com/dmitrymomot/authsession/pkg/statemachine"
)

// Manager owns the authentication lifecycle of one client: startup
// resolution, sign-in, registration, sign-out and periodic renewal.
type Manager struct {
	cfg          Config
	client       Sender
	store        *authstate.Store
	resolver     *Resolver
	refresher    *Refresher
	sequencer    *Sequencer
	keepalive    *KeepAlive
	bus          broadcast.Broadcaster[Notification]
	ownsBus      bool
	prefs        prefs.Store
	navigator    location.Navigator
	loginBackoff backoff.Strategy
	logger       *slog.Logger

	lifetime context.Context
	stop     context.CancelFunc

	mu      sync.Mutex
	closed  bool
	pending []*async.Future[*identity.Identity]
}

// New creates a manager sending requests through client.
func New(client Sender, opts ...Option) *Manager {
	m := &Manager{
		cfg:    DefaultConfig(),
		client: client,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.logger = logger.OrDiscard(m.logger).With(logger.Component("authclient"))
	if m.store == nil {
		m.store = authstate.New()
	}
	if m.bus == nil {
		m.bus = broadcast.NewMemoryBroadcaster[Notification](m.cfg.NotifyBuffer)
		m.ownsBus = true
	}
	if m.prefs == nil {
		m.prefs = prefs.NewMemoryStore(0)
	}
	if m.navigator == nil {
		m.navigator = &location.Memory{}
	}
	if m.loginBackoff == nil {
		m.loginBackoff = m.cfg.LoginBackoff()
	}

	m.lifetime, m.stop = context.WithCancel(context.Background())
	m.resolver = NewResolver(client, m.logger)
	m.refresher = NewRefresher(client, m.logger)
	m.refresher.lifetime = m.lifetime
	m.sequencer = NewSequencer(m.store, m.resolver, m.refresher, m.cfg.InitTimeout, m.logger)
	m.keepalive = NewKeepAlive(m.lifetime, m.cfg.RefreshInterval, m.renew)
	m.store.OnChange(m.onStateChange)

	return m
}

// Identity returns a copy of the signed-in identity, or nil.
func (m *Manager) Identity() *identity.Identity { return m.store.Identity() }

func (m *Manager) Resolving() bool { return m.store.Resolving() }

func (m *Manager) IsAuthenticated() bool { return m.store.IsAuthenticated() }

func (m *Manager) State() authstate.State { return m.store.Snapshot() }

// Store exposes the underlying session store for observers.
func (m *Manager) Store() *authstate.Store { return m.store }

// Phase returns the phase of the most recent initialization run.
func (m *Manager) Phase() statemachine.State { return m.sequencer.Phase() }

// KeepAliveRunning reports whether periodic renewal is active.
func (m *Manager) KeepAliveRunning() bool { return m.keepalive.Running() }

// Subscribe returns a subscription to lifecycle notifications. It ends when
// ctx is done or the manager is closed.
func (m *Manager) Subscribe(ctx context.Context) broadcast.Subscriber[Notification] {
	return m.bus.Subscribe(ctx)
}

// Mount starts initialization in the background and returns immediately.
// Unmount or Close cancels it. Initialization runs once per mount: a second
// Mount or Initialize fails until Unmount.
func (m *Manager) Mount(ctx context.Context) error {
	_, err := m.startInit(ctx)
	return err
}

// Initialize runs initialization and blocks until the store is settled.
func (m *Manager) Initialize(ctx context.Context) (Outcome, error) {
	done, err := m.startInit(ctx)
	if err != nil {
		return "", err
	}
	return <-done, nil
}

// Unmount cancels a running initialization without touching the identity
// and stops periodic renewal.
func (m *Manager) Unmount() {
	m.sequencer.Reset()
	m.keepalive.Stop()
}

func (m *Manager) startInit(ctx context.Context) (<-chan Outcome, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	done, err := m.sequencer.Start(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan Outcome, 1)
	go func() {
		outcome := <-done
		if outcome == OutcomeResolved && m.store.IsAuthenticated() {
			m.keepalive.Start()
		}
		out <- outcome
	}()
	return out, nil
}

// RefreshIdentity re-resolves the identity on demand, renewing the session
// once if the service reports it expired. A confirmed absence is stored and
// returned as ErrUnauthenticated; transient failures leave the store
// untouched. Only the identity is written, so an initialization or login in
// progress keeps its resolving flag.
func (m *Manager) RefreshIdentity(ctx context.Context) (*identity.Identity, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}

	gen := m.store.Generation()
	id, err := m.resolver.Resolve(ctx)
	if errors.Is(err, ErrUnauthenticated) {
		if !m.refresher.Refresh(ctx) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.store.Update(gen, nil)
			return nil, ErrUnauthenticated
		}
		id, err = m.resolver.Resolve(ctx)
	}
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			m.store.Update(gen, nil)
		}
		return nil, err
	}

	if !m.store.Update(gen, id) {
		m.logger.DebugContext(ctx, "identity refresh discarded", logger.Generation(gen))
	}
	return id.Clone(), nil
}

// Close stops every background activity and releases the notification bus
// when the manager created it.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	m.stop()
	m.sequencer.Reset()
	m.sequencer.Wait()
	m.keepalive.Shutdown()
	_, _ = async.WaitAll(pending...)

	if m.ownsBus {
		return m.bus.Close()
	}
	return nil
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// onStateChange ties periodic renewal to the identity: it starts when
// somebody signs in and stops when nobody is signed in.
func (m *Manager) onStateChange(prev, next authstate.State) {
	switch {
	case !prev.Authenticated() && next.Authenticated():
		m.keepalive.Start()
	case prev.Authenticated() && !next.Authenticated():
		m.keepalive.Stop()
	}
}

// renew is the keep-alive tick: refresh, then re-resolve so the store
// picks up server-side changes.
func (m *Manager) renew(ctx context.Context) {
	gen := m.store.Generation()
	if !m.refresher.Refresh(ctx) {
		m.logger.DebugContext(ctx, "periodic refresh failed")
		return
	}
	id, err := m.resolver.Resolve(ctx)
	if err != nil {
		return
	}
	if !m.store.Update(gen, id) {
		m.logger.DebugContext(ctx, "periodic identity update discarded", logger.Generation(gen))
	}
}

func (m *Manager) publish(ctx context.Context, kind Kind) {
	n := Notification{Kind: kind, At: time.Now()}
	if err := m.bus.Broadcast(ctx, broadcast.Message[Notification]{Data: n}); err != nil {
		m.logger.WarnContext(ctx, "notification not delivered",
			logger.Notification(string(kind)),
			logger.Error(err),
		)
		return
	}
	m.logger.DebugContext(ctx, "notification published", logger.Notification(string(kind)))
}

// track registers a background resolution so Close can wait for it.
func (m *Manager) track(f *async.Future[*identity.Identity]) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.pending[:0]
	for _, p := range m.pending {
		if !p.IsComplete() {
			live = append(live, p)
		}
	}
	m.pending = append(live, f)
}
