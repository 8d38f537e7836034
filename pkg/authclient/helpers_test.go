package authclient_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsession/pkg/authclient"
	"github.com/dmitrymomot/authsession/pkg/authtest"
	"github.com/dmitrymomot/authsession/pkg/broadcast"
	"github.com/dmitrymomot/authsession/pkg/logger"
	"github.com/dmitrymomot/authsession/pkg/transport"
)

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *logBuffer) count(level string) int {
	return strings.Count(b.String(), `"level":"`+level+`"`)
}

func testConfig(baseURL string) authclient.Config {
	cfg := authclient.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.InitTimeout = 2 * time.Second
	cfg.RequestTimeout = 0
	cfg.RefreshInterval = time.Hour
	cfg.LoginFirstDelay = time.Millisecond
	cfg.LoginRetryDelay = 2 * time.Millisecond
	return cfg
}

type harness struct {
	srv     *authtest.Server
	client  *transport.Client
	manager *authclient.Manager
	logs    *logBuffer
}

// setup starts a fake service and a manager bound to it. Request timeouts
// are disabled so that only contexts bound waits on hanging replies.
func setup(t *testing.T, mutate func(*authclient.Config), opts ...authclient.Option) *harness {
	t.Helper()

	srv := authtest.Start(t)
	cfg := testConfig(srv.URL)
	if mutate != nil {
		mutate(&cfg)
	}

	logs := &logBuffer{}
	log := logger.New(logger.WithOutput(logs), logger.WithLevel(slog.LevelDebug))

	client, err := cfg.NewTransport(transport.WithTimeout(0), transport.WithLogger(log))
	require.NoError(t, err)

	opts = append([]authclient.Option{
		authclient.WithConfig(cfg),
		authclient.WithLogger(log),
	}, opts...)
	m := authclient.New(client, opts...)
	t.Cleanup(func() { _ = m.Close() })

	return &harness{srv: srv, client: client, manager: m, logs: logs}
}

// signIn establishes a real session on the shared cookie jar without going
// through the manager.
func (h *harness) signIn(t *testing.T, email, password string) {
	t.Helper()
	h.srv.AddUser(email, password)
	resp, err := h.client.Send(context.Background(), http.MethodPost, authclient.EndpointLogin,
		authclient.Credentials{Email: email, Password: password})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
}

func unauthorized() authtest.Reply {
	return authtest.Reply{Status: http.StatusUnauthorized, JSON: authtest.Detail("Not authenticated")}
}

func userReply(id int, email string) authtest.Reply {
	return authtest.Reply{Status: http.StatusOK, JSON: map[string]any{"id": id, "email": email}}
}

func nextNotification(t *testing.T, sub broadcast.Subscriber[authclient.Notification]) authclient.Notification {
	t.Helper()
	select {
	case msg, ok := <-sub.Receive(context.Background()):
		require.True(t, ok, "subscription closed")
		return msg.Data
	case <-time.After(time.Second):
		t.Fatal("no notification received")
		return authclient.Notification{}
	}
}

func assertNoNotification(t *testing.T, sub broadcast.Subscriber[authclient.Notification]) {
	t.Helper()
	select {
	case msg := <-sub.Receive(context.Background()):
		t.Fatalf("unexpected notification %q", msg.Data.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}
