package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsession/pkg/authtest"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func execute(ctx context.Context, out *syncBuffer, args ...string) error {
	cmd := newRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&syncBuffer{})
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &syncBuffer{}
	err := execute(context.Background(), out, args...)
	return out.String(), err
}

func TestCLI_Commands(t *testing.T) {
	srv := authtest.Start(t)
	srv.AddUser("a@b.com", "password1")

	out, err := run(t, "status", "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Not signed in\n", out)

	out, err = run(t, "login", "--base-url", srv.URL, "--email", "a@b.com", "--password", "password1")
	require.NoError(t, err)
	assert.Equal(t, "Signed in as 1 <a@b.com>\n", out)

	_, err = run(t, "login", "--base-url", srv.URL, "--email", "a@b.com", "--password", "wrong-password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid email or password")

	out, err = run(t, "register", "--base-url", srv.URL, "--email", "new@x.com", "--password", "password2")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered and signed in as")
	assert.Contains(t, out, "<new@x.com>")

	out, err = run(t, "logout", "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Signed out\n", out)
	assert.Equal(t, 1, srv.Calls(authtest.EndpointLogout))
}

func TestCLI_RequiredFlags(t *testing.T) {
	_, err := run(t, "login", "--base-url", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")

	_, err = run(t, "status", "--log-format", "xml", "--base-url", "http://127.0.0.1:1")
	assert.Error(t, err)
}

func TestCLI_ConfigFile(t *testing.T) {
	srv := authtest.Start(t)
	srv.AddUser("a@b.com", "password1")

	path := filepath.Join(t.TempDir(), "authsession.yaml")
	content := "auth:\n  base_url: " + srv.URL + "\n  init_timeout: 3s\nlog:\n  format: json\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	out, err := run(t, "login", "--config", path, "--email", "a@b.com", "--password", "password1")
	require.NoError(t, err)
	assert.Equal(t, "Signed in as 1 <a@b.com>\n", out)
}

func TestCLI_LoginWatch(t *testing.T) {
	srv := authtest.Start(t)
	srv.AddUser("a@b.com", "password1")
	t.Setenv("AUTH_REFRESH_INTERVAL", "20ms")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- execute(ctx, out, "login", "--watch", "--base-url", srv.URL, "--email", "a@b.com", "--password", "password1")
	}()

	require.Eventually(t, func() bool {
		return srv.Calls(authtest.EndpointRefresh) >= 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "Watching session, renewing every 20ms")
	assert.Contains(t, out.String(), "signed-in")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Contains(t, out.String(), "Signed out")
	assert.Equal(t, 1, srv.Calls(authtest.EndpointLogout))
}

func TestCLI_FakeServer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- execute(ctx, out, "fake-server", "--addr", "127.0.0.1:0", "--user", "a@b.com:password1")
	}()

	listening := regexp.MustCompile(`listening on (http://\S+)`)
	var baseURL string
	require.Eventually(t, func() bool {
		m := listening.FindStringSubmatch(out.String())
		if m == nil {
			return false
		}
		baseURL = m[1]
		return true
	}, 2*time.Second, 10*time.Millisecond)

	login, err := run(t, "login", "--base-url", baseURL, "--email", "a@b.com", "--password", "password1")
	require.NoError(t, err)
	assert.Equal(t, "Signed in as 1 <a@b.com>\n", login)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("fake server did not stop")
	}
}

func TestSplitUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		email    string
		password string
		ok       bool
	}{
		{"a@b.com:secret", "a@b.com", "secret", true},
		{"a@b.com:pa:ss", "a@b.com", "pa:ss", true},
		{"a@b.com", "", "", false},
		{":secret", "", "secret", false},
		{"a@b.com:", "a@b.com", "", false},
	}
	for _, tt := range tests {
		email, password, ok := splitUser(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if ok {
			assert.Equal(t, tt.email, email)
			assert.Equal(t, tt.password, password)
		}
	}
}
