package transport_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsession/pkg/requestid"
	"github.com/dmitrymomot/authsession/pkg/transport"
)

func TestNew_InvalidBaseURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"://bad", "ftp://example.com", "http://"} {
		_, err := transport.New(raw)
		assert.ErrorIs(t, err, transport.ErrInvalidBaseURL, raw)
	}
}

func TestClient_URL(t *testing.T) {
	t.Parallel()

	c, err := transport.New("https://app.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/auth/me", c.URL("/me"))

	c, err = transport.New("https://app.example.com/api/", transport.WithBasePath("/v2/auth"))
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/api/v2/auth/login", c.URL("login"))
}

func TestClient_Send(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "yes", r.Header.Get("X-Custom"))
		assert.Equal(t, "req-42", r.Header.Get(requestid.Header))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body["email"])

		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"bad credentials"}`))
	}))
	defer server.Close()

	c, err := transport.New(server.URL,
		transport.WithUserAgent("test-agent"),
		transport.WithHeader("X-Custom", "yes"),
	)
	require.NoError(t, err)

	ctx := requestid.WithContext(context.Background(), "req-42")
	resp, err := c.Send(ctx, http.MethodPost, "/login", map[string]string{"email": "a@b.com"})
	require.NoError(t, err, "HTTP failures are not transport errors")
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.False(t, resp.OK())
	assert.Equal(t, "401 Unauthorized", resp.StatusLine())

	var decoded struct{ Detail string }
	require.NoError(t, resp.JSON(&decoded))
	assert.Equal(t, "bad credentials", decoded.Detail)
}

func TestClient_SendWithoutBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		assert.Empty(t, data)
		assert.Empty(t, r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get(requestid.Header))
		_, _ = w.Write([]byte("  plain text \n"))
	}))
	defer server.Close()

	c, err := transport.New(server.URL)
	require.NoError(t, err)

	resp, err := c.Send(context.Background(), http.MethodGet, "/me", nil)
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "plain text", resp.Text())
	assert.ErrorIs(t, resp.JSON(&struct{}{}), transport.ErrDecodeBody)
}

func TestClient_CookieJarCarriesCredential(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "opaque", Path: "/", HttpOnly: true})
			w.WriteHeader(http.StatusNoContent)
		case "/auth/me":
			if ck, err := r.Cookie("session"); err != nil || ck.Value != "opaque" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"id":1}`))
		}
	}))
	defer server.Close()

	c, err := transport.New(server.URL)
	require.NoError(t, err)

	resp, err := c.Send(context.Background(), http.MethodGet, "/me", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	_, err = c.Send(context.Background(), http.MethodPost, "/login", nil)
	require.NoError(t, err)

	resp, err = c.Send(context.Background(), http.MethodGet, "/me", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestClient_CustomHTTPClientGetsJar(t *testing.T) {
	t.Parallel()

	hc := &http.Client{}
	c, err := transport.New("http://localhost", transport.WithHTTPClient(hc))
	require.NoError(t, err)
	assert.NotNil(t, c.Jar())
	assert.Nil(t, hc.Jar, "caller's client is not mutated")
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		c, err := transport.New(server.URL, transport.WithTimeout(30*time.Millisecond))
		require.NoError(t, err)

		_, err = c.Send(context.Background(), http.MethodGet, "/me", nil)
		assert.ErrorIs(t, err, transport.ErrTimeout)
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()

		c, err := transport.New("http://127.0.0.1:1")
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = c.Send(ctx, http.MethodGet, "/me", nil)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("unreachable", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		c, err := transport.New(addr)
		require.NoError(t, err)
		_, err = c.Send(context.Background(), http.MethodGet, "/me", nil)
		assert.ErrorIs(t, err, transport.ErrRequestFailed)
	})

	t.Run("unencodable body", func(t *testing.T) {
		t.Parallel()

		c, err := transport.New("http://localhost")
		require.NoError(t, err)
		_, err = c.Send(context.Background(), http.MethodPost, "/login", map[string]any{"ch": make(chan int)})
		assert.ErrorIs(t, err, transport.ErrEncodeBody)
	})
}

func TestClient_CircuitBreaker(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cb := transport.NewCircuitBreaker(2, 1, time.Hour)
	c, err := transport.New(server.URL, transport.WithCircuitBreaker(cb))
	require.NoError(t, err)
	assert.Same(t, cb, c.Breaker())

	for range 2 {
		resp, err := c.Send(context.Background(), http.MethodGet, "/me", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.Status)
	}

	_, err = c.Send(context.Background(), http.MethodGet, "/me", nil)
	assert.True(t, transport.IsCircuitOpen(err))
	assert.Equal(t, int32(2), calls.Load())
}
