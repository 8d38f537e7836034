package authclient_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsession/pkg/authclient"
	"github.com/dmitrymomot/authsession/pkg/authtest"
	"github.com/dmitrymomot/authsession/pkg/backoff"
	"github.com/dmitrymomot/authsession/pkg/location"
	"github.com/dmitrymomot/authsession/pkg/prefs"
)

func TestLogin_RealSession(t *testing.T) {
	t.Parallel()

	h := setup(t, nil)
	h.srv.AddUser("a@b.com", "password1")
	sub := h.manager.Subscribe(context.Background())

	err := h.manager.Login(context.Background(), authclient.Credentials{Email: "a@b.com", Password: "password1"})
	require.NoError(t, err)

	id := h.manager.Identity()
	require.NotNil(t, id)
	assert.Equal(t, "a@b.com", id.Email)
	assert.False(t, h.manager.Resolving())
	assert.True(t, h.manager.KeepAliveRunning())
	assert.Equal(t, authclient.KindSignedIn, nextNotification(t, sub).Kind)
}

func TestLogin_ConvergesAfterRetries(t *testing.T) {
	t.Parallel()

	h := setup(t, nil)
	h.srv.Script(authtest.EndpointLogin, authtest.Reply{Status: http.StatusOK, JSON: map[string]string{"message": "Logged in"}})
	h.srv.Script(authtest.EndpointMe, unauthorized(), unauthorized(), userReply(1, "a@b.com"))
	sub := h.manager.Subscribe(context.Background())

	err := h.manager.Login(context.Background(), authclient.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)

	id := h.manager.Identity()
	require.NotNil(t, id)
	assert.Equal(t, "a@b.com", id.Email)
	assert.Equal(t, "1", id.ID)
	assert.Equal(t, 3, h.srv.Calls(authtest.EndpointMe))
	assert.False(t, h.manager.Resolving())
	assert.Equal(t, authclient.KindSignedIn, nextNotification(t, sub).Kind)
	assertNoNotification(t, sub)
}

func TestLogin_BackgroundResolutionAfterExhaustedRetries(t *testing.T) {
	t.Parallel()

	h := setup(t, nil)
	h.srv.Script(authtest.EndpointLogin, authtest.Reply{Status: http.StatusOK, JSON: map[string]string{"message": "Logged in"}})
	h.srv.Script(authtest.EndpointMe, unauthorized(), unauthorized(), unauthorized(), userReply(1, "a@b.com"))

	err := h.manager.Login(context.Background(), authclient.Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	assert.False(t, h.manager.Resolving(), "loading must end when retries run out")

	assert.Eventually(t, func() bool {
		id := h.manager.Identity()
		return id != nil && id.Email == "a@b.com"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 4, h.srv.Calls(authtest.EndpointMe))
}

func TestLogin_LogoutBeforeBackgroundResolution(t *testing.T) {
	t.Parallel()

	slowBackground := backoff.Func(func(attempt int) time.Duration {
		if attempt > 3 {
			return 100 * time.Millisecond
		}
		return time.Millisecond
	})
	h := setup(t, nil, authclient.WithLoginBackoff(slowBackground))
	h.srv.Script(authtest.EndpointLogin, authtest.Reply{Status: http.StatusOK, JSON: map[string]string{"message": "Logged in"}})
	h.srv.Script(authtest.EndpointMe, unauthorized(), unauthorized(), unauthorized(), userReply(1, "a@b.com"))

	require.NoError(t, h.manager.Login(context.Background(), authclient.Credentials{Email: "a@b.com", Password: "x"}))
	require.False(t, h.manager.IsAuthenticated())
	h.manager.Logout(context.Background())

	assert.Never(t, func() bool {
		return h.manager.IsAuthenticated()
	}, 300*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 3, h.srv.Calls(authtest.EndpointMe), "superseded background attempt must not resolve")
	assert.False(t, h.manager.KeepAliveRunning())
}

func TestLogin_LogoutDuringBackgroundResolution(t *testing.T) {
	t.Parallel()

	h := setup(t, nil)
	h.srv.Script(authtest.EndpointLogin, authtest.Reply{Status: http.StatusOK, JSON: map[string]string{"message": "Logged in"}})
	h.srv.Script(authtest.EndpointMe,
		unauthorized(), unauthorized(), unauthorized(),
		authtest.Reply{Status: http.StatusOK, JSON: map[string]any{"id": 1, "email": "a@b.com"}, Delay: 100 * time.Millisecond},
	)

	require.NoError(t, h.manager.Login(context.Background(), authclient.Credentials{Email: "a@b.com", Password: "x"}))
	require.Eventually(t, func() bool {
		return h.srv.Calls(authtest.EndpointMe) == 4
	}, time.Second, 2*time.Millisecond)
	h.manager.Logout(context.Background())

	assert.Never(t, func() bool {
		return h.manager.IsAuthenticated()
	}, 300*time.Millisecond, 10*time.Millisecond)
	assert.False(t, h.manager.Resolving())
	assert.False(t, h.manager.KeepAliveRunning())
}

func TestLogin_Rejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		reply      *authtest.Reply
		creds      authclient.Credentials
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "wrong password",
			creds:      authclient.Credentials{Email: "a@b.com", Password: "wrong-password"},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid email or password",
		},
		{
			name:       "validation list",
			reply:      &authtest.Reply{Status: http.StatusUnprocessableEntity, JSON: authtest.ValidationDetail("email: invalid", "password: field required")},
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "email: invalid; password: field required",
		},
		{
			name:       "plain text body",
			reply:      &authtest.Reply{Status: http.StatusBadGateway, Text: "upstream unavailable\n"},
			wantStatus: http.StatusBadGateway,
			wantMsg:    "upstream unavailable",
		},
		{
			name:       "json without message",
			reply:      &authtest.Reply{Status: http.StatusServiceUnavailable, JSON: map[string]any{}},
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    "503 Service Unavailable",
		},
		{
			name:       "empty body",
			reply:      &authtest.Reply{Status: http.StatusTooManyRequests},
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    "429 Too Many Requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := setup(t, nil)
			h.srv.AddUser("a@b.com", "password1")
			if tt.reply != nil {
				h.srv.Script(authtest.EndpointLogin, *tt.reply)
			}
			_, err := h.manager.Initialize(context.Background())
			require.NoError(t, err)

			creds := tt.creds
			if creds.Email == "" {
				creds = authclient.Credentials{Email: "a@b.com", Password: "password1"}
			}
			err = h.manager.Login(context.Background(), creds)

			var reqErr *authclient.RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.wantStatus, reqErr.Status)
			assert.Equal(t, tt.wantMsg, reqErr.Message)
			assert.Nil(t, h.manager.Identity())
			assert.False(t, h.manager.Resolving())
			assert.Equal(t, 1, h.srv.Calls(authtest.EndpointMe), "no resolution after a rejected login")
		})
	}
}

func TestLogin_TransportFailure(t *testing.T) {
	t.Parallel()

	h := setup(t, nil)
	h.srv.Script(authtest.EndpointLogin, authtest.Reply{Hang: true})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := h.manager.Login(ctx, authclient.Credentials{Email: "a@b.com", Password: "password1"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, h.manager.Resolving())
}

func TestLogin_LogoutDuringRetriesWins(t *testing.T) {
	t.Parallel()

	h := setup(t, nil, authclient.WithLoginBackoff(backoff.Fixed{Interval: 40 * time.Millisecond}))
	h.srv.Script(authtest.EndpointLogin, authtest.Reply{Status: http.StatusOK, JSON: map[string]string{"message": "Logged in"}})
	h.srv.Script(authtest.EndpointMe,
		unauthorized(), unauthorized(), unauthorized(),
		userReply(1, "a@b.com"), userReply(1, "a@b.com"),
	)

	loginDone := make(chan error, 1)
	go func() {
		loginDone <- h.manager.Login(context.Background(), authclient.Credentials{Email: "a@b.com", Password: "x"})
	}()

	require.Eventually(t, func() bool {
		return h.srv.Calls(authtest.EndpointMe) >= 1
	}, time.Second, 2*time.Millisecond)
	h.manager.Logout(context.Background())

	select {
	case err := <-loginDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("login did not return")
	}

	assert.Never(t, func() bool {
		return h.manager.IsAuthenticated()
	}, 200*time.Millisecond, 10*time.Millisecond)
	assert.False(t, h.manager.Resolving())
	assert.Less(t, h.srv.Calls(authtest.EndpointMe), 4)
}

func TestLogout_WhenUnauthenticated(t *testing.T) {
	t.Parallel()

	nav := location.NewMemory("https://app.test/settings?tab=profile")
	h := setup(t, func(c *authclient.Config) { c.EntryPoint = "/welcome" }, authclient.WithNavigator(nav))

	_, err := h.manager.Initialize(context.Background())
	require.NoError(t, err)

	assert.NotPanics(t, func() { h.manager.Logout(context.Background()) })
	assert.NotPanics(t, func() { h.manager.Logout(context.Background()) })

	assert.Nil(t, h.manager.Identity())
	assert.False(t, h.manager.Resolving())
	assert.Equal(t, 2, nav.Reloads())
	assert.Equal(t, "https://app.test/welcome", nav.URL())
}

func TestLogout_ServerFailureStillClearsState(t *testing.T) {
	t.Parallel()

	h := setup(t, nil)
	h.signIn(t, "a@b.com", "password1")
	_, err := h.manager.Initialize(context.Background())
	require.NoError(t, err)
	require.True(t, h.manager.IsAuthenticated())

	h.srv.Script(authtest.EndpointLogout, authtest.Reply{Status: http.StatusInternalServerError, Text: "boom"})
	h.manager.Logout(context.Background())

	assert.False(t, h.manager.IsAuthenticated())
	assert.False(t, h.manager.KeepAliveRunning())
	assert.Equal(t, 1, h.logs.count("WARN"))
}

func TestRegister_CommitsReturnedIdentity(t *testing.T) {
	t.Parallel()

	nav := location.NewMemory("https://app.test/signup?token=abc123&plan=pro")
	store := prefs.NewMemoryStore(0)
	require.NoError(t, store.MarkOnboarded(context.Background(), "new@x.com"))

	h := setup(t, nil, authclient.WithNavigator(nav), authclient.WithPreferences(store))
	h.srv.Script(authtest.EndpointRegister, authtest.Reply{
		Status: http.StatusCreated,
		JSON:   map[string]any{"user": map[string]any{"id": 2, "email": "new@x.com"}},
	})
	sub := h.manager.Subscribe(context.Background())

	err := h.manager.Register(context.Background(), authclient.Registration{Email: "new@x.com", Password: "password1", VerificationToken: "abc123"})
	require.NoError(t, err)

	id := h.manager.Identity()
	require.NotNil(t, id)
	assert.Equal(t, "2", id.ID)
	assert.Equal(t, "new@x.com", id.Email)
	assert.False(t, h.manager.Resolving())
	assert.Zero(t, h.srv.Calls(authtest.EndpointMe))

	assert.Equal(t, authclient.KindSignedIn, nextNotification(t, sub).Kind)
	assert.Equal(t, authclient.KindRegistrationComplete, nextNotification(t, sub).Kind)

	assert.Equal(t, "https://app.test/signup?plan=pro", nav.URL())
	onboarded, err := store.Onboarded(context.Background(), "new@x.com")
	require.NoError(t, err)
	assert.False(t, onboarded)
}

func TestRegister_RealService(t *testing.T) {
	t.Parallel()

	h := setup(t, nil)
	reg := authclient.Registration{Email: "new@x.com", Password: "password1"}
	require.NoError(t, h.manager.Register(context.Background(), reg))
	require.True(t, h.manager.IsAuthenticated())

	// The registration cookies are live: resolving again finds the same user.
	id, err := h.manager.RefreshIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", id.Email)

	h.manager.Logout(context.Background())
	err = h.manager.Register(context.Background(), reg)
	var reqErr *authclient.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusConflict, reqErr.Status)
	assert.Equal(t, "Email already registered", reqErr.Message)
	assert.False(t, h.manager.IsAuthenticated())
}

func TestRegister_MalformedResponse(t *testing.T) {
	t.Parallel()

	h := setup(t, nil)
	h.srv.Script(authtest.EndpointRegister,
		authtest.Reply{Status: http.StatusCreated, JSON: map[string]any{"user": map[string]any{"email": "new@x.com"}}},
		authtest.Reply{Status: http.StatusCreated, JSON: map[string]any{"ok": true}},
	)

	for range 2 {
		err := h.manager.Register(context.Background(), authclient.Registration{Email: "new@x.com", Password: "password1"})
		require.ErrorIs(t, err, authclient.ErrMalformedIdentity)
		assert.False(t, h.manager.Resolving())
		assert.Nil(t, h.manager.Identity())
	}
}

func TestKeepAlive_RenewsWhileSignedIn(t *testing.T) {
	t.Parallel()

	h := setup(t, func(c *authclient.Config) { c.RefreshInterval = 20 * time.Millisecond })
	h.srv.AddUser("a@b.com", "password1")
	assert.False(t, h.manager.KeepAliveRunning())

	require.NoError(t, h.manager.Login(context.Background(), authclient.Credentials{Email: "a@b.com", Password: "password1"}))
	require.True(t, h.manager.KeepAliveRunning())

	require.Eventually(t, func() bool {
		return h.srv.Calls(authtest.EndpointRefresh) >= 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "a@b.com", h.manager.Identity().Email)

	h.manager.Logout(context.Background())
	assert.False(t, h.manager.KeepAliveRunning())

	time.Sleep(30 * time.Millisecond)
	calls := h.srv.Calls(authtest.EndpointRefresh)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, calls, h.srv.Calls(authtest.EndpointRefresh))
}

func TestKeepAlive_StopsOnUnmount(t *testing.T) {
	t.Parallel()

	h := setup(t, nil)
	h.signIn(t, "a@b.com", "password1")

	_, err := h.manager.Initialize(context.Background())
	require.NoError(t, err)
	require.True(t, h.manager.KeepAliveRunning())

	h.manager.Unmount()
	assert.False(t, h.manager.KeepAliveRunning())
	assert.True(t, h.manager.IsAuthenticated(), "unmount keeps the identity")

	_, err = h.manager.Initialize(context.Background())
	require.NoError(t, err)
	assert.True(t, h.manager.KeepAliveRunning())
}

func TestRefreshIdentity(t *testing.T) {
	t.Parallel()

	t.Run("renews expired access", func(t *testing.T) {
		t.Parallel()

		h := setup(t, nil)
		h.signIn(t, "a@b.com", "password1")
		h.srv.ExpireAccess()

		id, err := h.manager.RefreshIdentity(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", id.Email)
		assert.True(t, h.manager.IsAuthenticated())
		assert.Equal(t, 1, h.srv.Calls(authtest.EndpointRefresh))
	})

	t.Run("confirmed absence clears identity", func(t *testing.T) {
		t.Parallel()

		h := setup(t, nil)
		h.signIn(t, "a@b.com", "password1")
		_, err := h.manager.Initialize(context.Background())
		require.NoError(t, err)

		h.srv.Script(authtest.EndpointMe, unauthorized())
		h.srv.Script(authtest.EndpointRefresh, unauthorized())

		_, err = h.manager.RefreshIdentity(context.Background())
		require.ErrorIs(t, err, authclient.ErrUnauthenticated)
		assert.False(t, h.manager.IsAuthenticated())
		assert.False(t, h.manager.KeepAliveRunning())
	})

	t.Run("transient failure keeps identity", func(t *testing.T) {
		t.Parallel()

		h := setup(t, nil)
		h.signIn(t, "a@b.com", "password1")
		_, err := h.manager.Initialize(context.Background())
		require.NoError(t, err)

		h.srv.Script(authtest.EndpointMe, authtest.Reply{Status: http.StatusBadGateway, Text: "bad gateway"})

		_, err = h.manager.RefreshIdentity(context.Background())
		require.ErrorIs(t, err, authclient.ErrUnexpectedStatus)
		assert.True(t, h.manager.IsAuthenticated())
	})
}

func TestRefresher_SharesInFlightRequest(t *testing.T) {
	t.Parallel()

	h := setup(t, nil)
	h.srv.Script(authtest.EndpointRefresh, authtest.Reply{Status: http.StatusOK, Delay: 100 * time.Millisecond, JSON: map[string]string{}})
	r := authclient.NewRefresher(h.client, nil)

	var wg sync.WaitGroup
	results := make([]bool, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Refresh(context.Background())
		}(i)
	}
	wg.Wait()

	for _, ok := range results {
		assert.True(t, ok)
	}
	assert.Equal(t, 1, h.srv.Calls(authtest.EndpointRefresh))
}

func TestManager_Close(t *testing.T) {
	t.Parallel()

	h := setup(t, nil)
	sub := h.manager.Subscribe(context.Background())

	require.NoError(t, h.manager.Close())
	require.NoError(t, h.manager.Close())

	_, ok := <-sub.Receive(context.Background())
	assert.False(t, ok, "subscription ends with the manager")

	assert.ErrorIs(t, h.manager.Login(context.Background(), authclient.Credentials{}), authclient.ErrClosed)
	assert.ErrorIs(t, h.manager.Register(context.Background(), authclient.Registration{}), authclient.ErrClosed)
	assert.ErrorIs(t, h.manager.Mount(context.Background()), authclient.ErrClosed)
	_, err := h.manager.RefreshIdentity(context.Background())
	assert.ErrorIs(t, err, authclient.ErrClosed)
}
