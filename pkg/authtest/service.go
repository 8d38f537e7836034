package authtest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authsession/pkg/cookie"
	"github.com/dmitrymomot/authsession/pkg/logger"
	"github.com/dmitrymomot/authsession/pkg/requestid"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"

	defaultSecret = "authtest-signing-secret-0123456789abcdef"
	minPassword   = 8
)

// User is a registered account.
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Tier       string    `json:"tier"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`

	hash []byte
}

type grant struct {
	userID  int64
	expires time.Time
}

// Service is an http.Handler serving the /auth API. Safe for concurrent use.
type Service struct {
	accessTTL         time.Duration
	refreshTTL        time.Duration
	verificationToken string
	bcryptCost        int
	secret            string
	logger            *slog.Logger

	cookies *cookie.Manager
	router  chi.Router

	mu       sync.Mutex
	nextID   int64
	users    map[string]*User
	access   map[string]grant
	refresh  map[string]grant
	scripts  map[string][]Reply
	calls    map[string]int
	release  chan struct{}
	released sync.Once
}

// New builds a service. It panics on an invalid signing secret.
func New(opts ...Option) *Service {
	s := &Service{
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		bcryptCost: bcrypt.MinCost,
		secret:     defaultSecret,
		logger:     logger.Discard(),
		users:      make(map[string]*User),
		access:     make(map[string]grant),
		refresh:    make(map[string]grant),
		scripts:    make(map[string][]Reply),
		calls:      make(map[string]int),
		release:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	cm, err := cookie.New([]string{s.secret})
	if err != nil {
		panic(err)
	}
	s.cookies = cm

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)
	r.Route("/auth", func(auth chi.Router) {
		auth.Get(EndpointMe, s.endpoint(EndpointMe, s.me))
		auth.Post(EndpointLogin, s.endpoint(EndpointLogin, s.login))
		auth.Post(EndpointRegister, s.endpoint(EndpointRegister, s.register))
		auth.Post(EndpointRefresh, s.endpoint(EndpointRefresh, s.refreshSession))
		auth.Post(EndpointLogout, s.endpoint(EndpointLogout, s.logout))
	})
	s.router = r

	return s
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddUser registers an account directly and returns it.
func (s *Service) AddUser(email, password string) User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.createLocked(email, hash)
}

// Script queues replies for endpoint, consumed one per request.
func (s *Service) Script(endpoint string, replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[endpoint] = append(s.scripts[endpoint], replies...)
}

// Calls returns how many requests endpoint has received.
func (s *Service) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// ExpireAccess invalidates every access token while keeping refresh tokens,
// as if the short-lived credential had run out.
func (s *Service) ExpireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.access)
}

// Sessions returns the number of live access tokens.
func (s *Service) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.access)
}

// Release unblocks every hanging or delayed reply. Idempotent.
func (s *Service) Release() {
	s.released.Do(func() { close(s.release) })
}

// endpoint applies scripted replies before the default handler.
func (s *Service) endpoint(name string, fallback http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply, scripted := s.next(name)
		if scripted {
			if reply.Delay > 0 {
				t := time.NewTimer(reply.Delay)
				select {
				case <-t.C:
				case <-r.Context().Done():
					t.Stop()
					return
				case <-s.release:
					t.Stop()
				}
			}
			if reply.Hang {
				select {
				case <-r.Context().Done():
				case <-s.release:
				}
				return
			}
			if reply.Status != 0 {
				writeReply(w, reply)
				return
			}
		}
		fallback(w, r)
	}
}

func (s *Service) next(name string) (Reply, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[name]++
	queue := s.scripts[name]
	if len(queue) == 0 {
		return Reply{}, false
	}
	s.scripts[name] = queue[1:]
	return queue[0], true
}

type credentials struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	VerificationToken string `json:"verification_token,omitempty"`
}

func decodeCredentials(r *http.Request) (credentials, []string) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return c, []string{"body: invalid JSON"}
	}
	var problems []string
	c.Email = strings.TrimSpace(c.Email)
	if c.Email == "" || !strings.Contains(c.Email, "@") {
		problems = append(problems, "email: value is not a valid email address")
	}
	if c.Password == "" {
		problems = append(problems, "password: field required")
	}
	return c, problems
}

func (s *Service) me(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userFromCookie(r, AccessCookie, s.access)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Detail("Not authenticated"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Service) login(w http.ResponseWriter, r *http.Request) {
	c, problems := decodeCredentials(r)
	if len(problems) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationDetail(problems...))
		return
	}

	s.mu.Lock()
	user := s.users[normalize(c.Email)]
	s.mu.Unlock()

	if user == nil || bcrypt.CompareHashAndPassword(user.hash, []byte(c.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, Detail("Invalid email or password"))
		return
	}

	s.issue(w, user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged in"})
}

func (s *Service) register(w http.ResponseWriter, r *http.Request) {
	c, problems := decodeCredentials(r)
	if c.Password != "" && len(c.Password) < minPassword {
		problems = append(problems, "password: must be at least 8 characters")
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationDetail(problems...))
		return
	}
	if s.verificationToken != "" && c.VerificationToken != s.verificationToken {
		writeJSON(w, http.StatusBadRequest, Detail("Invalid or expired verification token"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), s.bcryptCost)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "hash password", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, Detail("Internal server error"))
		return
	}

	s.mu.Lock()
	if _, exists := s.users[normalize(c.Email)]; exists {
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, Detail("Email already registered"))
		return
	}
	user := s.createLocked(c.Email, hash)
	user.IsVerified = s.verificationToken != ""
	created := *user
	s.mu.Unlock()

	s.issue(w, created.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"user": created})
}

func (s *Service) refreshSession(w http.ResponseWriter, r *http.Request) {
	token, err := s.cookies.GetSigned(r, RefreshCookie)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, Detail("Refresh token missing"))
		return
	}

	s.mu.Lock()
	g, ok := s.refresh[token]
	delete(s.refresh, token)
	s.mu.Unlock()

	if !ok || time.Now().After(g.expires) {
		writeJSON(w, http.StatusUnauthorized, Detail("Refresh token invalid or expired"))
		return
	}

	s.issue(w, g.userID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Token refreshed"})
}

func (s *Service) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if token, err := s.cookies.GetSigned(r, AccessCookie); err == nil {
		delete(s.access, token)
	}
	if token, err := s.cookies.GetSigned(r, RefreshCookie); err == nil {
		delete(s.refresh, token)
	}
	s.mu.Unlock()

	s.cookies.Delete(w, AccessCookie)
	s.cookies.Delete(w, RefreshCookie, cookie.WithPath("/auth"+EndpointRefresh))
	w.WriteHeader(http.StatusNoContent)
}

// issue creates a fresh token pair for userID and sets both cookies.
func (s *Service) issue(w http.ResponseWriter, userID int64) {
	now := time.Now()
	accessToken, refreshToken := uuid.NewString(), uuid.NewString()

	s.mu.Lock()
	s.access[accessToken] = grant{userID: userID, expires: now.Add(s.accessTTL)}
	s.refresh[refreshToken] = grant{userID: userID, expires: now.Add(s.refreshTTL)}
	s.mu.Unlock()

	s.cookies.SetSigned(w, AccessCookie, accessToken, cookie.WithMaxAge(int(s.accessTTL.Seconds())))
	s.cookies.SetSigned(w, RefreshCookie, refreshToken,
		cookie.WithMaxAge(int(s.refreshTTL.Seconds())),
		cookie.WithPath("/auth"+EndpointRefresh),
	)
}

func (s *Service) userFromCookie(r *http.Request, name string, grants map[string]grant) (User, bool) {
	token, err := s.cookies.GetSigned(r, name)
	if err != nil {
		if !errors.Is(err, cookie.ErrCookieNotFound) {
			s.logger.WarnContext(r.Context(), "rejected cookie", logger.Error(err))
		}
		return User{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := grants[token]
	if !ok || time.Now().After(g.expires) {
		return User{}, false
	}
	for _, u := range s.users {
		if u.ID == g.userID {
			return *u, true
		}
	}
	return User{}, false
}

// createLocked must be called with s.mu held.
func (s *Service) createLocked(email string, hash []byte) *User {
	s.nextID++
	u := &User{
		ID:        s.nextID,
		Email:     strings.TrimSpace(email),
		Role:      "user",
		Tier:      "free",
		CreatedAt: time.Now().UTC(),
		hash:      hash,
	}
	s.users[normalize(email)] = u
	return u
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
