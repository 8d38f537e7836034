package authclient

import (
	"time"

	"github.com/dmitrymomot/authsession/pkg/backoff"
	"github.com/dmitrymomot/authsession/pkg/transport"
)

// Config holds tunables for the manager and its transport. Use DefaultConfig
// as the base; pkg/config overlays YAML and AUTH_* environment variables.
type Config struct {
	BaseURL         string        `env:"AUTH_BASE_URL" yaml:"base_url"`
	BasePath        string        `env:"AUTH_BASE_PATH" yaml:"base_path"`
	InitTimeout     time.Duration `env:"AUTH_INIT_TIMEOUT" yaml:"init_timeout"`
	RequestTimeout  time.Duration `env:"AUTH_REQUEST_TIMEOUT" yaml:"request_timeout"`
	RefreshInterval time.Duration `env:"AUTH_REFRESH_INTERVAL" yaml:"refresh_interval"`
	LoginAttempts   int           `env:"AUTH_LOGIN_ATTEMPTS" yaml:"login_attempts"`
	LoginFirstDelay time.Duration `env:"AUTH_LOGIN_FIRST_DELAY" yaml:"login_first_delay"`
	LoginRetryDelay time.Duration `env:"AUTH_LOGIN_RETRY_DELAY" yaml:"login_retry_delay"`
	EntryPoint      string        `env:"AUTH_ENTRY_POINT" yaml:"entry_point"`
	TokenParam      string        `env:"AUTH_TOKEN_PARAM" yaml:"token_param"`
	NotifyBuffer    int           `env:"AUTH_NOTIFY_BUFFER" yaml:"notify_buffer"`
}

// DefaultConfig returns the production defaults. The refresh interval sits
// just under a 15 minute credential lifetime.
func DefaultConfig() Config {
	return Config{
		BasePath:        transport.DefaultBasePath,
		InitTimeout:     15 * time.Second,
		RequestTimeout:  transport.DefaultTimeout,
		RefreshInterval: 14 * time.Minute,
		LoginAttempts:   3,
		LoginFirstDelay: 50 * time.Millisecond,
		LoginRetryDelay: 100 * time.Millisecond,
		EntryPoint:      "/",
		TokenParam:      "token",
		NotifyBuffer:    16,
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BasePath == "" {
		c.BasePath = d.BasePath
	}
	if c.InitTimeout <= 0 {
		c.InitTimeout = d.InitTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = d.RefreshInterval
	}
	if c.LoginAttempts <= 0 {
		c.LoginAttempts = d.LoginAttempts
	}
	if c.LoginFirstDelay < 0 {
		c.LoginFirstDelay = d.LoginFirstDelay
	}
	if c.LoginRetryDelay <= 0 {
		c.LoginRetryDelay = d.LoginRetryDelay
	}
	if c.EntryPoint == "" {
		c.EntryPoint = d.EntryPoint
	}
	if c.TokenParam == "" {
		c.TokenParam = d.TokenParam
	}
	if c.NotifyBuffer <= 0 {
		c.NotifyBuffer = d.NotifyBuffer
	}
	return c
}

// LoginBackoff is the delay schedule between post-login resolution attempts:
// LoginFirstDelay, then attempt x LoginRetryDelay.
func (c Config) LoginBackoff() backoff.Strategy {
	return backoff.FirstThen{
		First: c.LoginFirstDelay,
		Then:  backoff.Linear{Interval: c.LoginRetryDelay},
	}
}

// NewTransport builds a transport client for BaseURL using the configured
// base path and request timeout. opts are applied last.
func (c Config) NewTransport(opts ...transport.Option) (*transport.Client, error) {
	c = c.withDefaults()
	base := []transport.Option{
		transport.WithBasePath(c.BasePath),
		transport.WithTimeout(c.RequestTimeout),
	}
	return transport.New(c.BaseURL, append(base, opts...)...)
}
