package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/authsession/pkg/authclient"
	"github.com/dmitrymomot/authsession/pkg/config"
	"github.com/dmitrymomot/authsession/pkg/location"
	"github.com/dmitrymomot/authsession/pkg/logger"
	"github.com/dmitrymomot/authsession/pkg/prefs"
	"github.com/dmitrymomot/authsession/pkg/redis"
	"github.com/dmitrymomot/authsession/pkg/requestid"
)

// app carries state shared by every command.
type app struct {
	configPath string
	baseURL    string
	logFormat  string
	verbose    bool

	cfg appConfig
	log *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "authsession",
		Short: "Cookie-based session lifecycle client",
		Long: `authsession resolves, establishes and ends sessions against a cookie-based
authentication service mounted under /auth.

Credentials live in the process cookie jar only and are never written to disk,
so every invocation starts signed out. Use "login --watch" to keep a session
alive, or "fake-server" to run a local service to talk to.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&a.baseURL, "base-url", "", "auth service origin, e.g. http://localhost:8080 (env AUTH_BASE_URL)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json (env LOG_FORMAT)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newStatusCommand(a),
		newLoginCommand(a),
		newRegisterCommand(a),
		newLogoutCommand(a),
		newFakeServerCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.cfg = defaultAppConfig()
	if err := config.Load(&a.cfg, config.WithYAMLFile(a.configPath)); err != nil {
		return err
	}
	if a.baseURL != "" {
		a.cfg.Auth.BaseURL = a.baseURL
	}
	if a.logFormat != "" {
		a.cfg.Log.Format = a.logFormat
	}

	format, err := logger.ParseFormat(a.cfg.Log.Format)
	if err != nil {
		return err
	}
	level := parseLevel(a.cfg.Log.Level)
	if a.verbose {
		level = slog.LevelDebug
	}

	a.log = logger.New(
		logger.WithFormat(format),
		logger.WithLevel(level),
		logger.WithOutput(cmd.ErrOrStderr()),
		logger.WithAttr(slog.String("service", "authsession")),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	return nil
}

// session builds a manager for one command run. The returned cleanup closes
// the manager and any Redis connection.
func (a *app) session(cmd *cobra.Command) (*authclient.Manager, func(), error) {
	if a.cfg.Auth.BaseURL == "" {
		return nil, nil, fmt.Errorf("base URL is required: use --base-url or AUTH_BASE_URL")
	}

	client, err := a.cfg.Auth.NewTransport()
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := a.preferences(cmd.Context())
	if err != nil {
		return nil, nil, err
	}

	nav := location.NewMemory(a.cfg.Auth.BaseURL)
	nav.OnReload(func(target string) {
		a.log.Debug("navigated", slog.String("target", target))
	})

	m := authclient.New(client,
		authclient.WithConfig(a.cfg.Auth),
		authclient.WithLogger(a.log),
		authclient.WithPreferences(store),
		authclient.WithNavigator(nav),
	)

	cleanup := func() {
		_ = m.Close()
		client.CloseIdleConnections()
		closeStore()
	}
	return m, cleanup, nil
}

func (a *app) preferences(ctx context.Context) (prefs.Store, func(), error) {
	if a.cfg.Redis.ConnectionURL == "" {
		return prefs.NewMemoryStore(0), func() {}, nil
	}

	client, err := redis.Connect(ctx, a.cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return prefs.NewRedisStore(client), func() { _ = client.Close() }, nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelWarn
	}
	return level
}
