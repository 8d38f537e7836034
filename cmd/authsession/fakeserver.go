package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/authsession/pkg/authtest"
	"github.com/dmitrymomot/authsession/pkg/httpserver"
)

func newFakeServerCommand(a *app) *cobra.Command {
	var (
		addr      string
		token     string
		accessTTL time.Duration
		users     []string
	)

	cmd := &cobra.Command{
		Use:   "fake-server",
		Short: "Run an in-memory auth service for local testing",
		Long: `Run an in-memory auth service exposing /auth/me, /auth/login,
/auth/register, /auth/refresh and /auth/logout, plus /healthz.

Seed accounts with --user email:password (repeatable).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []authtest.Option{authtest.WithLogger(a.log)}
			if token != "" {
				opts = append(opts, authtest.WithVerificationToken(token))
			}
			if accessTTL > 0 {
				opts = append(opts, authtest.WithAccessTTL(accessTTL))
			}
			svc := authtest.New(opts...)
			defer svc.Release()

			for _, u := range users {
				email, password, ok := splitUser(u)
				if !ok {
					return fmt.Errorf("invalid --user %q: want email:password", u)
				}
				svc.AddUser(email, password)
			}

			r := chi.NewRouter()
			r.Get("/healthz", httpserver.HealthCheckHandler(a.log))
			r.Handle("/*", svc)

			cfg := a.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			srv := httpserver.NewFromConfig(cfg,
				httpserver.WithLogger(a.log),
				httpserver.WithStartHook(func(addr string) {
					fmt.Fprintf(cmd.OutOrStdout(), "Fake auth service listening on http://%s\n", addr)
				}),
			)
			return srv.Run(cmd.Context(), r)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (env HTTP_ADDR)")
	cmd.Flags().StringVar(&token, "verification-token", "", "require this token on registration")
	cmd.Flags().DurationVar(&accessTTL, "access-ttl", 0, "access cookie lifetime")
	cmd.Flags().StringArrayVar(&users, "user", nil, "seed account as email:password")
	return cmd
}

func splitUser(s string) (email, password string, ok bool) {
	email, password, ok = strings.Cut(s, ":")
	return email, password, ok && email != "" && password != ""
}
