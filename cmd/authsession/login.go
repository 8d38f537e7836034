package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/authsession/pkg/authclient"
)

func newLoginCommand(a *app) *cobra.Command {
	var (
		creds authclient.Credentials
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in with email and password and print the resolved identity.

With --watch the process stays alive, renewing the session periodically and
printing lifecycle notifications until it is interrupted. The session is
ended on exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, cleanup, err := a.session(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if _, err := m.Initialize(ctx); err != nil {
				return err
			}
			sub := m.Subscribe(ctx)

			if err := m.Login(ctx, creds); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if id := m.Identity(); id != nil {
				fmt.Fprintf(out, "Signed in as %s\n", id)
			} else {
				fmt.Fprintln(out, "Signed in, identity not yet available")
			}

			if !watch {
				return nil
			}

			fmt.Fprintf(out, "Watching session, renewing every %s\n", a.cfg.Auth.RefreshInterval)
			for {
				select {
				case <-ctx.Done():
					m.Logout(context.WithoutCancel(ctx))
					fmt.Fprintln(out, "Signed out")
					return nil
				case msg, ok := <-sub.Receive(ctx):
					if !ok {
						return nil
					}
					fmt.Fprintf(out, "%s %s (%s)\n", msg.Data.At.Format(time.RFC3339), msg.Data.Kind, m.Identity())
				}
			}
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep the session alive until interrupted")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
