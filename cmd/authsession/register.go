package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/authsession/pkg/authclient"
)

func newRegisterCommand(a *app) *cobra.Command {
	var reg authclient.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign it in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, cleanup, err := a.session(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := m.Register(cmd.Context(), reg); err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered and signed in as %s\n", m.Identity())
			return nil
		},
	}

	cmd.Flags().StringVar(&reg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "account password")
	cmd.Flags().StringVar(&reg.VerificationToken, "token", "", "email verification token, if the service requires one")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
