package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/authsession/pkg/authclient"
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Resolve the current session and print who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, cleanup, err := a.session(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			outcome, err := m.Initialize(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch outcome {
			case authclient.OutcomeResolved:
				fmt.Fprintf(out, "Signed in as %s\n", m.Identity())
			case authclient.OutcomeTimedOut:
				fmt.Fprintln(out, "Not signed in (service did not answer in time)")
			case authclient.OutcomeCancelled:
				return cmd.Context().Err()
			default:
				fmt.Fprintln(out, "Not signed in")
			}
			return nil
		},
	}
}
