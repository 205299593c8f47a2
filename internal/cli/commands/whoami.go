package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/portal-dev/portal/internal/cli/app"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user as the auth service sees it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd.Context(), envFlag(cmd))
		},
	}
}

func runWhoami(ctx context.Context, opts ...Option) error {
	o := newOptions(opts)

	return withApp(ctx, o, func(a *app.App) error {
		if err := requireLogin(a); err != nil {
			return err
		}

		user, err := a.API.Me(ctx)
		if err != nil {
			return err
		}

		// The server is authoritative for the role
		if user.Role != "" && user.Role != a.Session.Role() {
			previous := a.Session.Role()
			if err := a.Session.UpdateRole(ctx, user.Role); err != nil {
				return fmt.Errorf("failed to save role: %w", err)
			}
			fmt.Fprintf(o.out, "Role changed: %s -> %s\n", previous, user.Role)
		}

		printUser(o, user)
		return nil
	})
}
