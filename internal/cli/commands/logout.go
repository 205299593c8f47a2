package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/portal-dev/portal/internal/cli/app"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context(), envFlag(cmd))
		},
	}
}

func runLogout(ctx context.Context, opts ...Option) error {
	o := newOptions(opts)

	return withApp(ctx, o, func(a *app.App) error {
		wasLoggedIn := a.Session.Authenticated()

		if err := a.Session.Logout(ctx); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}

		if wasLoggedIn {
			fmt.Fprintf(o.out, "✓ Logged out of %s\n", a.Environment.Alias)
		} else {
			fmt.Fprintf(o.out, "Not logged in to %s\n", a.Environment.Alias)
		}
		return nil
	})
}
