package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/portal-dev/portal/internal/cli/app"
	"github.com/portal-dev/portal/internal/cli/client"
	"github.com/portal-dev/portal/internal/session"
)

// NewProfileCmd creates the profile command
func NewProfileCmd() *cobra.Command {
	var in client.UserUpdate

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Change your name, email or password",
		Long: `Change the profile of the logged-in user.

Only the flags given are changed.

Examples:
  $ portal profile --name "Ada Lovelace"
  $ portal profile --password s3cret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd.Context(), in, envFlag(cmd))
		},
	}

	addUserUpdateFlags(cmd, &in)

	return cmd
}

func addUserUpdateFlags(cmd *cobra.Command, in *client.UserUpdate) {
	cmd.Flags().StringVar(&in.Name, "name", "", "New display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "New email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "New password")
}

func runProfile(ctx context.Context, in client.UserUpdate, opts ...Option) error {
	o := newOptions(opts)

	return withApp(ctx, o, func(a *app.App) error {
		if err := requireLogin(a); err != nil {
			return err
		}

		user, err := a.API.UpdateMe(ctx, in)
		if err != nil {
			return err
		}

		// Keep the stored identity in step with the server; the token and role stay
		current := a.Session.Snapshot()
		if err := a.Session.SetAuthData(ctx, session.AuthData{
			Token: current.Token,
			Email: user.Email,
			Name:  user.Name,
			Role:  current.Role,
		}); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		fmt.Fprintf(o.out, "✓ Profile updated: %s (%s)\n", user.Name, user.Email)
		if in.Email != "" && in.Email != current.Email {
			fmt.Fprintln(o.out, "Your token was issued for the old email. Run 'portal login' again.")
		}
		return nil
	})
}
