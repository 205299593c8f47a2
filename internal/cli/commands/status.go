package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/portal-dev/portal/internal/cli/app"
	"github.com/portal-dev/portal/internal/cli/client"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the selected environment and the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), envFlag(cmd))
		},
	}
}

func runStatus(ctx context.Context, opts ...Option) error {
	o := newOptions(opts)

	return withApp(ctx, o, func(a *app.App) error {
		fmt.Fprintf(o.out, "%s\n", a.Config.AppName)
		fmt.Fprintf(o.out, "Environment: %s\n", a.Environment.Alias)
		fmt.Fprintf(o.out, "  Backend:  %s\n", a.Backend.BaseURL())
		fmt.Fprintf(o.out, "  Auth:     %s\n", a.Auth.BaseURL())
		fmt.Fprintf(o.out, "  Frontend: %s\n", a.Environment.FrontendURL)
		fmt.Fprintf(o.out, "Session store: %s\n", a.Config.Session.Store)

		s := a.Session.Snapshot()
		if !s.Authenticated() {
			fmt.Fprintln(o.out, "Not logged in")
			return nil
		}

		fmt.Fprintf(o.out, "Logged in as %s (%s)\n", s.Name, s.Email)
		fmt.Fprintf(o.out, "  Role: %s\n", s.Role)

		claims, err := client.ParseAccessToken(s.Token)
		if err != nil {
			a.Logger.Debug().Err(err).Msg("Stored token is not a JWT")
			return nil
		}
		if claims.ExpiresAt != nil {
			expires := claims.ExpiresAt.Time.UTC()
			if time.Now().After(expires) {
				fmt.Fprintf(o.out, "  Token expired at %s\n", expires.Format(time.RFC3339))
			} else {
				fmt.Fprintf(o.out, "  Token expires at %s\n", expires.Format(time.RFC3339))
			}
		}
		return nil
	})
}
