package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/portal-dev/portal/internal/cli/app"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the auth service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), email, password, envFlag(cmd))
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set PORTAL_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set PORTAL_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, email, password string, opts ...Option) error {
	o := newOptions(opts)

	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("PORTAL_EMAIL")
	}
	if password == "" {
		password = os.Getenv("PORTAL_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or PORTAL_EMAIL env var)")
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		var err error
		if password, err = promptPassword(o, "PORTAL_PASSWORD"); err != nil {
			return err
		}
	}

	return withApp(ctx, o, func(a *app.App) error {
		fmt.Fprintf(o.out, "Logging in to %s (%s)...\n", a.Environment.Alias, a.Environment.AuthURL)

		data, err := a.API.Login(ctx, email, password)
		if err != nil {
			return err
		}

		if err := a.Session.SetAuthData(ctx, data); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		fmt.Fprintln(o.out, "✓ Login successful!")
		fmt.Fprintf(o.out, "  User: %s (%s)\n", data.Name, data.Email)
		fmt.Fprintf(o.out, "  Role: %s\n", data.Role)
		return nil
	})
}
