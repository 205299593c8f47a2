package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/portal-dev/portal/internal/cli/app"
	"github.com/portal-dev/portal/internal/cli/client"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var in client.NewUser

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the auth service",
		Long: `Create an account on the auth service.

New accounts get the reader role. Run 'portal login' afterwards to sign in.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), in, envFlag(cmd))
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address (or set PORTAL_EMAIL)")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (or set PORTAL_PASSWORD, will prompt if not provided)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runRegister(ctx context.Context, in client.NewUser, opts ...Option) error {
	o := newOptions(opts)

	if in.Email == "" {
		in.Email = os.Getenv("PORTAL_EMAIL")
	}
	if in.Password == "" {
		in.Password = os.Getenv("PORTAL_PASSWORD")
	}
	if in.Password == "" {
		var err error
		if in.Password, err = promptPassword(o, "PORTAL_PASSWORD"); err != nil {
			return err
		}
	}

	return withApp(ctx, o, func(a *app.App) error {
		user, err := a.API.Register(ctx, in)
		if err != nil {
			return err
		}

		fmt.Fprintf(o.out, "✓ Registered %s (%s) on %s\n", user.Name, user.Email, a.Environment.Alias)
		fmt.Fprintf(o.out, "  Role: %s\n", user.Role)
		fmt.Fprintln(o.out, "Run 'portal login' to sign in.")
		return nil
	})
}
