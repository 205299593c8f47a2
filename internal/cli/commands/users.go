package commands

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/portal-dev/portal/internal/cli/app"
	"github.com/portal-dev/portal/internal/cli/client"
)

// NewUsersCmd creates the users command group
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users (administrators only)",
	}

	cmd.AddCommand(newUsersListCmd())
	cmd.AddCommand(newUsersGetCmd())
	cmd.AddCommand(newUsersEditCmd())
	cmd.AddCommand(newUsersDeleteCmd())
	cmd.AddCommand(newUsersRoleCmd())

	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersList(cmd.Context(), envFlag(cmd))
		},
	}
}

func newUsersGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return runUsersGet(cmd.Context(), id, envFlag(cmd))
		},
	}
}

func newUsersEditCmd() *cobra.Command {
	var in client.UserUpdate

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a user's name, email or password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return runUsersEdit(cmd.Context(), id, in, envFlag(cmd))
		},
	}

	addUserUpdateFlags(cmd, &in)

	return cmd
}

func newUsersDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a user",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			opts := []Option{envFlag(cmd)}
			if yes {
				opts = append(opts, WithConfirm(func(string) (bool, error) { return true, nil }))
			}
			return runUsersDelete(cmd.Context(), id, opts...)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func newUsersRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "role <id> <role>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return runUsersRole(cmd.Context(), id, args[1], envFlag(cmd))
		},
	}
}

func parseUserID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return id, nil
}

func runUsersList(ctx context.Context, opts ...Option) error {
	o := newOptions(opts)

	return withApp(ctx, o, func(a *app.App) error {
		if err := requireLogin(a); err != nil {
			return err
		}

		users, err := a.API.ListUsers(ctx)
		if err != nil {
			return err
		}

		if len(users) == 0 {
			fmt.Fprintln(o.out, "No users found.")
			return nil
		}

		fmt.Fprintf(o.out, "Users on %s:\n\n", a.Environment.Alias)

		w := tabwriter.NewWriter(o.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tACTIVE")
		fmt.Fprintln(w, "──\t────\t─────\t────\t──────")

		for _, u := range users {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", u.ID, u.Name, u.Email, u.Role, u.IsActive)
		}

		return w.Flush()
	})
}

func runUsersDelete(ctx context.Context, id int, opts ...Option) error {
	o := newOptions(opts)

	return withApp(ctx, o, func(a *app.App) error {
		if err := requireLogin(a); err != nil {
			return err
		}

		ok, err := o.confirm(fmt.Sprintf("Delete user %d on %s", id, a.Environment.Alias))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(o.out, "Aborted.")
			return nil
		}

		if err := a.API.DeleteUser(ctx, id); err != nil {
			return err
		}

		fmt.Fprintf(o.out, "✓ Deleted user %d\n", id)
		return nil
	})
}

func runUsersRole(ctx context.Context, id int, role string, opts ...Option) error {
	o := newOptions(opts)

	return withApp(ctx, o, func(a *app.App) error {
		if err := requireLogin(a); err != nil {
			return err
		}

		if err := a.API.UpdateUserRole(ctx, id, role); err != nil {
			return err
		}

		fmt.Fprintf(o.out, "✓ User %d is now %s\n", id, role)
		return nil
	})
}

func runUsersGet(ctx context.Context, id int, opts ...Option) error {
	o := newOptions(opts)

	return withApp(ctx, o, func(a *app.App) error {
		if err := requireLogin(a); err != nil {
			return err
		}

		user, err := a.API.GetUser(ctx, id)
		if err != nil {
			return err
		}

		printUser(o, user)
		return nil
	})
}

func runUsersEdit(ctx context.Context, id int, in client.UserUpdate, opts ...Option) error {
	o := newOptions(opts)

	return withApp(ctx, o, func(a *app.App) error {
		if err := requireLogin(a); err != nil {
			return err
		}

		user, err := a.API.UpdateUser(ctx, id, in)
		if err != nil {
			return err
		}

		fmt.Fprintln(o.out, "✓ User updated")
		printUser(o, user)
		return nil
	})
}

func printUser(o *options, u *client.User) {
	fmt.Fprintf(o.out, "%s (%s)\n", u.Name, u.Email)
	fmt.Fprintf(o.out, "  ID:     %d\n", u.ID)
	fmt.Fprintf(o.out, "  Role:   %s\n", u.Role)
	fmt.Fprintf(o.out, "  Active: %t\n", u.IsActive)
}
