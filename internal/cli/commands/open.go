package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/portal-dev/portal/internal/cli/app"
	"github.com/portal-dev/portal/internal/navigation"
)

// NewOpenCmd creates the open command
func NewOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open [path]",
		Short: "Open a page of the web application in browser",
		Long: `Open a page of the web application in browser.

Pages that require authentication open the login page instead when you are
not logged in.

Examples:
  $ portal open          # Home page
  $ portal open /page1   # Protected page`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) > 0 {
				path = args[0]
			}
			return runOpen(cmd.Context(), path, envFlag(cmd))
		},
	}

	return cmd
}

func runOpen(ctx context.Context, path string, opts ...Option) error {
	o := newOptions(opts)

	return withApp(ctx, o, func(a *app.App) error {
		m, err := a.Router.Navigate(path)
		if err != nil {
			return err
		}

		location := a.History.Current()
		if location == navigation.LoginPath && m.Route.Path == navigation.LoginPath && path != navigation.LoginPath {
			fmt.Fprintf(o.out, "%s requires authentication, opening the login page\n", path)
		}

		target := strings.TrimSuffix(a.Environment.FrontendURL, "/") + location

		fmt.Fprintf(o.out, "Opening %s on %s...\n", m.Route.Name, a.Environment.Alias)
		fmt.Fprintf(o.out, "URL: %s\n", target)

		if err := o.browser(target); err != nil {
			return fmt.Errorf("failed to open browser: %w\nPlease visit: %s", err, target)
		}
		return nil
	})
}
