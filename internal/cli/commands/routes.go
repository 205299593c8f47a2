package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/portal-dev/portal/internal/cli/app"
)

// NewRoutesCmd creates the routes command
func NewRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the pages of the web application",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutes(cmd.Context(), envFlag(cmd))
		},
	}
}

func runRoutes(ctx context.Context, opts ...Option) error {
	o := newOptions(opts)

	return withApp(ctx, o, func(a *app.App) error {
		w := tabwriter.NewWriter(o.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PATH\tNAME\tVIEW\tAUTH")
		fmt.Fprintln(w, "────\t────\t────\t────")

		for _, r := range a.Routes.Routes() {
			auth := "public"
			if r.RequiresAuth {
				auth = "required"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Path, r.Name, r.View, auth)
		}

		return w.Flush()
	})
}
