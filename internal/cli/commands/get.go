package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/portal-dev/portal/internal/cli/app"
)

// NewGetCmd creates the get command
func NewGetCmd() *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Send a request to the backend with the stored session",
		Long: `Send a request to the backend with the stored session and print the response.

A 401 response ends the session.

Examples:
  $ portal get /
  $ portal get /items --method DELETE`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), method, args[0], envFlag(cmd))
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")

	return cmd
}

func runGet(ctx context.Context, method, path string, opts ...Option) error {
	o := newOptions(opts)

	return withApp(ctx, o, func(a *app.App) error {
		body, err := a.API.Fetch(ctx, method, path)
		if err != nil {
			return err
		}

		// Pretty-print JSON, pass anything else through
		var pretty bytes.Buffer
		if json.Indent(&pretty, body, "", "  ") == nil {
			body = pretty.Bytes()
		}

		if len(body) > 0 {
			fmt.Fprintln(o.out, string(bytes.TrimRight(body, "\n")))
		}
		return nil
	})
}
