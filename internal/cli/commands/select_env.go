package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/portal-dev/portal/internal/cli/config"
	"github.com/portal-dev/portal/internal/cli/envselect"
	"github.com/portal-dev/portal/internal/cli/userconfig"
)

// NewSelectEnvCmd creates the select-env command
func NewSelectEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select-env [alias]",
		Short: "Select the environment to use for commands",
		Long: `Select the environment to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ portal select-env              # Interactive selection
  $ portal select-env production   # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var alias string
			if len(args) > 0 {
				alias = args[0]
			}
			return runSelectEnv(cmd.Context(), cmd.OutOrStdout(), alias)
		},
	}

	return cmd
}

func runSelectEnv(ctx context.Context, out io.Writer, alias string) error {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'portal init' to create a configuration file", err)
	}

	var env *config.Environment
	if alias != "" {
		env, err = cfg.GetEnvironmentByAlias(alias)
	} else {
		env, err = envselect.PromptEnvironmentSelection(cfg.Environments)
	}
	if err != nil {
		return err
	}

	selections, err := userconfig.Open()
	if err != nil {
		return err
	}
	if err := selections.Set(ctx, cfg.Path, env.Alias); err != nil {
		return err
	}

	fmt.Fprintf(out, "Selected environment: %s (%s)\n", env.Alias, env.BackendURL)
	return nil
}
