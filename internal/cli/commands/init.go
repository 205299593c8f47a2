package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/portal-dev/portal/internal/cli/config"
)

type initFlags struct {
	alias       string
	authURL     string
	frontendURL string
}

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var flags initFlags

	cmd := &cobra.Command{
		Use:   "init <backend-url>",
		Short: "Add an environment to portal.yaml",
		Long: `Add an environment to portal.yaml in the current directory.

Examples:
  $ portal init http://localhost:8000
  $ portal init https://api.example.com --alias production --auth-url https://auth.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.alias, "alias", "", "Environment alias (defaults to production, then env-N)")
	cmd.Flags().StringVar(&flags.authURL, "auth-url", "", "Auth service URL")
	cmd.Flags().StringVar(&flags.frontendURL, "frontend-url", "", "Web application URL")

	return cmd
}

func runInit(out io.Writer, backendURL string, flags initFlags) error {
	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{
			Environments: []config.Environment{},
		}
		isNewConfig = true
	}

	for _, env := range cfg.Environments {
		if env.BackendURL == backendURL {
			fmt.Fprintf(out, "Environment with backend %s already exists in %s (%s)\n", backendURL, config.ConfigFileName, env.Alias)
			return nil
		}
	}

	alias := flags.alias
	if alias == "" {
		if len(cfg.Environments) == 0 {
			alias = "production"
		} else {
			alias = fmt.Sprintf("env-%d", len(cfg.Environments)+1)
		}
	}

	cfg.Environments = append(cfg.Environments, config.Environment{
		Alias:       alias,
		BackendURL:  backendURL,
		AuthURL:     flags.authURL,
		FrontendURL: flags.frontendURL,
	})

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		fmt.Fprintf(out, "✓ Created ./%s with environment %s (%s)\n", config.ConfigFileName, alias, backendURL)
	} else {
		fmt.Fprintf(out, "✓ Added environment %s (%s) to ./%s\n", alias, backendURL, config.ConfigFileName)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'portal select-env' if you have several environments")
	fmt.Fprintln(out, "  2. Run 'portal login' to authenticate")

	return nil
}
