package envselect

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/portal-dev/portal/internal/cli/config"
	"github.com/portal-dev/portal/internal/cli/userconfig"
)

// Prompter picks one environment out of a list
type Prompter func(envs []config.Environment) (*config.Environment, error)

// Selections is the per-project memory of the chosen alias
type Selections interface {
	Get(ctx context.Context, configPath string) (string, error)
	Set(ctx context.Context, configPath, alias string) error
	Clear(ctx context.Context, configPath string) error
}

// Resolver determines which environment of a project config to use
type Resolver struct {
	selections Selections
	prompt     Prompter
	warn       func(format string, args ...any)
}

// NewResolver creates a resolver over selections, prompting with promptui
func NewResolver(selections Selections) *Resolver {
	return &Resolver{
		selections: selections,
		prompt:     PromptEnvironmentSelection,
		warn:       func(format string, args ...any) { fmt.Printf("Warning: "+format+"\n", args...) },
	}
}

// ResolveEnvironment resolves against the selections kept in the user's config directory
func ResolveEnvironment(ctx context.Context, projectConfig *config.Config, alias string) (*config.Environment, error) {
	selections, err := userconfig.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	return NewResolver(selections).Resolve(ctx, projectConfig, alias)
}

// Resolve picks the environment based on the following priority:
// 1. If alias flag is provided, use that environment
// 2. If the user selected an environment for this project before, use that
// 3. If only one environment in project config, use that
// 4. Otherwise, prompt user to select an environment interactively
//
// Choices made in steps 3 and 4 are remembered for the project.
func (r *Resolver) Resolve(ctx context.Context, projectConfig *config.Config, alias string) (*config.Environment, error) {
	if alias != "" {
		return projectConfig.GetEnvironmentByAlias(alias)
	}

	// Configs built in memory have no path to remember a selection under
	remember := projectConfig.Path != ""

	if remember {
		selected, err := r.selections.Get(ctx, projectConfig.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}

		if selected != "" {
			env, err := projectConfig.GetEnvironmentByAlias(selected)
			if err == nil {
				return env, nil
			}
			// The alias was removed from portal.yaml since it was selected
			if err := r.selections.Clear(ctx, projectConfig.Path); err != nil {
				r.warn("failed to clear stale environment %q: %v", selected, err)
			}
		}
	}

	var env *config.Environment
	if len(projectConfig.Environments) == 1 {
		env = &projectConfig.Environments[0]
	} else {
		var err error
		env, err = r.prompt(projectConfig.Environments)
		if err != nil {
			return nil, err
		}
	}

	if remember {
		if err := r.selections.Set(ctx, projectConfig.Path, env.Alias); err != nil {
			// Don't fail if we can't save, just continue
			r.warn("failed to save selected environment: %v", err)
		}
	}

	return env, nil
}

// PromptEnvironmentSelection shows an interactive prompt for the user to select an environment
func PromptEnvironmentSelection(envs []config.Environment) (*config.Environment, error) {
	if len(envs) == 0 {
		return nil, config.ErrNoEnvironments
	}

	type envOption struct {
		Label string
		Env   *config.Environment
	}

	options := make([]envOption, len(envs))
	for i := range envs {
		env := &envs[i]
		options[i] = envOption{
			Label: fmt.Sprintf("%s (%s)", env.Alias, env.BackendURL),
			Env:   env,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select an environment",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("environment selection cancelled: %w", err)
	}

	return options[index].Env, nil
}
