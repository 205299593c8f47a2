// Package userconfig remembers, per project, which portal.yaml environment
// the user selected. Selections live in ~/.config/portal/environments.json,
// keyed by the absolute path of the project's portal.yaml, so two checkouts
// of different projects never share an alias.
package userconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/portal-dev/portal/internal/storage"
)

const (
	configDirName  = "portal"
	selectionsFile = "environments.json"
	namespace      = "selected_environment"
)

// Selections maps project config paths to the alias selected for them
type Selections struct {
	store storage.Storage
}

// New wraps any storage backend
func New(s storage.Storage) *Selections {
	return &Selections{store: s}
}

// Open returns the selections kept under the user's config directory
func Open() (*Selections, error) {
	path, err := GetSelectionsPath()
	if err != nil {
		return nil, err
	}
	return New(storage.NewFile(path, namespace)), nil
}

// GetSelectionsPath returns the path to the selections document
func GetSelectionsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDirName, selectionsFile), nil
}

// Get returns the alias selected for the project at configPath, or "" when none was
func (s *Selections) Get(ctx context.Context, configPath string) (string, error) {
	key, err := projectKey(configPath)
	if err != nil {
		return "", err
	}

	alias, err := s.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read selected environment: %w", err)
	}
	return alias, nil
}

// Set records alias as the selection for the project at configPath
func (s *Selections) Set(ctx context.Context, configPath, alias string) error {
	if alias == "" {
		return s.Clear(ctx, configPath)
	}

	key, err := projectKey(configPath)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, key, alias); err != nil {
		return fmt.Errorf("failed to save selected environment: %w", err)
	}
	return nil
}

// Clear forgets the selection for the project at configPath
func (s *Selections) Clear(ctx context.Context, configPath string) error {
	key, err := projectKey(configPath)
	if err != nil {
		return err
	}
	if err := s.store.Remove(ctx, key); err != nil {
		return fmt.Errorf("failed to clear selected environment: %w", err)
	}
	return nil
}

// projectKey normalizes configPath so that relative paths and symlinked
// checkouts of the same project resolve to one entry.
func projectKey(configPath string) (string, error) {
	if configPath == "" {
		return "", errors.New("project config path is empty")
	}

	abs, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", configPath, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}
