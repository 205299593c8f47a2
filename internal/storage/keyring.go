package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "portal-cli"

// Keyring persists values in the OS keychain/credential manager
type Keyring struct {
	service   string
	namespace string
}

// NewKeyring creates a keyring backend whose entries are scoped by namespace
func NewKeyring(namespace string) *Keyring {
	return &Keyring{service: keyringService, namespace: namespace}
}

func (k *Keyring) Get(_ context.Context, key string) (string, error) {
	value, err := keyring.Get(k.service, namespaced(k.namespace, key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load %s from keyring: %w", key, err)
	}
	return value, nil
}

func (k *Keyring) Set(_ context.Context, key, value string) error {
	if err := keyring.Set(k.service, namespaced(k.namespace, key), value); err != nil {
		return fmt.Errorf("failed to save %s to keyring: %w", key, err)
	}
	return nil
}

func (k *Keyring) Remove(_ context.Context, key string) error {
	if err := keyring.Delete(k.service, namespaced(k.namespace, key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
	}
	return nil
}
