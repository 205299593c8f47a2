// Package session holds the authenticated user's session as process-wide
// state that is persisted to durable storage and rehydrated on startup.
//
// SetAuthData, UpdateRole and Logout are the only ways to change a Store.
// Each of them writes through to storage explicitly before returning, and
// observers registered with Subscribe are notified once per effective change.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/portal-dev/portal/internal/storage"
)

// Durable storage keys
const (
	KeyToken = "token"
	KeyEmail = "email"
	KeyName  = "name"
	KeyRole  = "role"
)

var keys = []string{KeyToken, KeyEmail, KeyName, KeyRole}

var (
	// ErrNotLoggedIn is returned when a change needs a live session
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrEmptyRole is returned by UpdateRole for a blank role
	ErrEmptyRole = errors.New("role must not be empty")
)

// Session is a point-in-time copy of the store. The zero value is logged out.
type Session struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Authenticated reports whether the session carries a credential
func (s Session) Authenticated() bool {
	return s.Token != ""
}

func (s Session) values() map[string]string {
	return map[string]string{
		KeyToken: s.Token,
		KeyEmail: s.Email,
		KeyName:  s.Name,
		KeyRole:  s.Role,
	}
}

// AuthData is the payload of a successful login
type AuthData struct {
	Token string `json:"token" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Name  string `json:"name"`
	Role  string `json:"role" validate:"required"`
}

var validate = validator.New()

// Validate checks that a login response carries a usable credential and role
func (a AuthData) Validate() error {
	if err := validate.Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid auth data: %s failed %q", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid auth data: %w", err)
	}
	return nil
}

// Observer is called with the new state after every effective change
type Observer func(Session)

// Store is the single owner of the session state
type Store struct {
	mu        sync.Mutex
	state     Session
	storage   storage.Storage
	logger    zerolog.Logger
	observers map[int]Observer
	nextID    int
}

// Open rehydrates a store from durable storage. Missing keys read as empty.
// A torn persisted session (token without role or the reverse) is treated as
// logged out and its leftovers are removed.
func Open(ctx context.Context, s storage.Storage, logger zerolog.Logger) (*Store, error) {
	store := &Store{
		storage:   s,
		logger:    logger.With().Str("component", "session").Logger(),
		observers: make(map[int]Observer),
	}

	loaded := make(map[string]string, len(keys))
	for _, key := range keys {
		v, err := s.Get(ctx, key)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		loaded[key] = v
	}

	state := Session{
		Token: loaded[KeyToken],
		Email: loaded[KeyEmail],
		Name:  loaded[KeyName],
		Role:  loaded[KeyRole],
	}

	if (state.Token == "") != (state.Role == "") {
		store.logger.Warn().Msg("Discarding incomplete persisted session")
		if err := store.clearStorage(ctx); err != nil {
			return nil, err
		}
		state = Session{}
	}

	store.state = state
	return store, nil
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Token returns the current bearer credential, empty when logged out
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token
}

// Role returns the current role, empty when logged out
func (s *Store) Role() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Role
}

// Authenticated reports whether a user is logged in
func (s *Store) Authenticated() bool {
	return s.Snapshot().Authenticated()
}

// SetAuthData replaces all four fields and persists each of them.
// The in-memory state always changes; a storage failure is returned.
func (s *Store) SetAuthData(ctx context.Context, data AuthData) error {
	next := Session(data)

	s.mu.Lock()
	changed := s.state != next
	s.state = next
	err := s.persist(ctx, next.values())
	s.mu.Unlock()

	if changed {
		s.notify(next)
	}
	if err != nil {
		return err
	}

	s.logger.Debug().Str("email", next.Email).Str("role", next.Role).Msg("Session established")
	return nil
}

// UpdateRole replaces only the role and persists it. A token is never left
// without a role, so a blank role or a logged-out store is refused untouched.
func (s *Store) UpdateRole(ctx context.Context, role string) error {
	if role == "" {
		return ErrEmptyRole
	}

	s.mu.Lock()
	if s.state.Token == "" {
		s.mu.Unlock()
		return ErrNotLoggedIn
	}
	changed := s.state.Role != role
	s.state.Role = role
	next := s.state
	err := s.persist(ctx, map[string]string{KeyRole: role})
	s.mu.Unlock()

	if changed {
		s.notify(next)
	}
	if err != nil {
		return err
	}

	s.logger.Debug().Str("role", role).Msg("Session role updated")
	return nil
}

// Logout clears all four fields and removes their durable entries.
// Calling it on a logged-out store changes nothing observable.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	changed := s.state != Session{}
	s.state = Session{}
	err := s.clearStorage(ctx)
	s.mu.Unlock()

	if changed {
		s.notify(Session{})
		s.logger.Debug().Msg("Session cleared")
	}
	return err
}

// Subscribe registers fn for change notifications and returns a function
// that unregisters it. Observers run synchronously after the store lock is
// released, in no particular order.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Store) notify(state Session) {
	s.mu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}

// persist must be called with s.mu held
func (s *Store) persist(ctx context.Context, values map[string]string) error {
	for _, key := range keys {
		v, ok := values[key]
		if !ok {
			continue
		}
		if err := s.storage.Set(ctx, key, v); err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("Failed to persist session")
			return fmt.Errorf("failed to persist session: %w", err)
		}
	}
	return nil
}

// clearStorage must be called with s.mu held (or before the store is shared)
func (s *Store) clearStorage(ctx context.Context) error {
	var errs []error
	for _, key := range keys {
		if err := s.storage.Remove(ctx, key); err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("Failed to remove session key")
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to clear session: %w", errors.Join(errs...))
	}
	return nil
}
