// Package app assembles the runtime every authenticated command needs: the
// session store on its configured backend, the shared gateway clients with
// the session guard installed, and the in-process navigation history.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/portal-dev/portal/internal/cli/client"
	cliconfig "github.com/portal-dev/portal/internal/cli/config"
	"github.com/portal-dev/portal/internal/cli/envselect"
	"github.com/portal-dev/portal/internal/config"
	"github.com/portal-dev/portal/internal/gateway"
	"github.com/portal-dev/portal/internal/logger"
	"github.com/portal-dev/portal/internal/navigation"
	"github.com/portal-dev/portal/internal/router"
	"github.com/portal-dev/portal/internal/session"
	"github.com/portal-dev/portal/internal/storage"
)

// DefaultEnvironment is the alias used when no portal.yaml is present
const DefaultEnvironment = "default"

// App holds the wired runtime of one CLI invocation
type App struct {
	Config      *config.Config
	Environment cliconfig.Environment
	Logger      zerolog.Logger

	Session *session.Store
	History *navigation.History
	Router  *router.Router
	Routes  *router.Table

	Auth    *gateway.Client
	Backend *gateway.Client
	API     *client.Client

	storage    storage.Storage
	loggedOut  atomic.Bool
	redirected atomic.Bool
}

// Options carries everything New needs
type Options struct {
	Config      *config.Config
	Environment cliconfig.Environment
	Routes      []router.Route
	Storage     storage.Storage
	Logger      zerolog.Logger
	HTTPClient  *http.Client
}

// Bootstrap loads configuration from the environment and portal.yaml,
// resolves the target environment and opens the session backend.
func Bootstrap(ctx context.Context, envAlias string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	env, routes, err := ResolveEnvironment(ctx, cfg, envAlias)
	if err != nil {
		return nil, err
	}

	store, err := OpenStorage(ctx, cfg.Session, env.Alias)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("environment", env.Alias).
		Str("store", cfg.Session.Store).
		Str("backend_url", env.BackendURL).
		Msg("Bootstrapping")

	a, err := New(ctx, Options{
		Config:      cfg,
		Environment: env,
		Routes:      routes,
		Storage:     store,
		Logger:      log,
	})
	if err != nil {
		_ = storage.Close(store)
		return nil, err
	}
	return a, nil
}

// ResolveEnvironment picks the environment to talk to. Without a portal.yaml
// the deployment configuration is used as-is under DefaultEnvironment.
// Values left empty in portal.yaml fall back to the deployment configuration.
func ResolveEnvironment(ctx context.Context, cfg *config.Config, envAlias string) (cliconfig.Environment, []router.Route, error) {
	fallback := cliconfig.Environment{
		Alias:       DefaultEnvironment,
		BackendURL:  cfg.Endpoints.BackendURL,
		AuthURL:     cfg.Endpoints.AuthURL,
		FrontendURL: cfg.Endpoints.FrontendURL,
	}

	project, err := cliconfig.LoadFromCurrentDir()
	if errors.Is(err, cliconfig.ErrConfigNotFound) {
		if envAlias != "" && envAlias != DefaultEnvironment {
			return cliconfig.Environment{}, nil, fmt.Errorf("environment '%s' requested but no %s found\nRun 'portal init' to create a configuration file", envAlias, cliconfig.ConfigFileName)
		}
		return fallback, nil, nil
	}
	if err != nil {
		return cliconfig.Environment{}, nil, fmt.Errorf("failed to load config: %w", err)
	}

	env, err := envselect.ResolveEnvironment(ctx, project, envAlias)
	if err != nil {
		return cliconfig.Environment{}, nil, err
	}

	resolved := *env
	if resolved.AuthURL == "" {
		resolved.AuthURL = fallback.AuthURL
	}
	if resolved.FrontendURL == "" {
		resolved.FrontendURL = fallback.FrontendURL
	}
	return resolved, project.Routes, nil
}

// OpenStorage opens the configured session backend, scoped to namespace
func OpenStorage(ctx context.Context, cfg config.SessionConfig, namespace string) (storage.Storage, error) {
	switch cfg.Store {
	case config.StoreKeyring:
		return storage.NewKeyring(namespace), nil
	case config.StoreFile:
		return storage.NewFile(cfg.FilePath, namespace), nil
	case config.StoreSQLite:
		return storage.OpenSQLite(cfg.SQLitePath, namespace)
	case config.StoreRedis:
		return storage.DialRedis(ctx, cfg.RedisAddress, namespace)
	case config.StoreMemory:
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

// New wires an App over an already opened storage backend
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("app: missing configuration")
	}
	if opts.Storage == nil {
		return nil, errors.New("app: missing session storage")
	}

	store, err := session.Open(ctx, opts.Storage, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	table, err := router.NewTable(append(append([]router.Route{}, router.DefaultRoutes...), opts.Routes...)...)
	if err != nil {
		return nil, fmt.Errorf("invalid routes: %w", err)
	}

	history := navigation.NewHistory("/")

	a := &App{
		Config:      opts.Config,
		Environment: opts.Environment,
		Logger:      opts.Logger,
		Session:     store,
		History:     history,
		Router:      router.New(table, history, store),
		Routes:      table,
		storage:     opts.Storage,
	}

	guard := gateway.NewSessionGuard(store, history, opts.Logger)
	gwOpts := []gateway.Option{
		gateway.WithTokenSource(store),
		gateway.WithTimeout(opts.Config.HTTP.Timeout),
		gateway.WithRateLimit(opts.Config.HTTP.RateLimit, opts.Config.HTTP.RateBurst),
		gateway.WithLogger(opts.Logger),
	}
	if opts.HTTPClient != nil {
		gwOpts = append(gwOpts, gateway.WithHTTPClient(opts.HTTPClient))
	}

	a.Auth, err = gateway.New(opts.Environment.AuthURL, gwOpts...)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	a.Auth.Use(guard)

	a.Backend, err = gateway.New(opts.Environment.BackendURL, gwOpts...)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	a.Backend.Use(guard)

	a.API = client.New(a.Auth, a.Backend)

	store.Subscribe(func(s session.Session) {
		if !s.Authenticated() {
			a.loggedOut.Store(true)
		}
	})
	history.OnChange(func(c navigation.Change) {
		if c.Replace && c.To == navigation.LoginPath {
			a.redirected.Store(true)
		}
	})

	return a, nil
}

// Expired reports whether a live session was ended by an authorization
// failure during this invocation.
func (a *App) Expired() bool {
	return a.loggedOut.Load() && a.redirected.Load()
}

// Close releases the storage backend
func (a *App) Close() error {
	return storage.Close(a.storage)
}
