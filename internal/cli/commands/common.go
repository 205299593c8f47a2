package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/portal-dev/portal/internal/cli/app"
)

const sessionExpiredMessage = "Session expired. Run 'portal login' to sign in again."

// Option configures a command run. Tests use it to inject an App and capture output.
type Option func(*options)

type options struct {
	app      *app.App
	out      io.Writer
	errOut   io.Writer
	envAlias string
	browser  func(url string) error
	confirm  func(label string) (bool, error)
}

// WithApp runs the command against an already wired App
func WithApp(a *app.App) Option {
	return func(o *options) { o.app = a }
}

// WithOutput redirects command output
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithErrOutput redirects warnings and the session expiry notice
func WithErrOutput(w io.Writer) Option {
	return func(o *options) { o.errOut = w }
}

// WithEnvironment selects the environment alias, as the --env flag does
func WithEnvironment(alias string) Option {
	return func(o *options) { o.envAlias = alias }
}

// WithBrowser replaces the function used to open URLs
func WithBrowser(fn func(url string) error) Option {
	return func(o *options) { o.browser = fn }
}

// WithConfirm replaces the interactive confirmation prompt
func WithConfirm(fn func(label string) (bool, error)) Option {
	return func(o *options) { o.confirm = fn }
}

func newOptions(opts []Option) *options {
	o := &options{
		out:     os.Stdout,
		errOut:  os.Stderr,
		browser: openBrowser,
		confirm: promptConfirm,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// envFlag reads the persistent --env flag
func envFlag(cmd *cobra.Command) Option {
	alias, _ := cmd.Flags().GetString("env")
	return WithEnvironment(alias)
}

// withApp runs fn against the injected App or a freshly bootstrapped one, and
// reports a session that an authorization failure ended along the way.
func withApp(ctx context.Context, o *options, fn func(a *app.App) error) error {
	a := o.app
	if a == nil {
		var err error
		a, err = app.Bootstrap(ctx, o.envAlias)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); cerr != nil {
				a.Logger.Warn().Err(cerr).Msg("Failed to close session storage")
			}
		}()
	}

	err := fn(a)
	if a.Expired() {
		fmt.Fprintln(o.errOut, sessionExpiredMessage)
	}
	return err
}

// requireLogin fails early when there is no session to send
func requireLogin(a *app.App) error {
	if !a.Session.Authenticated() {
		return fmt.Errorf("not logged in to %s\nRun 'portal login' to authenticate", a.Environment.Alias)
	}
	return nil
}

// promptPassword reads a password from the terminal without echo. envVar
// names the non-interactive alternative in the error.
func promptPassword(o *options, envVar string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or %s env var)", envVar)
	}
	fmt.Fprint(o.out, "Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(o.out) // New line after password input
	return string(bytePassword), nil
}
