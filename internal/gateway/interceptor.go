package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/portal-dev/portal/internal/navigation"
)

// Interceptor observes every exchange made through a Client.
// OnResponse sees 2xx responses, OnError sees StatusError and NetworkError
// values. Whatever they return is what the caller receives.
type Interceptor interface {
	OnResponse(resp *http.Response) (*http.Response, error)
	OnError(err error) error
}

// InterceptorFuncs adapts a pair of functions to Interceptor. A nil field passes through.
type InterceptorFuncs struct {
	Response func(resp *http.Response) (*http.Response, error)
	Error    func(err error) error
}

func (f InterceptorFuncs) OnResponse(resp *http.Response) (*http.Response, error) {
	if f.Response == nil {
		return resp, nil
	}
	return f.Response(resp)
}

func (f InterceptorFuncs) OnError(err error) error {
	if f.Error == nil {
		return err
	}
	return f.Error(err)
}

// SessionEnder is the part of the session store the guard needs
type SessionEnder interface {
	Logout(ctx context.Context) error
}

// SessionGuard ends the session on an authorization failure: on a 401 it
// logs the session out and replaces the current location with the login
// path, then hands the original error back to the caller. Every other
// response and error passes through untouched.
type SessionGuard struct {
	session   SessionEnder
	navigator navigation.Navigator
	loginPath string
	logger    zerolog.Logger
}

// NewSessionGuard creates the 401 policy
func NewSessionGuard(session SessionEnder, navigator navigation.Navigator, logger zerolog.Logger) *SessionGuard {
	return &SessionGuard{
		session:   session,
		navigator: navigator,
		loginPath: navigation.LoginPath,
		logger:    logger.With().Str("component", "session-guard").Logger(),
	}
}

func (g *SessionGuard) OnResponse(resp *http.Response) (*http.Response, error) {
	return resp, nil
}

func (g *SessionGuard) OnError(err error) error {
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		return err
	}

	// The caller may have cancelled already; the logout must still happen
	ctx := context.Background()
	if se.Request != nil {
		ctx = context.WithoutCancel(se.Request.Context())
	}

	g.logger.Warn().Str("method", se.Method).Str("url", se.URL).Msg("Authorization failed, ending session")

	if lerr := g.session.Logout(ctx); lerr != nil {
		g.logger.Error().Err(lerr).Msg("Failed to clear session after authorization failure")
	}
	g.navigator.Replace(g.loginPath)

	return err
}
