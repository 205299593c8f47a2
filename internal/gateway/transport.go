package gateway

import (
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	bearerPrefix    = "Bearer "
	requestIDHeader = "X-Request-ID"
)

// TokenSource returns the current bearer credential, empty when there is none
type TokenSource interface {
	Token() string
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// bearerTransport attaches the session token unless the caller set Authorization itself
func bearerTransport(next http.RoundTripper, tokens TokenSource) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Authorization") != "" {
			return next.RoundTrip(req)
		}
		token := tokens.Token()
		if token == "" {
			return next.RoundTrip(req)
		}

		req = req.Clone(req.Context())
		req.Header.Set("Authorization", bearerPrefix+token)
		return next.RoundTrip(req)
	})
}

// requestIDTransport tags each request with a ULID for log correlation
func requestIDTransport(next http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get(requestIDHeader) != "" {
			return next.RoundTrip(req)
		}
		req = req.Clone(req.Context())
		req.Header.Set(requestIDHeader, ulid.Make().String())
		return next.RoundTrip(req)
	})
}

// rateLimitTransport waits for a token before every request
func rateLimitTransport(next http.RoundTripper, limiter *rate.Limiter) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if err := limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
		return next.RoundTrip(req)
	})
}

// loggingTransport logs each exchange at debug level
func loggingTransport(next http.RoundTripper, logger zerolog.Logger) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)

		event := logger.Debug().
			Str("method", req.Method).
			Str("url", req.URL.Redacted()).
			Str("request_id", req.Header.Get(requestIDHeader)).
			Dur("duration", time.Since(start))
		if err != nil {
			event.Err(err).Msg("Request failed")
			return nil, err
		}
		event.Int("status", resp.StatusCode).Msg("Request completed")
		return resp, nil
	})
}
