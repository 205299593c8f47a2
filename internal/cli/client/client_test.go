package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portal-dev/portal/internal/gateway"
	"github.com/portal-dev/portal/internal/navigation"
	"github.com/portal-dev/portal/internal/session"
	"github.com/portal-dev/portal/internal/storage"
)

func signToken(t *testing.T, email, role string) string {
	t.Helper()
	claims := Claims{
		Role:   role,
		Scopes: []string{role},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

type fixture struct {
	client  *Client
	store   *session.Store
	history *navigation.History
}

func newFixture(t *testing.T, auth, backend http.Handler) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := session.Open(ctx, storage.NewMemory(), zerolog.Nop())
	require.NoError(t, err)
	history := navigation.NewHistory("/page1")
	guard := gateway.NewSessionGuard(store, history, zerolog.Nop())

	newGateway := func(h http.Handler) *gateway.Client {
		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)
		gw, err := gateway.New(srv.URL, gateway.WithTokenSource(store))
		require.NoError(t, err)
		gw.Use(guard)
		return gw
	}

	if backend == nil {
		backend = http.NotFoundHandler()
	}

	return &fixture{
		client:  New(newGateway(auth), newGateway(backend)),
		store:   store,
		history: history,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func authServer(t *testing.T, token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("username") != "ada@example.com" || r.PostForm.Get("password") != "hunter2" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect credentials"})
			return
		}
		writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, RefreshToken: "refresh", TokenType: "bearer"})
	})
	mux.HandleFunc("GET /users/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		writeJSON(w, http.StatusOK, User{ID: 1, Name: "Ada", Email: "ada@example.com", IsActive: true, Role: "admin"})
	})
	mux.HandleFunc("GET /users/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		writeJSON(w, http.StatusOK, []User{{ID: 1, Name: "Ada", Role: "admin"}, {ID: 2, Name: "Bob", Role: "reader"}})
	})
	mux.HandleFunc("DELETE /users/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "2" {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "User not found."})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /users/users/", func(w http.ResponseWriter, r *http.Request) {
		var body NewUser
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Email == "ada@example.com" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "A user with this email already exists."})
			return
		}
		writeJSON(w, http.StatusCreated, User{ID: 3, Name: body.Name, Email: body.Email, IsActive: true, Role: "reader"})
	})
	mux.HandleFunc("GET /users/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "2" {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "User not found"})
			return
		}
		writeJSON(w, http.StatusOK, User{ID: 2, Name: "Bob", Email: "bob@example.com", IsActive: true, Role: "reader"})
	})
	mux.HandleFunc("PATCH /users/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		user := User{ID: 1, Name: "Ada", Email: "ada@example.com", IsActive: true, Role: "admin"}
		var body UserUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Name != "" {
			user.Name = body.Name
		}
		if body.Email != "" {
			user.Email = body.Email
		}
		writeJSON(w, http.StatusOK, user)
	})
	mux.HandleFunc("PATCH /users/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "2" {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "User not found."})
			return
		}
		var raw map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		user := User{ID: 2, Name: "Bob", Email: "bob@example.com", IsActive: true, Role: "reader"}
		if name, ok := raw["name"]; ok {
			user.Name = name
		}
		if _, ok := raw["email"]; ok {
			t.Errorf("unset email must not be sent, got %v", raw)
		}
		writeJSON(w, http.StatusOK, user)
	})
	mux.HandleFunc("PATCH /users/users/{id}/role", func(w http.ResponseWriter, r *http.Request) {
		var body RoleUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Role != "admin" && body.Role != "reader" {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "The role could not be found."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "User role updated to '" + body.Role + "'."})
	})
	return mux
}

func TestParseAccessToken(t *testing.T) {
	token := signToken(t, "ada@example.com", "admin")

	claims, err := ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email())
	assert.Equal(t, "admin", claims.Role)
	assert.True(t, claims.HasScope("admin"))
	assert.False(t, claims.HasScope("reader"))

	_, err = ParseAccessToken("not-a-jwt")
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	token := signToken(t, "ada@example.com", "admin")
	f := newFixture(t, authServer(t, token), nil)

	data, err := f.client.Login(context.Background(), "ada@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, session.AuthData{Token: token, Email: "ada@example.com", Name: "Ada", Role: "admin"}, data)
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newFixture(t, authServer(t, signToken(t, "ada@example.com", "admin")), nil)

	_, err := f.client.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, gateway.IsUnauthorized(err))
	assert.False(t, f.store.Authenticated())
	assert.Equal(t, navigation.LoginPath, f.history.Current())
}

func TestLogin_FallsBackToClaims(t *testing.T) {
	token := signToken(t, "ada@example.com", "reader")
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
	})
	mux.HandleFunc("GET /users/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, User{ID: 1, Name: "Ada"})
	})
	f := newFixture(t, mux, nil)

	data, err := f.client.Login(context.Background(), "ada@example.com", "x")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", data.Email)
	assert.Equal(t, "reader", data.Role)
}

func TestAdminOperations(t *testing.T) {
	ctx := context.Background()
	token := signToken(t, "ada@example.com", "admin")
	f := newFixture(t, authServer(t, token), nil)
	require.NoError(t, f.store.SetAuthData(ctx, session.AuthData{Token: token, Email: "ada@example.com", Name: "Ada", Role: "admin"}))

	me, err := f.client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", me.Name)

	users, err := f.client.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, f.client.DeleteUser(ctx, 2))
	err = f.client.DeleteUser(ctx, 99)
	assert.Equal(t, http.StatusNotFound, gateway.StatusCode(err))

	require.NoError(t, f.client.UpdateUserRole(ctx, 2, "admin"))
	err = f.client.UpdateUserRole(ctx, 2, "owner")
	assert.Equal(t, http.StatusNotFound, gateway.StatusCode(err))

	assert.True(t, f.store.Authenticated(), "non-401 failures must not end the session")
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, authServer(t, signToken(t, "ada@example.com", "admin")), nil)

	user, err := f.client.Register(ctx, NewUser{Name: "Cy", Email: "cy@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 3, user.ID)
	assert.Equal(t, "reader", user.Role)

	_, err = f.client.Register(ctx, NewUser{Name: "Ada", Email: "ada@example.com", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, gateway.StatusCode(err))

	_, err = f.client.Register(ctx, NewUser{Name: "Cy", Email: "not-an-email", Password: "pw"})
	assert.ErrorContains(t, err, "email")
	assert.False(t, f.store.Authenticated(), "registering does not log in")
}

func TestUserProfiles(t *testing.T) {
	ctx := context.Background()
	token := signToken(t, "ada@example.com", "admin")
	f := newFixture(t, authServer(t, token), nil)
	require.NoError(t, f.store.SetAuthData(ctx, session.AuthData{Token: token, Email: "ada@example.com", Name: "Ada", Role: "admin"}))

	bob, err := f.client.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", bob.Email)

	_, err = f.client.GetUser(ctx, 99)
	assert.Equal(t, http.StatusNotFound, gateway.StatusCode(err))

	me, err := f.client.UpdateMe(ctx, UserUpdate{Name: "Ada L."})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", me.Name)
	assert.Equal(t, "ada@example.com", me.Email)

	bob, err = f.client.UpdateUser(ctx, 2, UserUpdate{Name: "Robert"})
	require.NoError(t, err)
	assert.Equal(t, "Robert", bob.Name)

	_, err = f.client.UpdateUser(ctx, 2, UserUpdate{})
	assert.EqualError(t, err, "nothing to update")

	_, err = f.client.UpdateMe(ctx, UserUpdate{Email: "nope"})
	assert.ErrorContains(t, err, "email")
}

func TestExpiredTokenEndsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, authServer(t, signToken(t, "ada@example.com", "admin")), nil)
	require.NoError(t, f.store.SetAuthData(ctx, session.AuthData{Token: "stale", Email: "ada@example.com", Name: "Ada", Role: "admin"}))

	_, err := f.client.ListUsers(ctx)
	require.Error(t, err)
	assert.True(t, gateway.IsUnauthorized(err))
	assert.Equal(t, session.Session{}, f.store.Snapshot())
	assert.Equal(t, navigation.LoginPath, f.history.Current())
}

func TestFetch(t *testing.T) {
	backend := http.NewServeMux()
	backend.HandleFunc("GET /items", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []string{"a", "b"})
	})
	f := newFixture(t, http.NotFoundHandler(), backend)

	body, err := f.client.Fetch(context.Background(), "get", "/items")
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(body))

	_, err = f.client.Fetch(context.Background(), http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, gateway.StatusCode(err))
}
