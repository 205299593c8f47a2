package commands

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/portal-dev/portal/internal/cli/app"
	"github.com/portal-dev/portal/internal/cli/client"
	cliconfig "github.com/portal-dev/portal/internal/cli/config"
	"github.com/portal-dev/portal/internal/config"
	"github.com/portal-dev/portal/internal/session"
	"github.com/portal-dev/portal/internal/storage"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "hunter2"
)

func signToken(t *testing.T, role string) string {
	t.Helper()
	claims := client.Claims{
		Role:   role,
		Scopes: []string{role},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testEmail,
			ExpiresAt: jwt.NewNumericDate(time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// mockAuthServer accepts testEmail/testPassword and a single valid token
type mockAuthServer struct {
	token      string
	serverRole string
	deleted    []string
	roles      map[string]string
	registered []client.NewUser
	updates    map[string]client.UserUpdate
}

func (m *mockAuthServer) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+m.token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		return false
	}
	return true
}

func (m *mockAuthServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("username") != testEmail || r.PostForm.Get("password") != testPassword {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
			return
		}
		writeJSON(w, http.StatusOK, client.TokenResponse{AccessToken: m.token, TokenType: "bearer"})
	})
	mux.HandleFunc("GET /users/users/me", func(w http.ResponseWriter, r *http.Request) {
		if !m.authorized(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, client.User{ID: 1, Name: "Ada", Email: testEmail, IsActive: true, Role: m.serverRole})
	})
	mux.HandleFunc("GET /users/users", func(w http.ResponseWriter, r *http.Request) {
		if !m.authorized(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, []client.User{
			{ID: 1, Name: "Ada", Email: testEmail, IsActive: true, Role: "admin"},
			{ID: 2, Name: "Bob", Email: "bob@example.com", IsActive: false, Role: "reader"},
		})
	})
	mux.HandleFunc("DELETE /users/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !m.authorized(w, r) {
			return
		}
		m.deleted = append(m.deleted, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /users/users/", func(w http.ResponseWriter, r *http.Request) {
		var body client.NewUser
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Email == testEmail {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "A user with this email already exists."})
			return
		}
		m.registered = append(m.registered, body)
		writeJSON(w, http.StatusCreated, client.User{ID: 3, Name: body.Name, Email: body.Email, IsActive: true, Role: "reader"})
	})
	mux.HandleFunc("GET /users/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !m.authorized(w, r) {
			return
		}
		if r.PathValue("id") != "2" {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "User not found"})
			return
		}
		writeJSON(w, http.StatusOK, client.User{ID: 2, Name: "Bob", Email: "bob@example.com", Role: "reader"})
	})
	mux.HandleFunc("PATCH /users/users/me", func(w http.ResponseWriter, r *http.Request) {
		if !m.authorized(w, r) {
			return
		}
		var body client.UserUpdate
		_ = json.NewDecoder(r.Body).Decode(&body)
		m.updates["me"] = body
		user := client.User{ID: 1, Name: "Ada", Email: testEmail, IsActive: true, Role: m.serverRole}
		if body.Name != "" {
			user.Name = body.Name
		}
		if body.Email != "" {
			user.Email = body.Email
		}
		writeJSON(w, http.StatusOK, user)
	})
	mux.HandleFunc("PATCH /users/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !m.authorized(w, r) {
			return
		}
		var body client.UserUpdate
		_ = json.NewDecoder(r.Body).Decode(&body)
		m.updates[r.PathValue("id")] = body
		user := client.User{ID: 2, Name: "Bob", Email: "bob@example.com", Role: "reader"}
		if body.Name != "" {
			user.Name = body.Name
		}
		writeJSON(w, http.StatusOK, user)
	})
	mux.HandleFunc("PATCH /users/users/{id}/role", func(w http.ResponseWriter, r *http.Request) {
		if !m.authorized(w, r) {
			return
		}
		var body client.RoleUpdate
		_ = json.NewDecoder(r.Body).Decode(&body)
		m.roles[r.PathValue("id")] = body.Role
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	return mux
}

type testEnv struct {
	app     *app.App
	auth    *mockAuthServer
	storage *storage.Memory
}

func newTestEnv(t *testing.T, backend http.Handler) *testEnv {
	t.Helper()

	role := "admin"
	auth := &mockAuthServer{token: signToken(t, role), serverRole: role, roles: map[string]string{}, updates: map[string]client.UserUpdate{}}
	authSrv := httptest.NewServer(auth.handler())
	t.Cleanup(authSrv.Close)

	if backend == nil {
		backend = http.NotFoundHandler()
	}
	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	mem := storage.NewMemory()
	a, err := app.New(context.Background(), app.Options{
		Config: &config.Config{
			AppName: "Template",
			Session: config.SessionConfig{Store: config.StoreMemory},
		},
		Environment: cliconfig.Environment{
			Alias:       "test",
			BackendURL:  backendSrv.URL,
			AuthURL:     authSrv.URL,
			FrontendURL: "http://localhost:5173",
		},
		Storage: mem,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	return &testEnv{app: a, auth: auth, storage: mem}
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	require.NoError(t, e.app.Session.SetAuthData(context.Background(), session.AuthData{
		Token: e.auth.token,
		Email: testEmail,
		Name:  "Ada",
		Role:  "admin",
	}))
}
