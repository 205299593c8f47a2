package router

import (
	"errors"
	"testing"

	"github.com/portal-dev/portal/internal/navigation"
)

type staticAuth bool

func (s staticAuth) Authenticated() bool { return bool(s) }

func TestTable_Resolve(t *testing.T) {
	table, err := NewTable(append(DefaultRoutes, Route{Path: "/users/{id:[0-9]+}", Name: "User", View: "user", RequiresAuth: true})...)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	tests := []struct {
		path     string
		wantView string
		wantVars map[string]string
		wantErr  bool
	}{
		{path: "/", wantView: "home"},
		{path: "", wantView: "home"},
		{path: "/login", wantView: "login"},
		{path: "/page1?tab=2#top", wantView: "page1"},
		{path: "/users/42", wantView: "user", wantVars: map[string]string{"id": "42"}},
		{path: "/users/abc", wantErr: true},
		{path: "/missing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			m, err := table.Resolve(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrRouteNotFound) {
					t.Fatalf("expected ErrRouteNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Route.View != tt.wantView {
				t.Errorf("view = %q, want %q", m.Route.View, tt.wantView)
			}
			for k, v := range tt.wantVars {
				if m.Vars[k] != v {
					t.Errorf("var %s = %q, want %q", k, m.Vars[k], v)
				}
			}
		})
	}
}

func TestNewTable_Validation(t *testing.T) {
	if _, err := NewTable(Route{Path: "page1"}); err == nil {
		t.Error("expected error for relative path")
	}
	if _, err := NewTable(Route{Path: "/users/{id"}); err == nil {
		t.Error("expected error for unbalanced braces")
	}
}

func TestNewTable_LaterRouteOverrides(t *testing.T) {
	table, err := NewTable(append(DefaultRoutes, Route{Path: "/page1", Name: "Dashboard", View: "dashboard"})...)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	if got := len(table.Routes()); got != len(DefaultRoutes) {
		t.Errorf("len(Routes()) = %d, want %d", got, len(DefaultRoutes))
	}

	m, err := table.Resolve("/page1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if m.Route.View != "dashboard" || m.Route.RequiresAuth {
		t.Errorf("expected overriding route, got %+v", m.Route)
	}
}

func TestRouter_Navigate(t *testing.T) {
	table, err := NewTable(DefaultRoutes...)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	t.Run("public route is pushed", func(t *testing.T) {
		h := navigation.NewHistory("/")
		r := New(table, h, staticAuth(false))

		m, err := r.Navigate("/login")
		if err != nil {
			t.Fatalf("Navigate: %v", err)
		}
		if m.Route.View != "login" || h.Current() != "/login" || h.Len() != 2 {
			t.Errorf("unexpected state: view=%s current=%s len=%d", m.Route.View, h.Current(), h.Len())
		}
	})

	t.Run("protected route redirects anonymous users", func(t *testing.T) {
		h := navigation.NewHistory("/")
		r := New(table, h, staticAuth(false))

		m, err := r.Navigate("/page1")
		if err != nil {
			t.Fatalf("Navigate: %v", err)
		}
		if m.Route.View != "login" {
			t.Errorf("view = %q, want login", m.Route.View)
		}
		if h.Current() != navigation.LoginPath || h.Len() != 1 {
			t.Errorf("expected replace to login, got current=%s len=%d", h.Current(), h.Len())
		}
	})

	t.Run("protected route allowed when logged in", func(t *testing.T) {
		h := navigation.NewHistory("/")
		r := New(table, h, staticAuth(true))

		m, err := r.Navigate("/page1")
		if err != nil {
			t.Fatalf("Navigate: %v", err)
		}
		if m.Route.Name != "Page 1" || h.Current() != "/page1" {
			t.Errorf("unexpected state: route=%+v current=%s", m.Route, h.Current())
		}

		cur, err := r.Current()
		if err != nil || cur.Route.View != "page1" {
			t.Errorf("Current() = %+v, %v", cur, err)
		}
	})

	t.Run("unknown route leaves history alone", func(t *testing.T) {
		h := navigation.NewHistory("/")
		r := New(table, h, staticAuth(true))

		if _, err := r.Navigate("/nope"); !errors.Is(err, ErrRouteNotFound) {
			t.Errorf("expected ErrRouteNotFound, got %v", err)
		}
		if h.Len() != 1 {
			t.Errorf("history grew to %d", h.Len())
		}
	})
}
