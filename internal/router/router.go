package router

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/portal-dev/portal/internal/navigation"
)

// ErrRouteNotFound is returned when no route matches a path
var ErrRouteNotFound = errors.New("route not found")

// Route maps a URL path to a named view
type Route struct {
	Path         string `yaml:"path" json:"path"`
	Name         string `yaml:"name" json:"name"`
	View         string `yaml:"view" json:"view"`
	RequiresAuth bool   `yaml:"requires_auth" json:"requires_auth"`
}

// DefaultRoutes is the application's static route table
var DefaultRoutes = []Route{
	{Path: "/", Name: "Home", View: "home"},
	{Path: navigation.LoginPath, Name: "Login", View: "login"},
	{Path: "/page1", Name: "Page 1", View: "page1", RequiresAuth: true},
}

// Match is a resolved route with its path variables
type Match struct {
	Route Route
	Vars  map[string]string
}

// Table resolves paths against a fixed set of routes
type Table struct {
	mux    *mux.Router
	routes []Route
}

// NewTable builds a table from routes. Paths use gorilla/mux templates,
// e.g. "/users/{id:[0-9]+}". A later route with the same path replaces an earlier one.
func NewTable(routes ...Route) (*Table, error) {
	merged := make([]Route, 0, len(routes))
	index := make(map[string]int, len(routes))
	for _, r := range routes {
		if !strings.HasPrefix(r.Path, "/") {
			return nil, fmt.Errorf("route %q: path must start with /", r.Path)
		}
		if i, ok := index[r.Path]; ok {
			merged[i] = r
			continue
		}
		index[r.Path] = len(merged)
		merged = append(merged, r)
	}

	m := mux.NewRouter()
	for i := range merged {
		route := merged[i]
		mr := m.Path(route.Path).Name(route.Path)
		if err := mr.GetError(); err != nil {
			return nil, fmt.Errorf("route %q: %w", route.Path, err)
		}
	}

	return &Table{mux: m, routes: merged}, nil
}

// Routes returns the routes in declaration order
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Resolve finds the route for path. Query strings and fragments are ignored.
func (t *Table) Resolve(path string) (*Match, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	if u.Path == "" {
		u.Path = "/"
	}

	req := &http.Request{Method: http.MethodGet, URL: u}
	var rm mux.RouteMatch
	if !t.mux.Match(req, &rm) || rm.Route == nil {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, u.Path)
	}

	for _, r := range t.routes {
		if r.Path == rm.Route.GetName() {
			return &Match{Route: r, Vars: rm.Vars}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, u.Path)
}
