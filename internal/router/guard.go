package router

import (
	"github.com/portal-dev/portal/internal/navigation"
)

// AuthChecker reports whether a user is logged in
type AuthChecker interface {
	Authenticated() bool
}

// Router moves between routes of a Table, sending anonymous users to the
// login page when a route requires authentication.
type Router struct {
	table     *Table
	navigator navigation.Navigator
	auth      AuthChecker
}

// New creates a router over table
func New(table *Table, navigator navigation.Navigator, auth AuthChecker) *Router {
	return &Router{table: table, navigator: navigator, auth: auth}
}

// Navigate resolves path and pushes it. When the route requires
// authentication and nobody is logged in, the current location is replaced
// with the login path instead and that match is returned.
func (r *Router) Navigate(path string) (*Match, error) {
	m, err := r.table.Resolve(path)
	if err != nil {
		return nil, err
	}

	if m.Route.RequiresAuth && !r.auth.Authenticated() {
		r.navigator.Replace(navigation.LoginPath)
		return r.table.Resolve(navigation.LoginPath)
	}

	r.navigator.Push(path)
	return m, nil
}

// Current resolves the navigator's current location
func (r *Router) Current() (*Match, error) {
	return r.table.Resolve(r.navigator.Current())
}
