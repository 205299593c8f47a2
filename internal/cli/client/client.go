package client

import (
	"context"
	"errors"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/portal-dev/portal/internal/gateway"
	"github.com/portal-dev/portal/internal/session"
)

// Client talks to the auth service and the application backend through the
// shared gateway clients.
type Client struct {
	auth    *gateway.Client
	backend *gateway.Client
}

// New creates a new API client
func New(auth, backend *gateway.Client) *Client {
	return &Client{auth: auth, backend: backend}
}

// TokenResponse represents the login response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// User represents a user as returned by the auth service
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
	Role     string `json:"role"`
}

// RoleUpdate represents the role change request body
type RoleUpdate struct {
	Role string `json:"role"`
}

// NewUser is the registration request body
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserUpdate changes profile fields. Empty fields are left as they are.
type UserUpdate struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Password string `json:"password,omitempty"`
}

// IsEmpty reports whether the update would change nothing
func (u UserUpdate) IsEmpty() bool {
	return u == UserUpdate{}
}

var validate = validator.New()

func validateRequest(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid %s: failed %q validation", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return err
	}
	return nil
}

// Login authenticates the user and returns the session payload to store
func (c *Client) Login(ctx context.Context, email, password string) (session.AuthData, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var tokens TokenResponse
	if err := c.auth.PostForm(ctx, "/auth/login", form, &tokens); err != nil {
		return session.AuthData{}, fmt.Errorf("login failed: %w", err)
	}
	if tokens.AccessToken == "" {
		return session.AuthData{}, fmt.Errorf("login failed: empty access token in response")
	}

	claims, err := ParseAccessToken(tokens.AccessToken)
	if err != nil {
		return session.AuthData{}, err
	}

	// The session holds no token yet, so the profile request carries this one explicitly
	user, err := c.me(ctx, tokens.AccessToken)
	if err != nil {
		return session.AuthData{}, fmt.Errorf("failed to fetch profile: %w", err)
	}

	data := session.AuthData{
		Token: tokens.AccessToken,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
	if data.Email == "" {
		data.Email = claims.Email()
	}
	if data.Role == "" {
		data.Role = claims.Role
	}

	if err := data.Validate(); err != nil {
		return session.AuthData{}, err
	}
	return data, nil
}

// Me returns the profile of the logged-in user
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.auth.GetJSON(ctx, "/users/users/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) me(ctx context.Context, token string) (*User, error) {
	req, err := c.auth.NewRequest(ctx, http.MethodGet, "/users/users/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.auth.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &user, nil
}

// Register creates an account with the default reader role. No session is needed.
func (c *Client) Register(ctx context.Context, in NewUser) (*User, error) {
	if err := validateRequest(in); err != nil {
		return nil, err
	}

	var user User
	if err := c.auth.PostJSON(ctx, "/users/users/", in, &user); err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	return &user, nil
}

// GetUser returns one user. Non-admins may only read their own record.
func (c *Client) GetUser(ctx context.Context, id int) (*User, error) {
	var user User
	if err := c.auth.GetJSON(ctx, fmt.Sprintf("/users/users/%d", id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateMe changes the logged-in user's own profile and returns it as saved
func (c *Client) UpdateMe(ctx context.Context, in UserUpdate) (*User, error) {
	return c.updateUser(ctx, "/users/users/me", in)
}

// UpdateUser changes another user's profile. Requires the admin scope.
func (c *Client) UpdateUser(ctx context.Context, id int, in UserUpdate) (*User, error) {
	return c.updateUser(ctx, fmt.Sprintf("/users/users/%d", id), in)
}

func (c *Client) updateUser(ctx context.Context, path string, in UserUpdate) (*User, error) {
	if in.IsEmpty() {
		return nil, errors.New("nothing to update")
	}
	if err := validateRequest(in); err != nil {
		return nil, err
	}

	var user User
	if err := c.auth.PatchJSON(ctx, path, in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every user. Requires the admin scope.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.auth.GetJSON(ctx, "/users/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes a user. Requires the admin scope.
func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.auth.Delete(ctx, fmt.Sprintf("/users/users/%d", id))
}

// UpdateUserRole changes a user's role. Requires the admin scope.
func (c *Client) UpdateUserRole(ctx context.Context, id int, role string) error {
	return c.auth.PatchJSON(ctx, fmt.Sprintf("/users/users/%d/role", id), RoleUpdate{Role: role}, nil)
}

// Fetch sends a request to the application backend and returns the response body
func (c *Client) Fetch(ctx context.Context, method, path string) ([]byte, error) {
	req, err := c.backend.NewRequest(ctx, strings.ToUpper(method), path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.backend.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
