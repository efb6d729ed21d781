package supabase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/joyofrisk/api/models"
)

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// signUpResponse is either a bare user (email confirmation on) or a session
// wrapping the user.
type signUpResponse struct {
	authUser
	User *authUser `json:"user"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	User        *authUser `json:"user"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func identity(u *authUser) *models.Identity {
	if u == nil || u.ID == "" {
		return nil
	}
	return &models.Identity{ID: u.ID, Email: u.Email}
}

// SignUp registers a new credential. A successful response without a user
// yields a nil identity.
func (c *Client) SignUp(ctx context.Context, email, password string) (*models.Identity, error) {
	var resp signUpResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   credentials{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if id := identity(resp.User); id != nil {
		return id, nil
	}
	return identity(&resp.authUser), nil
}

// SignInWithPassword verifies a credential
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Identity, error) {
	var resp tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   credentials{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return identity(resp.User), nil
}

// DeleteUser removes a credential through the admin API
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/auth/v1/admin/users/" + url.PathEscape(id),
	}, nil)
}
