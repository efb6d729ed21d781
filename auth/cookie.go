package auth

import (
	"net/http"
	"time"

	"github.com/joyofrisk/api/middleware"
)

// CookieOptions controls the session cookie written after sign-in
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

// SetSessionCookie stores token in the auth_token cookie
func SetSessionCookie(w http.ResponseWriter, token string, opts CookieOptions) {
	c := &http.Cookie{
		Name:     middleware.AuthTokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if opts.MaxAge > 0 {
		c.MaxAge = int(opts.MaxAge.Seconds())
	}
	http.SetCookie(w, c)
}

// ClearSessionCookie expires the auth_token cookie
func ClearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthTokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
