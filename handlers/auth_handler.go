package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/joyofrisk/api/app"
	"github.com/joyofrisk/api/auth"
	"github.com/joyofrisk/api/internal/dashboard"
	"github.com/joyofrisk/api/middleware"
	"github.com/joyofrisk/api/models"
	"github.com/joyofrisk/api/utils"
)

// AuthServiceName identifies the auth API in its health response
const AuthServiceName = "Joy of Risk Auth API"

// SignUpRequest is the body of POST /auth/signup
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=basic pro exclusive"`
}

// SignInRequest is the body of POST /auth/signin
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthHealthResponse is returned by GET /auth/health
type AuthHealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

func cookieOptions(deps *app.Dependencies) auth.CookieOptions {
	return auth.CookieOptions{
		Secure: deps.Config.Session.CookieSecure,
		MaxAge: deps.Config.Session.ExpiresIn,
	}
}

// SignUpHandler registers a new account
func SignUpHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignUpRequest
		if !decodeAndValidate(w, r, &req, deps.Logger) {
			return
		}

		r = withAuditMeta(r)
		result, err := deps.AuthService.SignUp(r.Context(), req.Email, req.Password, models.Role(req.Role))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		if err := utils.WriteCreated(w, result); err != nil {
			deps.Logger.Error("failed to write sign-up response", zap.Error(err))
		}
	}
}

// SignInHandler authenticates with email and password. The session token is
// returned in the body and also set as the auth_token cookie.
func SignInHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignInRequest
		if !decodeAndValidate(w, r, &req, deps.Logger) {
			return
		}

		result, err := deps.AuthService.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		auth.SetSessionCookie(w, result.Token, cookieOptions(deps))
		if err := utils.WriteOK(w, result); err != nil {
			deps.Logger.Error("failed to write sign-in response", zap.Error(err))
		}
	}
}

// SignOutHandler ends the caller's session and clears the session cookie.
// Bearer tokens stay valid until they expire.
func SignOutHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := &dashboard.Session{Token: middleware.TokenFromRequest(r)}
		if session.End() {
			deps.Logger.Info("session ended",
				zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
		}
		auth.ClearSessionCookie(w, cookieOptions(deps))
		_ = utils.WriteOKMessage(w, "Signed out successfully")
	}
}

// MeHandler returns the profile of the authenticated caller
func MeHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := requireClaims(w, r)
		if !ok {
			return
		}

		profile, err := deps.AuthService.GetCurrentUser(r.Context(), claims.Sub)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		_ = utils.WriteOK(w, profile)
	}
}

// AuthHealthHandler reports that the auth API is up
func AuthHealthHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, AuthHealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Service:   AuthServiceName,
		})
	}
}

// PermissionsHandler returns the role to feature table
func PermissionsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, deps.Permissions.Snapshot())
	}
}
