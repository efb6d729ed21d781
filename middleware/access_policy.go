package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/joyofrisk/api/utils"
)

// AccessPolicy restricts user-management routes to administrators, identified
// by email. An empty admin list lets every authenticated caller through.
type AccessPolicy struct {
	admins map[string]struct{}
	logger *zap.Logger
}

// NewAccessPolicy creates an AccessPolicy for the given admin emails
func NewAccessPolicy(adminEmails []string, logger *zap.Logger) *AccessPolicy {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			admins[e] = struct{}{}
		}
	}
	return &AccessPolicy{admins: admins, logger: logger}
}

// Enforced reports whether an admin list is configured
func (p *AccessPolicy) Enforced() bool {
	return len(p.admins) > 0
}

// IsAdmin reports whether claims belong to an administrator
func (p *AccessPolicy) IsAdmin(claims *Claims) bool {
	if claims == nil {
		return false
	}
	if !p.Enforced() {
		return true
	}
	_, ok := p.admins[strings.ToLower(claims.Email)]
	return ok
}

// RequireAdmin is a middleware that requires an administrator.
// This should be called after RequireAuth
func (p *AccessPolicy) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaimsFromContext(r.Context())
		if claims == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}
		if !p.IsAdmin(claims) {
			p.logger.Warn("admin access denied",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("sub", claims.Sub))
			_ = utils.WriteForbidden(w, "Insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSelfOrAdmin lets a caller act on their own record (the URL parameter
// param equals their subject) or any record when they are an administrator.
func (p *AccessPolicy) RequireSelfOrAdmin(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}
			if sameUser(chi.URLParam(r, param), claims.Sub) || p.IsAdmin(claims) {
				next.ServeHTTP(w, r)
				return
			}
			p.logger.Warn("access to another user's record denied",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("sub", claims.Sub),
				zap.String("target", chi.URLParam(r, param)))
			_ = utils.WriteForbidden(w, "Insufficient permissions")
		})
	}
}

// sameUser compares two user ids, in canonical form when both are UUIDs
func sameUser(a, b string) bool {
	if ca, err := utils.CanonicalUUID(a); err == nil {
		if cb, err := utils.CanonicalUUID(b); err == nil {
			return ca == cb
		}
	}
	return a == b
}
