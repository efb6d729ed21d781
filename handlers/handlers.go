package handlers

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/joyofrisk/api/middleware"
	"github.com/joyofrisk/api/services/audit"
	"github.com/joyofrisk/api/utils"
)

// decodeAndValidate reads the JSON body into dst and validates it.
// On failure the error response is already written and false is returned.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	if err := utils.DecodeJSON(r, dst); err != nil {
		HandleValidationError(w, err, logger)
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}

// pathUserID returns the {id} URL parameter in canonical UUID form
func pathUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := utils.CanonicalUUID(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid user ID", nil)
		return "", false
	}
	return id, true
}

// actorFromRequest identifies the authenticated caller for the audit trail
func actorFromRequest(r *http.Request) audit.Actor {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		return audit.Actor{}
	}
	return audit.Actor{ID: claims.Sub, Email: claims.Email}
}

// withAuditMeta attaches request metadata for audit entries to the request context
func withAuditMeta(r *http.Request) *http.Request {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	meta := audit.RequestMeta{
		RequestID: middleware.GetRequestIDFromContext(r.Context()),
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
	return r.WithContext(audit.WithRequestMeta(r.Context(), meta))
}

func requireClaims(w http.ResponseWriter, r *http.Request) (*middleware.Claims, bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return nil, false
	}
	return claims, true
}
