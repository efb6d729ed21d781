package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func servePolicy(t *testing.T, policy *AccessPolicy, claims *Claims, path string, selfOnly bool) int {
	t.Helper()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if claims != nil {
				req = req.WithContext(WithClaims(req.Context(), claims))
			}
			next.ServeHTTP(w, req)
		})
	})
	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
	if selfOnly {
		r.With(policy.RequireSelfOrAdmin("id")).Get("/users/{id}", ok)
	} else {
		r.With(policy.RequireAdmin).Get("/users/{id}", ok)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Code
}

func TestAccessPolicy_RequireAdmin(t *testing.T) {
	logger := zap.NewNop()
	admin := &Claims{Sub: "a1", Email: "Admin@Example.com"}
	member := &Claims{Sub: "m1", Email: "member@example.com"}

	t.Run("admin passes", func(t *testing.T) {
		policy := NewAccessPolicy([]string{" admin@example.com "}, logger)
		assert.True(t, policy.Enforced())
		assert.Equal(t, http.StatusOK, servePolicy(t, policy, admin, "/users/x", false))
	})

	t.Run("member is forbidden", func(t *testing.T) {
		policy := NewAccessPolicy([]string{"admin@example.com"}, logger)
		assert.Equal(t, http.StatusForbidden, servePolicy(t, policy, member, "/users/x", false))
	})

	t.Run("empty admin list allows every session", func(t *testing.T) {
		policy := NewAccessPolicy(nil, logger)
		assert.False(t, policy.Enforced())
		assert.Equal(t, http.StatusOK, servePolicy(t, policy, member, "/users/x", false))
	})

	t.Run("missing claims is unauthorized", func(t *testing.T) {
		policy := NewAccessPolicy(nil, logger)
		assert.Equal(t, http.StatusUnauthorized, servePolicy(t, policy, nil, "/users/x", false))
	})
}

func TestAccessPolicy_RequireSelfOrAdmin(t *testing.T) {
	logger := zap.NewNop()
	policy := NewAccessPolicy([]string{"admin@example.com"}, logger)

	t.Run("self passes", func(t *testing.T) {
		claims := &Claims{Sub: "m1", Email: "member@example.com"}
		assert.Equal(t, http.StatusOK, servePolicy(t, policy, claims, "/users/m1", true))
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		claims := &Claims{Sub: "m1", Email: "member@example.com"}
		assert.Equal(t, http.StatusForbidden, servePolicy(t, policy, claims, "/users/m2", true))
	})

	t.Run("admin passes for anyone", func(t *testing.T) {
		claims := &Claims{Sub: "a1", Email: "admin@example.com"}
		assert.Equal(t, http.StatusOK, servePolicy(t, policy, claims, "/users/m2", true))
	})

	t.Run("other spellings of own uuid pass", func(t *testing.T) {
		claims := &Claims{Sub: "0b6f3c2e-8d4f-4a55-9d7e-3f2a1b0c9d8e", Email: "member@example.com"}
		for _, id := range []string{
			"0B6F3C2E-8D4F-4A55-9D7E-3F2A1B0C9D8E",
			"0b6f3c2e8d4f4a559d7e3f2a1b0c9d8e",
			"urn:uuid:0b6f3c2e-8d4f-4a55-9d7e-3f2a1b0c9d8e",
		} {
			assert.Equal(t, http.StatusOK, servePolicy(t, policy, claims, "/users/"+id, true), id)
		}
	})

	t.Run("another uuid is still forbidden", func(t *testing.T) {
		claims := &Claims{Sub: "0b6f3c2e-8d4f-4a55-9d7e-3f2a1b0c9d8e", Email: "member@example.com"}
		assert.Equal(t, http.StatusForbidden,
			servePolicy(t, policy, claims, "/users/1B6F3C2E-8D4F-4A55-9D7E-3F2A1B0C9D8E", true))
	})
}
