package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joyofrisk/api/models"
)

const profileRow = `{"id":"u-1","email":"a@example.com","role":"pro","created_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-02T00:00:00Z"}`

func TestProfileStore_Create(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/user_profiles", r.URL.Path)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var rows []map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "u-1", rows[0]["id"])
		assert.Equal(t, "pro", rows[0]["role"])

		writeJSON(w, 201, "["+profileRow+"]")
	})

	got, err := NewProfileStore(c).Create(context.Background(), models.NewUserProfile("u-1", "a@example.com", models.RolePro))
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, models.RolePro, got.Role)
}

func TestProfileStore_Create_Conflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 409, `{"code":"23505","message":"duplicate key value violates unique constraint","details":null,"hint":null}`)
	})

	_, err := NewProfileStore(c).Create(context.Background(), models.NewUserProfile("u-1", "a@example.com", ""))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "23505", apiErr.Code)
}

func TestProfileStore_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "eq.u-1", r.URL.Query().Get("id"))
			writeJSON(w, 200, "["+profileRow+"]")
		})

		got, err := NewProfileStore(c).GetByID(ctx, "u-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "a@example.com", got.Email)
		assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got.UpdatedAt.UTC())
	})

	t.Run("absent", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, "[]")
		})

		got, err := NewProfileStore(c).GetByID(ctx, "u-404")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("no rows code", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 406, `{"code":"PGRST116","message":"no rows"}`)
		})

		got, err := NewProfileStore(c).GetByID(ctx, "u-404")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 500, `{"message":"db down"}`)
		})

		_, err := NewProfileStore(c).GetByID(ctx, "u-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestProfileStore_UpdateRole(t *testing.T) {
	ctx := context.Background()
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("updated", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "eq.u-1", r.URL.Query().Get("id"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "exclusive", body["role"])
			assert.Equal(t, "2024-05-01T12:00:00Z", body["updated_at"])

			writeJSON(w, 200, `[{"id":"u-1","email":"a@example.com","role":"exclusive","created_at":"2024-01-01T00:00:00Z","updated_at":"2024-05-01T12:00:00Z"}]`)
		})

		got, err := NewProfileStore(c).UpdateRole(ctx, "u-1", models.RoleExclusive, stamp)
		require.NoError(t, err)
		assert.Equal(t, models.RoleExclusive, got.Role)
	})

	t.Run("absent", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, `[]`)
		})

		got, err := NewProfileStore(c).UpdateRole(ctx, "u-404", models.RolePro, stamp)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestProfileStore_Delete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.u-1", r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, NewProfileStore(c).Delete(context.Background(), "u-1"))
}

func TestProfileStore_List(t *testing.T) {
	ctx := context.Background()

	t.Run("all newest first", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
			assert.Empty(t, r.URL.Query().Get("role"))
			writeJSON(w, 200, "["+profileRow+","+profileRow+"]")
		})

		got, err := NewProfileStore(c).List(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by role", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "eq.pro", r.URL.Query().Get("role"))
			assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
			writeJSON(w, 200, "[]")
		})

		got, err := NewProfileStore(c).ListByRole(ctx, models.RolePro)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestProfileStore_HealthCheck(t *testing.T) {
	ok := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		writeJSON(w, 200, `[]`)
	})
	assert.NoError(t, NewProfileStore(ok).HealthCheck(context.Background()))

	down := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 503, `{}`)
	})
	assert.Error(t, NewProfileStore(down).HealthCheck(context.Background()))
}

func TestAuditStore_HealthCheck(t *testing.T) {
	ok := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/audit_logs", r.URL.Path)
		assert.Equal(t, "id", r.URL.Query().Get("select"))
		writeJSON(w, 200, `[]`)
	})
	assert.NoError(t, NewAuditStore(ok).HealthCheck(context.Background()))

	missing := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, `{"code":"PGRST205","message":"Could not find the table 'public.audit_logs' in the schema cache"}`)
	})
	err := NewAuditStore(missing).HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit_logs")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "PGRST205", apiErr.Code)
}

func TestAuditStore(t *testing.T) {
	ctx := context.Background()

	t.Run("insert", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/rest/v1/audit_logs", r.URL.Path)
			assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "role_updated", body["action"])
			assert.Equal(t, "u-1", body["target_id"])
			w.WriteHeader(http.StatusCreated)
		})

		entry := models.NewAuditLog(models.AuditActionRoleUpdated, "u-1").WithActor("a-1", "admin@example.com")
		require.NoError(t, NewAuditStore(c).Insert(ctx, entry))
	})

	t.Run("list by target", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "eq.u-1", q.Get("target_id"))
			assert.Equal(t, "timestamp.desc", q.Get("order"))
			assert.Equal(t, "10", q.Get("limit"))
			writeJSON(w, 200, `[{"id":"6f1c3c1e-8d44-4c8e-9c55-7f0c5a3e2b11","action":"user_deleted","target_id":"u-1","timestamp":"2024-01-01T00:00:00Z"}]`)
		})

		got, err := NewAuditStore(c).ListByTarget(ctx, "u-1", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, models.AuditActionUserDeleted, got[0].Action)
	})
}
