package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/joyofrisk/api/app"
	"github.com/joyofrisk/api/models"
	"github.com/joyofrisk/api/utils"
)

const maxAuditLimit = 500

// UpdateRoleRequest is the body of PUT /users/{id}/role
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=basic pro exclusive"`
}

// ListUsersHandler lists profiles, optionally filtered by ?role=
func ListUsersHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := models.Role(r.URL.Query().Get("role"))
		users, err := deps.AuthService.ListUsers(r.Context(), role)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		_ = utils.WriteOK(w, users)
	}
}

// GetUserHandler returns one profile by id
func GetUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUserID(w, r)
		if !ok {
			return
		}

		user, err := deps.AuthService.GetUser(r.Context(), id)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		_ = utils.WriteOK(w, user)
	}
}

// UpdateUserRoleHandler changes the role of a profile
func UpdateUserRoleHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUserID(w, r)
		if !ok {
			return
		}
		var req UpdateRoleRequest
		if !decodeAndValidate(w, r, &req, deps.Logger) {
			return
		}

		r = withAuditMeta(r)
		user, err := deps.AuthService.UpdateUserRole(r.Context(), actorFromRequest(r), id, models.Role(req.Role))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		_ = utils.WriteOK(w, user)
	}
}

// DeleteUserHandler removes the credential and the profile of a user
func DeleteUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUserID(w, r)
		if !ok {
			return
		}

		r = withAuditMeta(r)
		if err := deps.AuthService.DeleteUser(r.Context(), actorFromRequest(r), id); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		if err := utils.WriteOKMessage(w, "User deleted successfully"); err != nil {
			deps.Logger.Error("failed to write delete response", zap.Error(err))
		}
	}
}

// UserAuditHandler returns the audit trail of a user, newest first. ?limit= caps the result.
func UserAuditHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUserID(w, r)
		if !ok {
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxAuditLimit {
				_ = utils.WriteBadRequest(w, "limit must be between 1 and 500", nil)
				return
			}
			limit = n
		}

		logs, err := deps.AuthService.ListAudit(r.Context(), id, limit)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		_ = utils.WriteOK(w, logs)
	}
}
