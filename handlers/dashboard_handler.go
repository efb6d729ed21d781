package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joyofrisk/api/app"
	"github.com/joyofrisk/api/internal/dashboard"
	"github.com/joyofrisk/api/middleware"
	"github.com/joyofrisk/api/models"
	"github.com/joyofrisk/api/services"
	"github.com/joyofrisk/api/utils"
)

// HomeResponse is the dashboard landing view for the signed-in user
type HomeResponse struct {
	Profile        *models.UserProfile   `json:"profile"`
	Plan           *dashboard.Plan       `json:"plan,omitempty"`
	Navigation     []dashboard.NavItem   `json:"navigation"`
	QuickAccess    []dashboard.QuickLink `json:"quick_access"`
	UpgradeOptions []models.Role         `json:"upgrade_options"`
}

// PageResponse describes a page the caller may open
type PageResponse struct {
	Page     dashboard.Page     `json:"page"`
	Decision dashboard.Decision `json:"decision"`
}

// loadSession builds the guard session for the caller. A missing profile
// leaves Profile nil; other lookup failures are written and false is returned.
func loadSession(deps *app.Dependencies, w http.ResponseWriter, r *http.Request) (*dashboard.Session, bool) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return nil, false
	}
	session := &dashboard.Session{Token: middleware.TokenFromRequest(r)}
	if session.Token == "" {
		// claims were attached without a raw token (tests, internal callers)
		session.Token = claims.Sub
	}

	profile, err := deps.AuthService.GetCurrentUser(r.Context(), claims.Sub)
	switch {
	case err == nil:
		session.Profile = profile
	case services.IsNotFoundError(err):
	default:
		HandleServiceError(w, err, deps.Logger)
		return nil, false
	}
	return session, true
}

func nonNilRoles(roles []models.Role) []models.Role {
	if roles == nil {
		return []models.Role{}
	}
	return roles
}

// NavigationHandler returns the sidebar items visible to the caller's role
func NavigationHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := loadSession(deps, w, r)
		if !ok {
			return
		}
		items := []dashboard.NavItem{}
		if session.Profile != nil {
			items = append(items, dashboard.Navigation(deps.Permissions, session.Profile.Role)...)
		}
		_ = utils.WriteOK(w, items)
	}
}

// HomeHandler returns the caller's profile with navigation, quick links and upgrade paths
func HomeHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := loadSession(deps, w, r)
		if !ok {
			return
		}
		if session.Profile == nil {
			HandleServiceError(w, services.ErrProfileNotFound, deps.Logger)
			return
		}

		role := session.Profile.Role
		resp := HomeResponse{
			Profile:        session.Profile,
			Navigation:     append([]dashboard.NavItem{}, dashboard.Navigation(deps.Permissions, role)...),
			QuickAccess:    append([]dashboard.QuickLink{}, dashboard.QuickAccess(deps.Permissions, role)...),
			UpgradeOptions: nonNilRoles(dashboard.UpgradeOptions(role)),
		}
		if plan, ok := dashboard.PlanFor(role); ok {
			resp.Plan = &plan
		}
		_ = utils.WriteOK(w, resp)
	}
}

// PageHandler runs the route guard for /dashboard/pages/{slug}
func PageHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, found := dashboard.PageBySlug(chi.URLParam(r, "slug"))
		if !found {
			_ = utils.WriteNotFound(w, "Page not found")
			return
		}
		session, ok := loadSession(deps, w, r)
		if !ok {
			return
		}

		decision := deps.Guard.CheckPage(session, page)
		switch decision {
		case dashboard.Allow:
			_ = utils.WriteOK(w, PageResponse{Page: page, Decision: decision})
		case dashboard.RedirectToLanding:
			_ = utils.WriteUnauthorized(w, "Authentication required")
		default:
			details := map[string]interface{}{
				"title":    dashboard.RestrictedTitle,
				"decision": decision,
			}
			if session.Profile != nil {
				details["upgrade_options"] = nonNilRoles(dashboard.UpgradeOptions(session.Profile.Role))
			}
			_ = utils.WriteError(w, http.StatusForbidden, dashboard.RestrictedMessage, details)
		}
	}
}

// PlansHandler lists the subscription plans
func PlansHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, dashboard.Plans())
	}
}
