package dashboard

import (
	"github.com/joyofrisk/api/internal/rbac"
	"github.com/joyofrisk/api/models"
)

// Decision is the outcome of a route guard check
type Decision string

const (
	Allow             Decision = "allow"
	RedirectToLanding Decision = "redirect_to_landing"
	AccessRestricted  Decision = "access_restricted"
)

const (
	RestrictedTitle   = "Access Restricted"
	RestrictedMessage = "This feature requires a higher subscription plan."
)

// Session is the signed-in state of one client. It is passed explicitly to
// whatever needs it.
type Session struct {
	Token   string
	Profile *models.UserProfile
}

// Active reports whether a user is signed in
func (s *Session) Active() bool {
	return s != nil && s.Token != ""
}

// End tears the session down and reports whether it was active
func (s *Session) End() bool {
	if s == nil {
		return false
	}
	active := s.Active()
	s.Token = ""
	s.Profile = nil
	return active
}

// Guard decides whether a session may view a page
type Guard struct {
	table *rbac.Table
}

// NewGuard creates a guard backed by table
func NewGuard(table *rbac.Table) *Guard {
	return &Guard{table: table}
}

// Table returns the permission table the guard consults
func (g *Guard) Table() *rbac.Table {
	return g.table
}

// Check evaluates the guard for permission. A session whose profile has not
// been loaded fails closed.
func (g *Guard) Check(session *Session, permission string) Decision {
	if !session.Active() {
		return RedirectToLanding
	}
	if permission == "" {
		return Allow
	}
	if session.Profile == nil {
		return AccessRestricted
	}
	if g.table.HasPermission(session.Profile.Role, permission) {
		return Allow
	}
	return AccessRestricted
}

// CheckPage evaluates the guard for a catalog page
func (g *Guard) CheckPage(session *Session, p Page) Decision {
	return g.Check(session, p.Permission)
}
