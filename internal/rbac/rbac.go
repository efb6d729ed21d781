// Package rbac maps subscription roles to the dashboard features they unlock.
//
// The mapping is plain data: a Table is built from a role → feature list map and
// can be swapped at startup (see Load) without recompiling.
package rbac

import (
	"github.com/joyofrisk/api/models"
)

// Table is an immutable role → feature set lookup
type Table struct {
	ordered map[models.Role][]string
	sets    map[models.Role]map[string]struct{}
}

// New builds a Table from a role → features map. The input is copied.
func New(features map[models.Role][]string) *Table {
	t := &Table{
		ordered: make(map[models.Role][]string, len(features)),
		sets:    make(map[models.Role]map[string]struct{}, len(features)),
	}
	for role, list := range features {
		set := make(map[string]struct{}, len(list))
		ordered := make([]string, 0, len(list))
		for _, f := range list {
			if _, dup := set[f]; dup {
				continue
			}
			set[f] = struct{}{}
			ordered = append(ordered, f)
		}
		t.ordered[role] = ordered
		t.sets[role] = set
	}
	return t
}

// Default returns the shipped permission table
func Default() *Table {
	basic := []string{"signals", "trade-ideas", "education-videos"}
	pro := append(append([]string{}, basic...), "market-scanner", "ai-signals")
	exclusive := append(append([]string{}, pro...),
		"announcements", "technical-analysis", "heatmap", "economic-calendar",
		"manual-trades", "copy-trading", "watchlist", "performance", "breaking-news",
		"fundamental-news", "meetings", "notifications", "profile", "settings",
	)
	return New(map[models.Role][]string{
		models.RoleBasic:     basic,
		models.RolePro:       pro,
		models.RoleExclusive: exclusive,
	})
}

// HasPermission reports whether feature is in role's feature set.
// Unknown roles and features yield false; matching is exact.
func (t *Table) HasPermission(role models.Role, feature string) bool {
	if t == nil {
		return false
	}
	_, ok := t.sets[role][feature]
	return ok
}

// Features returns role's features in configured order
func (t *Table) Features(role models.Role) []string {
	if t == nil {
		return []string{}
	}
	out := make([]string, len(t.ordered[role]))
	copy(out, t.ordered[role])
	return out
}

// Snapshot returns a copy of the whole table keyed by role
func (t *Table) Snapshot() map[models.Role][]string {
	out := make(map[models.Role][]string, len(models.Roles))
	for _, role := range models.Roles {
		out[role] = t.Features(role)
	}
	return out
}

// Roles returns the roles present in the table, in tier order
func (t *Table) Roles() []models.Role {
	out := make([]models.Role, 0, len(models.Roles))
	if t == nil {
		return out
	}
	for _, role := range models.Roles {
		if _, ok := t.sets[role]; ok {
			out = append(out, role)
		}
	}
	return out
}
