package dashboard

import (
	"github.com/joyofrisk/api/internal/rbac"
	"github.com/joyofrisk/api/models"
)

// Plan is a subscription tier as shown on the pricing page
type Plan struct {
	Role        models.Role `json:"role"`
	Name        string      `json:"name"`
	PriceUSD    int         `json:"price_usd"`
	Interval    string      `json:"interval"`
	Description string      `json:"description"`
	Features    []string    `json:"features"`
	Popular     bool        `json:"popular"`
}

// QuickLink is a shortcut card on the dashboard home
type QuickLink struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Href        string `json:"href"`
	Permission  string `json:"permission"`
}

var plans = []Plan{
	{
		Role:        models.RoleBasic,
		Name:        "Basic",
		PriceUSD:    29,
		Interval:    "month",
		Description: "Perfect for beginners getting started with trading",
		Features: []string{
			"Trading Signals",
			"Trade Ideas",
			"Education Videos",
			"Basic Support",
			"Mobile App Access",
		},
	},
	{
		Role:        models.RolePro,
		Name:        "Pro",
		PriceUSD:    79,
		Interval:    "month",
		Description: "Advanced tools for serious traders",
		Popular:     true,
		Features: []string{
			"Everything in Basic",
			"Market Scanner",
			"AI-Powered Signals",
			"Technical Analysis Tools",
			"Priority Support",
			"Advanced Charts",
			"Risk Management Tools",
		},
	},
	{
		Role:        models.RoleExclusive,
		Name:        "Exclusive",
		PriceUSD:    199,
		Interval:    "month",
		Description: "Complete trading suite with mentorship",
		Features: []string{
			"Everything in Pro",
			"Live Trading Sessions",
			"Personal Mentorship",
			"Custom Strategies",
			"VIP Community Access",
			"Economic Calendar",
			"Copy Trading",
			"Performance Analytics",
			"24/7 Premium Support",
		},
	},
}

var quickLinks = []QuickLink{
	{Name: "AI Signals", Description: "Latest AI-powered trading signals", Href: "/dashboard/ai-signals", Permission: "ai-signals"},
	{Name: "Trade Ideas", Description: "Expert trading recommendations", Href: "/dashboard/trade-ideas", Permission: "trade-ideas"},
	{Name: "Watchlist", Description: "Monitor your favorite assets", Href: "/dashboard/watchlist", Permission: "watchlist"},
	{Name: "Education", Description: "Learn from trading experts", Href: "/dashboard/education-videos", Permission: "education-videos"},
}

// Plans returns the plan catalog, cheapest first
func Plans() []Plan {
	out := make([]Plan, len(plans))
	for i, p := range plans {
		p.Features = append([]string(nil), p.Features...)
		out[i] = p
	}
	return out
}

// PlanFor returns the plan sold for role
func PlanFor(role models.Role) (Plan, bool) {
	for _, p := range Plans() {
		if p.Role == role {
			return p, true
		}
	}
	return Plan{}, false
}

// UpgradeOptions lists the plans above role
func UpgradeOptions(role models.Role) []models.Role {
	out := []models.Role{}
	above := false
	for _, r := range models.Roles {
		if above {
			out = append(out, r)
		}
		if r == role {
			above = true
		}
	}
	return out
}

// QuickAccess returns the home-page shortcuts role may use
func QuickAccess(table *rbac.Table, role models.Role) []QuickLink {
	out := make([]QuickLink, 0, len(quickLinks))
	for _, q := range quickLinks {
		if table.HasPermission(role, q.Permission) {
			out = append(out, q)
		}
	}
	return out
}
