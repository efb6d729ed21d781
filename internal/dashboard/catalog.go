// Package dashboard holds the access policy of the member dashboard: the page
// catalog, the route guard, sidebar filtering and the subscription plan catalog.
package dashboard

import (
	"github.com/joyofrisk/api/internal/rbac"
	"github.com/joyofrisk/api/models"
)

// Page is one dashboard feature page
type Page struct {
	Slug        string `json:"slug"`
	Path        string `json:"path"`
	Title       string `json:"title"`
	NavLabel    string `json:"nav_label"`
	Description string `json:"description"`
	// Permission guards the route; empty means any signed-in user may open it.
	Permission string `json:"permission,omitempty"`
	// NavPermission decides sidebar visibility.
	NavPermission string `json:"nav_permission"`
}

// NavItem is a sidebar entry
type NavItem struct {
	Name       string `json:"name"`
	Href       string `json:"href"`
	Permission string `json:"permission"`
}

func page(slug, navLabel, title, description string, guarded bool) Page {
	p := Page{
		Slug:          slug,
		Path:          "/dashboard/" + slug,
		Title:         title,
		NavLabel:      navLabel,
		Description:   description,
		NavPermission: slug,
	}
	if guarded {
		p.Permission = slug
	}
	return p
}

var pages = []Page{
	page("announcements", "Announcements", "Announcements", "Stay updated with the latest news and announcements from our trading team.", false),
	page("ai-signals", "AI Signals", "AI Signals", "Advanced AI-powered trading signals to help you make informed decisions.", true),
	page("trade-ideas", "Trade Ideas", "Trade Ideas", "Expert-curated trading ideas and market opportunities.", true),
	page("market-scanner", "Market Scanner", "Market Scanner", "Scan markets for trading opportunities with advanced filtering tools.", true),
	page("technical-analysis", "Technical Analysis", "Technical Analysis", "Comprehensive technical analysis tools and charting capabilities.", true),
	page("heatmap", "Heatmap", "Market Heatmap", "Visual representation of market performance across different assets.", true),
	page("economic-calendar", "Economic Calendar", "Economic Calendar", "Track important economic events that impact the markets.", true),
	page("manual-trades", "Manual Trades", "Manual Trades", "Execute and manage your manual trading positions.", true),
	page("copy-trading", "Copy Trading", "Copy Trading", "Follow and copy trades from successful traders.", true),
	page("watchlist", "Watchlist", "Watchlist", "Monitor your favorite trading instruments and assets.", true),
	page("performance", "Performance", "Performance Analytics", "Track and analyze your trading performance and statistics.", true),
	page("breaking-news", "Breaking News", "Breaking News", "Real-time market news and breaking financial updates.", true),
	page("fundamental-news", "Fundamental News", "Fundamental News", "In-depth fundamental analysis and market research.", true),
	page("meetings", "Meetings", "Meetings & Mentorship", "Schedule and join mentorship sessions with trading experts.", true),
	page("education-videos", "Education Videos", "Education Videos", "Learn trading strategies and techniques from expert tutorials.", true),
	page("notifications", "Notifications", "Notifications", "Manage your trading alerts and notification preferences.", false),
	page("profile", "Profile", "Profile", "Manage your account information and trading preferences.", false),
	page("settings", "Settings", "Settings", "Configure your dashboard settings and preferences.", false),
}

// Pages returns the feature page catalog in sidebar order
func Pages() []Page {
	out := make([]Page, len(pages))
	copy(out, pages)
	return out
}

// PageBySlug looks up a page by slug
func PageBySlug(slug string) (Page, bool) {
	for _, p := range pages {
		if p.Slug == slug {
			return p, true
		}
	}
	return Page{}, false
}

// Navigation returns the sidebar items visible to role, in catalog order.
func Navigation(table *rbac.Table, role models.Role) []NavItem {
	items := make([]NavItem, 0, len(pages))
	for _, p := range pages {
		if !table.HasPermission(role, p.NavPermission) {
			continue
		}
		items = append(items, NavItem{Name: p.NavLabel, Href: p.Path, Permission: p.NavPermission})
	}
	return items
}
