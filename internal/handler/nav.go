package handler

import (
	"strings"

	"github.com/reviewdeck/reviewdeck/internal/domain"
)

// NavItem is one sidebar entry. Items with children render as a collapsible
// group; Expanded marks the group open because the current page is inside it.
type NavItem struct {
	Label    string
	Path     string
	Icon     string
	Active   bool
	Disabled bool
	Expanded bool
	Children []NavItem
}

// BuildNav returns the sidebar items for the current page and access state.
//
// When the trial has ended and no subscription is active, everything except
// the Settings group is disabled so the user can still reach Plan & Billing
// to upgrade. The Settings group expands when the current page is one of its
// children.
func BuildNav(currentPath string, access domain.AccessState) []NavItem {
	locked := access.TrialEnded && !access.HasSubscription

	items := []NavItem{
		{
			Label:    "Dashboard",
			Path:     "/dashboard",
			Icon:     "home",
			Disabled: locked,
		},
		{
			Label:    "Reviews",
			Path:     "/reviews",
			Icon:     "star",
			Disabled: locked,
		},
		{
			Label: "Settings",
			Path:  "/settings/profile",
			Icon:  "cog",
			Children: []NavItem{
				{Label: "Business Profile", Path: "/settings/profile"},
				{Label: "Plan & Billing", Path: "/upgrade"},
			},
		},
	}

	for i := range items {
		item := &items[i]
		item.Active = pathMatches(currentPath, item.Path)

		for j := range item.Children {
			child := &item.Children[j]
			child.Active = pathMatches(currentPath, child.Path)
			if child.Active {
				item.Expanded = true
			}
		}
	}

	return items
}

// pathMatches reports whether current is the item path or nested under it.
func pathMatches(current, item string) bool {
	if current == item {
		return true
	}
	return strings.HasPrefix(current, item+"/")
}
