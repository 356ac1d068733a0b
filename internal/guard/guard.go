// Package guard decides whether a view may be shown for the current session.
package guard

import (
	"context"
	"slices"
	"strings"

	"github.com/JKGhartey/task-manager-sub001/internal/domain"
	"github.com/JKGhartey/task-manager-sub001/internal/session"
)

// LoginPath is where every denied navigation is sent.
const LoginPath = "/login"

// Outcome of a guard check.
type Outcome int

const (
	// Wait means the session is still rehydrating; render a neutral loading view.
	Wait Outcome = iota
	Allow
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	default:
		return "wait"
	}
}

// Decision is the result of a guard check. Target is set only for Redirect.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Rule describes what a view requires.
type Rule struct {
	RequireAuth bool
	// Roles restricts the view to these roles. Empty means any authenticated user.
	Roles []domain.Role
}

// Public allows everyone.
var Public = Rule{}

// Authenticated allows any signed-in user.
var Authenticated = Rule{RequireAuth: true}

// Only allows signed-in users holding one of roles.
func Only(roles ...domain.Role) Rule {
	return Rule{RequireAuth: true, Roles: roles}
}

// Check evaluates rule against snap.
func Check(snap session.Snapshot, rule Rule) Decision {
	if snap.State == session.Initializing {
		return Decision{Outcome: Wait}
	}
	if !rule.RequireAuth {
		return Decision{Outcome: Allow}
	}
	if !snap.IsAuthenticated() || snap.User == nil {
		return redirect()
	}
	if len(rule.Roles) > 0 && !slices.Contains(rule.Roles, snap.User.Role) {
		return redirect()
	}
	return Decision{Outcome: Allow}
}

func redirect() Decision {
	return Decision{Outcome: Redirect, Target: LoginPath}
}

// Route binds a path prefix to a rule.
type Route struct {
	Prefix string
	Rule   Rule
}

// Table is an ordered list of routes; the first matching prefix wins.
type Table []Route

// DefaultTable lists the task manager's views.
func DefaultTable() Table {
	return Table{
		{Prefix: "/admin", Rule: Only(domain.RoleAdmin)},
		{Prefix: "/manager", Rule: Only(domain.RoleManager)},
		{Prefix: "/dashboard", Rule: Only(domain.RoleUser)},
		{Prefix: "/profile", Rule: Authenticated},
		{Prefix: "/login", Rule: Public},
		{Prefix: "/signup", Rule: Public},
		{Prefix: "/forgot-password", Rule: Public},
		{Prefix: "/reset-password", Rule: Public},
		{Prefix: "/verify-email", Rule: Public},
	}
}

// Resolve returns the rule for path. Unknown paths require authentication.
func (t Table) Resolve(path string) Rule {
	path = normalize(path)
	for _, r := range t {
		if path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/") {
			return r.Rule
		}
	}
	return Authenticated
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = "/" + strings.Trim(strings.TrimSpace(path), "/")
	return strings.ToLower(path)
}

// HomeFor returns the dashboard a role lands on after login.
func HomeFor(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return "/admin"
	case domain.RoleManager:
		return "/manager"
	case domain.RoleUser:
		return "/dashboard"
	default:
		return LoginPath
	}
}

// Await blocks until ctrl has finished rehydrating and then checks rule. If ctx
// ends first the decision is Wait.
func Await(ctx context.Context, ctrl *session.Controller, rule Rule) Decision {
	select {
	case <-ctrl.Ready():
		return Check(ctrl.Snapshot(), rule)
	case <-ctx.Done():
		return Decision{Outcome: Wait}
	}
}
