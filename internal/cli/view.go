package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JKGhartey/task-manager-sub001/internal/authclient"
	"github.com/JKGhartey/task-manager-sub001/internal/domain"
	"github.com/JKGhartey/task-manager-sub001/internal/guard"
	"github.com/JKGhartey/task-manager-sub001/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)

func renderSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render(msg))
}

func renderHint(w io.Writer, msg string) {
	fmt.Fprintln(w, hintStyle.Render(msg))
}

// renderError prints the normalised message and any per-field problems.
func renderError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("Error: "+err.Error()))
	var ce *authclient.Error
	if !errors.As(err, &ce) || len(ce.Fields) == 0 {
		return
	}
	fields := make([]string, 0, len(ce.Fields))
	for f := range ce.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(f+":"), ce.Fields[f])
	}
}

func renderUser(w io.Writer, u *domain.User) {
	verified := "no"
	if u.IsEmailVerified {
		verified = "yes"
	}
	rows := [][2]string{
		{"Name", u.FullName()},
		{"Email", u.Email},
		{"Role", string(u.Role)},
		{"Status", string(u.Status)},
		{"Verified", verified},
		{"Phone", u.Phone},
		{"Department", u.Department},
		{"Position", u.Position},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-11s", r[0]+":")), valueStyle.Render(r[1]))
	}
}

// renderView draws the screen for an allowed path.
func renderView(w io.Writer, path string, snap session.Snapshot) {
	switch view := viewName(path); view {
	case "/admin":
		fmt.Fprintln(w, titleStyle.Render("Admin dashboard"))
		renderHint(w, "Manage users, departments and every project.")
	case "/manager":
		fmt.Fprintln(w, titleStyle.Render("Manager dashboard"))
		renderHint(w, "Review your team's tasks and assignments.")
	case "/dashboard":
		fmt.Fprintln(w, titleStyle.Render("My tasks"))
		renderHint(w, "Tasks assigned to you appear here.")
	case "/profile":
		fmt.Fprintln(w, titleStyle.Render("Profile"))
	case "/login", "/signup", "/forgot-password", "/reset-password", "/verify-email":
		fmt.Fprintln(w, titleStyle.Render(strings.TrimPrefix(view, "/")))
		renderHint(w, fmt.Sprintf("Run `taskctl %s` to continue.", strings.TrimPrefix(view, "/")))
		return
	default:
		fmt.Fprintln(w, titleStyle.Render(view))
	}
	if snap.User != nil {
		renderUser(w, snap.User)
	}
}

func renderRedirect(w io.Writer, path string, d guard.Decision) {
	fmt.Fprintf(w, "%s is not available to this session; redirecting to %s\n", path, d.Target)
	renderHint(w, "Run `taskctl login` to sign in.")
}

func viewName(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = "/" + strings.Trim(strings.ToLower(path), "/")
	if i := strings.Index(path[1:], "/"); i >= 0 {
		return path[:i+1]
	}
	return path
}
