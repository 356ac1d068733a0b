package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JKGhartey/task-manager-sub001/internal/guard"
)

// ErrAccessDenied is returned when the guard redirects a navigation.
var ErrAccessDenied = errors.New("access denied")

func (a *app) openCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Open a view, if your session allows it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.navigate(cmd, args[0])
		},
	}
}

func (a *app) dashboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the dashboard for your role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.navigate(cmd, guard.HomeFor(a.session.Snapshot().Role()))
		},
	}
}

func (a *app) navigate(cmd *cobra.Command, path string) error {
	decision := guard.Await(cmd.Context(), a.session, a.routes.Resolve(path))
	switch decision.Outcome {
	case guard.Allow:
		renderView(a.out, path, a.session.Snapshot())
		return nil
	case guard.Redirect:
		renderRedirect(a.out, path, decision)
		renderView(a.out, decision.Target, a.session.Snapshot())
		return fmt.Errorf("%w: %s", ErrAccessDenied, path)
	default:
		return fmt.Errorf("session is still loading; try %s again", path)
	}
}
