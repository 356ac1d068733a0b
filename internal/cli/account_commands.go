package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/JKGhartey/task-manager-sub001/internal/authclient"
	"github.com/JKGhartey/task-manager-sub001/internal/domain"
)

func (a *app) profileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View or edit your profile",
	}

	var firstName, lastName, phone, department, position, avatar string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields; only the flags you pass are sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			pick := func(name string, v *string) *string {
				if flags.Changed(name) {
					return v
				}
				return nil
			}
			in := authclient.ProfileUpdate{
				FirstName:  pick("first-name", &firstName),
				LastName:   pick("last-name", &lastName),
				Phone:      pick("phone", &phone),
				Department: pick("department", &department),
				Position:   pick("position", &position),
				Avatar:     pick("avatar", &avatar),
			}

			user, err := a.session.Refresh(cmd.Context(), func(ctx context.Context, token string) (*domain.User, error) {
				return a.client.UpdateProfile(ctx, token, in)
			})
			if err != nil {
				return loginRequired(err)
			}
			renderSuccess(a.out, "Profile updated.")
			renderUser(a.out, user)
			return nil
		},
	}
	f := update.Flags()
	f.StringVar(&firstName, "first-name", "", "first name")
	f.StringVar(&lastName, "last-name", "", "last name")
	f.StringVar(&phone, "phone", "", "phone number")
	f.StringVar(&department, "department", "", "department")
	f.StringVar(&position, "position", "", "position")
	f.StringVar(&avatar, "avatar", "", "avatar URL")

	cmd.AddCommand(update)
	return cmd
}

func (a *app) passwordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Manage your password",
	}

	var current, next string
	change := &cobra.Command{
		Use:   "change",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if current, err = a.valueOrPrompt(current, "current", "Current password", true); err != nil {
				return err
			}
			if next, err = a.valueOrPrompt(next, "new", "New password", true); err != nil {
				return err
			}
			var ack *authclient.Ack
			err = a.authenticated(cmd.Context(), func(ctx context.Context, token string) error {
				var err error
				ack, err = a.client.ChangePassword(ctx, token, current, next)
				return err
			})
			if err != nil {
				return err
			}
			renderSuccess(a.out, messageOr(ack, "Password changed."))
			return nil
		},
	}
	change.Flags().StringVar(&current, "current", "", "current password")
	change.Flags().StringVar(&next, "new", "", "new password")

	cmd.AddCommand(change)
	return cmd
}
