package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JKGhartey/task-manager-sub001/internal/authclient"
	"github.com/JKGhartey/task-manager-sub001/internal/guard"
	"github.com/JKGhartey/task-manager-sub001/internal/session"
)

func (a *app) loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if email, err = a.valueOrPrompt(email, "email", "Email", false); err != nil {
				return err
			}
			if password, err = a.valueOrPrompt(password, "password", "Password", true); err != nil {
				return err
			}

			res, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.session.Login(cmd.Context(), res.User, res.Token); err != nil {
				return fmt.Errorf("signed in but could not save the session: %w", err)
			}
			renderSuccess(a.out, fmt.Sprintf("Welcome back, %s.", res.User.FullName()))
			renderHint(a.out, fmt.Sprintf("Your dashboard: taskctl open %s", guard.HomeFor(res.User.Role)))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func (a *app) signupCommand() *cobra.Command {
	var in authclient.SignupInput
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if in.Email, err = a.valueOrPrompt(in.Email, "email", "Email", false); err != nil {
				return err
			}
			if in.Password, err = a.valueOrPrompt(in.Password, "password", "Password (at least 8 characters)", true); err != nil {
				return err
			}

			res, err := a.client.Signup(cmd.Context(), in)
			if err != nil {
				return err
			}
			if err := a.session.Login(cmd.Context(), res.User, res.Token); err != nil {
				return fmt.Errorf("account created but could not save the session: %w", err)
			}
			renderSuccess(a.out, fmt.Sprintf("Account created for %s.", res.User.Email))
			if res.EmailVerificationToken != "" {
				renderHint(a.out, "Verify your email with: taskctl verify-email --token "+res.EmailVerificationToken)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.FirstName, "first-name", "", "first name")
	f.StringVar(&in.LastName, "last-name", "", "last name")
	f.StringVar(&in.Email, "email", "", "account email")
	f.StringVar(&in.Password, "password", "", "account password")
	f.StringVar(&in.Phone, "phone", "", "phone number")
	f.StringVar(&in.Department, "department", "", "department")
	f.StringVar(&in.Position, "position", "", "position")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !a.session.Snapshot().IsAuthenticated() {
				if err := a.session.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "Not logged in.")
				return nil
			}

			err := a.authenticated(ctx, func(ctx context.Context, token string) error {
				_, err := a.client.Logout(ctx, token)
				return err
			})
			if err != nil && !authclient.IsKind(err, authclient.KindUnauthenticated) {
				a.logger.Warn("server logout failed; clearing local session", zap.Error(err))
			}
			if err := a.session.Logout(ctx); err != nil {
				return err
			}
			renderSuccess(a.out, "Logged out.")
			return nil
		},
	}
}

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user, refreshed from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.session.Refresh(cmd.Context(), a.client.GetCurrentUser)
			switch {
			case errors.Is(err, session.ErrNotAuthenticated):
				return loginRequired(err)
			case authclient.IsKind(err, authclient.KindNetwork):
				snap := a.session.Snapshot()
				if snap.User == nil {
					return err
				}
				renderHint(a.out, "Offline; showing the cached profile.")
				renderUser(a.out, snap.User)
				return nil
			case err != nil:
				return err
			}
			renderUser(a.out, user)
			return nil
		},
	}
}

func (a *app) forgotPasswordCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if email, err = a.valueOrPrompt(email, "email", "Email", false); err != nil {
				return err
			}
			ack, err := a.client.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return err
			}
			renderSuccess(a.out, ack.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (a *app) resetPasswordCommand() *cobra.Command {
	var token, password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password using a reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if token, err = a.valueOrPrompt(token, "token", "Reset token", false); err != nil {
				return err
			}
			if password, err = a.valueOrPrompt(password, "password", "New password", true); err != nil {
				return err
			}
			ack, err := a.client.ResetPassword(cmd.Context(), token, password)
			if err != nil {
				return err
			}
			renderSuccess(a.out, messageOr(ack, "Password updated. You can now log in."))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "reset token from the email")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	return cmd
}

func (a *app) verifyEmailCommand() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "verify-email",
		Short: "Confirm your email address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if token, err = a.valueOrPrompt(token, "token", "Verification token", false); err != nil {
				return err
			}
			ack, err := a.client.VerifyEmail(cmd.Context(), token)
			if err != nil {
				return err
			}
			if snap := a.session.Snapshot(); snap.User != nil && !snap.User.IsEmailVerified {
				verified := snap.User.Clone()
				verified.IsEmailVerified = true
				if err := a.session.UpdateUser(cmd.Context(), verified); err != nil {
					a.logger.Warn("could not mark cached user verified", zap.Error(err))
				}
			}
			renderSuccess(a.out, messageOr(ack, "Email verified."))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "verification token from the email")
	return cmd
}

func (a *app) resendVerificationCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resend-verification",
		Short: "Send the verification email again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var ack *authclient.Ack
			err := a.authenticated(cmd.Context(), func(ctx context.Context, token string) error {
				var err error
				ack, err = a.client.ResendVerification(ctx, token)
				return err
			})
			if err != nil {
				return err
			}
			renderSuccess(a.out, messageOr(ack, "Verification email sent."))
			return nil
		},
	}
}

func messageOr(ack *authclient.Ack, fallback string) string {
	if ack == nil || ack.Message == "" {
		return fallback
	}
	return ack.Message
}
