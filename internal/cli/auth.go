package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxscribe/voxscribe/pkg/types"
)

var (
	authEmail    string
	authPassword string
	authName     string
	resetToken   string
)

var signUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		client, _, err := newSession()
		if err != nil {
			return err
		}

		user, err := client.SignUp(ctx, types.SignUpRequest{
			Name:     authName,
			Email:    authEmail,
			Password: authPassword,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Account created for %s. Run 'voxscribe login' to start a session.\n", user.Email)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and persist the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		client, save, err := newSession()
		if err != nil {
			return err
		}

		user, err := client.Login(ctx, types.LoginRequest{Email: authEmail, Password: authPassword})
		if err != nil {
			return err
		}
		if err := save(); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}
		fmt.Printf("Logged in as %s (%s)\n", user.Name, user.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		client, save, err := newSession()
		if err != nil {
			return err
		}

		if err := client.Logout(ctx); err != nil {
			return err
		}
		if err := save(); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		fmt.Println("Logged out")
		return nil
	},
}

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Request a password reset token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		client, _, err := newSession()
		if err != nil {
			return err
		}

		msg, err := client.ForgotPassword(ctx, authEmail)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password using a reset token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		client, _, err := newSession()
		if err != nil {
			return err
		}

		if err := client.ResetPassword(ctx, types.ResetPasswordRequest{
			Token:    resetToken,
			Password: authPassword,
		}); err != nil {
			return err
		}
		fmt.Println("Password updated")
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		client, save, err := newSession()
		if err != nil {
			return err
		}

		profile, err := client.Profile(ctx)
		if err != nil {
			return err
		}
		if err := save(); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}

		fmt.Printf("Name:  %s\nEmail: %s\n", profile.User.Name, profile.User.Email)
		if profile.Subscription != nil {
			fmt.Printf("Plan:  %s (%.0f minutes/day)\n", profile.Subscription.PlanName, profile.Subscription.MinutesPerDay)
		}
		return nil
	},
}

func init() {
	signUpCmd.Flags().StringVar(&authName, "name", "", "Display name")
	signUpCmd.Flags().StringVar(&authEmail, "email", "", "Email address")
	signUpCmd.Flags().StringVar(&authPassword, "password", "", "Password")
	_ = signUpCmd.MarkFlagRequired("email")
	_ = signUpCmd.MarkFlagRequired("password")

	loginCmd.Flags().StringVar(&authEmail, "email", "", "Email address")
	loginCmd.Flags().StringVar(&authPassword, "password", "", "Password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	forgotPasswordCmd.Flags().StringVar(&authEmail, "email", "", "Email address")
	_ = forgotPasswordCmd.MarkFlagRequired("email")

	resetPasswordCmd.Flags().StringVar(&resetToken, "token", "", "Reset token")
	resetPasswordCmd.Flags().StringVar(&authPassword, "password", "", "New password")
	_ = resetPasswordCmd.MarkFlagRequired("token")
	_ = resetPasswordCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(signUpCmd, loginCmd, logoutCmd, forgotPasswordCmd, resetPasswordCmd, profileCmd)
}
