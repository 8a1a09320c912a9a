package main

import (
	"github.com/spf13/cobra"

	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/config"
)

var authEmail string

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in to your vault",
	Long: `Sign in with email and password. The session is kept in the session
file until you sign out or it expires.

The password is prompted for, or read from CYBERVAULT_PASSWORD.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuth(cmd, cybervault.AuthModeSignIn)
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a vault identity",
	Long: `Create an identity with email and password and sign in with it.

The password is prompted for, or read from CYBERVAULT_PASSWORD.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuth(cmd, cybervault.AuthModeSignUp)
	},
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runSignOut,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in identity",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	signinCmd.Flags().StringVarP(&authEmail, "email", "e", "", "account email")
	signupCmd.Flags().StringVarP(&authEmail, "email", "e", "", "account email")

	rootCmd.AddCommand(signinCmd, signupCmd, signoutCmd, whoamiCmd)
}

func runAuth(cmd *cobra.Command, mode cybervault.AuthMode) error {
	ctx := cmd.Context()
	formatter := getFormatter()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	email, err := promptEmail(authEmail)
	if err != nil {
		return err
	}
	password, err := promptPassword()
	if err != nil {
		return err
	}

	var session *cybervault.Session
	form := cybervault.NewAuthForm(client, getNotifier(), func(s *cybervault.Session) { session = s })
	if mode != form.Mode() {
		form.Toggle()
	}
	form.SetEmail(email)
	form.SetPassword(password)

	if err := form.Submit(ctx); err != nil {
		return err
	}

	return formatter.FormatSession(cmd.OutOrStdout(), session)
}

func runSignOut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	notifier := getNotifier()
	if err := client.SignOut(ctx); err != nil {
		notifier.Notify(cybervault.Notification{Level: cybervault.LevelError, Message: err.Error()})
		return err
	}
	notifier.Notify(cybervault.Notification{Level: cybervault.LevelSuccess, Message: cybervault.MsgSignedOut})
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	session, err := client.CurrentSession(ctx)
	if err != nil {
		return err
	}
	return getFormatter().FormatSession(cmd.OutOrStdout(), session)
}
