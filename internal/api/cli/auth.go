package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dtroode/moviecat/internal/model"
	"github.com/dtroode/moviecat/internal/service"
)

func (a *app) loginCommand() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to your account",
		Long: `Sign in with email and password. Missing values are prompted for.

The demo account is user@netflix.com / password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if user, ok := a.Auth.CurrentUser(); ok {
				fmt.Fprintf(out, "Already signed in as %s <%s>\n", user.Name, user.Email)
				return nil
			}

			var err error
			if !cmd.Flags().Changed("email") {
				if email, err = a.prompt.line("Email"); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("password") {
				if password, err = a.prompt.secret("Password"); err != nil {
					return err
				}
			}

			if err := model.ValidateCredentials(email, password); err != nil {
				return err
			}

			faint.Fprintln(out, "Signing in...")
			user, err := a.Auth.Login(cmd.Context(), email, password)
			if err != nil {
				return a.authFailed("login", err)
			}

			success.Fprintf(out, "Signed in as %s <%s>\n", user.Name, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")

	return cmd
}

func (a *app) signupCommand() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			var err error
			if !cmd.Flags().Changed("name") {
				if name, err = a.prompt.line("Name"); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("email") {
				if email, err = a.prompt.line("Email"); err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("password") {
				if password, err = a.prompt.secret("Password"); err != nil {
					return err
				}
			}

			if err := model.ValidateSignup(name, email, password); err != nil {
				return err
			}

			faint.Fprintln(out, "Creating account...")
			user, err := a.Auth.Signup(cmd.Context(), name, email, password)
			if err != nil {
				return a.authFailed("signup", err)
			}

			success.Fprintf(out, "Welcome, %s! Signed in as %s\n", user.Name, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")

	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, ok := a.Auth.CurrentUser()
			if !ok {
				return model.ErrNotAuthenticated
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", user.Name, user.Email)
			return nil
		},
	}
}

func (a *app) accountsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List registered accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := a.Auth.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, account := range accounts {
				user := account.Public()
				fmt.Fprintf(out, "%s\t%s\n", user.Email, user.Name)
			}
			return nil
		},
	}
}

// authFailed logs failures that are not about the submitted credentials.
func (a *app) authFailed(op string, err error) error {
	if !service.IsAuthError(err) {
		a.Logger.Error("CLI: "+op+" failed",
			"error", err.Error())
	}
	return err
}
