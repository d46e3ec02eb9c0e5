package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thcamm/personal-diary/internal/apperror"
	"github.com/Thcamm/personal-diary/internal/client"
	"github.com/Thcamm/personal-diary/internal/service"
)

// password returns the --password flag, falling back to $DIARY_PASSWORD so
// it can be kept out of shell history.
func password(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("DIARY_PASSWORD"); env != "" {
		return env, nil
	}
	return "", apperror.ValidationFailed("password", "--password or $DIARY_PASSWORD is required")
}

func (a *app) registerCmd() *cobra.Command {
	var email, pass, confirm string

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := password(pass)
			if err != nil {
				return err
			}
			if confirm == "" {
				confirm = p
			}

			user, err := a.api.Register(cmd.Context(), service.RegisterInput{
				Username:        args[0],
				Email:           email,
				Password:        p,
				ConfirmPassword: confirm,
			})
			if err != nil {
				return err
			}
			if a.format == "json" {
				return a.printJSON(user)
			}
			fmt.Fprintf(a.out, "%s Registered %s, now run `diaryctl login %s`\n", okMark(), bold(user.Username), user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&pass, "password", "", "password (or $DIARY_PASSWORD)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation (default: same as --password)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var pass string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := password(pass)
			if err != nil {
				return err
			}
			res, err := a.api.Login(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}

			a.session = &client.Session{
				Server:   a.server,
				Token:    res.Token,
				UserID:   res.User.ID,
				Username: res.User.Username,
				LoggedIn: time.Now().UTC(),
			}
			if err := a.session.Save(a.sessionPath); err != nil {
				return err
			}
			if a.format == "json" {
				return a.printJSON(res.User)
			}
			fmt.Fprintf(a.out, "%s Signed in as %s\n", okMark(), bold(res.User.Username))
			return nil
		},
	}
	cmd.Flags().StringVar(&pass, "password", "", "password (or $DIARY_PASSWORD)")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.session.Authenticated() {
				if err := a.api.Logout(cmd.Context()); err != nil {
					fmt.Fprintf(a.errOut, "warning: %s\n", Describe(err))
				}
			}
			if err := client.RemoveSession(a.sessionPath); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s Signed out\n", okMark())
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.Authenticated() {
				return apperror.Unauthorized("no saved session")
			}
			user, err := a.api.Me(cmd.Context())
			if errors.Is(err, apperror.ErrUnauthorized) {
				return apperror.Unauthorized("session expired")
			}
			if err != nil {
				return err
			}
			if a.format == "json" {
				return a.printJSON(user)
			}
			fmt.Fprintf(a.out, "%s <%s>\nid:     %s\nserver: %s\nsince:  %s\n",
				bold(user.Username), user.Email, user.ID, a.server, formatTime(user.CreatedAt))
			return nil
		},
	}
}
