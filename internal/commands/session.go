package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/berrydesk/internal/app"
	"github.com/nhle/berrydesk/internal/state"
)

// errNotLoggedIn is returned by commands that need a session.
var errNotLoggedIn = errors.New("not logged in, run 'berrydesk login' first")

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session",
	RunE: withServices(func(cmd *cobra.Command, args []string, s *app.Services) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		if strings.TrimSpace(email) == "" || password == "" {
			if err := promptCredentials(&email, &password); err != nil {
				return err
			}
		}
		return runLogin(cmd.Context(), cmd.OutOrStdout(), s, email, password)
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget it",
	RunE: withServices(func(cmd *cobra.Command, args []string, s *app.Services) error {
		return runLogout(cmd.Context(), cmd.OutOrStdout(), s)
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: withServices(func(cmd *cobra.Command, args []string, s *app.Services) error {
		return runWhoami(cmd.Context(), cmd.OutOrStdout(), s)
	}),
}

func init() {
	loginCmd.Flags().StringP("email", "e", "", "account email")
	loginCmd.Flags().StringP("password", "p", "", "account password (prompted when empty)")
}

func promptCredentials(email, password *string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password),
		),
	).Run()
}

// runLogin always remembers the session; each command is its own process.
func runLogin(ctx context.Context, w io.Writer, s *app.Services, email, password string) error {
	message, err := s.Auth.Login(ctx, strings.TrimSpace(email), password, true)
	if err != nil {
		return err
	}
	if message != "" {
		fmt.Fprintln(w, message)
	}
	fmt.Fprintf(w, "Logged in as %s\n", s.Auth.UserName())
	return nil
}

func runLogout(ctx context.Context, w io.Writer, s *app.Services) error {
	if err := requireSession(ctx, s); err != nil {
		fmt.Fprintln(w, "Not logged in")
		return nil
	}
	s.Auth.Logout(ctx)
	fmt.Fprintln(w, "Logged out")
	return nil
}

func runWhoami(ctx context.Context, w io.Writer, s *app.Services) error {
	if err := requireSession(ctx, s); err != nil {
		return err
	}
	u := s.Auth.User()
	fmt.Fprintf(w, "%s <%s>\n", u.Username, u.Email)
	if u.InfluencerName != "" {
		fmt.Fprintf(w, "Influencer: %s\n", u.InfluencerName)
	}
	if u.PlanType != "" {
		fmt.Fprintf(w, "Plan:       %s\n", u.PlanType)
	}
	return nil
}

// requireSession resumes the remembered session.
func requireSession(ctx context.Context, s *app.Services) error {
	err := s.Auth.CheckAuthStatus(ctx)
	switch {
	case errors.Is(err, state.ErrNotLoggedIn):
		return errNotLoggedIn
	case err != nil:
		return err
	case !s.Auth.IsLoggedIn():
		return errNotLoggedIn
	}
	return nil
}
