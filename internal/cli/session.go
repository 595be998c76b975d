// session.go implements login, logout, whoami and refresh.
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/labkm/labauth/format"
)

const envPassword = "LABAUTH_PASSWORD"

var errNotLoggedIn = errors.New("not logged in; run: labauth login")

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Long: `Authenticate with a username and password. The password may also be
supplied through the LABAUTH_PASSWORD environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv(envPassword)
			}
			if username == "" || password == "" {
				return fmt.Errorf("username and password are required")
			}

			data, err := a.client.Session().Login(cmd.Context(), map[string]string{
				"username": username,
				"password": password,
			})
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if data.User != nil {
				fmt.Fprintf(out, "Logged in as %s (%s)\n", data.User.Username, data.User.Role)
			} else {
				fmt.Fprintln(out, "Logged in")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Local credentials are gone even when navigation fails.
			if err := a.client.Session().Logout(cmd.Context()); err != nil {
				a.client.Logger().Debug("logout navigation failed", "error", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.client.Session()
			if !s.IsLoggedIn() {
				return errNotLoggedIn
			}

			user := s.User()
			if remote {
				fetched, err := s.FetchUserProfile(cmd.Context())
				if err != nil {
					return fmt.Errorf("fetching profile: %w", err)
				}
				user = fetched
			}

			out := cmd.OutOrStdout()
			if user == nil {
				fmt.Fprintln(out, "Logged in (no cached profile; try --remote)")
			} else {
				fmt.Fprintf(out, "User:  %s\n", user.Username)
				fmt.Fprintf(out, "ID:    %d\n", user.ID)
				fmt.Fprintf(out, "Role:  %s\n", user.Role)
				fmt.Fprintf(out, "Admin: %t\n", user.IsAdmin())
			}
			if exp, ok := s.AccessTokenExpiry(); ok {
				fmt.Fprintf(out, "Token expires: %s\n", format.FormatDate(exp, "YYYY-MM-DD HH:mm:ss"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "fetch the profile from the server")
	return cmd
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.client.Session()
			if _, err := s.RefreshAccessToken(cmd.Context()); err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Access token refreshed")
			if exp, ok := s.AccessTokenExpiry(); ok {
				fmt.Fprintf(out, "Token expires: %s (%s)\n",
					format.FormatDate(exp, "YYYY-MM-DD HH:mm:ss"),
					time.Until(exp).Round(time.Second))
			}
			return nil
		},
	}
}
