package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fapagri/console/internal/session"
)

var errSignedOut = errors.New("not signed in, run `console login` first")

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the plantation API",
		Long: `Sign in with a username and password. Missing credentials are read from
stdin, one per line. The token is kept in the console database and reused by
later commands until logout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if username == "" {
				if username, err = prompt(cmd.ErrOrStderr(), in, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt(cmd.ErrOrStderr(), in, "Password: "); err != nil {
					return err
				}
			}

			sess, store, err := a.openSession()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := sess.SignIn(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", sess.Profile().DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	return cmd
}

func prompt(w io.Writer, r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return strings.TrimSpace(line), nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, store, err := a.openSession()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := sess.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, store, err := a.openSession()
			if err != nil {
				return err
			}
			defer store.Close()

			sess.Restore(cmd.Context())
			if sess.State() != session.Authenticated {
				return errSignedOut
			}
			u := sess.Profile()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, u.DisplayName())
			fmt.Fprintf(out, "  username: %s\n", u.Username)
			fmt.Fprintf(out, "  email:    %s\n", u.Email)
			fmt.Fprintf(out, "  role:     %s\n", u.Role)
			return nil
		},
	}
}
