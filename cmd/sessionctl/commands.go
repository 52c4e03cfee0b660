package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-session-client/apiclient"
	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/token"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("SESSIONCTL_PASSWORD")
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or SESSIONCTL_PASSWORD) are required")
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.public.Login(s.ctx, email, password)
			if err != nil {
				return err
			}
			if err := s.manager.Login(s.ctx, res.AccessToken, res.RefreshToken); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", res.User.Email, res.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session without contacting the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			creds, err := s.store.Read(s.ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if creds.Empty() {
				printf(out, "Not signed in\n")
				return nil
			}

			claims, err := token.DecodeUnverified(creds.AccessToken)
			if err != nil {
				printf(out, "Stored access token cannot be decoded: %s\n", err)
				return nil
			}
			now := time.Now()
			state := "valid"
			switch {
			case token.IsExpired(creds.AccessToken, now):
				state = "expired"
			case token.IsExpiredOrExpiring(creds.AccessToken, opts.cfg.GetRefreshBuffer(), now):
				state = "expiring"
			}
			printf(out, "Subject:  %s\n", claims.Subject)
			printf(out, "Role:     %s\n", claims.PortalRole())
			printf(out, "Expires:  %s (%s)\n", claims.Expiry().Format(time.RFC3339), state)
			printf(out, "Refresh:  %t\n", creds.RefreshToken != "")
			return nil
		},
	}
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Send an authenticated GET to the backend and print the response data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			path := args[0]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			var data json.RawMessage
			if err := s.api.Get(s.ctx, path, &data); err != nil {
				return err
			}
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, data, "", "  "); err != nil {
				pretty.Reset()
				pretty.Write(data)
			}
			printf(cmd.OutOrStdout(), "%s\n", pretty.String())
			return nil
		},
	}
}

// tokenOutput is what the token command prints. The refresh token stays in
// the store.
type tokenOutput struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry,omitempty"`
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a current access token, refreshing it first if it is about to expire",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			tok, err := s.manager.TokenSource(s.ctx).Token()
			if errors.Is(err, errors.ErrNoCredentials) {
				return fmt.Errorf("not signed in")
			}
			if err != nil {
				return err
			}
			if raw {
				printf(cmd.OutOrStdout(), "%s\n", tok.AccessToken)
				return nil
			}
			bs, err := json.MarshalIndent(tokenOutput{
				AccessToken: tok.AccessToken,
				TokenType:   tok.Type(),
				Expiry:      tok.Expiry,
			}, "", "  ")
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", bs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print only the access token")
	return cmd
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			accessToken, err := s.manager.Refresh(s.ctx)
			if errors.Is(err, errors.ErrNoRefreshToken) {
				return fmt.Errorf("not signed in")
			}
			if err != nil {
				return err
			}
			claims, err := token.DecodeUnverified(accessToken)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Refreshed, expires %s\n", claims.Expiry().Format(time.RFC3339))
			return nil
		},
	}
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session on the backend and forget it locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			creds, err := s.store.Read(s.ctx)
			if err != nil {
				return err
			}
			if creds.Empty() {
				printf(cmd.OutOrStdout(), "Not signed in\n")
				return nil
			}
			if err := s.api.Logout(s.ctx, creds.RefreshToken); err != nil && apiclient.StatusCode(err) != http.StatusUnauthorized {
				printf(cmd.ErrOrStderr(), "Backend logout failed: %s\n", err)
			}
			return s.manager.Logout(s.ctx)
		},
	}
}
