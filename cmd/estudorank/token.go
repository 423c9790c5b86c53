package main

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/estudorank/estudorank/internal/auth"
	"github.com/estudorank/estudorank/internal/config"
	"github.com/spf13/cobra"
)

// newTokenCmd signs a token with the configured secret, for local testing
// against a server that is not connected to the identity provider.
func newTokenCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		subject string
		email   string
		admin   bool
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return fmt.Errorf("--sub is required")
			}
			cfg, err := load()
			if err != nil {
				return err
			}

			claims := &auth.Claims{
				StandardClaims: jwt.StandardClaims{
					Subject:   subject,
					IssuedAt:  time.Now().Unix(),
					ExpiresAt: time.Now().Add(ttl).Unix(),
				},
				Email: email,
				Role:  "authenticated",
			}
			if admin {
				claims.AppMetadata = map[string]interface{}{"role": "admin"}
			}

			token, err := auth.NewVerifier(cfg.Auth.JWTSecret).Sign(claims)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "user id to put in the token")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
