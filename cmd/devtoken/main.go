// Command devtoken mints access tokens for local testing of the booking API.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iliyamo/local-services-booking/internal/config"
	"github.com/iliyamo/local-services-booking/internal/middleware"
	"github.com/iliyamo/local-services-booking/internal/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		user   string
		role   string
		ttl    time.Duration
		secret string
	)
	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Mint a signed access token",
		Long:  "Mint an HS256 access token accepted by the booking API. The secret defaults to JWT_SECRET.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch role {
			case middleware.RoleCustomer, middleware.RoleBusiness, middleware.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			uid := uuid.New()
			if user != "" {
				var err error
				if uid, err = uuid.Parse(user); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			tok, err := utils.NewAccessToken(secret, uid, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			fmt.Fprintf(cmd.ErrOrStderr(), "sub=%s role=%s exp=%s\n", uid, role, tok.Exp.Format(time.RFC3339))
			return nil
		},
	}
	// flag defaults read ACCESS_TOKEN_TTL_MIN, so .env must load first
	_ = godotenv.Load()
	cmd.Flags().StringVar(&user, "user", "", "user id (random when empty)")
	cmd.Flags().StringVar(&role, "role", middleware.RoleCustomer, "customer, business or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", config.AccessTokenTTL(), "token lifetime (ACCESS_TOKEN_TTL_MIN)")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret")
	return cmd
}
