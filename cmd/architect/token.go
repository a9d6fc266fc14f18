package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/auth"
)

var (
	tokenSecret   string
	tokenUserID   string
	tokenUsername string
	tokenRoles    []string
	tokenTTL      time.Duration
	tokenRefresh  string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint or refresh an API token",
	Long: `Mints a JWT accepted by the API server, signed with --secret or $JWT_SECRET.
With --refresh the given token is validated and reissued with a fresh expiry.`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "Signing secret (defaults to $JWT_SECRET)")
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "Subject user id (random when empty)")
	tokenCmd.Flags().StringVar(&tokenUsername, "username", "architect", "Username claim")
	tokenCmd.Flags().StringSliceVar(&tokenRoles, "roles", []string{auth.RoleArchitect}, "Role claims")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	tokenCmd.Flags().StringVar(&tokenRefresh, "refresh", "", "Existing token to refresh")
}

func runToken(cmd *cobra.Command, args []string) error {
	secret := tokenSecret
	if secret == "" {
		_ = godotenv.Load()
		secret = os.Getenv("JWT_SECRET")
	}

	jm, err := auth.NewJWTManager(secret, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}

	var token string
	if tokenRefresh != "" {
		token, err = jm.Refresh(cmd.Context(), tokenRefresh, tokenTTL)
	} else {
		userID := tokenUserID
		if userID == "" {
			userID = uuid.NewString()
		}
		token, err = jm.Issue(cmd.Context(), auth.Identity{Subject: userID, Username: tokenUsername, Roles: tokenRoles}, tokenTTL)
	}
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
