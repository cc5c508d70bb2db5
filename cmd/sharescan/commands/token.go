package commands

import (
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/spf13/cobra"

	"github.com/bastionsec/sharescan/pkg/api"
	"github.com/bastionsec/sharescan/pkg/api/auth"
	"github.com/bastionsec/sharescan/pkg/config"
)

var (
	tokenRole    string
	tokenSubject string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API bearer token",
	Long: `Mint a bearer token for the sharescan API.

Tokens are signed with the shared JWT secret from the config file or
the SHARESCAN_API_SECRET environment variable; no server round trip is
needed. The operator role may start scans and manage patterns, the
admin role may additionally delete sessions.

The token is printed on stdout so it can be captured directly:

  TOKEN=$(sharescan token)
  sharescan scan ... --remote http://scanhost:8080 --token "$TOKEN"

Examples:
  # Operator token for the current user
  sharescan token

  # Admin token with an explicit subject
  sharescan token --role admin --subject audit-pipeline`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", "operator", "Token role (operator|admin)")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject (default: current OS user)")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	role := auth.Role(tokenRole)
	if !role.Valid() {
		return fmt.Errorf("invalid role %q (use operator or admin)", tokenRole)
	}

	subject := tokenSubject
	if subject == "" {
		if u, err := user.Current(); err == nil {
			subject = u.Username
		} else {
			subject = "operator"
		}
	}

	svc, err := auth.NewJWTService(auth.JWTConfig{
		Secret:        cfg.API.GetJWTSecret(),
		TokenDuration: cfg.API.JWT.TokenDuration,
	})
	if err != nil {
		return fmt.Errorf("cannot mint token (set the secret via %s or api.jwt.secret): %w", api.EnvAPISecret, err)
	}

	tok, err := svc.GenerateToken(subject, role)
	if err != nil {
		return err
	}

	// Token on stdout for capture, details on stderr.
	fmt.Println(tok.AccessToken)
	fmt.Fprintf(os.Stderr, "Role: %s  Subject: %s  Expires: %s\n",
		role, subject, tok.ExpiresAt.Format(time.RFC3339))
	return nil
}
