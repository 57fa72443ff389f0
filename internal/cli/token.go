package cli

import (
	"fmt"
	"time"

	"prediction-pool/internal/auth"
	"prediction-pool/internal/config"

	"github.com/spf13/cobra"
)

// NewOrganizerTokenCmd mints an organizer bearer token for the API.
func NewOrganizerTokenCmd(configPath *string) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "organizer-token <organizer-id>",
		Short: "Issue an organizer bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.OrganizerSecret == "" {
				return fmt.Errorf("organizer secret not configured")
			}
			token, err := auth.NewOrganizerTokens(cfg.Auth.OrganizerSecret).Issue(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
