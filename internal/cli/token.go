package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"chorequest/internal/config"
	"chorequest/internal/security"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Int64("family", 0, "Family ID (required)")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token for a family",
	RunE:  runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	familyID, err := familyFlag(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	issuer, err := security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	token, err := issuer.Issue(familyID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
