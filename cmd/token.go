package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zsprackett/timestream/internal/config"
	"github.com/zsprackett/timestream/internal/webserver"
)

var (
	tokenTTL time.Duration

	tokenCmd = &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a bearer token for catalog writes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.EnsureJWTSecret(cfgFile, &cfg); err != nil {
				return fmt.Errorf("persist JWT secret: %w", err)
			}
			ttl := tokenTTL
			if ttl <= 0 {
				ttl = cfg.TokenTTL()
			}
			tok, err := webserver.IssueAccessToken(cfg.Webserver.Auth.JWTSecret, args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to the configured tokenTTL)")
}
