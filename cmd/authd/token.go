package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cfiguera/authd"
	"github.com/cfiguera/authd/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint an access token",
	Long: `Mint a signed access token for the given subject.

The token is signed with the configured secret and printed to stdout.
Useful for local testing and for issuing service credentials.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

var tokenPermissions []string

func init() {
	tokenCmd.Flags().StringSliceVar(&tokenPermissions, "permission", nil, "permission to include (repeatable)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	var configFiles []string
	if f, _ := cmd.Flags().GetString("config"); f != "" {
		configFiles = append(configFiles, f)
	}

	cfg, err := config.Load(configFiles, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	validator, err := authd.NewTokenValidator(authd.TokenConfig{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      time.Duration(cfg.Auth.TTLMinutes) * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("create token validator: %w", err)
	}

	token, err := validator.Mint(args[0], tokenPermissions)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}

	fmt.Println(token)
	return nil
}
