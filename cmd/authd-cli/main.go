package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cfiguera/authd/client"
)

var (
	version = "dev"

	cfgFile     string
	profileName string
	endpoint    string
	token       string
)

var rootCmd = &cobra.Command{
	Use:     "authd-cli",
	Version: version,
	Short:   "Client for the authd avatar service",
	Long: `Authd CLI - client for the authd avatar service.

Connection settings come from (highest precedence first): flags,
environment variables (AUTHD_CLI_ENDPOINT, AUTHD_CLI_TOKEN), and the
selected profile in the config file (~/.authd/config.yaml).`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.authd/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "profile name (env: AUTHD_CLI_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "server URL (default: http://localhost:8080, env: AUTHD_CLI_ENDPOINT)")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", "", "bearer token (env: AUTHD_CLI_TOKEN)")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// getConfigPath resolves the config file path from the flag, the
// environment, or the default location.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := client.ConfigPathFromEnv(); p != "" {
		return p
	}
	return client.DefaultConfigPath()
}

// buildConfig merges config from the selected profile, env vars, and flags
// (flags take precedence).
func buildConfig() (*client.Config, error) {
	var configs []*client.Config

	name := profileName
	if name == "" {
		name = client.ProfileFromEnv()
	}

	if configPath := getConfigPath(); configPath != "" {
		if fileCfg, err := client.LoadConfigFile(configPath); err == nil {
			profile, profileErr := fileCfg.GetProfile(name)
			if profileErr != nil && name != "" {
				return nil, profileErr
			}
			if profileErr == nil {
				configs = append(configs, client.ConfigFromProfile(profile))
			}
		} else if cfgFile != "" {
			// Only fail when the user explicitly named a config file.
			return nil, err
		}
	}

	configs = append(configs, client.ConfigFromEnv())
	configs = append(configs, &client.Config{Endpoint: endpoint, Token: token})

	return client.MergeConfig(configs...), nil
}

// getClient creates and returns a configured client.
func getClient() (*client.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	return client.New(cfg)
}
