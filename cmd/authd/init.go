package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file interactively",
	Long: `Create a configuration file interactively.

You will be prompted for:
  - Server port
  - Storage backend (local or s3) and its settings
  - Signing secret (generated if left empty)

The result is written as YAML to the given path (default config.yaml).`,
	RunE: runInit,
}

var initOutput string

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "config.yaml", "output file path")
	rootCmd.AddCommand(initCmd)
}

// fileConfig mirrors the config package layout for YAML output. Only the
// settings the prompts cover are written; everything else keeps its default.
type fileConfig struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path,omitempty"`
		Bucket  string `yaml:"bucket,omitempty"`
		Region  string `yaml:"region,omitempty"`
	} `yaml:"storage"`
	Database struct {
		Type string `yaml:"type"`
		DSN  string `yaml:"dsn"`
	} `yaml:"database,omitempty"`
	Auth struct {
		Secret string `yaml:"secret"`
	} `yaml:"auth"`
}

func runInit(_ *cobra.Command, _ []string) error {
	if _, err := os.Stat(initOutput); err == nil {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("File '%s' already exists. Overwrite it", initOutput),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	var cfg fileConfig

	portPrompt := promptui.Prompt{
		Label:   "Server port",
		Default: "8080",
		Validate: func(input string) error {
			port, err := strconv.Atoi(input)
			if err != nil {
				return errors.New("port must be a number")
			}
			if port < 1 || port > 65535 {
				return errors.New("port must be between 1 and 65535")
			}
			return nil
		},
	}
	portVal, err := portPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portVal)

	backendSelect := promptui.Select{
		Label: "Storage backend",
		Items: []string{"local", "s3"},
	}
	_, backend, err := backendSelect.Run()
	if err != nil {
		return handlePromptError(err)
	}
	cfg.Storage.Backend = backend

	switch backend {
	case "local":
		pathPrompt := promptui.Prompt{
			Label:   "Storage directory",
			Default: "./data",
			Validate: func(input string) error {
				if input == "" {
					return errors.New("storage directory is required")
				}
				return nil
			},
		}
		cfg.Storage.Path, err = pathPrompt.Run()
		if err != nil {
			return handlePromptError(err)
		}

		dbSelect := promptui.Select{
			Label: "Metadata database",
			Items: []string{"sqlite", "postgres"},
		}
		_, dbType, selErr := dbSelect.Run()
		if selErr != nil {
			return handlePromptError(selErr)
		}
		cfg.Database.Type = dbType

		dsnDefault := "authd.db"
		if dbType == "postgres" {
			dsnDefault = "postgres://localhost:5432/authd"
		}
		dsnPrompt := promptui.Prompt{
			Label:   "Database DSN",
			Default: dsnDefault,
			Validate: func(input string) error {
				if input == "" {
					return errors.New("DSN is required")
				}
				return nil
			},
		}
		cfg.Database.DSN, err = dsnPrompt.Run()
		if err != nil {
			return handlePromptError(err)
		}

	case "s3":
		bucketPrompt := promptui.Prompt{
			Label: "S3 bucket",
			Validate: func(input string) error {
				if input == "" {
					return errors.New("bucket name is required")
				}
				return nil
			},
		}
		cfg.Storage.Bucket, err = bucketPrompt.Run()
		if err != nil {
			return handlePromptError(err)
		}

		regionPrompt := promptui.Prompt{
			Label:   "AWS region",
			Default: "us-east-1",
		}
		cfg.Storage.Region, err = regionPrompt.Run()
		if err != nil {
			return handlePromptError(err)
		}
	}

	secretPrompt := promptui.Prompt{
		Label: "Signing secret (empty to generate)",
		Mask:  '*',
	}
	secretVal, err := secretPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	if secretVal == "" {
		secretVal, err = generateSecret()
		if err != nil {
			return fmt.Errorf("generate secret: %w", err)
		}
		fmt.Println("Generated a random signing secret.")
	}
	cfg.Auth.Secret = secretVal

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(initOutput, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Configuration written to %s\n", initOutput)
	return nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
