package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "authd",
	Short:   "Bearer-token gate and avatar storage for a user-account server",
	Long: `Authd validates bearer tokens in front of HTTP requests and stores
per-user avatar images in a local directory or an S3 bucket.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		readConfig(cmd)
		setupLogging()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("storage-backend", "", "storage backend: local, s3 (default: local, env: AUTHD_STORAGE_BACKEND)")
	rootCmd.PersistentFlags().String("storage-path", "", "storage directory for the local backend (default: ./data, env: AUTHD_STORAGE_PATH)")
	rootCmd.PersistentFlags().String("db-type", "", "metadata database type: sqlite, postgres (default: sqlite, env: AUTHD_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "metadata database connection string (default: authd.db, env: AUTHD_DATABASE_DSN)")

	_ = viper.BindPFlag("storage.backend", rootCmd.PersistentFlags().Lookup("storage-backend"))
	_ = viper.BindPFlag("storage.path", rootCmd.PersistentFlags().Lookup("storage-path"))
	_ = viper.BindPFlag("database.type", rootCmd.PersistentFlags().Lookup("db-type"))
	_ = viper.BindPFlag("database.dsn", rootCmd.PersistentFlags().Lookup("db-dsn"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
