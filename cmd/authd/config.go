package main

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	setDefaults()
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("storage.backend", "local")
	viper.SetDefault("storage.path", "./data")
	viper.SetDefault("storage.public_url", "/files")
	viper.SetDefault("storage.region", "us-east-1")

	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.dsn", "authd.db")
	viper.SetDefault("database.table", "authd_objects")

	viper.SetDefault("auth.ttl_minutes", 60)

	viper.SetDefault("avatar.fetch_timeout_seconds", 5)

	viper.SetDefault("log.level", "info")
}

func readConfig(cmd *cobra.Command) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		slog.Warn("failed to bind flags", "err", err)
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("AUTHD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			slog.Warn("error reading config file", "err", err)
		}
	}
}
