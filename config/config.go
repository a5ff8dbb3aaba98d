// Package config loads and validates authd configuration from files,
// environment variables, and CLI flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	authdhttp "github.com/cfiguera/authd/http"
	"github.com/cfiguera/authd/metadata"
)

// Config is the root configuration struct for authd.
type Config struct {
	Server   ServerConfig         `mapstructure:"server"`
	Storage  StorageConfig        `mapstructure:"storage"`
	Database metadata.Config      `mapstructure:"database"`
	Auth     AuthConfig           `mapstructure:"auth"`
	Avatar   AvatarConfig         `mapstructure:"avatar"`
	CORS     authdhttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig            `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int   `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize int64 `mapstructure:"max_upload_size" validate:"min=0"`
}

// StorageConfig holds object storage configuration. Backend selects the
// implementation once at startup; local and s3 are never mixed at runtime.
type StorageConfig struct {
	Backend   string `mapstructure:"backend" validate:"required,oneof=local s3"`
	Path      string `mapstructure:"path" validate:"required_if=Backend local"`
	PublicURL string `mapstructure:"public_url"`
	Bucket    string `mapstructure:"bucket" validate:"required_if=Backend s3"`
	Region    string `mapstructure:"region"`
}

// AuthConfig holds token verification configuration. The secret comes from
// the environment in production (AUTHD_AUTH_SECRET).
type AuthConfig struct {
	Secret        string `mapstructure:"secret" validate:"required"`
	Issuer        string `mapstructure:"issuer"`
	Audience      string `mapstructure:"audience"`
	LeewaySeconds int    `mapstructure:"leeway_seconds" validate:"min=0"`
	TTLMinutes    int    `mapstructure:"ttl_minutes" validate:"min=0"`
}

// AvatarConfig holds avatar resolution configuration.
type AvatarConfig struct {
	GravatarURL         string `mapstructure:"gravatar_url"`
	InitialsURL         string `mapstructure:"initials_url"`
	FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds" validate:"min=0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":            "server.port",
	"storage-backend": "storage.backend",
	"storage-path":    "storage.path",
	"bucket":          "storage.bucket",
	"region":          "storage.region",
	"db-type":         "database.type",
	"db-dsn":          "database.dsn",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_size", 0) // 0 means the handler default

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.public_url", "/files")
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "authd.db")
	v.SetDefault("database.table", "authd_objects")

	v.SetDefault("storage.bucket", "")

	// Registering the string keys (even as empty) keeps env-only values like
	// AUTHD_AUTH_SECRET visible to Unmarshal.
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.leeway_seconds", 0)
	v.SetDefault("auth.ttl_minutes", 60)

	v.SetDefault("avatar.gravatar_url", "")
	v.SetDefault("avatar.initials_url", "")
	v.SetDefault("avatar.fetch_timeout_seconds", 5)

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("AUTHD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
