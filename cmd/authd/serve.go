package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cfiguera/authd"
	"github.com/cfiguera/authd/config"
	"github.com/cfiguera/authd/filesystem"
	authdhttp "github.com/cfiguera/authd/http"
	"github.com/cfiguera/authd/metadata"
	"github.com/cfiguera/authd/s3"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the authd HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var configFiles []string
	if f, _ := cmd.Flags().GetString("config"); f != "" {
		configFiles = append(configFiles, f)
	}

	cfg, err := config.Load(configFiles, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	storage, cleanup, err := buildStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	avatars := authd.NewAvatarService(storage, authd.AvatarConfig{
		GravatarURL:  cfg.Avatar.GravatarURL,
		InitialsURL:  cfg.Avatar.InitialsURL,
		FetchTimeout: time.Duration(cfg.Avatar.FetchTimeoutSeconds) * time.Second,
	})

	validator, err := authd.NewTokenValidator(authd.TokenConfig{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Leeway:   time.Duration(cfg.Auth.LeewaySeconds) * time.Second,
		TTL:      time.Duration(cfg.Auth.TTLMinutes) * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("create token validator: %w", err)
	}

	handlerConfig := authdhttp.HandlerConfig{
		Routes:        authd.DefaultRouteTable(),
		Validator:     validator,
		CORS:          cfg.CORS,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	}

	handler := authdhttp.NewHandler(&handlerConfig, avatars)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "storage", cfg.Storage.Backend)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// buildStorage constructs the configured storage backend. The returned
// cleanup closes whatever the backend holds open.
func buildStorage(ctx context.Context, cfg *config.Config) (authd.FileStorage, func(), error) {
	switch cfg.Storage.Backend {
	case "local":
		if err := os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create storage directory: %w", err)
		}

		root, err := os.OpenRoot(cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open storage root: %w", err)
		}

		repo, closeDB, err := metadata.Connect(ctx, cfg.Database)
		if err != nil {
			_ = root.Close()
			return nil, nil, fmt.Errorf("connect metadata: %w", err)
		}
		slog.Info("connected to metadata database", "type", cfg.Database.Type)

		cleanup := func() {
			closeDB()
			_ = root.Close()
		}
		return filesystem.New(root, repo, cfg.Storage.PublicURL), cleanup, nil

	case "s3":
		store, err := s3.New(ctx, s3.Config{
			Bucket: cfg.Storage.Bucket,
			Region: cfg.Storage.Region,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create s3 store: %w", err)
		}
		return store, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
