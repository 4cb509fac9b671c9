package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kharcha-app/kharcha/internal/api"
	"github.com/kharcha-app/kharcha/internal/config"
	"github.com/kharcha-app/kharcha/internal/ledger"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Start the kharcha API server.

The server verifies bearer tokens issued by your identity provider and
scopes every operation to the token's subject. It refuses to start
without a configured signing secret.`,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "listen address (default :8080)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	// A .env next to the binary is honored for local development.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.ListenAddr = listen
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	server := api.NewServer(store, ledger.New(store), api.Config{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	return server.Run(cfg.ListenAddr)
}
