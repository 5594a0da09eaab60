// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/rollcall/apiclient"
	"github.com/danielhkuo/rollcall/cliparse"
	"github.com/danielhkuo/rollcall/console"
	"github.com/danielhkuo/rollcall/dashboard"
	"github.com/danielhkuo/rollcall/db"
	"github.com/danielhkuo/rollcall/handlers"
	"github.com/danielhkuo/rollcall/middleware"
	"github.com/danielhkuo/rollcall/querycache"
	"github.com/danielhkuo/rollcall/resources"
	"github.com/danielhkuo/rollcall/router"
	"github.com/danielhkuo/rollcall/session"
)

func main() {
	cliparse.LoadDotEnv()

	root := &cobra.Command{
		Use:           "rollcall",
		Short:         "Electoral roll administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(backendCmd(), consoleCmd(), createAdminCmd())

	if err := root.Execute(); err != nil {
		slog.Error("rollcall failed", "error", err)
		os.Exit(1)
	}
}

// The backend and console parse their own flags so the environment
// fallbacks live in one place.
func backendCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "backend [flags]",
		Short:              "Run the REST backend",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cliparse.ParseBackendFlags(args)
			if err != nil {
				return err
			}

			conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.CreateSchema(conn); err != nil {
				return fmt.Errorf("schema creation failed: %w", err)
			}
			slog.Info("Database schema ready", "type", cfg.DatabaseType)

			if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
				return fmt.Errorf("create upload dir: %w", err)
			}

			return serve("backend", cfg.Port, middleware.CORS(router.NewRouter(conn, cfg)))
		},
	}
}

func consoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "console [flags]",
		Short:              "Run the administrative console",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cliparse.ParseConsoleFlags(args)
			if err != nil {
				return err
			}

			store := session.NewFileStore(cfg.SessionFile)
			client := apiclient.New(cfg.BackendURL, store)

			opts := querycache.DefaultOptions()
			opts.Retries = cfg.QueryRetries
			opts.StaleTime = cfg.StaleTime
			opts.CacheTime = cfg.CacheTime
			opts.ShouldRetry = apiclient.Retryable
			cache := querycache.New(opts)

			var dash dashboard.Aggregator = dashboard.NewPlaceholder()
			if cfg.LiveDashboard {
				dash = dashboard.NewLive(resources.New(client))
			}

			srv, err := console.New(cfg.BackendURL, client, cache, dash)
			if err != nil {
				return err
			}

			slog.Info("Console ready", "backend", cfg.BackendURL, "session_file", store.Path(), "live_dashboard", cfg.LiveDashboard)
			return serve("console", cfg.Port, srv.Handler())
		},
	}
}

func createAdminCmd() *cobra.Command {
	var name, email, password, dbURL, dbType string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Add an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if password == "" {
				return errors.New("password required (use --password or ADMIN_PASSWORD env)")
			}
			if dbURL == "" {
				dbURL = envOr("DATABASE_URL", "file:rollcall.db")
			}
			if dbType == "" {
				dbType = envOr("DATABASE_TYPE", "sqlite")
			}

			conn, err := db.Open(dbType, dbURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.CreateSchema(conn); err != nil {
				return fmt.Errorf("schema creation failed: %w", err)
			}

			admin, err := handlers.CreateAdmin(conn, name, email, password)
			if err != nil {
				return err
			}
			slog.Info("Admin created", "admin_id", admin.ID, "email", admin.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Sign-in email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prefer ADMIN_PASSWORD env)")
	cmd.Flags().StringVarP(&dbURL, "database", "d", "", "Database URL")
	cmd.Flags().StringVarP(&dbType, "type", "t", "", "Database type (sqlite or postgres)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// serve runs handler until Ctrl-C or SIGTERM.
func serve(name string, port int, handler http.Handler) error {
	server := http.Server{
		Handler: handler,
		Addr:    ":" + strconv.Itoa(port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctrlc
		server.Close()
	}()

	slog.Info("Listening", "server", name, "port", port)
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	slog.Info("Server closed", "server", name)
	return nil
}
