// talondash — Single-binary host dashboard: system, network, disks, drives & Docker.
// Author: vesaa | License: MIT | https://github.com/vesaa/talondash
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vesaa/talondash/internal/command"
	"github.com/vesaa/talondash/internal/config"
	"github.com/vesaa/talondash/internal/containers"
	"github.com/vesaa/talondash/internal/counter"
	"github.com/vesaa/talondash/internal/drives"
	"github.com/vesaa/talondash/internal/host"
	"github.com/vesaa/talondash/internal/logging"
	"github.com/vesaa/talondash/internal/server"
	"github.com/vesaa/talondash/internal/store"
	"github.com/vesaa/talondash/internal/thermal"
	"github.com/vesaa/talondash/internal/tiles"
)

const asciiLogo = `
  ▀█▀ ▄▀█ █   █▀█ █▄ █ █▀▄ ▄▀█ █▀ █ █
   █  █▀█ █▄▄ █▄█ █ ▀█ █▄▀ █▀█ ▄█ █▀█
`

const version = "v0.1.0"

func printBanner(mode string) {
	fmt.Print(asciiLogo + "\n")
	fmt.Printf("  ► talondash %s  |  Author: vesaa  |  Mode: %s\n\n", version, mode)
}

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:   "talondash",
		Short: "talondash — live host dashboard in a single binary",
		Long: `talondash serves an on-demand dashboard of the machine it runs on:
system info, network throughput, memory, disks, SMART drive health,
thermal zones and Docker containers.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to talondash.yaml (default ./ or ~/.talondash)")

	// ── serve subcommand ──────────────────────────────────────────────────────
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner("SERVE")

			cfg, logger, err := setup(cfgPath)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			db, err := store.Open(cfg.DB.Driver, cfg.DB.Path, logger.Named("store"))
			if err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}
			defer db.Close()

			if cfg.Auth.JWTSecretGenerated {
				logger.Warn("auth.jwt_secret not set, using a random secret; tokens are invalidated on restart")
			}
			if cfg.Auth.DefaultPassword() {
				logger.Warn("admin login still uses the built-in password; set auth.admin_password_hash",
					zap.String("user", cfg.Auth.AdminUser))
			}

			docker := containers.NewClient(command.NewLocal(cfg.Docker.CommandTimeout), cfg.Docker.Path)
			auth := server.NewAuthenticator(server.Credentials{
				JWTSecret:         cfg.Auth.JWTSecret,
				AdminUser:         cfg.Auth.AdminUser,
				AdminPassword:     cfg.Auth.AdminPassword,
				AdminPasswordHash: cfg.Auth.AdminPasswordHash,
				TokenTTL:          cfg.Auth.TokenTTL,
			})
			srv := server.New(server.Deps{
				Snapshots:    newAggregator(cfg, logger, counter.NewStore()),
				Containers:   docker,
				Actions:      db,
				Auth:         auth,
				Logger:       logger.Named("http"),
				MaxBodyBytes: cfg.Server.MaxBodyBytes,
			})

			addr := cfg.Server.Addr()
			fmt.Printf("  ✓ Dashboard + API → http://%s\n", addr)

			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() { errCh <- httpSrv.ListenAndServe() }()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case sig := <-quit:
				logger.Info("shutting down", zap.String("signal", sig.String()))
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return httpSrv.Shutdown(ctx)
			}
		},
	}

	// ── snapshot subcommand ───────────────────────────────────────────────────
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Build one snapshot locally and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cfgPath)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			raw, _ := cmd.Flags().GetString("tiles")
			pretty, _ := cmd.Flags().GetBool("pretty")
			warmup, _ := cmd.Flags().GetDuration("warmup")

			names, err := tiles.ParseNames(raw)
			if err != nil {
				return err
			}
			agg := newAggregator(cfg, logger, counter.NewStore())
			ctx := cmd.Context()

			if warmup > 0 && slices.Contains(names, tiles.IPAddresses) {
				if _, err := agg.BuildSnapshot(ctx, []tiles.Name{tiles.IPAddresses}); err != nil {
					return err
				}
				select {
				case <-time.After(warmup):
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			snap, err := agg.BuildSnapshot(ctx, names)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(snap)
		},
	}
	snapshotCmd.Flags().String("tiles", "systemInfo", "Comma separated tile names (see 'talondash tiles')")
	snapshotCmd.Flags().Bool("pretty", false, "Indent the JSON output")
	snapshotCmd.Flags().Duration("warmup", 0, "Sample network counters once and wait this long so rates are known")

	// ── tiles subcommand ──────────────────────────────────────────────────────
	tilesCmd := &cobra.Command{
		Use:   "tiles",
		Short: "List the tile names a snapshot accepts",
		Run: func(cmd *cobra.Command, args []string) {
			for _, n := range tiles.AllNames() {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
		},
	}

	// ── hash-password subcommand ──────────────────────────────────────────────
	hashCmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for auth.admin_password_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := server.HashPassword(args[0])
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	// ── version subcommand ────────────────────────────────────────────────────
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print talondash version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("talondash %s  |  Author: vesaa\n", version)
		},
	}

	root.AddCommand(serveCmd, snapshotCmd, tilesCmd, hashCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config and builds the root logger.
func setup(cfgPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	return cfg, logger, nil
}

// newAggregator wires every tile source against the local host.
func newAggregator(cfg *config.Config, logger *zap.Logger, counters *counter.Store) *tiles.Aggregator {
	runner := command.NewLocal(cfg.Tiles.Timeout)
	prober := drives.NewProber(runner, drives.Options{
		LsblkPath:      cfg.Drives.LsblkPath,
		SmartctlPath:   cfg.Drives.SmartctlPath,
		UseSudo:        cfg.Drives.UseSudo,
		ProbeTimeout:   cfg.Drives.ProbeTimeout,
		MaxConcurrency: cfg.Drives.MaxConcurrency,
	}, logger.Named("drives"))
	return tiles.New(tiles.Sources{
		Host:       host.NewGopsutil(),
		Disks:      tiles.NewDf(runner, cfg.Disk.DfPath),
		Drives:     prober,
		Containers: containers.NewClient(command.NewLocal(cfg.Docker.CommandTimeout), cfg.Docker.Path),
		Thermal:    thermal.NewReader(afero.NewOsFs(), cfg.Thermal.Dir, logger.Named("thermal")),
		Counters:   counters,
	}, cfg.Tiles.Timeout, logger.Named("tiles"))
}
