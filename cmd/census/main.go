package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/census-mcp/internal/census"
	"github.com/dshills/census-mcp/internal/config"
	"github.com/dshills/census-mcp/internal/logging"
	"github.com/dshills/census-mcp/internal/mcp"
	"github.com/dshills/census-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "census",
	Short: "Query censuses of hyperbolic 3-manifolds",
	Long: `census reads SQLite catalogs of hyperbolic 3-manifolds: cusped and closed
censuses, link exteriors and census knots. It can serve them to MCP clients
over stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		// stdout is reserved for results and the MCP protocol
		l, err := logging.New(os.Stderr, loaded.LogFormat, loaded.LogLevel)
		if err != nil {
			return err
		}
		cfg, logger = loaded, l
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the censuses as MCP tools on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		reg, err := openRegistry(ctx)
		if err != nil {
			return err
		}
		server, err := mcp.NewServer(reg, logger)
		if err != nil {
			_ = reg.Close()
			return fmt.Errorf("failed to create MCP server: %w", err)
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		errChan := make(chan error, 1)
		go func() {
			errChan <- server.Serve(ctx)
		}()

		select {
		case sig := <-sigChan:
			logger.Info("shutting down", "signal", sig.String())
			cancel()
			return nil
		case err := <-errChan:
			return err
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	// Needs no configuration
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "census %s\n", version)
		fmt.Fprintf(out, "Build Time: %s\n", buildTime)
		fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
		fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
		fmt.Fprintf(out, "Catalog Schema: %s\n", storage.CurrentSchemaVersion)
	},
}

// openRegistry opens the configured catalogs. Missing catalogs are logged
// and leave their censuses unavailable.
func openRegistry(ctx context.Context) (*census.Registry, error) {
	cache, err := census.NewSchemaCache(cfg.SchemaCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema cache: %w", err)
	}
	return census.OpenRegistry(ctx,
		census.Sources{Database: cfg.Database, AltDatabase: cfg.AltDatabase},
		census.WithLogger(logger),
		census.WithSchemaCache(cache),
	), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file (default $"+config.EnvConfig+")")

	rootCmd.AddCommand(serveCmd, versionCmd)
	addQueryCommands(rootCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
