package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tournevent/pakettikauppa/internal/server"
	"go.uber.org/zap"
)

var version = "1.0.0"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "pakettikauppa",
	Short:         "Pakettikauppa shipment API client",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP bridge",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.profile, "profile", "", "credential profile (overrides PAKETTIKAUPPA_PROFILE)")
	rootCmd.PersistentFlags().BoolVar(&flags.testMode, "test", false, "use the public sandbox account")
	rootCmd.PersistentFlags().BoolVar(&flags.mock, "mock", false, "answer from the built-in mock instead of the API")

	serveCmd.Flags().IntVar(&flags.port, "port", 0, "listen port (overrides PORT)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.close(ctx)

	if flags.port != 0 {
		env.cfg.Port = flags.port
	}

	// Resolve once so bad credentials fail at startup, not per request.
	if _, err := env.cfg.ClientConfig().Resolve(); err != nil {
		return err
	}

	env.logger.Info("Starting Pakettikauppa bridge",
		zap.Int("port", env.cfg.Port),
		zap.String("version", env.cfg.Version),
	)

	srv := server.New(server.Config{Port: env.cfg.Port, Gatherer: env.registry}, env.newClient, env.logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
