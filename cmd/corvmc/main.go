package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/DevonCash/corvmc-backend/internal/app"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "corvmc",
	Short: "Community music collective backend",
	Long: `Backend service for the community music collective: practice space
reservations, the member credit ledger, recurring bookings, and the
equipment lending library.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server with background sweeps",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return app.RunServer(ctx, configPath)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and seed default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return app.Migrate(ctx, configPath)
	},
}

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Run one recurring series expansion sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return app.Expand(ctx, configPath)
	},
}

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Run the monthly credit allocation for active members",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return app.Allocate(ctx, configPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(allocateCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
