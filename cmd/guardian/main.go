package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configFile    string
	verbose       bool
	jsonOutput    bool
	apiURLFlag    string
	transportFlag string
	caCertFlag    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "guardian",
		Short: "Administer a federation guardian",
		Long: `Drive a federation guardian's admin API: authenticate, walk the
federation through setup and key generation, start consensus, and inspect
the running federation.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON results")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "guardian API URL (overrides FM_CONFIG_API)")
	rootCmd.PersistentFlags().StringVar(&transportFlag, "transport", "", "transport: websocket or grpc (default from URL scheme)")
	rootCmd.PersistentFlags().StringVar(&caCertFlag, "ca-cert", "", "CA certificate for wss:// or grpcs:// endpoints")

	rootCmd.AddCommand(
		statusCmd(),
		authCmd(),
		setupCmd(),
		adminCmd(),
		monitorCmd(),
		configCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func setupLogger(verbose bool, level string) *zap.Logger {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			lvl = zapcore.InfoLevel
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
