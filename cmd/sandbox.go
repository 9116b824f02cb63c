package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/aasandbox"
	"github.com/zmrishh/moneyai/internal/output"
)

var sandboxCmd = &cobra.Command{
	Use:     "sandbox",
	Short:   "Run the local AA gateway simulator",
	GroupID: "linking",
	Long: `Starts an in-memory Account Aggregator gateway on localhost for trying
the link flow without a real AA. Seeded with three banks; the OTP is
always 123456. Nothing persists across restarts.`,
	Example: `  moneyai sandbox
  moneyai sandbox --addr :9600 --api-key secret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		apiKey, _ := cmd.Flags().GetString("api-key")
		logLevel, _ := cmd.Flags().GetString("log-level")

		var level slog.Level
		switch strings.ToLower(logLevel) {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		opts := []aasandbox.Option{aasandbox.WithLogger(logger)}
		if apiKey != "" {
			opts = append(opts, aasandbox.WithAPIKey(apiKey))
		}

		srv, err := aasandbox.New(opts...)
		if err != nil {
			output.Error("create sandbox: %v", err)
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := srv.Start(addr); err != nil {
			srv.Close()
			output.Error("start sandbox: %v", err)
			return err
		}
		logger.Info("sandbox gateway started", "addr", srv.Addr(), "otp", "123456")

		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "err", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sandboxCmd)

	sandboxCmd.Flags().String("addr", ":8488", "Listen address")
	sandboxCmd.Flags().String("api-key", "", "Require this exact API key (default: any non-empty key)")
	sandboxCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
}
