package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/AmityBot/internal/app"
	"github.com/markdave123-py/AmityBot/internal/config"
)

func main() {
	var logLevel string
	root := &cobra.Command{
		Use:           "amitybot",
		Short:         "Amity University admissions assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(serveCmd(&logLevel), reindexCmd(&logLevel))

	if err := root.Execute(); err != nil {
		slog.Error("amitybot failed", "error", err)
		os.Exit(1)
	}
}

func serveCmd(logLevel *string) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(*logLevel)
			if port != "" {
				cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.NewApp(ctx, cfg, slog.Default())
			if err != nil {
				return err
			}
			defer application.Close()

			slog.Info("amitybot starting", "port", cfg.Port, "index_backend", cfg.IndexBackend)
			err = application.Run(ctx)
			slog.Info("amitybot stopped")
			return err
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

func reindexCmd(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the knowledge base index once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(*logLevel)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.NewApp(ctx, cfg, slog.Default())
			if err != nil {
				return err
			}
			defer application.Close()

			report, err := application.Ingestor.Reindex(ctx)
			if err != nil {
				return err
			}
			slog.Info("reindex complete",
				"documents_indexed", report.DocumentsIndexed,
				"documents_skipped", report.DocumentsSkipped,
				"chunks", report.Chunks,
				"duration", report.Duration.String(),
			)
			return nil
		},
	}
}

func loadConfig(levelFlag string) *config.Config {
	cfg := config.LoadConfig()
	if levelFlag != "" {
		cfg.LogLevel = levelFlag
	}
	setupLogging(cfg.LogLevel)
	return cfg
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
