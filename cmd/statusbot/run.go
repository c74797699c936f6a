package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/statusbot"
	"github.com/jpalmerr/statusbot/config"
	"github.com/jpalmerr/statusbot/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
)

// runCmd starts the poll/notify loop.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the status API and send notifications",
	Long: `Start polling the homework status API.

The bot will:
  - Load variables from the env file (.env by default, if present)
  - Load configuration from the YAML file, or use defaults without one
  - Read the source token, messenger token and chat ID from the environment
  - Poll the status API and notify the chat when the verdict changes

A missing secret is fatal: the bot logs the missing variable names and exits
with status 1 before any network call.

The bot runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  statusbot run
  statusbot run -c statusbot.yaml --env-file /etc/statusbot/env`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file (optional)")
	runCmd.Flags().String("env-file", "", "path to a dotenv file (default .env, if present)")
}

// newLogger builds the process logger from the log section of cfg.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*logging.Logger, error) {
	return logging.New(logging.Options{
		Console:      cmd.OutOrStdout(),
		ConsoleLevel: cfg.Log.ConsoleLevel,
		File:         cfg.Log.File,
		FileLevel:    cfg.Log.FileLevel,
		Format:       cfg.Log.Format,
	})
}

func runRun(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	secrets, err := config.LoadSecrets(cfg.Secrets)
	if err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			logger.Fatal("missing required environment variables, stopping",
				zap.Strings("missing", cfgErr.Missing),
			)
		}
		return err
	}

	logger.Info("config loaded",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("provider", cfg.Messenger.Provider),
		zap.Int("port", cfg.Port),
	)

	messenger, err := config.BuildMessenger(cfg, secrets, logger.Named("notify"))
	if err != nil {
		logger.Error("failed to create messenger", zap.Error(err))
		return fmt.Errorf("failed to create messenger: %w", err)
	}

	bot, err := statusbot.New(config.BuildOptions(cfg, secrets, messenger, logger.Logger)...)
	if err != nil {
		return fmt.Errorf("failed to create statusbot: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start the bot - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- bot.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("statusbot error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("statusbot error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				zap.Duration("timeout", shutdownTimeout),
				zap.String("action", "forcing exit"),
			)
			return nil
		}
	}
}
