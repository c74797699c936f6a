package main

import (
	"errors"
	"fmt"

	"github.com/jpalmerr/statusbot/config"
	"github.com/spf13/cobra"
)

// validateCmd validates configuration without touching the network.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and secrets",
	Long: `Validate statusbot configuration without starting the bot.

This command loads the env file, parses the YAML, expands environment
variables and validates all fields. It then reports whether each secret
variable is set, without printing its value. No network calls are made.

Exit codes:
  0 - Config is valid and all secrets are set
  1 - Config is invalid or a secret is missing (details printed to stderr)

Example:
  statusbot validate
  statusbot validate -c statusbot.yaml --env-file .env`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (optional)")
	validateCmd.Flags().String("env-file", "", "path to a dotenv file (default .env, if present)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	server := "disabled"
	if cfg.Port > 0 {
		server = fmt.Sprintf("port %d", cfg.Port)
	}
	logFile := cfg.Log.File
	if logFile == "" {
		logFile = "disabled"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Endpoint:        %s\n", cfg.Endpoint)
	fmt.Fprintf(out, "  Retry period:    %s\n", cfg.RetryPeriod)
	fmt.Fprintf(out, "  Request timeout: %s\n", cfg.RequestTimeout)
	fmt.Fprintf(out, "  Advance cursor:  %t\n", cfg.AdvanceCursor)
	fmt.Fprintf(out, "  Messenger:       %s\n", cfg.Messenger.Provider)
	fmt.Fprintf(out, "  Status server:   %s\n", server)
	fmt.Fprintf(out, "  Log file:        %s\n", logFile)

	_, err = config.LoadSecrets(cfg.Secrets)
	var cfgErr *config.ConfigError
	if err != nil && !errors.As(err, &cfgErr) {
		return err
	}

	missing := make(map[string]bool)
	if cfgErr != nil {
		for _, name := range cfgErr.Missing {
			missing[name] = true
		}
	}
	fmt.Fprintf(out, "Secrets:\n")
	for _, name := range []string{cfg.Secrets.SourceTokenEnv, cfg.Secrets.MessengerTokenEnv, cfg.Secrets.ChatIDEnv} {
		state := "set"
		if missing[name] {
			state = "missing"
		}
		fmt.Fprintf(out, "  %-20s %s\n", name, state)
	}

	if cfgErr != nil {
		return cfgErr
	}
	return nil
}
