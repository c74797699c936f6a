package config

import (
	"errors"

	"github.com/jpalmerr/statusbot"
	"go.uber.org/zap"
)

// BuildMessenger creates the chat transport selected by cfg.
//
// For Telegram this checks the bot token against the API, so it performs
// network I/O. A nil logger discards construction warnings.
func BuildMessenger(cfg *Config, secrets Secrets, logger *zap.Logger) (statusbot.Messenger, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	return statusbot.NewMessenger(cfg.Messenger.Provider, secrets.MessengerToken, secrets.ChatID, statusbot.MessengerOptions{
		APIURL:  cfg.Messenger.APIURL,
		Timeout: cfg.RequestTimeout.Duration(),
		Logger:  logger,
	})
}

// BuildOptions converts parsed configuration into SDK options.
//
// A nil logger leaves the bot's default in place. Extra options are
// appended after the configured ones and so take precedence.
func BuildOptions(cfg *Config, secrets Secrets, messenger statusbot.Messenger, logger *zap.Logger, extra ...statusbot.Option) []statusbot.Option {
	opts := []statusbot.Option{
		statusbot.WithEndpoint(cfg.Endpoint),
		statusbot.WithSourceToken(secrets.SourceToken),
		statusbot.WithMessenger(messenger),
		statusbot.WithRetryPeriod(cfg.RetryPeriod.Duration()),
		statusbot.WithRequestTimeout(cfg.RequestTimeout.Duration()),
		statusbot.WithAdvanceCursor(cfg.AdvanceCursor),
		statusbot.WithPort(cfg.Port),
	}

	if logger != nil {
		opts = append(opts, statusbot.WithLogger(logger))
	}

	return append(opts, extra...)
}
