package statusbot

import (
	"context"
	"net/http"
	"time"

	"github.com/jpalmerr/statusbot/internal/notify"
	"go.uber.org/zap"
)

// Messenger delivers one text message to the configured chat.
//
// Implementations must return an error when delivery fails; the bot then
// keeps its state and retries the same message on the next cycle.
type Messenger interface {
	Send(ctx context.Context, text string) error
}

// MessengerFunc adapts a function to the [Messenger] interface.
type MessengerFunc func(ctx context.Context, text string) error

// Send calls f(ctx, text).
func (f MessengerFunc) Send(ctx context.Context, text string) error {
	return f(ctx, text)
}

// MessengerOptions tunes the transport built by [NewMessenger].
type MessengerOptions struct {
	// APIURL overrides the provider's API base URL. For Telegram it is a
	// format string with two %s verbs, token and method.
	APIURL string

	// Timeout bounds each API call when HTTPClient is nil. Defaults to 30s.
	Timeout time.Duration

	// HTTPClient is used for API calls. Takes precedence over Timeout.
	HTTPClient *http.Client

	// Logger receives construction warnings, such as an unreachable API.
	Logger *zap.Logger
}

// NewMessenger builds a chat transport. provider is "telegram" (the default
// when empty) or "slack"; chat is the Telegram chat ID or the Slack channel.
//
// Telegram checks the token with a getMe call, so NewMessenger performs
// network I/O for that provider. Only an explicit rejection of the token is
// an error; an unreachable API is logged and left to the poll cycles.
//
// Returns an error if the provider is unknown or the credentials are rejected.
func NewMessenger(provider, token, chat string, opts MessengerOptions) (Messenger, error) {
	client := opts.HTTPClient
	if client == nil && opts.Timeout > 0 {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return notify.NewMessenger(notify.Provider(provider), token, chat, notify.TransportOptions{
		APIURL:     opts.APIURL,
		HTTPClient: client,
		Logger:     opts.Logger,
	})
}
