package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const defaultTransportTimeout = 30 * time.Second

// redacted replaces credentials in error text.
const redacted = "<redacted>"

// TransportOptions tunes the HTTP side of a messenger transport.
type TransportOptions struct {
	// APIURL overrides the provider's API base URL. For Telegram it is a
	// format string with two %s verbs: token and method.
	APIURL string

	// HTTPClient is used for API calls. Defaults to a client with a 30s timeout.
	HTTPClient *http.Client

	// Logger receives construction warnings. Nil discards them.
	Logger *zap.Logger
}

func (o TransportOptions) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: defaultTransportTimeout}
}

func (o TransportOptions) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// telegramSender is the part of *tgbotapi.BotAPI used for delivery.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramMessenger sends messages to one Telegram chat.
type TelegramMessenger struct {
	bot   telegramSender
	token string
	chat  string
}

// NewTelegramMessenger creates a messenger for the given bot token and chat.
//
// chatID is either a numeric chat ID or a channel username such as
// "@reviews". The token is checked with getMe: an explicit rejection by the
// API is returned as an error, while a transport failure is only logged and
// delivery is left to the poll cycles.
func NewTelegramMessenger(token, chatID string, opts TransportOptions) (*TelegramMessenger, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, errors.New("telegram chat id is required")
	}

	endpoint := opts.APIURL
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	// built by hand: NewBotAPIWithClient fails on any getMe error
	bot := &tgbotapi.BotAPI{
		Token:  token,
		Client: opts.httpClient(),
		Buffer: 100,
	}
	bot.SetAPIEndpoint(endpoint)

	if self, err := bot.GetMe(); err != nil {
		err = redactToken(err, token)
		if tokenRejected(err) {
			return nil, fmt.Errorf("telegram rejected the bot token: %w", err)
		}
		opts.logger().Warn("telegram getMe failed, bot token not verified", zap.Error(err))
	} else {
		bot.Self = self
	}

	return &TelegramMessenger{bot: bot, token: token, chat: chatID}, nil
}

// Send implements [Messenger].
func (t *TelegramMessenger) Send(ctx context.Context, text string) error {
	// the bot API client has no context support; honour cancellation up front
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := t.bot.Send(t.message(text)); err != nil {
		return fmt.Errorf("telegram sendMessage to %s: %w", t.chat, redactToken(err, t.token))
	}
	return nil
}

// message addresses text to a numeric chat or a channel username.
func (t *TelegramMessenger) message(text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(t.chat, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(t.chat, text)
}

// tokenRejected reports whether err is the API refusing the token itself.
func tokenRejected(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusNotFound
}

// redactToken removes token from err's text. The Bot API puts the token in
// the request path, so transport errors carry it in their URL.
func redactToken(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		clean := &url.Error{
			Op:  urlErr.Op,
			URL: strings.ReplaceAll(urlErr.URL, token, redacted),
			Err: urlErr.Err,
		}
		if !strings.Contains(clean.Error(), token) {
			return clean
		}
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, redacted))
}
