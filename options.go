package statusbot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// botConfig holds mutable state during Bot construction.
type botConfig struct {
	endpoint       string
	sourceToken    string
	messenger      Messenger
	retryPeriod    time.Duration
	requestTimeout time.Duration
	advanceCursor  bool
	port           int
	logger         *zap.Logger
	httpClient     *http.Client
	startTime      time.Time
	now            func() time.Time
	sleep          func(ctx context.Context, d time.Duration) error
	cycleCallbacks []func(CycleEvent)
}

// Option is a function that configures a [Bot] during construction.
//
// Option implements the functional options pattern. Options return an error
// if validation fails, and [New] returns that error unchanged.
type Option func(*botConfig) error

// WithEndpoint sets the status API URL polled every cycle.
//
// Defaults to the homework status API. Returns an error unless the URL is
// absolute with an http or https scheme.
func WithEndpoint(rawURL string) Option {
	return func(cfg *botConfig) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("invalid endpoint: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("endpoint scheme must be http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return errors.New("endpoint must have a host")
		}
		cfg.endpoint = rawURL
		return nil
	}
}

// WithSourceToken sets the OAuth token sent to the status API. Required.
//
// Returns an error if the token is empty.
func WithSourceToken(token string) Option {
	return func(cfg *botConfig) error {
		if token == "" {
			return errors.New("source token cannot be empty")
		}
		cfg.sourceToken = token
		return nil
	}
}

// WithMessenger sets the transport that delivers chat messages. Required.
//
// Example:
//
//	m, err := statusbot.NewMessenger("telegram", token, chatID, statusbot.MessengerOptions{})
//	if err != nil {
//	    return err
//	}
//	bot, err := statusbot.New(
//	    statusbot.WithSourceToken(practicumToken),
//	    statusbot.WithMessenger(m),
//	)
//
// Returns an error if the messenger is nil.
func WithMessenger(m Messenger) Option {
	return func(cfg *botConfig) error {
		if m == nil {
			return errors.New("messenger cannot be nil")
		}
		cfg.messenger = m
		return nil
	}
}

// WithRetryPeriod sets the pause after every cycle, successful or not.
// Defaults to 600 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRetryPeriod(d time.Duration) Option {
	return func(cfg *botConfig) error {
		if d <= 0 {
			return errors.New("retry period must be positive")
		}
		cfg.retryPeriod = d
		return nil
	}
}

// WithRequestTimeout bounds each request to the status API.
// Defaults to 30 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *botConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithAdvanceCursor controls whether from_date moves forward to the
// server's current_date after each successful cycle.
//
// Off by default: every cycle queries from the start time.
func WithAdvanceCursor(enabled bool) Option {
	return func(cfg *botConfig) error {
		cfg.advanceCursor = enabled
		return nil
	}
}

// WithPort enables the status server on the given port.
//
// The server exposes /api/status, /api/sse, /healthz and /metrics. Port 0,
// the default, disables it.
//
// Returns an error if the port is outside 0-65535.
func WithPort(port int) Option {
	return func(cfg *botConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port must be between 0 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets the [zap.Logger] for the bot. Components log through
// named children ("poller", "notify", "server").
//
// If not specified, logs are discarded.
//
// Returns an error if the logger is nil.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *botConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithHTTPClient sets the client used to query the status API.
//
// Defaults to a pooled client that honours proxy environment variables.
//
// Returns an error if the client is nil.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *botConfig) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		cfg.httpClient = client
		return nil
	}
}

// WithStartTime sets the initial from_date. Defaults to the time [New] is
// called.
//
// Returns an error if t is the zero time.
func WithStartTime(t time.Time) Option {
	return func(cfg *botConfig) error {
		if t.IsZero() {
			return errors.New("start time cannot be zero")
		}
		cfg.startTime = t
		return nil
	}
}

// WithClock replaces time.Now for cycle timestamps and the default start
// time.
//
// Returns an error if now is nil.
func WithClock(now func() time.Time) Option {
	return func(cfg *botConfig) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.now = now
		return nil
	}
}

// WithCycleCallback registers a function called after every cycle.
//
// The callback receives a [CycleEvent] describing the outcome, including
// failures. Multiple callbacks run in registration order.
//
// Callbacks run synchronously on the poll goroutine and must not block.
// Panics are recovered and logged.
//
// Example:
//
//	bot, err := statusbot.New(
//	    statusbot.WithSourceToken(token),
//	    statusbot.WithMessenger(m),
//	    statusbot.WithCycleCallback(func(e statusbot.CycleEvent) {
//	        if e.Failed() {
//	            alerts.Inc()
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithCycleCallback(cb func(CycleEvent)) Option {
	return func(cfg *botConfig) error {
		if cb == nil {
			return nil
		}
		cfg.cycleCallbacks = append(cfg.cycleCallbacks, cb)
		return nil
	}
}
