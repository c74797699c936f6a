package statusbot

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func nopMessenger() Messenger {
	return MessengerFunc(func(context.Context, string) error { return nil })
}

func requiredOptions() []Option {
	return []Option{
		WithSourceToken("practicum-token"),
		WithMessenger(nopMessenger()),
	}
}

func TestNew_Defaults(t *testing.T) {
	bot, err := New(requiredOptions()...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if bot.Endpoint() != DefaultEndpoint {
		t.Errorf("Endpoint() = %q, want %q", bot.Endpoint(), DefaultEndpoint)
	}
	if bot.RetryPeriod() != 600*time.Second {
		t.Errorf("RetryPeriod() = %v, want %v", bot.RetryPeriod(), 600*time.Second)
	}
	if bot.Port() != 0 {
		t.Errorf("Port() = %d, want 0", bot.Port())
	}
	if bot.server != nil {
		t.Error("status server should be disabled by default")
	}
	if bot.advanceCursor {
		t.Error("cursor advancement should be off by default")
	}
}

func TestNew_RequiresSourceToken(t *testing.T) {
	_, err := New(WithMessenger(nopMessenger()))
	if err == nil {
		t.Fatal("New() expected error for missing source token, got nil")
	}
	if !strings.Contains(err.Error(), "source token is required") {
		t.Errorf("New() error = %v, want error containing 'source token is required'", err)
	}
}

func TestNew_RequiresMessenger(t *testing.T) {
	_, err := New(WithSourceToken("practicum-token"))
	if err == nil {
		t.Fatal("New() expected error for missing messenger, got nil")
	}
	if !strings.Contains(err.Error(), "messenger is required") {
		t.Errorf("New() error = %v, want error containing 'messenger is required'", err)
	}
}

func TestNew_StartTimeSetsCursor(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)

	bot, err := New(append(requiredOptions(), WithStartTime(start))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if bot.loop.Cursor() != start.Unix() {
		t.Errorf("Cursor() = %d, want %d", bot.loop.Cursor(), start.Unix())
	}
}

func TestNew_ClockSetsDefaultCursor(t *testing.T) {
	now := time.Unix(1_650_000_000, 0)

	bot, err := New(append(requiredOptions(), WithClock(func() time.Time { return now }))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if bot.loop.Cursor() != now.Unix() {
		t.Errorf("Cursor() = %d, want %d", bot.loop.Cursor(), now.Unix())
	}
}

func TestNew_WithPortEnablesServer(t *testing.T) {
	bot, err := New(append(requiredOptions(), WithPort(9090))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if bot.Port() != 9090 {
		t.Errorf("Port() = %d, want 9090", bot.Port())
	}
	if bot.server == nil {
		t.Error("status server should be created when a port is set")
	}
}

func TestOptions_Valid(t *testing.T) {
	bot, err := New(append(requiredOptions(),
		WithEndpoint("http://localhost:8000/api/"),
		WithRetryPeriod(time.Minute),
		WithRequestTimeout(5*time.Second),
		WithAdvanceCursor(true),
		WithLogger(zap.NewNop()),
		WithHTTPClient(&http.Client{}),
		WithCycleCallback(nil),
	)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if bot.Endpoint() != "http://localhost:8000/api/" {
		t.Errorf("Endpoint() = %q", bot.Endpoint())
	}
	if bot.RetryPeriod() != time.Minute {
		t.Errorf("RetryPeriod() = %v, want 1m", bot.RetryPeriod())
	}
	if bot.requestTimeout != 5*time.Second {
		t.Errorf("requestTimeout = %v, want 5s", bot.requestTimeout)
	}
	if !bot.advanceCursor {
		t.Error("advanceCursor = false, want true")
	}
	if len(bot.cycleCallbacks) != 0 {
		t.Errorf("len(cycleCallbacks) = %d, want 0 for nil callback", len(bot.cycleCallbacks))
	}
}

func TestOptions_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		wantErr string
	}{
		{"endpoint without scheme", WithEndpoint("practicum.yandex.ru/api"), "scheme must be http or https"},
		{"endpoint ftp scheme", WithEndpoint("ftp://example.com/"), "scheme must be http or https"},
		{"endpoint without host", WithEndpoint("http:///path"), "must have a host"},
		{"empty source token", WithSourceToken(""), "source token cannot be empty"},
		{"nil messenger", WithMessenger(nil), "messenger cannot be nil"},
		{"zero retry period", WithRetryPeriod(0), "retry period must be positive"},
		{"negative retry period", WithRetryPeriod(-time.Second), "retry period must be positive"},
		{"zero request timeout", WithRequestTimeout(0), "request timeout must be positive"},
		{"negative port", WithPort(-1), "port must be between 0 and 65535"},
		{"port too large", WithPort(70000), "port must be between 0 and 65535"},
		{"nil logger", WithLogger(nil), "logger cannot be nil"},
		{"nil http client", WithHTTPClient(nil), "http client cannot be nil"},
		{"zero start time", WithStartTime(time.Time{}), "start time cannot be zero"},
		{"nil clock", WithClock(nil), "clock cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(append(requiredOptions(), tt.opt)...)
			if err == nil {
				t.Fatalf("New() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("New() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestWithCycleCallback_RegistrationOrder(t *testing.T) {
	var order []int

	bot, err := New(append(requiredOptions(),
		WithCycleCallback(func(CycleEvent) { order = append(order, 1) }),
		WithCycleCallback(func(CycleEvent) { order = append(order, 2) }),
	)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, cb := range bot.cycleCallbacks {
		cb(CycleEvent{})
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("callback order = %v, want [1 2]", order)
	}
}
