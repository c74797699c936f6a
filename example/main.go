// Example of embedding statusbot as a library against a local mock status
// API, with messages printed to the console instead of a chat.
//
// Usage:
//
//	go run ./example
package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/statusbot"
	"github.com/jpalmerr/statusbot/internal/logging"
	"go.uber.org/zap"
)

// newLogger logs to console only, in the same layout as the CLI.
func newLogger(console io.Writer) (*logging.Logger, error) {
	return logging.New(logging.Options{Console: console, ConsoleLevel: "debug"})
}

func main() {
	l, err := newLogger(os.Stdout)
	if err != nil {
		panic(err)
	}
	defer l.Close()
	logger := l.Logger

	// start mock status API (see mock_server.go)
	ln, err := net.Listen("tcp", "127.0.0.1:9999")
	if err != nil {
		logger.Fatal("failed to start mock server", zap.Error(err))
	}
	mock := &http.Server{Handler: NewMockStatusHandler(logger.Named("mock")), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := mock.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("mock server error", zap.Error(err))
		}
	}()
	defer mock.Close()

	console := statusbot.MessengerFunc(func(_ context.Context, text string) error {
		logger.Named("chat").Info(text)
		return nil
	})

	bot, err := statusbot.New(
		statusbot.WithEndpoint("http://127.0.0.1:9999/api/user_api/homework_statuses/"),
		statusbot.WithSourceToken("mock-token"),
		statusbot.WithMessenger(console),
		statusbot.WithRetryPeriod(10*time.Second),
		statusbot.WithAdvanceCursor(true),
		statusbot.WithPort(8080),
		statusbot.WithLogger(logger),
		statusbot.WithCycleCallback(func(e statusbot.CycleEvent) {
			if e.Failed() {
				logger.Warn("cycle failed", zap.String("kind", e.ErrorKind))
			}
		}),
	)
	if err != nil {
		logger.Error("failed to create statusbot", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("status server at http://localhost:8080/api/status")
	if err := bot.Start(ctx); err != nil {
		logger.Error("statusbot error", zap.Error(err))
	}
}
