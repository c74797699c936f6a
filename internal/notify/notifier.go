package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Messenger sends one text message to a fixed destination chat.
type Messenger interface {
	Send(ctx context.Context, text string) error
}

// MessengerFunc adapts a function to [Messenger].
type MessengerFunc func(ctx context.Context, text string) error

// Send calls f(ctx, text).
func (f MessengerFunc) Send(ctx context.Context, text string) error {
	return f(ctx, text)
}

// SendMessageError reports a message that could not be delivered.
type SendMessageError struct {
	// Message is the text that was being sent.
	Message string

	// Err is the transport failure.
	Err error
}

func (e *SendMessageError) Error() string {
	return fmt.Sprintf("failed to send message: %v", e.Err)
}

func (e *SendMessageError) Unwrap() error {
	return e.Err
}

var errEmptyMessage = errors.New("message is empty")

// Notifier sends notifications through a [Messenger].
type Notifier struct {
	messenger Messenger
	logger    *zap.Logger
}

// NewNotifier creates a [Notifier]. A nil logger discards log output.
func NewNotifier(m Messenger, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{messenger: m, logger: logger}
}

// Notify sends message to the configured chat.
//
// Every failure, including a panicking transport, is returned as a
// [*SendMessageError] wrapping the cause.
func (n *Notifier) Notify(ctx context.Context, message string) (err error) {
	if message == "" {
		return &SendMessageError{Message: message, Err: errEmptyMessage}
	}
	if n.messenger == nil {
		return &SendMessageError{Message: message, Err: errors.New("no messenger configured")}
	}

	defer func() {
		if r := recover(); r != nil {
			err = &SendMessageError{Message: message, Err: fmt.Errorf("messenger panic: %v", r)}
		}
	}()

	if err := n.messenger.Send(ctx, message); err != nil {
		return &SendMessageError{Message: message, Err: err}
	}

	n.logger.Debug("message sent", zap.String("text", message))
	return nil
}
