// Package statusbot watches the review status of homework submitted to the
// Practicum status API and reports every change to a chat.
//
// A [Bot] polls the API with an OAuth token, validates the response, turns
// the newest work item into a verdict such as
//
//	Изменился статус проверки работы "hw_python_oop". Работа проверена: ревьюеру всё понравилось. Ура!
//
// and sends it through a [Messenger] only when it differs from the last
// verdict delivered. When no work is pending, a single "no work pending"
// message is sent instead.
//
// # Quick Start
//
//	m, err := statusbot.NewMessenger("telegram", telegramToken, chatID, statusbot.MessengerOptions{})
//	if err != nil {
//	    return err
//	}
//
//	bot, err := statusbot.New(
//	    statusbot.WithSourceToken(practicumToken),
//	    statusbot.WithMessenger(m),
//	)
//	if err != nil {
//	    return err
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	bot.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// Bot uses the functional options pattern:
//
//	bot, err := statusbot.New(
//	    statusbot.WithSourceToken(practicumToken),
//	    statusbot.WithMessenger(m),
//	    statusbot.WithRetryPeriod(10*time.Minute),
//	    statusbot.WithAdvanceCursor(true),
//	    statusbot.WithPort(8080),
//	    statusbot.WithLogger(logger),
//	)
//
// The config package builds the same options from a YAML file and
// environment variables.
//
// # Failure Handling
//
// Every cycle failure is logged and reported to [WithCycleCallback]
// callbacks as a [CycleEvent] with a typed error ([EndpointAccessError],
// [EndpointStatusError], [ResponseDecodeError], [TypeMismatchError],
// [MissingKeyError], [UnknownStatusError] or [SendMessageError]). The bot
// never stops on a failed cycle: it sleeps the retry period and tries again.
// A failed delivery leaves the bot state untouched, so the same message is
// retried next cycle.
//
// # Architecture
//
// The internal packages are:
//
//   - internal/homework: response validation and verdict resolution
//   - internal/poller: HTTP client, status source and the poll loop
//   - internal/notify: Telegram and Slack transports
//   - internal/store: latest snapshot with pub/sub for the status server
//   - internal/server: REST status, Server-Sent Events and /metrics
//   - internal/metrics: Prometheus collectors
//   - internal/logging: console and debug file logging
package statusbot
