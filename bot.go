package statusbot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jpalmerr/statusbot/internal/metrics"
	"github.com/jpalmerr/statusbot/internal/notify"
	"github.com/jpalmerr/statusbot/internal/poller"
	"github.com/jpalmerr/statusbot/internal/server"
	"github.com/jpalmerr/statusbot/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRetryPeriod    = 600 * time.Second
	defaultRequestTimeout = 30 * time.Second
)

// DefaultEndpoint is the homework status API polled when [WithEndpoint] is
// not given.
const DefaultEndpoint = poller.DefaultEndpoint

// ErrAlreadyRunning is returned by [Bot.Start] while another Start is active.
var ErrAlreadyRunning = errors.New("statusbot is already running")

// Bot polls the homework status API and notifies the chat when the verdict
// for the newest work item changes.
//
// Bot is created with [New] and driven by [Bot.Start]. The typical
// lifecycle is:
//
//	bot, err := statusbot.New(
//	    statusbot.WithSourceToken(practicumToken),
//	    statusbot.WithMessenger(m),
//	)
//	if err != nil {
//	    logger.Fatal("failed to create bot", zap.Error(err))
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	bot.Start(ctx) // blocks until context cancelled
//
// Poll state lives in memory only. A restarted bot starts with no delivered
// verdict and a fresh cursor.
type Bot struct {
	endpoint       string
	retryPeriod    time.Duration
	requestTimeout time.Duration
	advanceCursor  bool
	port           int
	logger         *zap.Logger
	cycleCallbacks []func(CycleEvent)

	source  *poller.Source
	loop    *poller.Loop
	store   *store.MemoryStore
	metrics *metrics.Metrics
	server  *server.Server

	running       atomic.Bool
	notifications uint64
}

// New creates a [Bot] with the given options.
//
// [WithSourceToken] and [WithMessenger] are required. Other options default
// to:
//   - Endpoint: [DefaultEndpoint]
//   - Retry period: 600 seconds
//   - Request timeout: 30 seconds
//   - Cursor advancement: off
//   - Status server: disabled
//
// New performs no network I/O. Returns an error if a required option is
// missing or any option is invalid.
func New(opts ...Option) (*Bot, error) {
	cfg := &botConfig{
		endpoint:       DefaultEndpoint,
		retryPeriod:    defaultRetryPeriod,
		requestTimeout: defaultRequestTimeout,
		now:            time.Now,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.sourceToken == "" {
		return nil, errors.New("source token is required")
	}
	if cfg.messenger == nil {
		return nil, errors.New("messenger is required")
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	startTime := cfg.startTime
	if startTime.IsZero() {
		startTime = cfg.now()
	}

	var client *poller.Client
	if cfg.httpClient != nil {
		client = poller.NewClientWithDoer(cfg.httpClient)
	} else {
		client = poller.NewClient()
	}

	b := &Bot{
		endpoint:       cfg.endpoint,
		retryPeriod:    cfg.retryPeriod,
		requestTimeout: cfg.requestTimeout,
		advanceCursor:  cfg.advanceCursor,
		port:           cfg.port,
		logger:         logger,
		cycleCallbacks: cfg.cycleCallbacks,
		source:         poller.NewSource(client, cfg.endpoint, cfg.sourceToken, cfg.requestTimeout),
		store:          store.NewMemoryStore(),
		metrics:        metrics.New(),
	}

	loop, err := poller.NewLoop(poller.LoopConfig{
		Fetcher:       b.source,
		Notifier:      notify.NewNotifier(cfg.messenger, logger.Named("notify")),
		RetryPeriod:   cfg.retryPeriod,
		AdvanceCursor: cfg.advanceCursor,
		StartCursor:   startTime.Unix(),
		Logger:        logger.Named("poller"),
		OnCycle:       b.record,
		Now:           cfg.now,
		Sleep:         cfg.sleep,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poll loop: %w", err)
	}
	b.loop = loop

	if cfg.port > 0 {
		b.server = server.NewServer(b.store, cfg.port, b.metrics.Handler(), logger.Named("server"))
	}

	return b, nil
}

// Start runs the poll loop, and the status server when a port is set.
//
// Start blocks until ctx is cancelled. The first cycle runs immediately;
// every later cycle follows a retry period pause, whether or not the
// previous one failed. A failing cycle never stops the bot.
//
// Returns nil on graceful shutdown, [ErrAlreadyRunning] if called while
// running, or an error if the status server fails to start or serve.
func (b *Bot) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer b.running.Store(false)

	b.logger.Info("statusbot starting",
		zap.String("endpoint", b.endpoint),
		zap.Duration("retry_period", b.retryPeriod),
		zap.Duration("request_timeout", b.requestTimeout),
		zap.Bool("advance_cursor", b.advanceCursor),
	)

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}
	defer b.source.Close()

	g, gctx := errgroup.WithContext(ctx)

	if b.server != nil {
		if err := b.server.Start(gctx); err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}
		b.logger.Info("status server available", zap.String("url", fmt.Sprintf("http://localhost:%d", b.port)))
		g.Go(b.server.Wait)
	}

	g.Go(func() error {
		return b.loop.Run(gctx)
	})

	err := g.Wait()
	b.logger.Info("statusbot stopped", zap.Uint64("cycles", b.loop.Cycles()))
	return err
}

// Endpoint returns the status API URL being polled.
func (b *Bot) Endpoint() string {
	return b.endpoint
}

// RetryPeriod returns the pause between cycles.
func (b *Bot) RetryPeriod() time.Duration {
	return b.retryPeriod
}

// Port returns the status server port, 0 when the server is disabled.
func (b *Bot) Port() int {
	return b.port
}

// MetricsHandler returns the Prometheus handler for the bot's collectors.
// It serves metrics even when the status server is disabled.
func (b *Bot) MetricsHandler() http.Handler {
	return b.metrics.Handler()
}

// record runs on the loop goroutine after every cycle: it publishes the
// snapshot, updates metrics and invokes the cycle callbacks, in that order.
func (b *Bot) record(report poller.CycleReport) {
	if report.Delivered() {
		b.notifications++
	}

	kind := poller.ErrorKind(report.Err)
	b.store.Update(b.snapshot(report))
	b.metrics.Observe(metrics.Cycle{
		Outcome:   string(report.Outcome),
		Stage:     string(report.Stage),
		ErrorKind: kind,
		Delivered: report.Delivered(),
		Duration:  report.Duration,
		At:        report.StartedAt.Add(report.Duration),
	})

	if len(b.cycleCallbacks) == 0 {
		return
	}
	event := toCycleEvent(report, kind)
	for _, cb := range b.cycleCallbacks {
		invokeCallbackSafe(cb, event, b.logger)
	}
}

func (b *Bot) snapshot(report poller.CycleReport) store.Snapshot {
	var errStr *string
	if report.Err != nil {
		s := report.Err.Error()
		errStr = &s
	}

	return store.Snapshot{
		Endpoint:          b.endpoint,
		Cursor:            b.loop.Cursor(),
		Homework:          report.Homework,
		LastVerdict:       b.loop.LastVerdict().String(),
		Outcome:           string(report.Outcome),
		Stage:             string(report.Stage),
		Error:             errStr,
		Cycles:            b.loop.Cycles(),
		NotificationsSent: b.notifications,
		LastCycleAt:       report.StartedAt,
	}
}

func toCycleEvent(report poller.CycleReport, kind string) CycleEvent {
	return CycleEvent{
		ID:          report.ID,
		StartedAt:   report.StartedAt,
		Duration:    report.Duration,
		Cursor:      report.Cursor,
		CurrentDate: report.CurrentDate,
		Homework:    report.Homework,
		Message:     report.Message,
		Outcome:     Outcome(report.Outcome),
		Stage:       string(report.Stage),
		ErrorKind:   kind,
		Error:       report.Err,
	}
}

// invokeCallbackSafe calls a cycle callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(CycleEvent), event CycleEvent, logger *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("cycle callback panicked",
				zap.Any("panic", r),
				zap.String("cycle_id", event.ID),
			)
		}
	}()
	cb(event)
}
