package poller

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jpalmerr/statusbot/internal/homework"
	"go.uber.org/zap"
)

// DefaultRetryPeriod is the pause between cycles.
const DefaultRetryPeriod = 600 * time.Second

// Notifier delivers one chat message.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// LoopConfig holds the collaborators and settings of a [Loop].
type LoopConfig struct {
	// Fetcher queries the status endpoint. Required.
	Fetcher Fetcher

	// Notifier delivers messages. Required.
	Notifier Notifier

	// RetryPeriod is the pause after every cycle. Defaults to [DefaultRetryPeriod].
	RetryPeriod time.Duration

	// AdvanceCursor moves the cursor to the server's current_date after a
	// successful cycle. When false the cursor stays at its start value.
	AdvanceCursor bool

	// StartCursor is the initial cursor. Zero means Now().Unix().
	StartCursor int64

	// Logger receives cycle events. Defaults to a no-op logger.
	Logger *zap.Logger

	// OnCycle, if set, is called with every report after it is logged.
	// It runs on the loop goroutine and must not block.
	OnCycle func(CycleReport)

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Sleep pauses between cycles and returns early with ctx's error when
	// ctx is done. Defaults to a timer-based sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Loop is the poll/notify state machine for one tracked resource.
//
// Loop owns the poll cursor and the last delivered verdict. Both live only
// in memory. A single goroutine drives the loop through [Loop.Run]; cycles
// never overlap, so the state needs no locking. The accessor methods must
// not be called while Run is active.
type Loop struct {
	fetcher       Fetcher
	notifier      Notifier
	retryPeriod   time.Duration
	advanceCursor bool
	logger        *zap.Logger
	onCycle       func(CycleReport)
	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error

	running atomic.Bool

	cursor         int64
	lastVerdict    homework.Verdict
	noWorkNotified bool
	cycles         uint64
}

// NewLoop creates a [Loop] from cfg.
//
// Returns an error if Fetcher or Notifier is missing or RetryPeriod is negative.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("poll loop requires a fetcher")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("poll loop requires a notifier")
	}
	if cfg.RetryPeriod < 0 {
		return nil, fmt.Errorf("retry period cannot be negative, got %s", cfg.RetryPeriod)
	}

	l := &Loop{
		fetcher:       cfg.Fetcher,
		notifier:      cfg.Notifier,
		retryPeriod:   cfg.RetryPeriod,
		advanceCursor: cfg.AdvanceCursor,
		logger:        cfg.Logger,
		onCycle:       cfg.OnCycle,
		now:           cfg.Now,
		sleep:         cfg.Sleep,
		cursor:        cfg.StartCursor,
	}

	if l.retryPeriod == 0 {
		l.retryPeriod = DefaultRetryPeriod
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.sleep == nil {
		l.sleep = sleepContext
	}
	if l.cursor == 0 {
		l.cursor = l.now().Unix()
	}

	return l, nil
}

// Run executes cycles until ctx is cancelled, sleeping the retry period
// after each one regardless of its outcome.
//
// A failing cycle is logged and never stops the loop. Run returns nil once
// ctx is done, or [ErrLoopRunning] if another Run is active.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.running.Store(false)

	l.logger.Info("poll loop started",
		zap.Int64("cursor", l.cursor),
		zap.Duration("retry_period", l.retryPeriod),
		zap.Bool("advance_cursor", l.advanceCursor),
	)
	if !l.advanceCursor {
		l.logger.Info("cursor advancement disabled, every cycle queries from the start cursor",
			zap.Int64("cursor", l.cursor),
		)
	}

	for ctx.Err() == nil {
		l.RunCycle(ctx)

		if err := l.sleep(ctx, l.retryPeriod); err != nil {
			break
		}
	}

	l.logger.Info("poll loop stopped", zap.Uint64("cycles", l.cycles))
	return nil
}

// RunCycle executes a single cycle, logs its report and hands it to the
// OnCycle hook. It never panics.
func (l *Loop) RunCycle(ctx context.Context) CycleReport {
	report := l.execute(ctx)
	l.cycles++
	l.finish(report)
	return report
}

// execute runs the cycle steps with panic recovery.
func (l *Loop) execute(ctx context.Context) (report CycleReport) {
	report = CycleReport{
		ID:        uuid.NewString(),
		StartedAt: l.now(),
		Cursor:    l.cursor,
	}

	defer func() {
		if r := recover(); r != nil {
			// log full context for debugging; the report only carries the ID
			l.logger.Error("cycle panic",
				zap.String("correlation_id", report.ID),
				zap.String("panic", fmt.Sprintf("%v", r)),
				zap.String("stack", string(debug.Stack())),
			)
			report.fail(StagePanic, fmt.Errorf("cycle panic (correlation_id: %s)", report.ID))
		}
		report.Duration = l.now().Sub(report.StartedAt)
	}()

	l.step(ctx, &report)
	return report
}

// step is one fetch-validate-resolve-notify pass. State changes only after
// a successful send.
func (l *Loop) step(ctx context.Context, report *CycleReport) {
	raw, err := l.fetcher.Fetch(ctx, l.cursor)
	if err != nil {
		report.fail(StageFetch, err)
		return
	}

	batch, err := homework.Validate(raw)
	if err != nil {
		report.fail(StageValidate, err)
		return
	}
	report.CurrentDate = batch.CurrentDate
	report.Items = len(batch.Items)

	if len(batch.Items) == 0 {
		if l.lastVerdict != "" || l.noWorkNotified {
			report.Outcome = OutcomeIdle
			l.advance(batch.CurrentDate)
			return
		}

		report.Message = homework.NoWorkMessage
		if err := l.notifier.Notify(ctx, homework.NoWorkMessage); err != nil {
			report.fail(StageNotify, err)
			return
		}
		l.noWorkNotified = true
		report.Outcome = OutcomeNoWork
		l.advance(batch.CurrentDate)
		return
	}

	newest := batch.Items[0]
	report.Homework = newest.Name()

	verdict, err := homework.Resolve(newest)
	if err != nil {
		report.fail(StageResolve, err)
		return
	}
	report.Message = verdict.String()
	l.logger.Info("verdict resolved",
		zap.String("cycle_id", report.ID),
		zap.String("homework", report.Homework),
		zap.String("status", string(newest.Status())),
	)

	if verdict == l.lastVerdict {
		report.Outcome = OutcomeUnchanged
		l.advance(batch.CurrentDate)
		return
	}

	if err := l.notifier.Notify(ctx, verdict.String()); err != nil {
		report.fail(StageNotify, err)
		return
	}
	l.lastVerdict = verdict
	report.Outcome = OutcomeNotified
	l.advance(batch.CurrentDate)
}

// advance moves the cursor forward when enabled; it never moves back.
func (l *Loop) advance(currentDate int64) {
	if l.advanceCursor && currentDate > l.cursor {
		l.cursor = currentDate
	}
}

// finish is the cycle boundary: every outcome is logged here and nothing
// propagates further.
func (l *Loop) finish(report CycleReport) {
	fields := []zap.Field{
		zap.String("cycle_id", report.ID),
		zap.Int64("cursor", report.Cursor),
		zap.String("outcome", string(report.Outcome)),
		zap.Duration("duration", report.Duration),
	}

	switch report.Outcome {
	case OutcomeFailed:
		fields = append(fields, zap.String("stage", string(report.Stage)))
		fields = append(fields, errorFields(report.Err)...)
		l.logger.Error("cycle failed", fields...)
	case OutcomeNotified, OutcomeNoWork:
		l.logger.Info("notification sent", append(fields, zap.String("text", report.Message))...)
	case OutcomeUnchanged:
		l.logger.Debug("status unchanged", append(fields, zap.String("homework", report.Homework))...)
	default:
		l.logger.Debug("no new work items", fields...)
	}

	if l.onCycle != nil {
		l.invokeHook(report)
	}
}

// invokeHook calls OnCycle with panic recovery.
func (l *Loop) invokeHook(report CycleReport) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("cycle hook panicked",
				zap.String("cycle_id", report.ID),
				zap.Any("panic", r),
			)
		}
	}()
	l.onCycle(report)
}

// Cursor returns the cursor the next cycle will send.
func (l *Loop) Cursor() int64 {
	return l.cursor
}

// LastVerdict returns the last delivered verdict, empty if none.
func (l *Loop) LastVerdict() homework.Verdict {
	return l.lastVerdict
}

// NoWorkNotified reports whether the "no work pending" message was delivered.
func (l *Loop) NoWorkNotified() bool {
	return l.noWorkNotified
}

// Cycles returns the number of cycles run so far.
func (l *Loop) Cycles() uint64 {
	return l.cycles
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
