package statusbot

import "time"

// Outcome tags how a poll cycle ended.
//
// Outcome is a string type so it logs and serializes as a readable value.
type Outcome string

const (
	// OutcomeNotified indicates a new verdict was delivered to the chat.
	OutcomeNotified Outcome = "notified"

	// OutcomeUnchanged indicates the newest verdict had already been delivered.
	OutcomeUnchanged Outcome = "unchanged"

	// OutcomeNoWork indicates the "no work pending" message was delivered.
	OutcomeNoWork Outcome = "no_work"

	// OutcomeIdle indicates the API returned no work items and nothing was sent.
	OutcomeIdle Outcome = "idle"

	// OutcomeFailed indicates the cycle was abandoned. See [CycleEvent.Stage]
	// and [CycleEvent.Error].
	OutcomeFailed Outcome = "failed"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// CycleEvent describes one completed poll cycle.
//
// CycleEvent is passed to callbacks registered with [WithCycleCallback].
// It is a value type; callbacks may keep it after returning.
type CycleEvent struct {
	// ID identifies the cycle in the logs. Recovered panics carry it as the
	// correlation ID.
	ID string

	// StartedAt is when the cycle began.
	StartedAt time.Time

	// Duration is how long the cycle took, excluding the retry sleep.
	Duration time.Duration

	// Cursor is the from_date value sent to the status API.
	Cursor int64

	// CurrentDate is the server timestamp of the response. Zero when the
	// response was not valid.
	CurrentDate int64

	// Homework is the name of the newest work item, empty if none.
	Homework string

	// Message is the verdict or no-work text for this cycle, whether or
	// not it was delivered.
	Message string

	// Outcome tags how the cycle ended.
	Outcome Outcome

	// Stage is the failing step ("fetch", "validate", "resolve", "notify"
	// or "panic") when Outcome is [OutcomeFailed].
	Stage string

	// ErrorKind classifies Error, as returned by [ErrorKind].
	ErrorKind string

	// Error is the failure when Outcome is [OutcomeFailed], nil otherwise.
	Error error
}

// Failed reports whether the cycle was abandoned.
func (e CycleEvent) Failed() bool {
	return e.Outcome == OutcomeFailed
}

// Delivered reports whether the cycle sent a chat message.
func (e CycleEvent) Delivered() bool {
	return e.Outcome == OutcomeNotified || e.Outcome == OutcomeNoWork
}
