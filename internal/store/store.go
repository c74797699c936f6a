package store

import "time"

// Snapshot is the published state of the poll loop after a cycle.
//
// Snapshot is the storage representation served by the REST API and SSE.
// It is decoupled from the poller's internal types so the JSON shape can
// stay stable.
type Snapshot struct {
	// Endpoint is the status API being polled.
	Endpoint string `json:"endpoint"`

	// Cursor is the from_date the next cycle will send.
	Cursor int64 `json:"cursor"`

	// Homework is the newest work item seen by the last cycle.
	Homework string `json:"homework,omitempty"`

	// LastVerdict is the last message delivered for a work item.
	LastVerdict string `json:"last_verdict"`

	// Outcome is how the last cycle ended (e.g. "notified", "failed").
	Outcome string `json:"outcome"`

	// Stage is the failing step of the last cycle, empty on success.
	Stage string `json:"stage,omitempty"`

	// Error contains the error message of the last cycle.
	// nil indicates the last cycle succeeded.
	Error *string `json:"error"`

	// Cycles is the number of cycles run since start.
	Cycles uint64 `json:"cycles"`

	// NotificationsSent is the number of messages delivered since start.
	NotificationsSent uint64 `json:"notifications_sent"`

	// LastCycleAt is when the last cycle started.
	LastCycleAt time.Time `json:"last_cycle_at"`
}

// Store holds the latest [Snapshot] and fans updates out to subscribers.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism lets the status server push updates over Server-Sent Events.
type Store interface {
	// Update replaces the stored snapshot and notifies all subscribers.
	Update(snapshot Snapshot)

	// Get returns the current snapshot and whether one was stored yet.
	Get() (Snapshot, bool)

	// Subscribe returns a channel that receives snapshots.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}
