package store

import (
	"sync"
)

const subscriberBuffer = 16

// MemoryStore is an in-memory implementation of [Store].
//
// Subscribers receive updates via buffered channels. Updates are sent
// non-blocking; if a subscriber's buffer is full, the update is dropped for
// that subscriber so the poll loop never waits on an HTTP client.
type MemoryStore struct {
	mu       sync.RWMutex
	snapshot Snapshot
	stored   bool

	subMu       sync.RWMutex
	subscribers map[chan Snapshot]struct{}
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Update stores a [Snapshot] and notifies all subscribers.
func (m *MemoryStore) Update(snapshot Snapshot) {
	m.mu.Lock()
	m.snapshot = snapshot
	m.stored = true
	m.mu.Unlock()

	m.notifySubscribers(snapshot)
}

// Get returns the latest snapshot. The bool is false until the first Update.
func (m *MemoryStore) Get() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot, m.stored
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// receive-only channels can't be map keys for the send side, so search
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (m *MemoryStore) Subscribers() int {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	return len(m.subscribers)
}

func (m *MemoryStore) notifySubscribers(snapshot Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- snapshot:
		default:
			// subscriber is slow, drop the message
		}
	}
}
