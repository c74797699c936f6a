// Package store keeps the latest poll loop snapshot and publishes it to
// subscribers.
//
// The loop writes a [Snapshot] after every cycle; the status server reads
// it for GET /api/status and streams it over SSE. Only copies cross the
// package boundary, so readers never race with the loop goroutine.
package store
