// Package poller queries the homework status endpoint and turns status
// changes into chat notifications.
//
// This package is internal to statusbot. It runs a single cooperative loop:
// one cycle at a time, a fixed sleep between cycles, and no retries inside a
// cycle.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with timeout and size limits
//   - [Source]: the [Fetcher] for the status API, with typed errors
//   - [Loop]: owns the cursor and dedupe state, drives each cycle
//   - [CycleReport]: tagged result of one cycle
//
// Users of the statusbot library should not need to interact with this
// package directly. Configuration is done through the main statusbot package.
package poller
