// Package server provides the optional status HTTP server.
//
// It serves the latest poll loop snapshot at "/api/status", a Server-Sent
// Events stream at "/api/sse", a liveness probe at "/healthz" and, when
// configured, Prometheus metrics at "/metrics".
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
