package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpalmerr/statusbot/internal/metrics"
	"github.com/jpalmerr/statusbot/internal/store"
	"go.uber.org/goleak"
)

func sampleSnapshot() store.Snapshot {
	return store.Snapshot{
		Endpoint:          "https://example.com/api",
		Cursor:            1700000000,
		Homework:          "hw1",
		LastVerdict:       "Изменился статус проверки работы \"hw1\". Работа взята на проверку ревьюером.",
		Outcome:           "notified",
		Cycles:            3,
		NotificationsSent: 1,
		LastCycleAt:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// --- REST ---

func TestHandleStatus_ReturnsSnapshot(t *testing.T) {
	st := store.NewMemoryStore()
	st.Update(sampleSnapshot())
	srv := NewServer(st, 0, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	var got store.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse JSON: %v, body: %s", err, rec.Body.String())
	}
	if got.Cursor != 1700000000 {
		t.Errorf("Cursor = %d, want %d", got.Cursor, 1700000000)
	}
	if got.LastVerdict != sampleSnapshot().LastVerdict {
		t.Errorf("LastVerdict = %q, want %q", got.LastVerdict, sampleSnapshot().LastVerdict)
	}
	if got.Error != nil {
		t.Errorf("Error = %q, want nil", *got.Error)
	}
}

func TestHandleStatus_ErrorIsSerialized(t *testing.T) {
	st := store.NewMemoryStore()
	msg := "no valid response from https://example.com/api with params from_date=1: status code 500"
	st.Update(store.Snapshot{Outcome: "failed", Stage: "fetch", Error: &msg})
	srv := NewServer(st, 0, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if !strings.Contains(rec.Body.String(), `"stage":"fetch"`) {
		t.Errorf("body should contain the failing stage, got: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "status code 500") {
		t.Errorf("body should contain the error, got: %s", rec.Body.String())
	}
}

func TestHandleStatus_NoSnapshotYet(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleStatus_MethodNotAllowed(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q, want 200 \"ok\"", rec.Code, rec.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	m.Observe(metrics.Cycle{Outcome: "idle"})

	withMetrics := NewServer(store.NewMemoryStore(), 0, m.Handler(), nil)
	rec := httptest.NewRecorder()
	withMetrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `statusbot_cycles_total{outcome="idle"} 1`) {
		t.Errorf("metrics output missing cycle counter: %s", rec.Body.String())
	}

	withoutMetrics := NewServer(store.NewMemoryStore(), 0, nil, nil)
	rec = httptest.NewRecorder()
	withoutMetrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status without metrics handler = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// --- SSE ---

func TestHandleSSE_BasicFlow(t *testing.T) {
	st := store.NewMemoryStore()
	st.Update(sampleSnapshot())

	srv := NewServer(st, 0, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	events := parseSSEEvents(rec.Body.String())
	if len(events) != 1 {
		t.Fatalf("expected 1 initial event, got %d: %s", len(events), rec.Body.String())
	}
	if events[0].Homework != "hw1" {
		t.Errorf("Homework = %q, want %q", events[0].Homework, "hw1")
	}
}

func TestHandleSSE_NoInitialSnapshot(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	if events := parseSSEEvents(rec.Body.String()); len(events) != 0 {
		t.Errorf("expected no events before the first cycle, got %d", len(events))
	}
	if !rec.Flushed {
		t.Error("headers should be flushed even without a snapshot")
	}
}

func TestHandleSSE_StreamsUpdates(t *testing.T) {
	st := store.NewMemoryStore()
	srv := NewServer(st, 0, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	// wait for the handler to subscribe
	deadline := time.Now().Add(time.Second)
	for st.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	st.Update(store.Snapshot{Outcome: "no_work", Cycles: 1})

	// give time for update to be written
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("handler did not exit after context cancellation")
	}

	if !strings.Contains(rec.Body.String(), `"outcome":"no_work"`) {
		t.Errorf("response should contain streamed update, got: %s", rec.Body.String())
	}
	if st.Subscribers() != 0 {
		t.Errorf("handler should unsubscribe on exit, %d subscribers left", st.Subscribers())
	}
}

func TestHandleSSE_ServerShutdown(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, nil)

	// calling handleSSE directly bypasses BaseContext, so derive the request
	// context from the server context by hand
	serverCtx, serverCancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(serverCtx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	serverCancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not exit after server shutdown")
	}
}

func TestHandleSSE_ConcurrentClientsShutdown(t *testing.T) {
	st := store.NewMemoryStore()
	st.Update(sampleSnapshot())

	srv := NewServer(st, 0, nil, nil)

	serverCtx, serverCancel := context.WithCancel(context.Background())

	numClients := 10
	var wg sync.WaitGroup
	started := make(chan struct{})
	var startedCount atomic.Int32

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(serverCtx)
			rec := httptest.NewRecorder()

			// use Add's return value to ensure only one goroutine closes the channel
			if startedCount.Add(1) == int32(numClients) {
				close(started)
			}

			srv.handleSSE(rec, req)
		}()
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("clients did not start in time")
	}

	time.Sleep(100 * time.Millisecond)
	serverCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("not all handlers exited after shutdown")
	}
}

func TestHandleSSE_SSENotSupported(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, nil)

	w := &nonFlushWriter{header: make(http.Header)}
	srv.handleSSE(w, httptest.NewRequest(http.MethodGet, "/api/sse", nil))

	if w.statusCode != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.statusCode)
	}
}

type nonFlushWriter struct {
	header     http.Header
	statusCode int
	body       []byte
}

func (n *nonFlushWriter) Header() http.Header {
	return n.header
}

func (n *nonFlushWriter) Write(b []byte) (int, error) {
	n.body = append(n.body, b...)
	return len(b), nil
}

func (n *nonFlushWriter) WriteHeader(statusCode int) {
	n.statusCode = statusCode
}

func TestHandleSSE_Headers(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	srv.handleSSE(rec, req)

	expectedHeaders := map[string]string{
		"Content-Type":                "text/event-stream",
		"Cache-Control":               "no-cache",
		"Connection":                  "keep-alive",
		"Access-Control-Allow-Origin": "*",
	}

	for key, expected := range expectedHeaders {
		if got := rec.Header().Get(key); got != expected {
			t.Errorf("header %s = %q, want %q", key, got, expected)
		}
	}
}

// --- Integration tests over real connections ---

func TestServer_StartAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	st := store.NewMemoryStore()
	st.Update(sampleSnapshot())
	srv := NewServer(st, 0, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())

	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run(ctx) }()

	addr := waitForAddr(t, srv)
	client := &http.Client{Transport: &http.Transport{}}
	defer client.CloseIdleConnections()

	resp, err := client.Get(fmt.Sprintf("http://%s/api/status", addr))
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(string(body), `"cursor":1700000000`) {
		t.Errorf("unexpected body: %s", body)
	}

	// an open SSE stream must not hold up shutdown
	sseDone := make(chan struct{})
	go func() {
		defer close(sseDone)
		resp, err := client.Get(fmt.Sprintf("http://%s/api/sse", addr))
		if err != nil {
			return
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, resp.Body)
	}()
	time.Sleep(100 * time.Millisecond)

	cancel()

	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	select {
	case <-sseDone:
	case <-time.After(3 * time.Second):
		t.Fatal("SSE connection did not close after server shutdown")
	}
}

func waitForAddr(t *testing.T, srv *Server) net.Addr {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr := srv.Addr(); addr != nil {
			return addr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("server did not bind in time")
	return nil
}

func TestStart_AvailablePort_ReturnsNil(t *testing.T) {
	// port 0 = OS assigns available port
	srv := NewServer(store.NewMemoryStore(), 0, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Errorf("Start() on available port returned error: %v", err)
	}
	if srv.Addr() == nil {
		t.Error("Addr() = nil after Start")
	}
}

func TestStart_PortInUse_ReturnsError(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer func() { _ = ln.Close() }()

	port := ln.Addr().(*net.TCPAddr).Port
	srv := NewServer(store.NewMemoryStore(), port, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = srv.Start(ctx)
	if err == nil {
		t.Fatal("Start() on occupied port should return error")
	}
	if !strings.Contains(err.Error(), "failed to bind") {
		t.Errorf("expected bind error, got: %v", err)
	}

	// Run surfaces the same error without blocking
	if err := srv.Run(ctx); err == nil {
		t.Error("Run() on occupied port should return error")
	}
}

func TestStart_InvalidPort_ReturnsError(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), -1, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err == nil {
		t.Fatal("Start() with invalid port should return error")
	}
}

func parseSSEEvents(body string) []store.Snapshot {
	var events []store.Snapshot
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			var snapshot store.Snapshot
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snapshot); err == nil {
				events = append(events, snapshot)
			}
		}
	}
	return events
}

func BenchmarkHandleSSE_SingleClient(b *testing.B) {
	st := store.NewMemoryStore()
	st.Update(sampleSnapshot())

	srv := NewServer(st, 0, nil, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		srv.handleSSE(rec, req)
		cancel()
	}
}
