package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jpalmerr/statusbot/internal/store"
	"go.uber.org/zap"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdownTimeout so that blocked writers cannot stall shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second
)

// Server exposes the poll loop state over HTTP.
//
// Server provides four endpoints:
//   - GET /api/status: the latest snapshot as JSON
//   - GET /api/sse: Server-Sent Events stream of snapshots
//   - GET /healthz: liveness probe
//   - GET /metrics: Prometheus exposition, when a metrics handler is set
//
// The server shuts down gracefully when the context passed to
// [Server.Start] is cancelled.
type Server struct {
	store      store.Store
	port       int
	metrics    http.Handler
	logger     *zap.Logger
	httpServer *http.Server
	done       chan error

	mu   sync.Mutex
	addr net.Addr
}

// NewServer creates a new HTTP [Server].
//
// metrics may be nil, in which case /metrics is not registered. A nil logger
// discards log output. The server is not started until [Server.Start].
func NewServer(st store.Store, port int, metrics http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:   st,
		port:    port,
		metrics: metrics,
		logger:  logger,
		done:    make(chan error, 1),
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/sse", s.handleSSE)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns once the listener is bound. The server
// runs until ctx is cancelled, then shuts down with a 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so long-running SSE handlers
		// return on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	serveErr := make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			s.logger.Error("http server error", zap.Error(err))
		}
		serveErr <- err
	}()

	go func() {
		select {
		case <-ctx.Done():
		case err := <-serveErr:
			s.done <- err
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		if err != nil {
			s.logger.Error("http server shutdown error", zap.Error(err))
		}
		if serr := <-serveErr; serr != nil {
			err = serr
		}
		s.done <- err
	}()

	s.logger.Info("status server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Wait blocks until a started server has shut down and returns the serve
// or shutdown error, if any. It must only be called after a successful Start.
func (s *Server) Wait() error {
	return <-s.done
}

// Run starts the server and blocks until it has shut down after ctx is
// cancelled. It returns the bind error, or the serve/shutdown error if any.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	return s.Wait()
}

// Addr returns the bound listener address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleStatus returns the current snapshot as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, ok := s.store.Get()
	if !ok {
		http.Error(w, "no cycle has completed yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.logger.Error("failed to encode status response", zap.Error(err))
	}
}

// handleSSE streams snapshots via Server-Sent Events.
//
// Every write carries a deadline so a slow or vanished client cannot block
// the handler past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(snapshot store.Snapshot) error {
		data, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}

		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", zap.Error(err))
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	if snapshot, ok := s.store.Get(); ok {
		if err := writeAndFlush(snapshot); err != nil {
			return
		}
	} else if err := rc.Flush(); err != nil {
		// commit headers so clients see the stream open before the first cycle
		return
	}

	for {
		select {
		case snapshot, ok := <-ch:
			if !ok {
				return
			}
			if err := writeAndFlush(snapshot); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on both client disconnect and server shutdown
			return
		}
	}
}
