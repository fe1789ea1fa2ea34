// Package api provides the HTTP server and handlers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/fruitsalade/memfs/internal/events"
	"github.com/fruitsalade/memfs/internal/logging"
	"github.com/fruitsalade/memfs/internal/metrics"
	"github.com/fruitsalade/memfs/pkg/namespace"
	"github.com/fruitsalade/memfs/pkg/protocol"
	"github.com/fruitsalade/memfs/pkg/snapshot"
)

// DefaultMaxContentSize bounds PUT /api/v1/content bodies.
const DefaultMaxContentSize = 10 << 20

// Server is the HTTP server.
type Server struct {
	ns          *namespace.Manager
	broadcaster *events.Broadcaster
	store       namespace.Store

	maxContentSize int64
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables the snapshot endpoints.
func WithStore(store namespace.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithMaxContentSize overrides the content upload limit.
func WithMaxContentSize(n int64) Option {
	return func(s *Server) { s.maxContentSize = n }
}

// NewServer creates a new server. broadcaster may be nil, in which case the
// events endpoint is not registered.
func NewServer(ns *namespace.Manager, broadcaster *events.Broadcaster, opts ...Option) *Server {
	s := &Server{
		ns:             ns,
		broadcaster:    broadcaster,
		maxContentSize: DefaultMaxContentSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler with logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// Structure
	mux.HandleFunc("POST /api/v1/entities", s.handleCreate)
	mux.HandleFunc("DELETE /api/v1/entities", s.handleDelete)
	mux.HandleFunc("POST /api/v1/move", s.handleMove)
	mux.HandleFunc("POST /api/v1/copy", s.handleCopy)
	mux.HandleFunc("POST /api/v1/rename", s.handleRename)

	// Content
	mux.HandleFunc("PUT /api/v1/content", s.handleWriteContent)
	mux.HandleFunc("GET /api/v1/content", s.handleReadContent)

	// Queries
	mux.HandleFunc("GET /api/v1/stat", s.handleStat)
	mux.HandleFunc("GET /api/v1/list", s.handleList)
	mux.HandleFunc("GET /api/v1/search", s.handleSearch)
	mux.HandleFunc("GET /api/v1/tree", s.handleTree)

	// Snapshots
	mux.HandleFunc("POST /api/v1/snapshot/save", s.handleSnapshotSave)
	mux.HandleFunc("POST /api/v1/snapshot/load", s.handleSnapshotLoad)

	if s.broadcaster != nil {
		mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	}

	// metrics.Middleware must see the request the mux matches on to
	// label by route pattern, so it sits inside the logging middleware.
	return logging.Middleware(metrics.Middleware(mux))
}

// statusFor maps namespace error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, namespace.ErrNotFound), errors.Is(err, snapshot.ErrNoSnapshot):
		return http.StatusNotFound
	case errors.Is(err, namespace.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, namespace.ErrInvalidType), errors.Is(err, namespace.ErrInvalidContainment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, namespace.ErrNotAContainer), errors.Is(err, namespace.ErrInvalidPath):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// sendNamespaceError reports a failed operation. Server-side failures are
// logged; client errors are only returned.
func (s *Server) sendNamespaceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logging.WithContext(r.Context()).Error("request failed", zap.Error(err))
	}
	writeJSON(w, code, protocol.ErrorResponse{
		Error:   err.Error(),
		Code:    code,
		Details: namespace.ErrorCode(err),

		RequestID: logging.GetRequestID(r.Context()),
	})
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, protocol.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("write response", zap.Error(err))
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.sendError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := events.MarshalEvent(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}
