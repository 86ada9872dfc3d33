package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Bilal-khan980/semantic-search-assistant/internal/config"
)

// heartbeatInterval is how often idle SSE connections get a comment line
// to keep intermediaries from closing them.
const heartbeatInterval = 15 * time.Second

// Server serves the progress relay over HTTP.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	logger      *slog.Logger
	addr        string
	broadcaster *Broadcaster
}

// NewServer creates a relay server wired to the given broadcaster.
func NewServer(cfg config.RelayConfig, broadcaster *Broadcaster, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogging(logger))

	origins := cfg.Origins()
	if len(origins) == 0 {
		// Local UI shells (Electron, Tauri) present app-scheme or
		// localhost origins; default to permissive on loopback.
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	}))

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger:      logger,
		addr:        cfg.Addr(),
		broadcaster: broadcaster,
	}

	router.Get("/health", s.handleHealth)
	router.Get("/events", s.handleEvents)
	return s
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Start blocks serving HTTP until Shutdown is called or the listener
// fails. The underlying http.Server is built in NewServer, so Shutdown
// works even when it races a Start that has not begun listening yet.
func (s *Server) Start() error {
	s.logger.Info("starting relay server", slog.String("addr", s.addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("relay server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down relay server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"subscribers": s.broadcaster.SubscriberCount(),
	})
}

// handleEvents streams tracker updates to one subscriber until the client
// disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ch := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(ch)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case data, open := <-ch:
			if !open {
				return
			}
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
