// Package server exposes feature extraction and stored records over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/RyanBlaney/trackiq/config"
	"github.com/RyanBlaney/trackiq/features"
	"github.com/RyanBlaney/trackiq/logging"
	"github.com/RyanBlaney/trackiq/storage"
)

// Extractor computes features for an audio file on disk.
type Extractor interface {
	ExtractFile(ctx context.Context, path string) (features.Vector, error)
}

// Store persists feature records.
type Store interface {
	Insert(ctx context.Context, filename string, vec features.Vector) (*storage.Record, error)
	GetByID(ctx context.Context, id int64) (*storage.Record, error)
	GetByFilename(ctx context.Context, filename string) (*storage.Record, error)
	List(ctx context.Context) ([]*storage.Record, error)
}

// Server is the HTTP front end.
type Server struct {
	cfg       *config.Config
	extractor Extractor
	store     Store
	logger    logging.Logger

	slots   chan struct{}
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

// New wires the routes. A nil logger uses the global logger.
func New(cfg *config.Config, extractor Extractor, store Store, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	s := &Server{
		cfg:       cfg,
		extractor: extractor,
		store:     store,
		logger:    logger.WithFields(logging.Fields{"component": "api_server"}),
		slots:     make(chan struct{}, max(1, cfg.Server.MaxConcurrent)),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /process-mp3/", s.handleProcess)
	mux.HandleFunc("POST /upload/", s.handleUpload)
	mux.HandleFunc("GET /features/{id}", s.handleGetByID)
	mux.HandleFunc("GET /features", s.handleFeatures)
	mux.HandleFunc("GET /features/", s.handleFeatures)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodHead},
		AllowedHeaders:   []string{"*"},
	})
	s.handler = c.Handler(s.withRequestID(mux))

	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens on cfg.Server.Bind and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Server.Bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(err, "api server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.Fields{"address": listener.Addr().String()})
	return nil
}

// Addr reports the bound address after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting up to five seconds for requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := logging.ContextWithFields(r.Context(), logging.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
