// Package httpapi exposes the sync engine over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/server/services"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// SyncService is the engine behind the handlers.
type SyncService interface {
	Pull(ctx context.Context, since *time.Time, schemaVersion int) (*syncproto.PullResponse, error)
	Push(ctx context.Context, req *syncproto.PushRequest, userID string) (*services.BatchReport, error)
	Ping(ctx context.Context) error
}

type Server struct {
	address         string
	router          *mux.Router
	sync            SyncService
	logger          logging.Logger
	jwtSecret       []byte
	validate        *validator.Validate
	shutdownTimeout time.Duration
}

// NewServer builds the router. An empty secretKey disables authentication.
func NewServer(address string, l logging.Logger, sync SyncService, secretKey string, shutdownTimeout time.Duration) *Server {
	s := &Server{
		address:         address,
		router:          mux.NewRouter(),
		sync:            sync,
		logger:          logging.ForModule(l, "http_server"),
		jwtSecret:       []byte(secretKey),
		validate:        validator.New(),
		shutdownTimeout: shutdownTimeout,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/sync").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/pull", s.handlePullQuery).Methods(http.MethodGet)
	api.HandleFunc("/pull", s.handlePullBody).Methods(http.MethodPost)
	api.HandleFunc("/push", s.handlePush).Methods(http.MethodPost)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until ctx is canceled, then drains in-flight requests for up
// to the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
