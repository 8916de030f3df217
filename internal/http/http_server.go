package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/ports/secondary"
	"gitlab.com/steer-2025.net/internal/core/services/worker"
	"gitlab.com/steer-2025.net/internal/handlers"
	"gitlab.com/steer-2025.net/internal/handlers/exchanges"
	"gitlab.com/steer-2025.net/internal/handlers/scheduler"
	"gitlab.com/steer-2025.net/internal/handlers/workers"
)

type ServiceProvider struct {
	workerService worker.IWorkerRegistrationService
	scheduler     scheduler.SnapshotProvider
	exchangeRepo  secondary.ExchangeRepository
	handshake     primary.HandshakeService
}

// NewServiceProvider bundles the services behind the status API.
// exchangeRepo may be nil when the journal is disabled.
func NewServiceProvider(
	workerService worker.IWorkerRegistrationService,
	scheduler scheduler.SnapshotProvider,
	exchangeRepo secondary.ExchangeRepository,
	handshake primary.HandshakeService,
) *ServiceProvider {
	return &ServiceProvider{
		workerService: workerService,
		scheduler:     scheduler,
		exchangeRepo:  exchangeRepo,
		handshake:     handshake,
	}
}

type Server struct {
	router          *mux.Router
	Port            int
	ServiceName     string
	ServiceProvider ServiceProvider
	logger          primary.Logger
	srv             *http.Server
	listener        net.Listener
}

func NewServer(port int, serviceName string, serviceProvider ServiceProvider, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	if s.ServiceProvider.workerService == nil || s.ServiceProvider.scheduler == nil {
		return fmt.Errorf("status api needs a worker service and a scheduler")
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(handlers.New(s.ServiceProvider.handshake).JWTMiddleware)

	workers.NewHandler(s.ServiceProvider.workerService).Register(api)
	scheduler.NewHandler(s.ServiceProvider.scheduler).Register(api)
	if s.ServiceProvider.exchangeRepo != nil {
		exchanges.NewHandler(s.ServiceProvider.exchangeRepo, s.logger).Register(api)
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		handlers.ResponseWithJson(w, http.StatusOK, map[string]string{"service": s.ServiceName, "status": "ok"})
	}).Methods("GET")

	s.router = r
	return nil
}

// Handler returns the router built by Init
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the port and serves in a goroutine
func (s *Server) Start(ctx context.Context) error {
	// Set up server
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}
	s.listener = listener

	// Start the server in a goroutine
	go func() {
		s.logger.Info("Server listening", "addr", listener.Addr().String(), "service", s.ServiceName)
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) {
	if s.srv == nil {
		return
	}
	s.logger.Info("Shutting down http server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
	}
}
