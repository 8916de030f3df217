package tcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/core/services/worker"
	"gitlab.com/steer-2025.net/internal/domain"
	"gitlab.com/steer-2025.net/internal/static/errs"
	"gitlab.com/steer-2025.net/internal/tcp/connectionmanager"
	"gitlab.com/steer-2025.net/internal/tcp/defs"
	"gitlab.com/steer-2025.net/internal/tcp/handlers"
	"gitlab.com/steer-2025.net/internal/tcp/publishers"
)

var (
	_ primary.MasterTransport = (*TCPServer)(nil)
	_ handlers.ReportSink     = (*TCPServer)(nil)
)

type inboundReport struct {
	workerID int
	report   *domain.Message
}

// TCPServer is the master side of the multi-process transport. Each
// worker connection gets a reader goroutine that decodes frames and
// pushes reports onto a single channel consumed by RecvReport.
type TCPServer struct {
	address       string
	nWorkers      int
	runID         string
	workerService worker.IWorkerRegistrationService
	handshake     primary.HandshakeService
	logger        primary.Logger
	listener      net.Listener
	connectionMgr *connectionmanager.ConnectionManager
	handlers      map[byte]primary.MessageHandler
	publisher     primary.MessagePublisher

	reports  chan inboundReport
	failures chan error
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// TCPServerOption configures a TCPServer
type TCPServerOption func(*TCPServer)

// WithAddress sets the server address
func WithAddress(address string) TCPServerOption {
	return func(s *TCPServer) {
		s.address = address
	}
}

// WithHandshake requires workers to present a token issued by handshake
func WithHandshake(handshake primary.HandshakeService) TCPServerOption {
	return func(s *TCPServer) {
		s.handshake = handshake
	}
}

// NewTCPServer creates a new TCP server for nWorkers workers
func NewTCPServer(
	nWorkers int,
	runID string,
	workerService worker.IWorkerRegistrationService,
	logger primary.Logger,
	options ...TCPServerOption,
) *TCPServer {
	server := &TCPServer{
		address:       ":9000", // Default address
		nWorkers:      nWorkers,
		runID:         runID,
		workerService: workerService,
		logger:        logger,
		connectionMgr: connectionmanager.NewConnectionManager(logger),
		reports:       make(chan inboundReport),
		failures:      make(chan error, nWorkers+1),
		stopCh:        make(chan struct{}),
	}

	// Apply options
	for _, option := range options {
		option(server)
	}

	// Register message handlers
	server.setupMessageHandlers()

	return server
}

// setupMessageHandlers registers all message handlers
func (s *TCPServer) setupMessageHandlers() {
	s.handlers = map[byte]primary.MessageHandler{
		defs.MsgWorkerRegister: &handlers.WorkerRegistrationHandler{
			NWorkers:      s.nWorkers,
			RunID:         s.runID,
			WorkerService: s.workerService,
			Handshake:     s.handshake,
			ConnectionMgr: s.connectionMgr,
			Logger:        s.logger,
		},
		defs.MsgWorkerHeartbeat: &handlers.WorkerHeartbeatHandler{WorkerService: s.workerService, Logger: s.logger},
		defs.MsgReport:          &handlers.ReportHandler{Sink: s, WorkerService: s.workerService, Logger: s.logger},
	}

	s.publisher = publishers.NewCommandPublisher(s.workerService, s.connectionMgr, s.logger)
}

// Start starts the TCP server
func (s *TCPServer) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("%w: failed to start TCP server: %w", errs.ErrTransport, err)
	}

	s.logger.Info("TCP server listening", "address", s.listener.Addr().String(), "workers", s.nWorkers)

	// Accept connections in a goroutine
	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

// Addr returns the bound listener address, or the configured one before Start
func (s *TCPServer) Addr() string {
	if s.listener == nil {
		return s.address
	}
	return s.listener.Addr().String()
}

// Connected returns the ids of the registered workers
func (s *TCPServer) Connected() []int {
	return s.connectionMgr.WorkerIDs()
}

// Stop closes the listener and every worker connection, then waits for
// the connection goroutines until ctx ends.
func (s *TCPServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		// Close listener
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				s.logger.Error("Failed to close listener", "error", err)
			}
		}

		// Close all connections
		s.connectionMgr.CloseAll()
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *TCPServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Stop(ctx)
}

// RecvReport blocks until a worker report arrives
func (s *TCPServer) RecvReport(ctx context.Context) (int, *domain.Message, error) {
	select {
	case in := <-s.reports:
		return in.workerID, in.report, nil
	case err := <-s.failures:
		return 0, nil, err
	case <-ctx.Done():
		return 0, nil, fmt.Errorf("%w: receive report: %w", errs.ErrTransport, ctx.Err())
	case <-s.stopCh:
		return 0, nil, fmt.Errorf("%w: server stopped", errs.ErrTransport)
	}
}

// SendCommand encodes msg and writes it to the worker's connection
func (s *TCPServer) SendCommand(ctx context.Context, workerID int, msg *domain.Message) error {
	conn, exists := s.connectionMgr.GetConnection(workerID)
	if !exists {
		return fmt.Errorf("%w: worker %d not connected", errs.ErrTransport, workerID)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: encode command for worker %d: %w", errs.ErrTransport, workerID, err)
	}

	name, _ := msg.GetString(domain.FieldCommand)
	target := domain.WorkerInfo{
		RunID:   s.runID,
		ID:      workerID,
		Stopped: name == domain.CommandShutdown,
	}
	return s.publisher.PublishMessage(ctx, conn, payload, target)
}

// DeliverReport hands a decoded report to RecvReport
func (s *TCPServer) DeliverReport(ctx context.Context, workerID int, report *domain.Message) error {
	select {
	case s.reports <- inboundReport{workerID: workerID, report: report}:
		return nil
	case <-s.stopCh:
		return fmt.Errorf("%w: server stopped", errs.ErrTransport)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// acceptConnections accepts incoming connections
func (s *TCPServer) acceptConnections() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				s.logger.Error("Failed to accept connection", "error", err)
				time.Sleep(defs.ConnectionRetryDelay) // Avoid tight loop on error
				continue
			}
		}

		// Handle connection in a goroutine
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection reads frames from a single worker connection
func (s *TCPServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Set initial timeout for registration
	_ = conn.SetDeadline(time.Now().Add(defs.InitialRegistrationTimeout))

	var workerID int
	for {
		msgType, payload, err := connectionmanager.ReadMessage(conn)
		if err != nil {
			s.disconnect(ctx, workerID, err)
			return
		}

		// Find handler for message type
		handler, exists := s.handlers[msgType]
		if !exists {
			s.logger.Error("Unknown message type", "type", msgType)
			connectionmanager.SendErrorMessage(conn, defs.ErrCodeUnknownMessage, fmt.Sprintf("Unknown message type: %d", msgType))
			continue
		}

		registered := workerID != 0
		if err := handler.HandleMessage(ctx, conn, payload, &workerID); err != nil {
			s.logger.Error("Error handling message", "type", msgType, "workerID", workerID, "error", err)
			s.disconnect(ctx, workerID, err)
			return
		}

		// After successful registration, remove timeout
		if !registered && workerID != 0 {
			_ = conn.SetDeadline(time.Time{})
		}
	}
}

// disconnect drops a worker connection. Closing after the shutdown
// command is the orderly end of a worker; any other loss of a registered
// worker is reported to the scheduler.
func (s *TCPServer) disconnect(ctx context.Context, workerID int, cause error) {
	select {
	case <-s.stopCh:
		return
	default:
	}
	if workerID == 0 {
		if !errors.Is(cause, io.EOF) {
			s.logger.Warn("Unregistered connection dropped", "error", cause)
		}
		return
	}

	s.connectionMgr.RemoveWorker(workerID)
	if err := s.workerService.Disconnect(ctx, workerID); err != nil {
		s.logger.Warn("Failed to drop worker presence", "workerID", workerID, "error", err)
	}

	if s.connectionMgr.ShutdownSent(workerID) && errors.Is(cause, io.EOF) {
		s.logger.Info("Worker disconnected", "workerID", workerID)
		return
	}

	s.logger.Error("Worker connection lost", "workerID", workerID, "error", cause)
	select {
	case s.failures <- fmt.Errorf("%w: worker %d disconnected: %w", errs.ErrTransport, workerID, cause):
	default:
	}
}
