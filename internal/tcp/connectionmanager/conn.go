package connectionmanager

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/tcp/defs"
)

var ErrDuplicateWorker = errors.New("worker already connected")

// ConnectionManager handles TCP connections of registered workers
type ConnectionManager struct {
	Connections  map[int]net.Conn
	shutdownSent map[int]bool
	ConnMutex    sync.RWMutex
	Logger       primary.Logger
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(logger primary.Logger) *ConnectionManager {
	return &ConnectionManager{
		Connections:  make(map[int]net.Conn),
		shutdownSent: make(map[int]bool),
		Logger:       logger,
	}
}

// RegisterWorker registers a worker connection, one per worker id
func (cm *ConnectionManager) RegisterWorker(workerID int, conn net.Conn) error {
	cm.ConnMutex.Lock()
	defer cm.ConnMutex.Unlock()

	if _, exists := cm.Connections[workerID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateWorker, workerID)
	}
	cm.Connections[workerID] = conn
	return nil
}

// RemoveWorker removes a worker when its connection is closed
func (cm *ConnectionManager) RemoveWorker(workerID int) {
	cm.ConnMutex.Lock()
	delete(cm.Connections, workerID)
	cm.ConnMutex.Unlock()
}

// GetConnection returns the connection for a specific worker
func (cm *ConnectionManager) GetConnection(workerID int) (net.Conn, bool) {
	cm.ConnMutex.RLock()
	defer cm.ConnMutex.RUnlock()

	conn, exists := cm.Connections[workerID]
	return conn, exists
}

// MarkShutdown records that the worker was sent its shutdown command
func (cm *ConnectionManager) MarkShutdown(workerID int) {
	cm.ConnMutex.Lock()
	cm.shutdownSent[workerID] = true
	cm.ConnMutex.Unlock()
}

// ShutdownSent reports whether a disconnect of the worker is expected
func (cm *ConnectionManager) ShutdownSent(workerID int) bool {
	cm.ConnMutex.RLock()
	defer cm.ConnMutex.RUnlock()
	return cm.shutdownSent[workerID]
}

// WorkerIDs returns the connected worker ids in ascending order
func (cm *ConnectionManager) WorkerIDs() []int {
	cm.ConnMutex.RLock()
	defer cm.ConnMutex.RUnlock()

	ids := make([]int, 0, len(cm.Connections))
	for id := range cm.Connections {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// CloseAll closes every registered connection
func (cm *ConnectionManager) CloseAll() {
	cm.ConnMutex.Lock()
	defer cm.ConnMutex.Unlock()

	for workerID, conn := range cm.Connections {
		if err := conn.Close(); err != nil {
			cm.Logger.Error("Failed to close connection", "workerID", workerID, "error", err)
		}
	}
	clear(cm.Connections)
}

// SendErrorMessage sends an error message to a worker
func SendErrorMessage(conn net.Conn, code int, message string) {
	errorData := defs.ErrorData{
		Code:    code,
		Message: message,
	}

	errorBytes, err := json.Marshal(errorData)
	if err != nil {
		// Can't do much if marshaling fails
		return
	}

	// Ignore errors here as the connection might be closing
	_ = SendMessage(conn, defs.MsgError, errorBytes)
}

// SendMessage writes one frame. Header and payload go out in a single
// Write so frames from concurrent senders never interleave.
func SendMessage(conn net.Conn, msgType byte, payload []byte) error {
	if len(payload) > defs.MaxPayloadSize {
		return fmt.Errorf("payload of %d bytes exceeds frame limit", len(payload))
	}

	frame := make([]byte, defs.HeaderSize+len(payload))
	binary.BigEndian.PutUint16(frame[0:2], defs.MagicNumber)
	frame[2] = msgType
	frame[3] = 0 // Reserved
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[defs.HeaderSize:], payload)

	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadMessage reads one frame and returns its type and payload
func ReadMessage(r io.Reader) (byte, []byte, error) {
	// Read message header
	header := make([]byte, defs.HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	// Parse header
	magic := binary.BigEndian.Uint16(header[0:2])
	msgType := header[2]
	payloadLen := binary.BigEndian.Uint32(header[4:8])

	// Validate magic number
	if magic != defs.MagicNumber {
		return 0, nil, fmt.Errorf("invalid magic number: %x", magic)
	}
	if payloadLen > defs.MaxPayloadSize {
		return 0, nil, fmt.Errorf("frame payload of %d bytes exceeds limit", payloadLen)
	}

	// Read payload
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}

	return msgType, payload, nil
}
