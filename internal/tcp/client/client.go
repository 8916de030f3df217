package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"gitlab.com/steer-2025.net/internal/core/ports/primary"
	"gitlab.com/steer-2025.net/internal/domain"
	"gitlab.com/steer-2025.net/internal/static/errs"
	"gitlab.com/steer-2025.net/internal/tcp/connectionmanager"
	"gitlab.com/steer-2025.net/internal/tcp/defs"
)

var _ primary.WorkerTransport = (*Client)(nil)

// Client is the worker side of the multi-process transport
type Client struct {
	workerID int
	token    string
	logger   primary.Logger

	heartbeatInterval time.Duration

	conn      net.Conn
	runID     string
	closeOnce sync.Once
	stopCh    chan struct{}
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithToken sets the handshake token presented at registration
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithHeartbeat sends a heartbeat frame every interval while connected
func WithHeartbeat(interval time.Duration) ClientOption {
	return func(c *Client) {
		c.heartbeatInterval = interval
	}
}

// Dial connects to the master at addr, retrying until ctx ends, and
// registers as workerID.
func Dial(ctx context.Context, addr string, workerID int, logger primary.Logger, options ...ClientOption) (*Client, error) {
	c := &Client{
		workerID: workerID,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
	for _, option := range options {
		option(c)
	}

	var dialer net.Dialer
	for {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			c.conn = conn
			break
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: dial master %s: %w", errs.ErrTransport, addr, err)
		}
		logger.Debug("Master not reachable yet", "address", addr, "error", err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: dial master %s: %w", errs.ErrTransport, addr, ctx.Err())
		case <-time.After(defs.DialRetryDelay):
		}
	}

	if err := c.register(ctx); err != nil {
		_ = c.conn.Close()
		return nil, err
	}

	if c.heartbeatInterval > 0 {
		go c.heartbeat()
	}
	logger.Info("Connected to master", "address", addr, "workerID", workerID, "runId", c.runID)
	return c, nil
}

// RunID returns the run id announced by the master
func (c *Client) RunID() string {
	return c.runID
}

func (c *Client) register(ctx context.Context) error {
	hostname, _ := os.Hostname()
	payload, err := json.Marshal(defs.WorkerRegistrationData{
		WorkerID: c.workerID,
		Token:    c.token,
		Hostname: hostname,
	})
	if err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Now().Add(defs.InitialRegistrationTimeout))
	}
	defer func() { _ = c.conn.SetDeadline(time.Time{}) }()

	if err := connectionmanager.SendMessage(c.conn, defs.MsgWorkerRegister, payload); err != nil {
		return fmt.Errorf("%w: register worker %d: %w", errs.ErrTransport, c.workerID, err)
	}

	msgType, reply, err := connectionmanager.ReadMessage(c.conn)
	if err != nil {
		return fmt.Errorf("%w: await registration ack: %w", errs.ErrTransport, err)
	}
	switch msgType {
	case defs.MsgRegisterAck:
		var ack defs.RegisterAckData
		if err := json.Unmarshal(reply, &ack); err != nil {
			return fmt.Errorf("%w: decode registration ack: %w", errs.ErrTransport, err)
		}
		c.runID = ack.RunID
		return nil
	case defs.MsgError:
		return remoteError(reply)
	default:
		return fmt.Errorf("%w: unexpected frame type %d during registration", errs.ErrProtocol, msgType)
	}
}

// SendToMaster writes a report frame
func (c *Client) SendToMaster(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: send report: %w", errs.ErrTransport, err)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: encode report: %w", errs.ErrTransport, err)
	}
	if err := connectionmanager.SendMessage(c.conn, defs.MsgReport, payload); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrTransport, err)
	}
	return nil
}

// RecvFromMaster blocks until a command frame arrives. Cancelling ctx
// unblocks the read by expiring the connection deadline.
func (c *Client) RecvFromMaster(ctx context.Context) (*domain.Message, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		msgType, payload, err := connectionmanager.ReadMessage(c.conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: receive command: %w", errs.ErrTransport, ctx.Err())
			}
			return nil, fmt.Errorf("%w: receive command: %w", errs.ErrTransport, err)
		}

		switch msgType {
		case defs.MsgCommand:
			command := domain.NewMessage()
			if err := json.Unmarshal(payload, command); err != nil {
				return nil, fmt.Errorf("%w: decode command: %w", errs.ErrTransport, err)
			}
			return command, nil
		case defs.MsgError:
			return nil, remoteError(payload)
		default:
			c.logger.Warn("Ignoring unexpected frame", "type", msgType, "workerID", c.workerID)
		}
	}
}

func (c *Client) heartbeat() {
	ticker := time.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			payload, err := json.Marshal(defs.WorkerHeartbeatData{WorkerID: c.workerID, Timestamp: now.Unix()})
			if err != nil {
				continue
			}
			if err := connectionmanager.SendMessage(c.conn, defs.MsgWorkerHeartbeat, payload); err != nil {
				if !errors.Is(err, net.ErrClosed) {
					c.logger.Warn("Failed to send heartbeat", "workerID", c.workerID, "error", err)
				}
				return
			}
		}
	}
}

// Close stops the heartbeat and closes the connection
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stopCh)
		err = c.conn.Close()
	})
	return err
}

func remoteError(payload []byte) error {
	var data defs.ErrorData
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("%w: undecodable error frame", errs.ErrProtocol)
	}
	return fmt.Errorf("%w: master rejected worker (%d): %s", errs.ErrTransport, data.Code, data.Message)
}
