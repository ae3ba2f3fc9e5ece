// internal/protocol/client.go
package protocol

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"heatpump-collector/internal/model"
)

// Errors returned by Client. A read that exhausts all attempts yields a
// wrapped ErrReadFailed; callers treat it as "value unavailable".
var (
	ErrNotConnected = errors.New("protocol: not connected")
	ErrReadFailed   = errors.New("protocol: read failed after all attempts")
)

// ConnectionState represents the connection lifecycle of one device link
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

// String returns a human-readable representation of the state
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Client owns one device connection. It hides connection management and
// retry behind ReadWords: each read gets retries+1 attempts with
// exponential backoff, reconnecting as needed. All calls for the same
// device are serialized by a single mutex; different devices are fully
// independent.
type Client struct {
	transport  Transport
	retries    int
	retryDelay time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	state   ConnectionState
	lastErr error
}

// NewClient creates a client over the given transport
func NewClient(transport Transport, cfg *model.ConnectionConfig, logger *zap.Logger) *Client {
	return &Client{
		transport:  transport,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay(),
		logger:     logger,
		state:      StateDisconnected,
	}
}

// Connect establishes the device connection. It is idempotent: when the
// client is already connected it returns immediately without side effects.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	if c.state == StateConnected {
		return nil
	}

	c.state = StateConnecting
	if err := c.transport.Connect(); err != nil {
		c.state = StateDisconnected
		c.lastErr = err
		c.logger.Error("Failed to connect", zap.Error(err))
		return err
	}

	c.state = StateConnected
	c.lastErr = nil
	c.logger.Info("Connected")
	return nil
}

// Disconnect closes the connection. Idempotent; no reconnect happens
// afterwards until Connect is called again.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisconnected {
		return nil
	}

	err := c.transport.Close()
	c.state = StateDisconnected
	if err != nil {
		c.logger.Warn("Error closing connection", zap.Error(err))
		return err
	}
	c.logger.Info("Disconnected")
	return nil
}

// State returns the current connection state
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the most recent connection or read error
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ReadWords reads quantity registers of the given kind starting at
// address. On each failed attempt it downgrades the state to disconnected,
// waits the backoff delay and reconnects on the next attempt. Exhausting
// all attempts returns a wrapped ErrReadFailed.
func (c *Client) ReadWords(kind model.RegisterKind, address, quantity uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	attempts := c.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		words, err := c.readOnce(kind, address, quantity)
		if err == nil {
			return words, nil
		}

		c.lastErr = err
		c.state = StateDisconnected
		c.logger.Warn("Read attempt failed",
			zap.Uint16("address", address),
			zap.String("kind", string(kind)),
			zap.Int("attempt", attempt+1),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)

		if attempt < attempts-1 {
			time.Sleep(backoffDelay(c.retryDelay, attempt))
		}
	}

	c.logger.Error("Read failed after all attempts",
		zap.Uint16("address", address),
		zap.String("kind", string(kind)),
		zap.Int("attempts", attempts),
	)
	return nil, fmt.Errorf("%w: %s register %d: %v", ErrReadFailed, kind, address, c.lastErr)
}

// readOnce performs one connect-if-needed plus read attempt
func (c *Client) readOnce(kind model.RegisterKind, address, quantity uint16) ([]uint16, error) {
	if c.state != StateConnected {
		if err := c.connectLocked(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
		}
	}

	var data []byte
	var err error
	switch kind {
	case model.RegisterKindHolding:
		data, err = c.transport.ReadHoldingRegisters(address, quantity)
	case model.RegisterKindInput:
		data, err = c.transport.ReadInputRegisters(address, quantity)
	default:
		return nil, fmt.Errorf("invalid register kind %q", kind)
	}
	if err != nil {
		return nil, err
	}

	words, err := WordsFromBytes(data)
	if err != nil {
		return nil, err
	}
	if len(words) != int(quantity) {
		return nil, fmt.Errorf("short read: got %d words, want %d", len(words), quantity)
	}
	return words, nil
}

// backoffDelay is the retry backoff policy: base doubled per completed
// attempt (base × 2^attempt).
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt > 16 {
		attempt = 16
	}
	return base * time.Duration(1<<uint(attempt))
}
