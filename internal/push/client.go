package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

// Client is a connection to the push relay. It registers the device,
// sends pushes, and receives deliveries, reconnecting with exponential
// backoff when the relay goes away.
type Client struct {
	socketPath string
	logger     *slog.Logger

	mu           sync.Mutex
	conn         net.Conn
	encoder      *json.Encoder
	decoder      *json.Decoder
	closed       bool
	subscription *Subscribe
	lastSequence int64

	// Reconnection configuration
	maxRetries  int
	baseDelay   time.Duration
	readTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBackoff sets how often and how patiently the client reconnects.
func WithBackoff(maxRetries int, baseDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

// WithReadTimeout bounds how long the client waits for any message before
// treating the connection as dead. It must exceed the relay ping interval.
func WithReadTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.readTimeout = d }
}

// NewClient creates a client but does not connect.
func NewClient(socketPath string, opts ...ClientOption) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		socketPath:  socketPath,
		logger:      slog.Default(),
		maxRetries:  5,
		baseDelay:   time.Second,
		readTimeout: 60 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the relay. A subscription made earlier is sent again on the
// new connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return ClassifyRelayError(err)
	}

	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.encoder = json.NewEncoder(conn)
	c.decoder = json.NewDecoder(conn)
	c.lastSequence = 0

	if c.subscription != nil {
		sub := *c.subscription
		if err := c.writeLocked(Message{Type: TypeSubscribe, Subscribe: &sub}); err != nil {
			_ = conn.Close()
			c.conn = nil
			return fmt.Errorf("failed to resubscribe: %w", err)
		}
	}
	return nil
}

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Subscribe registers this connection as device token of userID.
func (c *Client) Subscribe(userID, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subscription = &Subscribe{UserID: userID, Token: token}
	sub := *c.subscription
	return c.writeLocked(Message{Type: TypeSubscribe, Subscribe: &sub})
}

// Send asks the relay to deliver payload to every device of p.UserID.
func (c *Client) Send(p Push) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(Message{Type: TypePush, Push: &p})
}

func (c *Client) writeLocked(msg Message) error {
	if c.closed {
		return ErrClosed
	}
	if c.conn == nil {
		return ErrNotConnected
	}

	// Short write deadline to detect dead connections
	if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	msg.Version = ProtocolVersion
	return c.encoder.Encode(msg)
}

// Listen delivers pushes addressed to this device. The channel is closed
// when ctx is done, the client is closed, or reconnection gives up.
func (c *Client) Listen(ctx context.Context) (<-chan Delivery, error) {
	c.mu.Lock()
	connected := c.conn != nil
	c.mu.Unlock()
	if !connected {
		return nil, ErrNotConnected
	}

	deliveries := make(chan Delivery, 10)
	go c.listenLoop(ctx, deliveries)
	return deliveries, nil
}

func (c *Client) listenLoop(ctx context.Context, out chan Delivery) {
	defer close(out)

	for {
		err := c.readMessages(ctx, out)
		if ctx.Err() != nil || c.isClosed() {
			return
		}

		c.logger.Warn("relay connection lost, reconnecting", "error", err)
		if !c.reconnect(ctx) {
			c.logger.Error("failed to reconnect to relay, giving up", "attempts", c.maxRetries)
			return
		}
		c.logger.Info("reconnected to relay")
	}
}

func (c *Client) readMessages(ctx context.Context, out chan Delivery) error {
	for {
		var msg Message

		c.mu.Lock()
		if c.conn == nil {
			c.mu.Unlock()
			return ErrNotConnected
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("failed to set read deadline: %w", err)
		}
		decoder := c.decoder
		c.mu.Unlock()

		if err := decoder.Decode(&msg); err != nil {
			return fmt.Errorf("failed to decode message: %w", err)
		}

		if msg.Version != 0 && msg.Version != ProtocolVersion {
			c.logger.Warn("relay protocol version mismatch", "got", msg.Version, "want", ProtocolVersion)
		}

		switch msg.Type {
		case TypeDelivery:
			if msg.Delivery == nil {
				continue
			}
			c.mu.Lock()
			fresh := msg.Delivery.SequenceID > c.lastSequence
			if fresh {
				c.lastSequence = msg.Delivery.SequenceID
			}
			c.mu.Unlock()
			if !fresh {
				c.logger.Debug("dropping duplicate delivery", "sequence_id", msg.Delivery.SequenceID)
				continue
			}
			select {
			case out <- *msg.Delivery:
			case <-ctx.Done():
				return ctx.Err()
			}

		case TypePing:
			c.mu.Lock()
			err := c.writeLocked(Message{Type: TypePong})
			c.mu.Unlock()
			if err != nil && !isConnectionError(err) {
				c.logger.Warn("failed to send pong", "error", err)
			}

		case TypeAck:
			if msg.Ack != nil {
				c.logger.Debug("relay confirmed subscription", "user_id", msg.Ack.UserID)
			}
		}
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// isConnectionError checks if an error is a network connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset")
}

// reconnect retries Connect up to maxRetries times, doubling the delay
// after each failure.
func (c *Client) reconnect(ctx context.Context) bool {
	delay := c.baseDelay

	for i := 0; i < c.maxRetries; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-c.ctx.Done():
			return false
		case <-time.After(delay):
			err := c.Connect(ctx)
			if err == nil {
				c.logger.Info("relay reconnect succeeded", "attempt", i+1, "max_retries", c.maxRetries)
				return true
			}
			if errors.Is(err, ErrClosed) {
				return false
			}
			c.logger.Debug("relay reconnect failed", "attempt", i+1, "retry_in", delay*2, "error", err)
			delay *= 2
		}
	}
	return false
}

// Close closes the connection and stops listening.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.cancel()

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
