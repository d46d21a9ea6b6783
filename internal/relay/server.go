// Package relay is the push relay: a unix-socket daemon that fans pushes
// out to every connected device of the addressed user.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thenoetrevino/collabflow/internal/push"
)

// client is one connected device.
type client struct {
	conn      net.Conn
	send      chan push.Message
	userID    string
	token     string
	lastPong  time.Time
	mu        sync.Mutex // Protects userID, token and lastPong
	closeOnce sync.Once  // Ensures send channel is closed only once
}

// Server is the relay daemon.
type Server struct {
	socketPath       string
	listener         net.Listener
	clients          map[*client]bool
	mu               sync.RWMutex
	ctx              context.Context
	cancel           context.CancelFunc
	pushes           chan push.Push
	metrics          *Metrics
	sequenceCounter  atomic.Int64
	clientBufferSize int
	pingInterval     time.Duration
	staleAfter       time.Duration
	logger           *slog.Logger
	shutdownOnce     sync.Once
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHealthCheck sets how often clients are pinged and how long a client
// may stay silent before it is dropped.
func WithHealthCheck(ping, stale time.Duration) Option {
	return func(s *Server) {
		s.pingInterval = ping
		s.staleAfter = stale
	}
}

// getEnvInt reads a positive integer from the environment, returning
// defaultVal if unset or invalid
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}

// NewServer listens on socketPath, replacing a stale socket file.
func NewServer(socketPath string, opts ...Option) (*Server, error) {
	if dir := filepath.Dir(socketPath); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create socket directory: %w", err)
		}
	}

	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create socket listener: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		socketPath:       socketPath,
		listener:         listener,
		clients:          make(map[*client]bool),
		ctx:              ctx,
		cancel:           cancel,
		pushes:           make(chan push.Push, getEnvInt("COLLABFLOW_RELAY_PUSH_BUFFER", 100)),
		metrics:          NewMetrics(),
		clientBufferSize: getEnvInt("COLLABFLOW_RELAY_CLIENT_BUFFER", 10),
		pingInterval:     30 * time.Second,
		staleAfter:       90 * time.Second,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SocketPath is where the relay listens.
func (s *Server) SocketPath() string { return s.socketPath }

// Start serves until ctx is cancelled or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("relay starting", "socket", s.socketPath)

	combinedCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-s.ctx.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	acceptErr := make(chan error, 1)
	go func() {
		acceptErr <- s.acceptLoop(combinedCtx)
	}()
	go s.fanoutLoop(combinedCtx)
	go s.monitorHealth(combinedCtx)

	select {
	case <-combinedCtx.Done():
		s.logger.Info("relay context cancelled, shutting down")
	case err := <-acceptErr:
		if err != nil {
			s.logger.Error("accept loop failed", "error", err)
		}
	}

	return s.Shutdown()
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		// Deadline so the loop notices cancellation
		if ul, ok := s.listener.(*net.UnixListener); ok {
			if err := ul.SetDeadline(time.Now().Add(time.Second)); err != nil {
				s.logger.Warn("failed to set listener deadline", "error", err)
			}
		}

		conn, err := s.listener.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept error: %w", err)
		}

		c := &client{
			conn:     conn,
			send:     make(chan push.Message, s.clientBufferSize),
			lastPong: time.Now(),
		}

		s.mu.Lock()
		s.clients[c] = true
		s.mu.Unlock()
		s.updateClientCount()

		s.logger.Debug("client connected", "clients", s.getClientCount())

		go s.handleClient(c)
		go s.clientWriter(c)
	}
}

// fanoutLoop numbers each push and queues it for the user's devices.
func (s *Server) fanoutLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case p, ok := <-s.pushes:
			if !ok {
				return
			}
			s.deliver(p)
		}
	}
}

func (s *Server) deliver(p push.Push) {
	d := push.Delivery{
		SequenceID: s.sequenceCounter.Add(1),
		UserID:     p.UserID,
		Payload:    p.Payload,
		SentAt:     time.Now().UTC(),
	}
	msg := push.Message{Version: push.ProtocolVersion, Type: push.TypeDelivery, Delivery: &d}

	delivered := 0
	s.mu.RLock()
	for c := range s.clients {
		c.mu.Lock()
		addressed := c.userID != "" && c.userID == p.UserID
		c.mu.Unlock()
		if !addressed {
			continue
		}
		if s.sendToClient(c, msg) {
			delivered++
		} else {
			s.metrics.IncDropped()
			s.logger.Warn("client send queue full, delivery dropped", "user_id", p.UserID, "sequence_id", d.SequenceID)
		}
	}
	s.mu.RUnlock()

	if delivered == 0 {
		s.metrics.IncUndelivered()
		s.logger.Debug("no device for push", "user_id", p.UserID, "sequence_id", d.SequenceID)
	}
}

func (s *Server) handleClient(c *client) {
	defer func() {
		s.removeClient(c)
		s.logger.Debug("client disconnected", "clients", s.getClientCount())
	}()

	decoder := json.NewDecoder(c.conn)
	for {
		var msg push.Message
		if err := decoder.Decode(&msg); err != nil {
			return
		}

		if msg.Version != 0 && msg.Version != push.ProtocolVersion {
			s.logger.Warn("client protocol version mismatch", "got", msg.Version, "want", push.ProtocolVersion)
		}

		switch msg.Type {
		case push.TypeSubscribe:
			if msg.Subscribe == nil || msg.Subscribe.UserID == "" {
				continue
			}
			c.mu.Lock()
			c.userID = msg.Subscribe.UserID
			c.token = msg.Subscribe.Token
			c.lastPong = time.Now()
			c.mu.Unlock()
			s.metrics.IncSubscriptions()
			s.logger.Info("device subscribed", "user_id", msg.Subscribe.UserID)

			s.sendToClient(c, push.Message{
				Version: push.ProtocolVersion,
				Type:    push.TypeAck,
				Ack:     &push.Ack{UserID: msg.Subscribe.UserID},
			})

		case push.TypePush:
			if msg.Push == nil {
				continue
			}
			if err := s.Publish(*msg.Push); err != nil {
				s.logger.Warn("push rejected", "user_id", msg.Push.UserID, "error", err)
			}

		case push.TypePong:
			c.mu.Lock()
			c.lastPong = time.Now()
			c.mu.Unlock()
		}
	}
}

func (s *Server) clientWriter(c *client) {
	encoder := json.NewEncoder(c.conn)
	for msg := range c.send {
		if err := encoder.Encode(msg); err != nil {
			return
		}
	}
}

// monitorHealth pings clients and drops those that stopped answering.
func (s *Server) monitorHealth(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	ping := push.Message{Version: push.ProtocolVersion, Type: push.TypePing}

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			var live, stale []*client

			s.mu.RLock()
			for c := range s.clients {
				c.mu.Lock()
				silent := now.Sub(c.lastPong)
				c.mu.Unlock()
				if silent > s.staleAfter {
					stale = append(stale, c)
				} else {
					live = append(live, c)
				}
			}
			s.mu.RUnlock()

			// Removal happens outside the server lock
			for _, c := range stale {
				s.logger.Info("removing stale client")
				s.removeClient(c)
			}
			for _, c := range live {
				if !s.sendToClient(c, ping) {
					s.logger.Debug("failed to ping client (queue full)")
				}
			}
		}
	}
}

// Publish queues a push for fan-out without blocking.
func (s *Server) Publish(p push.Push) error {
	if p.UserID == "" {
		return fmt.Errorf("push without user id")
	}
	select {
	case <-s.ctx.Done():
		return push.ErrClosed
	default:
	}
	select {
	case s.pushes <- p:
		s.metrics.IncPushesReceived()
		return nil
	default:
		return fmt.Errorf("push queue full")
	}
}

// Metrics returns a snapshot of the relay counters.
func (s *Server) Metrics() Snapshot {
	return s.metrics.Snapshot()
}

// Shutdown closes the listener and every client connection.
func (s *Server) Shutdown() error {
	s.shutdownOnce.Do(func() {
		s.logger.Info("relay shutting down")
		s.cancel()

		if s.listener != nil {
			if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("failed to close listener", "error", err)
			}
		}

		s.mu.Lock()
		for c := range s.clients {
			_ = c.conn.Close()
			c.closeOnce.Do(func() { close(c.send) })
		}
		s.clients = make(map[*client]bool)
		s.mu.Unlock()
		s.updateClientCount()

		if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove socket file", "error", err)
		}
	})
	return nil
}

func (s *Server) getClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) updateClientCount() {
	s.metrics.SetConnectedClients(int32(s.getClientCount()))
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()

	_ = c.conn.Close()
	c.closeOnce.Do(func() { close(c.send) })
	s.updateClientCount()
}

// sendToClient queues msg without blocking and reports whether it fit.
func (s *Server) sendToClient(c *client, msg push.Message) (ok bool) {
	// A concurrent removeClient may have closed the channel.
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- msg:
		if msg.Type == push.TypeDelivery {
			s.metrics.IncDeliveriesSent()
		}
		return true
	default:
		return false
	}
}
