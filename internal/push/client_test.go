package push

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/collabflow/internal/models"
)

// ============================================================================
// Test Helpers
// ============================================================================

// mockRelay accepts connections, records what clients send, and lets tests
// write to the most recent connection.
type mockRelay struct {
	t          *testing.T
	socketPath string
	listener   net.Listener
	received   chan Message

	mu    sync.Mutex
	conns []net.Conn
}

func startMockRelay(t *testing.T) *mockRelay {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "relay.sock")
	listener, err := (&net.ListenConfig{}).Listen(context.Background(), "unix", socketPath)
	require.NoError(t, err)

	m := &mockRelay{t: t, socketPath: socketPath, listener: listener, received: make(chan Message, 32)}
	t.Cleanup(m.stop)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			m.mu.Lock()
			m.conns = append(m.conns, conn)
			m.mu.Unlock()

			go func(c net.Conn) {
				dec := json.NewDecoder(c)
				for {
					var msg Message
					if err := dec.Decode(&msg); err != nil {
						return
					}
					select {
					case m.received <- msg:
					default:
					}
				}
			}(conn)
		}
	}()
	return m
}

func (m *mockRelay) stop() {
	_ = m.listener.Close()
	m.dropConnections()
	_ = os.Remove(m.socketPath)
}

func (m *mockRelay) dropConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conns {
		_ = c.Close()
	}
	m.conns = nil
}

func (m *mockRelay) send(msg Message) {
	m.t.Helper()
	require.Eventually(m.t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.conns) > 0
	}, time.Second, 5*time.Millisecond)

	m.mu.Lock()
	conn := m.conns[len(m.conns)-1]
	m.mu.Unlock()
	msg.Version = ProtocolVersion
	require.NoError(m.t, json.NewEncoder(conn).Encode(msg))
}

func (m *mockRelay) expect(typ MessageType) Message {
	m.t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-m.received:
			if msg.Type == typ {
				return msg
			}
		case <-deadline:
			m.t.Fatalf("relay never received %s", typ)
			return Message{}
		}
	}
}

func delivery(seq int64, body string) Message {
	return Message{Type: TypeDelivery, Delivery: &Delivery{
		SequenceID: seq,
		UserID:     "alice",
		Payload:    models.PushPayload{Notification: models.PushContent{Body: body}},
	}}
}

// ============================================================================
// Client Tests
// ============================================================================

func TestClientSubscribeAndSend(t *testing.T) {
	relay := startMockRelay(t)
	c := NewClient(relay.socketPath)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.Connected())

	require.NoError(t, c.Subscribe("alice", "tok"))
	sub := relay.expect(TypeSubscribe)
	assert.Equal(t, ProtocolVersion, sub.Version)
	assert.Equal(t, &Subscribe{UserID: "alice", Token: "tok"}, sub.Subscribe)

	require.NoError(t, c.Send(Push{UserID: "bob", Payload: models.PushPayload{Data: models.PushData{Type: "task"}}}))
	p := relay.expect(TypePush)
	require.NotNil(t, p.Push)
	assert.Equal(t, "bob", p.Push.UserID)
	assert.Equal(t, "task", p.Push.Payload.Data.Type)
}

func TestClientNotConnected(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "none.sock"))
	assert.ErrorIs(t, c.Send(Push{UserID: "a"}), ErrNotConnected)
	_, err := c.Listen(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClientConnectMissingSocket(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "none.sock"))
	err := c.Connect(context.Background())
	var re *RelayError
	require.ErrorAs(t, err, &re)
	assert.Contains(t, []ErrorCode{ErrSocketNotFound, ErrConnectionRefused, ErrRelayNotRunning}, re.Code)
}

func TestClientListenDedupesAndAnswersPing(t *testing.T) {
	relay := startMockRelay(t)
	c := NewClient(relay.socketPath)
	defer func() { _ = c.Close() }()
	require.NoError(t, c.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.Listen(ctx)
	require.NoError(t, err)

	relay.send(delivery(1, "one"))
	relay.send(delivery(1, "one again"))
	relay.send(delivery(2, "two"))
	relay.send(Message{Type: TypePing})

	first := <-ch
	second := <-ch
	assert.Equal(t, "one", first.Payload.Notification.Body)
	assert.Equal(t, "two", second.Payload.Notification.Body)

	relay.expect(TypePong)
}

func TestClientReconnectsAndResubscribes(t *testing.T) {
	relay := startMockRelay(t)
	c := NewClient(relay.socketPath, WithBackoff(5, 20*time.Millisecond))
	defer func() { _ = c.Close() }()
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Subscribe("alice", "tok"))
	relay.expect(TypeSubscribe)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.Listen(ctx)
	require.NoError(t, err)

	relay.dropConnections()

	// The subscription is replayed on the new connection.
	again := relay.expect(TypeSubscribe)
	assert.Equal(t, "alice", again.Subscribe.UserID)

	// Sequence numbering restarts with the connection.
	relay.send(delivery(1, "after reconnect"))
	select {
	case d := <-ch:
		assert.Equal(t, "after reconnect", d.Payload.Notification.Body)
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery after reconnect")
	}
}

func TestClientListenClosesOnClose(t *testing.T) {
	relay := startMockRelay(t)
	c := NewClient(relay.socketPath, WithBackoff(1, 10*time.Millisecond))
	require.NoError(t, c.Connect(context.Background()))

	ch, err := c.Listen(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("listen channel not closed")
	}
	assert.ErrorIs(t, c.Connect(context.Background()), ErrClosed)
}

// ============================================================================
// Error Classification
// ============================================================================

func TestClassifyRelayError(t *testing.T) {
	assert.Nil(t, ClassifyRelayError(nil))

	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"missing socket", &net.OpError{Op: "dial", Err: os.ErrNotExist}, ErrSocketNotFound},
		{"permission", &net.OpError{Op: "dial", Err: os.ErrPermission}, ErrSocketPermission},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, ErrConnectionRefused},
		{"other", errors.New("boom"), ErrRelayNotRunning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := ClassifyRelayError(tt.err)
			require.NotNil(t, re)
			assert.Equal(t, tt.want, re.Code)
			assert.NotEmpty(t, re.Hint)
			assert.ErrorIs(t, re, tt.err)
		})
	}
}
