package push

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/thenoetrevino/collabflow/internal/auth"
	"github.com/thenoetrevino/collabflow/internal/models"
	"github.com/thenoetrevino/collabflow/internal/services/notification"
	"github.com/thenoetrevino/collabflow/internal/types"
)

// Permission policies accepted in configuration.
const (
	PolicyGranted = "granted"
	PolicyDenied  = "denied"
	PolicyPrompt  = "prompt"
)

// BackgroundHandler shows deliveries that arrive while nothing in the
// foreground is listening.
type BackgroundHandler interface {
	HandleBackground(ctx context.Context, p models.PushPayload) error
}

// Prompter asks the user whether notifications may be shown.
type Prompter func(ctx context.Context) (notification.Permission, error)

// MessagingConfig wires a Messaging.
type MessagingConfig struct {
	Client   *Client
	Identity auth.Identity
	Worker   BackgroundHandler
	// Policy is one of PolicyGranted, PolicyDenied, PolicyPrompt.
	Policy string
	Prompt Prompter
	NewID  types.IDFunc
	Logger *slog.Logger
}

// Messaging implements the notification pipeline's push contract on top of
// the relay client.
type Messaging struct {
	client   *Client
	identity auth.Identity
	worker   BackgroundHandler
	policy   string
	prompt   Prompter
	newID    types.IDFunc
	logger   *slog.Logger

	mu         sync.Mutex
	registered bool
	token      string
	handlers   map[int]func(models.PushPayload)
	nextID     int
	listening  bool
	stop       context.CancelFunc
}

var _ notification.Messaging = (*Messaging)(nil)

func NewMessaging(cfg MessagingConfig) *Messaging {
	m := &Messaging{
		client:   cfg.Client,
		identity: cfg.Identity,
		worker:   cfg.Worker,
		policy:   cfg.Policy,
		prompt:   cfg.Prompt,
		newID:    cfg.NewID,
		logger:   cfg.Logger,
		handlers: make(map[int]func(models.PushPayload)),
	}
	if m.newID == nil {
		m.newID = types.NewID
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.policy == "" {
		m.policy = PolicyPrompt
	}
	return m
}

// RequestPermission applies the configured policy. Without a prompter the
// prompt policy leaves the permission undecided.
func (m *Messaging) RequestPermission(ctx context.Context) (notification.Permission, error) {
	switch m.policy {
	case PolicyGranted:
		return notification.PermissionGranted, nil
	case PolicyDenied:
		return notification.PermissionDenied, nil
	case PolicyPrompt:
		if m.prompt == nil {
			return notification.PermissionDefault, nil
		}
		return m.prompt(ctx)
	default:
		return "", fmt.Errorf("unknown permission policy %q", m.policy)
	}
}

// RegisterWorker installs the background handler. A new registration
// invalidates the previous token.
func (m *Messaging) RegisterWorker(ctx context.Context) error {
	if m.worker == nil {
		return fmt.Errorf("no background worker configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = true
	m.token = ""
	return nil
}

// Token issues a device token for this registration and subscribes the relay
// connection under it.
func (m *Messaging) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.registered {
		return "", fmt.Errorf("background worker not registered")
	}
	if m.token != "" {
		return m.token, nil
	}

	u, ok := m.identity.CurrentUser()
	if !ok {
		return "", ErrNoUser
	}

	if !m.client.Connected() {
		if err := m.client.Connect(ctx); err != nil {
			return "", err
		}
	}

	token := m.newID()
	if err := m.client.Subscribe(u.ID, token); err != nil {
		return "", fmt.Errorf("subscribe device: %w", err)
	}
	m.token = token

	if !m.listening {
		if err := m.startListening(); err != nil {
			return "", err
		}
	}
	return token, nil
}

func (m *Messaging) startListening() error {
	ctx, cancel := context.WithCancel(context.Background())
	deliveries, err := m.client.Listen(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("listen for deliveries: %w", err)
	}
	m.listening = true
	m.stop = cancel

	go func() {
		for d := range deliveries {
			m.dispatch(ctx, d)
		}
		m.mu.Lock()
		m.listening = false
		m.mu.Unlock()
	}()
	return nil
}

// dispatch hands a delivery to foreground handlers, or to the background
// worker when there are none.
func (m *Messaging) dispatch(ctx context.Context, d Delivery) {
	m.mu.Lock()
	fns := make([]func(models.PushPayload), 0, len(m.handlers))
	for _, fn := range m.handlers {
		fns = append(fns, fn)
	}
	worker := m.worker
	m.mu.Unlock()

	if len(fns) > 0 {
		for _, fn := range fns {
			fn(d.Payload)
		}
		return
	}
	if worker == nil {
		m.logger.Debug("dropping delivery: no handler", "sequence_id", d.SequenceID)
		return
	}
	if err := worker.HandleBackground(ctx, d.Payload); err != nil {
		m.logger.Warn("background delivery failed", "sequence_id", d.SequenceID, "error", err)
	}
}

// OnMessage routes deliveries to fn while the app is in the foreground.
func (m *Messaging) OnMessage(fn func(models.PushPayload)) (func(), error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.handlers, id)
			m.mu.Unlock()
		})
	}, nil
}

// Close stops listening. The relay client is closed by its owner.
func (m *Messaging) Close() {
	m.mu.Lock()
	stop := m.stop
	m.stop = nil
	m.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// TerminalPrompt asks on out and reads a y/n answer from in.
func TerminalPrompt(in io.Reader, out io.Writer) Prompter {
	return func(ctx context.Context) (notification.Permission, error) {
		fmt.Fprint(out, "Allow collabflow to show notifications? [y/N] ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return notification.PermissionGranted, nil
		case "":
			return notification.PermissionDefault, nil
		default:
			return notification.PermissionDenied, nil
		}
	}
}
