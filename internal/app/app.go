package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/thenoetrevino/collabflow/internal/auth"
	"github.com/thenoetrevino/collabflow/internal/config"
	"github.com/thenoetrevino/collabflow/internal/docstore"
	"github.com/thenoetrevino/collabflow/internal/platform"
	"github.com/thenoetrevino/collabflow/internal/push"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
	notificationservice "github.com/thenoetrevino/collabflow/internal/services/notification"
	projectservice "github.com/thenoetrevino/collabflow/internal/services/project"
	"github.com/thenoetrevino/collabflow/internal/types"
	"github.com/thenoetrevino/collabflow/internal/user"
	"github.com/thenoetrevino/collabflow/internal/worker"
)

// App holds all application services and provides dependency injection.
// This is the main application container that manages service lifecycles.
type App struct {
	Config  *config.Config
	Store   docstore.Store
	Session *auth.Session
	Logger  *slog.Logger

	// Push plumbing
	Relay     *push.Client
	Messaging *push.Messaging
	Worker    *worker.Worker

	// Service layer (business logic)
	BoardService        boardservice.Service
	DragController      *boardservice.DragController
	ProjectService      projectservice.Service
	NotificationService notificationservice.Service

	now       types.Clock
	newID     types.IDFunc
	ownsStore bool
}

// New creates a new App with all services initialized.
// This is the single entry point for creating the application container.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := &appConfig{out: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if cfg == nil {
		cfg = config.Default()
	}

	store := o.store
	ownsStore := false
	if store == nil {
		var err error
		store, err = OpenStore(ctx, cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
		}
		ownsStore = true
	}

	session := auth.NewSession(auth.User{
		ID:          cfg.User.ID,
		Email:       cfg.User.Email,
		DisplayName: user.DisplayName(cfg.User.ID, cfg.User.DisplayName),
	})

	var boardOpts []boardservice.Option
	var projectOpts []projectservice.Option
	var notifyOpts []notificationservice.Option

	boardOpts = append(boardOpts, boardservice.WithLogger(o.logger))
	projectOpts = append(projectOpts, projectservice.WithLogger(o.logger))
	notifyOpts = append(notifyOpts, notificationservice.WithLogger(o.logger))
	boardOpts = append(boardOpts, boardservice.WithClock(o.now))
	projectOpts = append(projectOpts, projectservice.WithClock(o.now))
	notifyOpts = append(notifyOpts, notificationservice.WithClock(o.now))
	if o.newID != nil {
		boardOpts = append(boardOpts, boardservice.WithIDs(o.newID))
		projectOpts = append(projectOpts, projectservice.WithIDs(o.newID))
		notifyOpts = append(notifyOpts, notificationservice.WithIDs(o.newID))
	}
	if o.tracerProvider != nil {
		boardOpts = append(boardOpts, boardservice.WithTracerProvider(o.tracerProvider))
		notifyOpts = append(notifyOpts, notificationservice.WithTracerProvider(o.tracerProvider))
	}

	relay := push.NewClient(cfg.Relay.Socket, push.WithClientLogger(o.logger))
	w := worker.New(
		worker.TerminalDisplay{W: o.out},
		worker.WithLogger(o.logger),
		worker.WithWindows(worker.BrowserWindows{BaseURL: cfg.Notifications.OpenURL}),
	)
	messaging := push.NewMessaging(push.MessagingConfig{
		Client:   relay,
		Identity: session,
		Worker:   w,
		Policy:   cfg.Notifications.Permission,
		Prompt:   o.prompt,
		NewID:    o.newID,
		Logger:   o.logger,
	})

	boards := boardservice.NewService(store, boardOpts...)

	a := &App{
		Config:         cfg,
		Store:          store,
		Session:        session,
		Logger:         o.logger,
		Relay:          relay,
		Messaging:      messaging,
		Worker:         w,
		BoardService:   boards,
		DragController: boardservice.NewDragController(boards, o.logger),
		ProjectService: projectservice.NewService(store, session, projectOpts...),
		NotificationService: notificationservice.NewService(notificationservice.Deps{
			Store:     store,
			Identity:  session,
			Messaging: messaging,
			Platform:  platform.New(cfg.Relay.Socket),
			Sound:     notificationservice.BellPlayer{W: o.out, Logger: o.logger},
			Alerts:    notificationservice.WriterAlerter{W: o.out},
		}, notifyOpts...),
		now:       o.now,
		newID:     o.newID,
		ownsStore: ownsStore,
	}
	return a, nil
}

// Now is the application clock.
func (a *App) Now() time.Time {
	return a.now()
}

// NewID mints an id the same way the services do.
func (a *App) NewID() string {
	if a.newID == nil {
		return types.NewID()
	}
	return a.newID()
}

// Sender stores notifications in the app's store and pushes them through the
// relay client, dialing it on first use.
func (a *App) Sender(ctx context.Context) *push.Sender {
	return &push.Sender{
		Store: a.Store,
		Publish: func(p push.Push) error {
			if !a.Relay.Connected() {
				if err := a.Relay.Connect(ctx); err != nil {
					return err
				}
			}
			return a.Relay.Send(p)
		},
		Now:    a.now,
		NewID:  a.newID,
		Logger: a.Logger,
	}
}

// Verifier builds the token verifier the configuration asks for. It
// returns nil when neither a secret nor a JWKS URL is configured.
func (a *App) Verifier() (*auth.Verifier, error) {
	switch {
	case a.Config.Auth.JWKSURL != "":
		return auth.FetchJWKS(a.Config.Auth.JWKSURL, a.Config.Auth.Audience, a.Config.Auth.Issuer)
	case a.Config.Auth.Secret != "":
		return auth.NewSecretVerifier([]byte(a.Config.Auth.Secret), a.Config.Auth.Audience, a.Config.Auth.Issuer), nil
	default:
		return nil, nil
	}
}

// Close performs cleanup of application resources.
func (a *App) Close() error {
	var errs []error

	a.NotificationService.Close()
	a.Messaging.Close()
	if err := a.Relay.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close relay client: %w", err))
	}

	if a.ownsStore {
		// Allow time for in-flight snapshot deliveries to complete
		drain := time.NewTimer(100 * time.Millisecond)
		<-drain.C
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

var _ io.Closer = (*App)(nil)
