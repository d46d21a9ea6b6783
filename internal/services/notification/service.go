package notification

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thenoetrevino/collabflow/internal/auth"
	"github.com/thenoetrevino/collabflow/internal/docstore"
	"github.com/thenoetrevino/collabflow/internal/models"
	"github.com/thenoetrevino/collabflow/internal/types"
)

const (
	NotificationsCollection = "notifications"
	UsersCollection         = "users"

	tracerName = "github.com/thenoetrevino/collabflow/internal/services/notification"
)

// Service is the notification pipeline: it registers the device for push,
// turns foreground deliveries into in-app notifications, and keeps read
// state and preferences in sync with the document store.
type Service interface {
	Initialize(ctx context.Context) error
	HandleMessage(p models.PushPayload) (models.Notification, bool)
	Add(n NewNotification) models.Notification
	MarkAsRead(ctx context.Context, id string)
	MarkAllAsRead(ctx context.Context) error
	Clear()
	UpdatePreferences(ctx context.Context, patch models.PreferencesPatch) (models.NotificationPreferences, error)
	LoadPreferences(ctx context.Context) (models.NotificationPreferences, error)

	Notifications() []models.Notification
	UnreadCount() int
	Preferences() models.NotificationPreferences
	Token() string
	Loading() bool
	OnNotification(fn func(models.Notification)) (remove func())
	Close()
}

// NewNotification is the caller-supplied part of a notification.
type NewNotification struct {
	Title              string
	Body               string
	Type               models.NotificationType
	Data               map[string]string
	Actions            []models.NotificationAction
	RequireInteraction bool
	Tag                string
	Renotify           bool
	ID                 string
}

// Deps are the collaborators of the pipeline. Sound and Alerts may be nil.
type Deps struct {
	Store     docstore.Store
	Identity  auth.Identity
	Messaging Messaging
	Platform  Platform
	Sound     SoundPlayer
	Alerts    Alerter
}

// Option configures the service.
type Option func(*service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now types.Clock) Option {
	return func(s *service) { s.now = now }
}

func WithIDs(newID types.IDFunc) Option {
	return func(s *service) { s.newID = newID }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *service) { s.tracer = tp.Tracer(tracerName) }
}

type service struct {
	store     docstore.Store
	identity  auth.Identity
	messaging Messaging
	platform  Platform
	sound     SoundPlayer
	alerts    Alerter
	logger    *slog.Logger
	tracer    trace.Tracer
	now       types.Clock
	newID     types.IDFunc

	mu            sync.RWMutex
	notifications []models.Notification
	unread        int
	prefs         models.NotificationPreferences
	token         string
	foreground    func()
	listeners     map[int]func(models.Notification)
	nextLstn      int

	inflight atomic.Int32
}

// NewService creates the pipeline with default preferences and no
// notifications.
func NewService(deps Deps, opts ...Option) Service {
	s := &service{
		store:     deps.Store,
		identity:  deps.Identity,
		messaging: deps.Messaging,
		platform:  deps.Platform,
		sound:     deps.Sound,
		alerts:    deps.Alerts,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     types.NewID,
		prefs:     models.DefaultNotificationPreferences(),
		listeners: make(map[int]func(models.Notification)),
	}
	if s.sound == nil {
		s.sound = nopSound{}
	}
	if s.alerts == nil {
		s.alerts = nopAlerter{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	s.inflight.Add(1)
	ctx, span := s.tracer.Start(ctx, "notification."+op, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		if err := *errp; err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.inflight.Add(-1)
	}
}

func (s *service) currentUser() (string, bool) {
	if s.identity == nil {
		return "", false
	}
	u, ok := s.identity.CurrentUser()
	if !ok || u.ID == "" {
		return "", false
	}
	return u.ID, true
}

// ============================================================================
// Registration
// ============================================================================

// Initialize runs the whole push handshake. Running it again repeats every
// step and replaces the previous foreground subscription.
func (s *service) Initialize(ctx context.Context) (err error) {
	ctx, done := s.begin(ctx, "Initialize")
	defer done(&err)
	defer func() {
		if err != nil {
			s.logger.Error("failed to initialize notifications", "error", err)
			s.alerts.Error("Failed to initialize notifications")
		}
	}()

	uid, ok := s.currentUser()
	if !ok {
		return ErrAuthRequired
	}
	if s.platform == nil || s.messaging == nil || !s.platform.Supported() {
		return ErrUnsupportedPlatform
	}
	if !s.platform.SecureContext() {
		return ErrInsecureContext
	}

	perm, err := s.messaging.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("request permission: %w", err)
	}
	if perm != PermissionGranted {
		return ErrPermissionDenied
	}

	if err := s.messaging.RegisterWorker(ctx); err != nil {
		return fmt.Errorf("register worker: %w", err)
	}
	token, err := s.messaging.Token(ctx)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	if token == "" {
		return ErrNoToken
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	p := docstore.Doc(UsersCollection, uid)
	if err := s.store.Merge(ctx, p, docstore.Document{"fcmToken": token}); err != nil {
		return docstore.Persist("store token", p, err)
	}

	unsub, err := s.messaging.OnMessage(func(payload models.PushPayload) {
		s.HandleMessage(payload)
	})
	if err != nil {
		return fmt.Errorf("subscribe to messages: %w", err)
	}

	s.mu.Lock()
	prev := s.foreground
	s.foreground = unsub
	s.mu.Unlock()
	if prev != nil {
		prev()
	}

	s.logger.Info("notifications initialized", "user_id", uid)
	return nil
}

// Close drops the foreground subscription.
func (s *service) Close() {
	s.mu.Lock()
	unsub := s.foreground
	s.foreground = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// ============================================================================
// Delivery
// ============================================================================

// HandleMessage applies a foreground delivery. Deliveries of an unknown or
// disabled type are dropped and reported as false.
func (s *service) HandleMessage(p models.PushPayload) (models.Notification, bool) {
	t, ok := models.ParseNotificationType(p.Data.Type)
	if !ok {
		s.logger.Debug("dropping message of unknown type", "type", p.Data.Type)
		return models.Notification{}, false
	}

	prefs := s.Preferences()
	if !prefs.Types.Enabled(t) {
		s.logger.Debug("dropping message of disabled type", "type", t)
		return models.Notification{}, false
	}

	if prefs.SoundEnabled {
		if err := s.sound.Play(t); err != nil {
			s.logger.Warn("failed to play notification sound", "type", t, "error", err)
		}
	}

	toast := p.Notification.Body
	if toast == "" {
		toast = "New notification"
	}
	s.alerts.Info(toast)

	title := p.Notification.Title
	if title == "" {
		title = "New Notification"
	}

	n := s.Add(NewNotification{
		ID:                 p.Data.NotificationID,
		Title:              title,
		Body:               p.Notification.Body,
		Type:               t,
		Data:               p.Data.Flatten(),
		Actions:            p.Data.Actions,
		RequireInteraction: p.Data.RequireInteraction == "true",
		Tag:                p.Data.Tag,
		Renotify:           p.Data.Renotify == "true",
	})
	return n, true
}

// Add prepends an unread notification and bumps the unread count. An entry
// already listed under the same id is replaced.
func (s *service) Add(in NewNotification) models.Notification {
	id := in.ID
	if id == "" {
		id = s.newID()
	}
	t := in.Type
	if t == "" {
		t = models.NotificationSystem
	}
	uid, _ := s.currentUser()

	n := models.Notification{
		ID:                 id,
		UserID:             uid,
		Title:              in.Title,
		Body:               in.Body,
		Type:               t,
		Read:               false,
		CreatedAt:          s.now(),
		Data:               in.Data,
		Actions:            in.Actions,
		RequireInteraction: in.RequireInteraction,
		Tag:                in.Tag,
		Renotify:           in.Renotify,
	}

	s.mu.Lock()
	for i, existing := range s.notifications {
		if existing.ID == id {
			if !existing.Read {
				s.unread--
			}
			s.notifications = slices.Delete(s.notifications, i, i+1)
			break
		}
	}
	s.notifications = append([]models.Notification{n}, s.notifications...)
	s.unread++
	fns := make([]func(models.Notification), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
	return n
}

// OnNotification registers fn to run after each added notification.
func (s *service) OnNotification(fn func(models.Notification)) func() {
	s.mu.Lock()
	id := s.nextLstn
	s.nextLstn++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// ============================================================================
// Read state
// ============================================================================

// MarkAsRead marks one notification read. The remote write is best effort:
// its failure is logged and alerted while the local entry is marked anyway.
func (s *service) MarkAsRead(ctx context.Context, id string) {
	var err error
	ctx, done := s.begin(ctx, "MarkAsRead", attribute.String("notification_id", id))
	defer done(&err)

	if _, ok := s.currentUser(); ok {
		p := docstore.Doc(NotificationsCollection, id)
		if err = s.store.Merge(ctx, p, docstore.Document{"read": true}); err != nil {
			err = docstore.Persist("mark read", p, err)
			s.logger.Error("failed to mark notification as read", "notification_id", id, "error", err)
			s.alerts.Error("Failed to mark notification as read")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID != id {
			continue
		}
		if !s.notifications[i].Read {
			s.notifications[i].Read = true
			if s.unread > 0 {
				s.unread--
			}
		}
	}
}

// MarkAllAsRead flags every unread notification document of the user read in
// one batch, then marks the local list read.
func (s *service) MarkAllAsRead(ctx context.Context) (err error) {
	uid, ok := s.currentUser()
	if !ok {
		return nil
	}

	ctx, done := s.begin(ctx, "MarkAllAsRead")
	defer done(&err)

	snaps, err := s.store.Query(ctx, NotificationsCollection,
		docstore.Where("userId", docstore.OpEqual, uid),
		docstore.Where("read", docstore.OpEqual, false),
	)
	if err != nil {
		return s.failMarkAll(docstore.Persist("query unread", nil, err))
	}

	if len(snaps) > 0 {
		ops := make([]docstore.Op, 0, len(snaps))
		for _, snap := range snaps {
			ops = append(ops, docstore.UpdateOp(snap.Path, docstore.Document{"read": true}))
		}
		if err := s.store.Batch(ctx, ops); err != nil {
			return s.failMarkAll(docstore.Persist("mark all read", nil, err))
		}
	}

	s.mu.Lock()
	for i := range s.notifications {
		s.notifications[i].Read = true
	}
	s.unread = 0
	s.mu.Unlock()
	return nil
}

func (s *service) failMarkAll(err error) error {
	s.logger.Error("failed to mark all notifications as read", "error", err)
	s.alerts.Error("Failed to mark all notifications as read")
	return err
}

// Clear empties the local list. Nothing is written remotely.
func (s *service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = nil
	s.unread = 0
}

// ============================================================================
// Preferences
// ============================================================================

// UpdatePreferences merges patch into the current preferences key by key.
// Local state changes first; when a user is signed in the full preferences
// object is then merged into their user document. A failed save is alerted
// and returned but the local change stays.
func (s *service) UpdatePreferences(ctx context.Context, patch models.PreferencesPatch) (prefs models.NotificationPreferences, err error) {
	if err := patch.Validate(); err != nil {
		return s.Preferences(), err
	}

	ctx, done := s.begin(ctx, "UpdatePreferences")
	defer done(&err)

	s.mu.Lock()
	s.prefs = s.prefs.Apply(patch)
	prefs = s.prefs
	s.mu.Unlock()

	uid, ok := s.currentUser()
	if !ok {
		s.logger.Debug("preferences updated locally only: not signed in")
		return prefs, nil
	}

	p := docstore.Doc(UsersCollection, uid)
	if err := s.store.Merge(ctx, p, docstore.Document{"notificationPreferences": prefs}); err != nil {
		err = docstore.Persist("save preferences", p, err)
		s.logger.Error("failed to update notification preferences", "error", err)
		s.alerts.Error("Failed to update notification preferences")
		return prefs, err
	}

	s.alerts.Success("Notification preferences updated")
	return prefs, nil
}

// LoadPreferences overlays the preferences stored on the user document onto
// the defaults. Keys missing from the stored object keep their default.
func (s *service) LoadPreferences(ctx context.Context) (prefs models.NotificationPreferences, err error) {
	uid, ok := s.currentUser()
	if !ok {
		return s.Preferences(), nil
	}

	ctx, done := s.begin(ctx, "LoadPreferences")
	defer done(&err)

	prefs, err = ReadPreferences(ctx, s.store, uid)
	if err != nil {
		return s.Preferences(), err
	}

	s.mu.Lock()
	s.prefs = prefs
	s.mu.Unlock()
	return prefs, nil
}

// ReadPreferences loads uid's stored preferences over the defaults, so keys
// missing from the document keep their default values.
func ReadPreferences(ctx context.Context, store docstore.Store, uid string) (models.NotificationPreferences, error) {
	prefs := models.DefaultNotificationPreferences()

	p := docstore.Doc(UsersCollection, uid)
	snap, err := store.Get(ctx, p)
	if err != nil {
		return prefs, docstore.Persist("load preferences", p, err)
	}
	if !snap.Exists {
		return prefs, nil
	}
	raw, ok := snap.Data["notificationPreferences"]
	if !ok || raw == nil {
		return prefs, nil
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return prefs, docstore.Persist("load preferences", p,
			fmt.Errorf("notificationPreferences is %T, not an object", raw))
	}
	if err := docstore.Decode(doc, &prefs); err != nil {
		return models.DefaultNotificationPreferences(), docstore.Persist("load preferences", p, err)
	}
	return prefs, nil
}

// ============================================================================
// Accessors
// ============================================================================

func (s *service) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Notification(nil), s.notifications...)
}

func (s *service) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

func (s *service) Preferences() models.NotificationPreferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

func (s *service) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *service) Loading() bool {
	return s.inflight.Load() > 0
}
