package push

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/thenoetrevino/collabflow/internal/docstore"
	"github.com/thenoetrevino/collabflow/internal/models"
	"github.com/thenoetrevino/collabflow/internal/services/notification"
	"github.com/thenoetrevino/collabflow/internal/types"
)

// PublishFunc hands a push to the relay. Client.Send and relay.Server.Publish
// both fit.
type PublishFunc func(Push) error

// Sender stores a notification for its recipient and forwards it as a push.
type Sender struct {
	Store      docstore.Store
	Publish    PublishFunc
	Now        types.Clock
	NewID      types.IDFunc
	Logger     *slog.Logger
	MaxRetries int
}

// Send persists n for userID, then pushes it with the recipient's
// preferences attached. A failed push is reported but the notification
// stays stored, so it still appears in the recipient's list.
func (s *Sender) Send(ctx context.Context, userID string, in notification.NewNotification) (models.Notification, error) {
	if userID == "" {
		return models.Notification{}, ErrNoUser
	}
	now, newID, logger := s.Now, s.NewID, s.Logger
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if newID == nil {
		newID = types.NewID
	}
	if logger == nil {
		logger = slog.Default()
	}

	typ, ok := models.ParseNotificationType(string(in.Type))
	if !ok {
		return models.Notification{}, errors.New("unknown notification type " + strconv.Quote(string(in.Type)))
	}

	n := models.Notification{
		ID:                 in.ID,
		UserID:             userID,
		Title:              strings.TrimSpace(in.Title),
		Body:               in.Body,
		Type:               typ,
		CreatedAt:          now(),
		Data:               in.Data,
		Actions:            in.Actions,
		RequireInteraction: in.RequireInteraction,
		Tag:                in.Tag,
		Renotify:           in.Renotify,
	}
	if n.ID == "" {
		n.ID = newID()
	}

	p := docstore.Doc(notification.NotificationsCollection, n.ID)
	doc, err := docstore.Encode(n)
	if err != nil {
		return models.Notification{}, docstore.Persist("send notification", p, err)
	}
	if err := s.Store.Set(ctx, p, doc); err != nil {
		return models.Notification{}, docstore.Persist("send notification", p, err)
	}

	prefs, err := notification.ReadPreferences(ctx, s.Store, userID)
	if err != nil {
		logger.Warn("using default preferences for push", "user_id", userID, "error", err)
	}

	if s.Publish == nil {
		return n, nil
	}
	return n, s.publishWithRetry(logger, Push{UserID: userID, Payload: PayloadFor(n, prefs)})
}

// PayloadFor builds the push payload for a stored notification.
func PayloadFor(n models.Notification, prefs models.NotificationPreferences) models.PushPayload {
	return models.PushPayload{
		Notification: models.PushContent{Title: n.Title, Body: n.Body},
		Data: models.PushData{
			Type:               string(n.Type),
			NotificationID:     n.ID,
			Actions:            n.Actions,
			RequireInteraction: strconv.FormatBool(n.RequireInteraction),
			Tag:                n.Tag,
			Renotify:           strconv.FormatBool(n.Renotify),
			URL:                n.Data["url"],
			Preferences:        &prefs,
		},
	}
}

// publishWithRetry makes up to MaxRetries attempts with exponential backoff.
func (s *Sender) publishWithRetry(logger *slog.Logger, p Push) error {
	maxRetries := s.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	baseDelay := 50 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.Publish(p)
		if err == nil {
			if attempt > 0 {
				logger.Debug("push published after retry", "attempt", attempt+1, "user_id", p.UserID)
			}
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrNotConnected) || errors.Is(err, ErrClosed) {
			break
		}

		// Don't sleep after the last attempt
		if attempt < maxRetries-1 {
			delay := baseDelay * (1 << attempt)
			logger.Debug("push publish failed, retrying",
				"attempt", attempt+1,
				"max_retries", maxRetries,
				"retry_delay", delay,
				"error", err)
			time.Sleep(delay)
		}
	}

	logger.Warn("push publish failed", "user_id", p.UserID, "error", lastErr)
	return lastErr
}
