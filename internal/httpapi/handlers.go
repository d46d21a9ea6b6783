package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/thenoetrevino/collabflow/internal/models"
	"github.com/thenoetrevino/collabflow/internal/push"
	"github.com/thenoetrevino/collabflow/internal/relay"
	notificationservice "github.com/thenoetrevino/collabflow/internal/services/notification"
)

func healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func relayMetrics(metrics func() relay.Snapshot) echo.HandlerFunc {
	return func(c echo.Context) error {
		if metrics == nil {
			return echo.NewHTTPError(http.StatusNotFound, "relay is not embedded in this server")
		}
		return c.JSON(http.StatusOK, metrics())
	}
}

type notificationRequest struct {
	UserID             string                      `json:"userId"`
	Title              string                      `json:"title"`
	Body               string                      `json:"body"`
	Type               string                      `json:"type"`
	URL                string                      `json:"url"`
	Tag                string                      `json:"tag"`
	Renotify           bool                        `json:"renotify"`
	RequireInteraction bool                        `json:"requireInteraction"`
	Actions            []models.NotificationAction `json:"actions"`
}

type notificationResponse struct {
	Notification models.Notification `json:"notification"`
	Pushed       bool                `json:"pushed"`
	Error        string              `json:"error,omitempty"`
}

// postNotification stores a notification for userId and pushes it. A failed
// push still answers 202 since the notification was stored.
func postNotification(sender NotificationSender, logger *slog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if sender == nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "notifications are not configured")
		}

		var req notificationRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
		}
		if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Title) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "userId and title are required")
		}
		t, ok := models.ParseNotificationType(req.Type)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown notification type")
		}

		in := notificationservice.NewNotification{
			Title:              req.Title,
			Body:               req.Body,
			Type:               t,
			Actions:            req.Actions,
			RequireInteraction: req.RequireInteraction,
			Tag:                req.Tag,
			Renotify:           req.Renotify,
		}
		if req.URL != "" {
			in.Data = map[string]string{"url": req.URL}
		}

		n, err := sender.Send(c.Request().Context(), req.UserID, in)
		switch {
		case err == nil:
			return c.JSON(http.StatusCreated, notificationResponse{Notification: n, Pushed: true})
		case n.ID != "":
			logger.Warn("notification stored but not pushed", "notification_id", n.ID, "sender", userID(c), "error", err)
			return c.JSON(http.StatusAccepted, notificationResponse{Notification: n, Error: err.Error()})
		case errors.Is(err, push.ErrNoUser):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			logger.Error("failed to send notification", "user_id", req.UserID, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to send notification")
		}
	}
}
