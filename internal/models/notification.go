package models

import (
	"strings"
	"time"
)

// NotificationType is the closed set of notification categories.
type NotificationType string

const (
	NotificationTask    NotificationType = "task"
	NotificationProject NotificationType = "project"
	NotificationSystem  NotificationType = "system"
)

// NotificationTypes lists every type in display order.
var NotificationTypes = []NotificationType{NotificationTask, NotificationProject, NotificationSystem}

// ParseNotificationType resolves a wire value. An empty value means system.
func ParseNotificationType(s string) (NotificationType, bool) {
	switch NotificationType(strings.ToLower(strings.TrimSpace(s))) {
	case "", NotificationSystem:
		return NotificationSystem, true
	case NotificationTask:
		return NotificationTask, true
	case NotificationProject:
		return NotificationProject, true
	default:
		return "", false
	}
}

// NotificationAction is a button offered with a notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Notification is an in-app alert. It starts unread and only ever moves to
// read.
type Notification struct {
	ID                 string               `json:"id"`
	UserID             string               `json:"userId,omitempty"`
	Title              string               `json:"title"`
	Body               string               `json:"body"`
	Type               NotificationType     `json:"type"`
	Read               bool                 `json:"read"`
	CreatedAt          time.Time            `json:"createdAt"`
	Data               map[string]string    `json:"data,omitempty"`
	Actions            []NotificationAction `json:"actions,omitempty"`
	RequireInteraction bool                 `json:"requireInteraction"`
	Tag                string               `json:"tag,omitempty"`
	Renotify           bool                 `json:"renotify"`
}
