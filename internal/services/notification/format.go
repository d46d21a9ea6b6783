package notification

import (
	"fmt"
	"time"

	"github.com/thenoetrevino/collabflow/internal/models"
)

// SoundPath is the asset played for a notification type.
func SoundPath(t models.NotificationType) string {
	switch t {
	case models.NotificationTask, models.NotificationProject:
		return fmt.Sprintf("/sounds/%s-notification.mp3", t)
	default:
		return "/sounds/system-notification.mp3"
	}
}

// FormatMessage prefixes the body with a type-specific lead.
func FormatMessage(n models.Notification) string {
	switch n.Type {
	case models.NotificationTask:
		return "New task assigned: " + n.Body
	case models.NotificationProject:
		return "Project update: " + n.Body
	case models.NotificationSystem:
		return "System notification: " + n.Body
	default:
		return n.Body
	}
}

// FormatTime renders how long ago t was, in the largest whole unit.
func FormatTime(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd ago", days)
	case hours > 0:
		return fmt.Sprintf("%dh ago", hours)
	case minutes > 0:
		return fmt.Sprintf("%dm ago", minutes)
	default:
		return fmt.Sprintf("%ds ago", seconds)
	}
}
