package models

// PushPayload is what a push delivery carries, both to the foreground
// handler and to the background worker.
type PushPayload struct {
	Notification PushContent `json:"notification"`
	Data         PushData    `json:"data"`
}

// PushContent is the visible part of a push.
type PushContent struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

// PushData carries the optional extras. Boolean flags travel as the strings
// "true" and "false".
type PushData struct {
	Type               string                   `json:"type,omitempty"`
	NotificationID     string                   `json:"notificationId,omitempty"`
	Actions            []NotificationAction     `json:"actions,omitempty"`
	RequireInteraction string                   `json:"requireInteraction,omitempty"`
	Tag                string                   `json:"tag,omitempty"`
	Renotify           string                   `json:"renotify,omitempty"`
	URL                string                   `json:"url,omitempty"`
	Preferences        *NotificationPreferences `json:"preferences,omitempty"`
}

// Flatten returns the string-valued extras as a map, omitting empty ones.
func (d PushData) Flatten() map[string]string {
	out := make(map[string]string)
	for k, v := range map[string]string{
		"type":               d.Type,
		"notificationId":     d.NotificationID,
		"requireInteraction": d.RequireInteraction,
		"tag":                d.Tag,
		"renotify":           d.Renotify,
		"url":                d.URL,
	} {
		if v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
