package models

import (
	"errors"
	"fmt"
)

// Priority ranks a notification type.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

var ErrInvalidPriority = errors.New("invalid priority")

// ParsePriority validates a priority value.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return p, nil
	default:
		return "", fmt.Errorf("%w %q (must be: high, normal, low)", ErrInvalidPriority, s)
	}
}

// TypeToggles enables or disables each notification type.
type TypeToggles struct {
	Task    bool `json:"task" yaml:"task"`
	Project bool `json:"project" yaml:"project"`
	System  bool `json:"system" yaml:"system"`
}

// Enabled reports whether t is switched on. Unknown types are off.
func (tt TypeToggles) Enabled(t NotificationType) bool {
	switch t {
	case NotificationTask:
		return tt.Task
	case NotificationProject:
		return tt.Project
	case NotificationSystem:
		return tt.System
	default:
		return false
	}
}

// TypePriorities assigns a priority per notification type.
type TypePriorities struct {
	Task    Priority `json:"task" yaml:"task"`
	Project Priority `json:"project" yaml:"project"`
	System  Priority `json:"system" yaml:"system"`
}

// For returns the priority configured for t.
func (tp TypePriorities) For(t NotificationType) Priority {
	switch t {
	case NotificationTask:
		return tp.Task
	case NotificationProject:
		return tp.Project
	default:
		return tp.System
	}
}

// NotificationPreferences is always complete: every key has a value.
type NotificationPreferences struct {
	SoundEnabled     bool           `json:"soundEnabled" yaml:"sound_enabled"`
	DesktopEnabled   bool           `json:"desktopEnabled" yaml:"desktop_enabled"`
	EmailEnabled     bool           `json:"emailEnabled" yaml:"email_enabled"`
	VibrationEnabled bool           `json:"vibrationEnabled" yaml:"vibration_enabled"`
	BadgeEnabled     bool           `json:"badgeEnabled" yaml:"badge_enabled"`
	Types            TypeToggles    `json:"types" yaml:"types"`
	Priority         TypePriorities `json:"priority" yaml:"priority"`
}

// DefaultNotificationPreferences is the state before anything is loaded.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		SoundEnabled:     true,
		DesktopEnabled:   true,
		EmailEnabled:     false,
		VibrationEnabled: true,
		BadgeEnabled:     true,
		Types:            TypeToggles{Task: true, Project: true, System: true},
		Priority: TypePriorities{
			Task:    PriorityNormal,
			Project: PriorityNormal,
			System:  PriorityLow,
		},
	}
}

// PreferencesPatch lists the fields to change; nil fields are left alone.
type PreferencesPatch struct {
	SoundEnabled     *bool
	DesktopEnabled   *bool
	EmailEnabled     *bool
	VibrationEnabled *bool
	BadgeEnabled     *bool
	Types            TypeTogglesPatch
	Priority         TypePrioritiesPatch
}

type TypeTogglesPatch struct {
	Task    *bool
	Project *bool
	System  *bool
}

type TypePrioritiesPatch struct {
	Task    *Priority
	Project *Priority
	System  *Priority
}

// Validate rejects priorities outside the allowed set.
func (p PreferencesPatch) Validate() error {
	for _, pr := range []*Priority{p.Priority.Task, p.Priority.Project, p.Priority.System} {
		if pr == nil {
			continue
		}
		if _, err := ParsePriority(string(*pr)); err != nil {
			return err
		}
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p PreferencesPatch) IsEmpty() bool {
	return p.SoundEnabled == nil && p.DesktopEnabled == nil && p.EmailEnabled == nil &&
		p.VibrationEnabled == nil && p.BadgeEnabled == nil &&
		p.Types == (TypeTogglesPatch{}) && p.Priority == (TypePrioritiesPatch{})
}

// Apply merges patch key by key, including inside Types and Priority.
func (np NotificationPreferences) Apply(p PreferencesPatch) NotificationPreferences {
	setBool(&np.SoundEnabled, p.SoundEnabled)
	setBool(&np.DesktopEnabled, p.DesktopEnabled)
	setBool(&np.EmailEnabled, p.EmailEnabled)
	setBool(&np.VibrationEnabled, p.VibrationEnabled)
	setBool(&np.BadgeEnabled, p.BadgeEnabled)

	setBool(&np.Types.Task, p.Types.Task)
	setBool(&np.Types.Project, p.Types.Project)
	setBool(&np.Types.System, p.Types.System)

	setPriority(&np.Priority.Task, p.Priority.Task)
	setPriority(&np.Priority.Project, p.Priority.Project)
	setPriority(&np.Priority.System, p.Priority.System)
	return np
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setPriority(dst *Priority, v *Priority) {
	if v != nil {
		*dst = *v
	}
}
