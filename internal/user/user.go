// Package user names the person at the terminal when the configuration
// signs someone in without a display name.
package user

import (
	"os"
	"os/user"
	"strings"
)

// LocalName returns the operating system account name, falling back to
// $USER and then "unknown" in restricted environments.
func LocalName() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}

// DisplayName is the name shown for a signed-in user. Anonymous sessions
// stay unnamed.
func DisplayName(id, configured string) string {
	if strings.TrimSpace(id) == "" {
		return ""
	}
	if name := strings.TrimSpace(configured); name != "" {
		return name
	}
	return LocalName()
}
