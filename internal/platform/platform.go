// Package platform reports whether push notifications can work here: the
// relay needs unix sockets, and its socket directory must be private.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

// Host checks the relay socket location.
type Host struct {
	SocketPath string
	// GOOS defaults to runtime.GOOS.
	GOOS string
}

func New(socketPath string) Host {
	return Host{SocketPath: socketPath, GOOS: runtime.GOOS}
}

// Supported reports whether the OS offers unix domain sockets.
func (h Host) Supported() bool {
	switch h.goos() {
	case "plan9", "js", "wasip1":
		return false
	default:
		return true
	}
}

// SecureContext reports whether the socket directory is only accessible to
// its owner. A directory that does not exist yet counts as secure, since the
// relay creates it with mode 0700.
func (h Host) SecureContext() bool {
	if h.SocketPath == "" {
		return false
	}
	info, err := os.Stat(filepath.Dir(h.SocketPath))
	if os.IsNotExist(err) {
		return true
	}
	if err != nil || !info.IsDir() {
		return false
	}
	if h.goos() == "windows" {
		return true
	}
	return info.Mode().Perm()&0o077 == 0
}

func (h Host) goos() string {
	if h.GOOS == "" {
		return runtime.GOOS
	}
	return h.GOOS
}
