// Package testutil holds fixtures shared by tests of packages that sit on
// top of the relay.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/thenoetrevino/collabflow/internal/logging"
	"github.com/thenoetrevino/collabflow/internal/relay"
)

// GetTestSocketPath generates a unique temporary socket path for testing.
// The socket is guaranteed to not exist and will be cleaned up by test cleanup.
func GetTestSocketPath(t *testing.T) string {
	t.Helper()

	// Unix socket paths are short; t.TempDir can exceed the limit on macOS.
	dir, err := os.MkdirTemp("", "cf")
	if err != nil {
		t.Fatalf("Failed to create socket dir: %v", err)
	}
	if err := os.Chmod(dir, 0o700); err != nil {
		t.Fatalf("Failed to restrict socket dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	return filepath.Join(dir, "relay.sock")
}

// SetupTestRelay starts a relay on a temporary socket and waits until it
// accepts connections. Shutdown is automatic via t.Cleanup().
func SetupTestRelay(t *testing.T) (*relay.Server, string) {
	t.Helper()

	socketPath := GetTestSocketPath(t)

	server, err := relay.NewServer(socketPath, relay.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("Failed to create test relay: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Logf("Warning: relay did not stop within 2s")
		}
	})

	go func() {
		defer close(done)
		if err := server.Start(ctx); err != nil {
			t.Logf("Relay error: %v", err)
		}
	}()

	// Wait for socket to be created (max 2 seconds)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(socketPath); err == nil {
			return server, socketPath
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("Relay socket not created within timeout")
	return nil, ""
}
