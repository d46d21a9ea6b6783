// Package cli wires command tests to an in-memory application. It is kept
// apart from testutil so service tests do not pull in the command tree.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/app"
	clipkg "github.com/thenoetrevino/collabflow/internal/cli"
	"github.com/thenoetrevino/collabflow/internal/config"
	"github.com/thenoetrevino/collabflow/internal/docstore/memstore"
	"github.com/thenoetrevino/collabflow/internal/logging"
	"github.com/thenoetrevino/collabflow/internal/testutil"
	"github.com/thenoetrevino/collabflow/internal/types"
)

// FixedNow is the clock every test app runs on.
var FixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// TestConfig signs in alice, grants notification permission and points the
// relay at a fresh socket.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.User.ID = "alice"
	cfg.User.DisplayName = "Alice"
	cfg.Relay.Socket = testutil.GetTestSocketPath(t)
	cfg.Notifications.Permission = "granted"
	return cfg
}

// SetupCLITest creates an App over an in-memory store with predictable ids.
// Extra options override the defaults.
func SetupCLITest(t *testing.T, opts ...app.Option) *app.App {
	t.Helper()
	return SetupCLITestWithConfig(t, TestConfig(t), opts...)
}

// SetupCLITestWithConfig is SetupCLITest with a caller-built config.
func SetupCLITestWithConfig(t *testing.T, cfg *config.Config, opts ...app.Option) *app.App {
	t.Helper()

	store := memstore.New()
	base := []app.Option{
		app.WithStore(store),
		app.WithLogger(logging.Discard()),
		app.WithOutput(io.Discard),
		app.WithClock(func() time.Time { return FixedNow }),
		app.WithIDs(types.Sequence("id")),
	}

	a, err := app.New(context.Background(), cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("Failed to create test app: %v", err)
	}
	t.Cleanup(func() {
		_ = a.Close()
		_ = store.Close()
	})
	return a
}

// ExecuteCLICommand runs cmd against testApp and returns what it printed
// to stdout.
func ExecuteCLICommand(t *testing.T, testApp *app.App, cmd *cobra.Command, args []string) (string, error) {
	t.Helper()
	out, _, err := ExecuteCLICommandWithContext(t, context.Background(), testApp, cmd, args)
	return out, err
}

// ExecuteCLICommandWithContext runs cmd under ctx and captures stdout and
// stderr separately.
func ExecuteCLICommandWithContext(t *testing.T, ctx context.Context, testApp *app.App, cmd *cobra.Command, args []string) (string, string, error) {
	t.Helper()
	return execute(t, ctx, testApp, cmd, "", args)
}

// ExecuteCLICommandWithInput runs cmd with input on stdin.
func ExecuteCLICommandWithInput(t *testing.T, testApp *app.App, cmd *cobra.Command, input string, args []string) (string, error) {
	t.Helper()
	out, _, err := execute(t, context.Background(), testApp, cmd, input, args)
	return out, err
}

func execute(t *testing.T, ctx context.Context, testApp *app.App, cmd *cobra.Command, input string, args []string) (string, string, error) {
	t.Helper()

	if testApp == nil {
		t.Fatal("testApp cannot be nil - SetupCLITest must be called first")
	}

	var stdout, stderr bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(input))

	// Disable usage output on error for cleaner test output
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.ExecuteContext(clipkg.WithApp(ctx, testApp))
	return stdout.String(), stderr.String(), err
}

// ParseJSON parses JSON output from CLI commands
func ParseJSON(t *testing.T, output string) map[string]any {
	t.Helper()

	var result map[string]any
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nOutput: %s", err, output)
	}

	return result
}

// ExitCode returns the exit code carried by err, or 0 when err is nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	code, _ := clipkg.Classify(err)
	return code
}
