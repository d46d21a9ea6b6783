package serve

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/collabflow/internal/push"
	"github.com/thenoetrevino/collabflow/internal/testutil"
	clitest "github.com/thenoetrevino/collabflow/internal/testutil/cli"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRelayCmd(t *testing.T) {
	a := clitest.SetupCLITest(t)
	socket := testutil.GetTestSocketPath(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := clitest.ExecuteCLICommandWithContext(t, ctx, a, RelayCmd(), []string{"--socket", socket})
		done <- err
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(socket)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	client := push.NewClient(socket)
	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.Close())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestServeCmd(t *testing.T) {
	cfg := clitest.TestConfig(t)
	cfg.Auth.Secret = "test-secret"
	a := clitest.SetupCLITestWithConfig(t, cfg)
	addr := freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := clitest.ExecuteCLICommandWithContext(t, ctx, a, ServeCmd(), []string{"--addr", addr})
		done <- err
	}()

	get := func(path string) (int, string) {
		resp, err := http.Get("http://" + addr + path)
		if err != nil {
			return 0, ""
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	require.Eventually(t, func() bool {
		code, _ := get("/healthz")
		return code == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	code, body := get("/relay/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "pushes_received")

	code, _ = get("/boards/missing/stream")
	assert.Equal(t, http.StatusUnauthorized, code)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
