package e2e_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EliasAN1/Stacktictoe/internal/api"
	"github.com/EliasAN1/Stacktictoe/internal/factory"
	"github.com/EliasAN1/Stacktictoe/internal/model"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "stt-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/stt")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) command(args ...string) *exec.Cmd {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--output", "json",
	}, args...)
	return exec.Command(r.binaryPath, fullArgs...)
}

func (r *cliRunner) run(args ...string) (string, error) {
	output, err := r.command(args...).CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	app      *factory.App
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	app, err := factory.New(factory.Config{Logger: logger})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:   logger,
		Registry: app.Registry,
		Hub:      app.Hub,
	})

	server := api.NewServer(router, api.DefaultServerConfig(), logger)
	server.OnShutdown(app.Hub.CloseAll)

	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := "http://" + listener.Addr().String()
	waitForServer(t, serverURL+"/api/v1/health")

	ts := &testServer{
		app:  app,
		addr: serverURL,
		shutdown: func() {
			_ = server.Shutdown(context.Background())
		},
	}
	t.Cleanup(ts.shutdown)
	return ts
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

type reserveResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

type eventLine struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// readEvents collects n JSON event lines from a running watch command
func readEvents(t *testing.T, stdout io.Reader, n int) []eventLine {
	t.Helper()

	lines := make(chan eventLine)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			var evt eventLine
			if err := json.Unmarshal(scanner.Bytes(), &evt); err == nil && evt.Event != "" {
				lines <- evt
			}
		}
	}()

	var events []eventLine
	timeout := time.After(10 * time.Second)
	for len(events) < n {
		select {
		case evt, ok := <-lines:
			if !ok {
				t.Fatalf("watch exited after %d of %d events", len(events), n)
			}
			events = append(events, evt)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(events), n)
		}
	}
	return events
}

func TestCLI_Health(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_Reserve(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("reserve", "alice")
	require.NoError(t, err, output)

	var resp reserveResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.True(t, resp.Available)
	assert.Equal(t, "alice", resp.Username)
	assert.True(t, ts.app.Registry.IsHeld("alice"))
}

func TestCLI_WatchCreatesOfferAndEntersGame(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.addr)

	watch := cli.command("watch", "alice", "--create", "--count", "3")
	stdout, err := watch.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, watch.Start())
	t.Cleanup(func() { _ = watch.Process.Kill() })

	// Connect snapshot, then the broadcast of alice's own offer
	events := readEvents(t, stdout, 2)
	assert.Equal(t, string(model.EventUpdateGames), events[0].Event)
	assert.Equal(t, string(model.EventUpdateGames), events[1].Event)

	var offers model.OfferSet
	require.NoError(t, json.Unmarshal(events[1].Data, &offers))
	require.Contains(t, offers, "alice")

	// The watched name is now bound
	output, err := cli.run("reserve", "alice")
	require.NoError(t, err, output)
	var resp reserveResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.False(t, resp.Available)

	// A second player joins over a raw websocket
	url := "ws" + strings.TrimPrefix(ts.addr, "http") + "/ws"
	bob, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer bob.Close()

	for _, frame := range []struct {
		event   model.EventType
		payload any
	}{
		{model.EventSaveUsername, "bob"},
		{model.EventJoinGame, map[string]string{"creatorName": "alice"}},
	} {
		env, err := model.NewEnvelope(frame.event, frame.payload)
		require.NoError(t, err)
		require.NoError(t, bob.WriteJSON(env))
	}

	events = readEvents(t, stdout, 1)
	assert.Equal(t, string(model.EventEnterGame), events[0].Event)

	var session model.Session
	require.NoError(t, json.Unmarshal(events[0].Data, &session))
	assert.Equal(t, offers["alice"].GameID, session.GameID)

	require.NoError(t, watch.Wait())
}
