package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/racegame-go/internal/api"
	"github.com/mcoot/racegame-go/internal/api/response"
	"github.com/mcoot/racegame-go/internal/factory"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	projectRoot := findProjectRoot(t)

	binaryPath := filepath.Join(t.TempDir(), "racectl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/racectl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) args(args ...string) []string {
	return append([]string{"--server", r.serverURL, "--output", "json"}, args...)
}

func (r *cliRunner) run(args ...string) (string, error) {
	cmd := exec.Command(r.binaryPath, r.args(args...)...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// session is a running `play` process fed through stdin
type session struct {
	t     *testing.T
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *syncBuffer
}

func (r *cliRunner) play(t *testing.T, args ...string) *session {
	t.Helper()

	cmd := exec.Command(r.binaryPath, r.args(append([]string{"play"}, args...)...)...)
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	out := &syncBuffer{}
	cmd.Stdout = out
	cmd.Stderr = out
	require.NoError(t, cmd.Start())

	s := &session{t: t, cmd: cmd, stdin: stdin, out: out}
	t.Cleanup(func() {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})
	return s
}

func (s *session) send(line string) {
	s.t.Helper()
	_, err := fmt.Fprintln(s.stdin, line)
	require.NoError(s.t, err)
}

// expect waits for a frame of the given type and returns it
func (s *session) expect(kind string) map[string]any {
	s.t.Helper()

	var found map[string]any
	require.Eventually(s.t, func() bool {
		for _, line := range strings.Split(s.out.String(), "\n") {
			var frame map[string]any
			if json.Unmarshal([]byte(line), &frame) == nil && frame["type"] == kind {
				found = frame
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond, "waiting for %s frame, got:\n%s", kind, s.out.String())
	return found
}

// finish closes stdin and waits for the process to exit
func (s *session) finish() {
	s.t.Helper()
	require.NoError(s.t, s.stdin.Close())

	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()
	select {
	case err := <-done:
		require.NoError(s.t, err, "output:\n%s", s.out.String())
	case <-time.After(5 * time.Second):
		s.t.Fatalf("play did not exit, output:\n%s", s.out.String())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
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

// startTestServer runs the real application on a free port
func startTestServer(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	app, err := factory.New(factory.Config{Logger: logger})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go app.Run(ctx)

	server := api.NewServer(app.Handler(nil), api.DefaultServerConfig(), logger)
	server.OnShutdown(app.WebSocket.CloseAll)
	server.OnShutdown(app.Spectators.CloseAll)
	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
		cancel()
		<-app.Loop.Done()
		_ = app.Close()
	})

	serverURL := "http://" + listener.Addr().String()
	waitForServer(t, serverURL+"/api/v1/health")
	return serverURL
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	require.Eventually(t, func() bool {
		resp, err := client.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
}

func TestCLI(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	serverURL := startTestServer(t)
	cli := newCLIRunner(t, serverURL)

	t.Run("health", func(t *testing.T) {
		output, err := cli.run("health")
		require.NoError(t, err, output)

		var health response.Health
		require.NoError(t, json.Unmarshal([]byte(output), &health))
		assert.Equal(t, "ok", health.Status)
	})

	t.Run("unknown room", func(t *testing.T) {
		output, err := cli.run("room", "QQQQ")
		assert.Error(t, err)
		assert.Contains(t, output, "ROOM_NOT_FOUND")
	})

	t.Run("join unknown room", func(t *testing.T) {
		s := cli.play(t, "join", "QQQQ", "--name", "Lost")
		errFrame := s.expect("error")
		assert.Equal(t, "Room not found", errFrame["message"])
		s.finish()
	})

	t.Run("full race", func(t *testing.T) {
		host := cli.play(t, "host", "--name", "Alice", "--vehicle", "truck")
		hosted := host.expect("hosted")
		code, _ := hosted["roomCode"].(string)
		require.Len(t, code, 4)
		host.expect("playersUpdate")

		guest := cli.play(t, "join", strings.ToLower(code), "--name", "Bob", "--vehicle", "bike", "--trophies", "3")
		guest.expect("playersUpdate")

		output, err := cli.run("room", code)
		require.NoError(t, err, output)
		var room response.Room
		require.NoError(t, json.Unmarshal([]byte(output), &room))
		assert.Equal(t, "lobby", room.Phase)
		require.Len(t, room.Players, 2)
		assert.Equal(t, "Alice", room.Players[0].Name)
		assert.Equal(t, 3, room.Players[1].Trophies)

		output, err = cli.run("rooms")
		require.NoError(t, err, output)
		assert.Contains(t, output, code)

		// Only the host can change the background
		guest.send("bg green")
		host.send("bg blue")
		bg := guest.expect("backgroundUpdate")
		assert.Equal(t, "blue", bg["background"])

		host.send("start")
		guest.expect("raceStart")

		guest.send("move 42.5")
		host.expect("sync")

		time.Sleep(5 * time.Millisecond)
		host.send("finish")
		trophy := host.expect("trophy")
		assert.EqualValues(t, 1, trophy["trophies"])
		position := host.expect("position")
		assert.EqualValues(t, 1, position["position"])

		guest.send("finish")
		guestPosition := guest.expect("position")
		assert.EqualValues(t, 2, guestPosition["position"])

		host.finish()
		guest.finish()

		var results response.ResultList
		require.Eventually(t, func() bool {
			output, err := cli.run("results", "--limit", "5")
			if err != nil || json.Unmarshal([]byte(output), &results) != nil {
				return false
			}
			return len(results.Results) == 2
		}, 5*time.Second, 50*time.Millisecond)
		assert.Equal(t, "Alice", results.Results[0].Name)
		assert.Equal(t, code, results.Results[0].RoomCode)

		// Both players left, so the room is gone
		require.Eventually(t, func() bool {
			_, err := cli.run("room", code)
			return err != nil
		}, 5*time.Second, 50*time.Millisecond)
	})
}
