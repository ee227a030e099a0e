package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/racegame-go/internal/api/response"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <code>",
		Short: "Spectate a room's events",
		Long: `Stream a room's events without joining it.

The stream opens with a snapshot of the room, then shows every update the
players receive. It ends when the room closes. Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return streamEvents(ctx, cmd, strings.ToUpper(args[0]))
		},
	}
}

func streamEvents(ctx context.Context, cmd *cobra.Command, code string) error {
	endpoint := strings.TrimSuffix(cfg.ServerURL, "/") + "/api/v1/rooms/" + url.PathEscape(code) + "/events"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// No timeout for event streams
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("room %s not found", code)
		}
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	out := NewOutput(cfg.Output, cmd.OutOrStdout())

	scanner := bufio.NewScanner(resp.Body)
	var event string
	var dataLines []string
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			if len(dataLines) > 0 {
				if done := printStreamEvent(out, event, strings.Join(dataLines, "\n")); done {
					return nil
				}
			}
			event = ""
			dataLines = nil
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}
	return nil
}

// printStreamEvent prints one event and reports whether the stream is over
func printStreamEvent(out *Output, event, data string) bool {
	switch event {
	case "snapshot":
		if out.format == "json" {
			out.PrintFrame([]byte(data))
			return false
		}
		var room response.Room
		if err := json.Unmarshal([]byte(data), &room); err != nil {
			out.PrintMessage("snapshot: " + data)
			return false
		}
		out.Print(room)
	case "closed":
		out.PrintMessage("Room closed")
		return true
	default:
		out.PrintFrame([]byte(data))
	}
	return false
}
