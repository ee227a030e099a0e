package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/racegame-go/internal/protocol"
)

const playHelp = `Commands:
  bg <name>   change the room background (host only)
  start       start the race (host only)
  move <x>    report your position
  finish      cross the finish line
  quit        leave the room`

// errQuit ends the session without error
var errQuit = errors.New("quit")

type playerFlags struct {
	name     string
	vehicle  string
	trophies int
}

func (f *playerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "racer", "Display name")
	cmd.Flags().StringVar(&f.vehicle, "vehicle", "car", "Vehicle")
	cmd.Flags().IntVar(&f.trophies, "trophies", 0, "Trophies carried into the room")
}

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Host or join a room and race from the terminal",
		Long: `Open a websocket session, host or join a room, then drive the race
with commands read from stdin. Server messages are printed as they arrive.

` + playHelp,
	}

	cmd.AddCommand(newPlayHostCmd())
	cmd.AddCommand(newPlayJoinCmd())

	return cmd
}

func newPlayHostCmd() *cobra.Command {
	var flags playerFlags

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Create a new room and become its host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hello := protocol.Inbound{
				Type:     protocol.KindHost,
				Name:     flags.name,
				Vehicle:  flags.vehicle,
				Trophies: flags.trophies,
			}
			return play(cmd, hello)
		},
	}
	flags.register(cmd)

	return cmd
}

func newPlayJoinCmd() *cobra.Command {
	var flags playerFlags

	cmd := &cobra.Command{
		Use:   "join <code>",
		Short: "Join an existing room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hello := protocol.Inbound{
				Type:     protocol.KindJoin,
				RoomCode: strings.ToUpper(args[0]),
				Name:     flags.name,
				Vehicle:  flags.vehicle,
				Trophies: flags.trophies,
			}
			return play(cmd, hello)
		},
	}
	flags.register(cmd)

	return cmd
}

// play runs one websocket session until stdin ends, the user quits, or the server goes away
func play(cmd *cobra.Command, hello protocol.Inbound) error {
	wsURL, err := cfg.WebSocketURL()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	out := NewOutput(cfg.Output, cmd.OutOrStdout())

	// Reader: print every frame until the connection closes
	readDone := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readDone <- err
				return
			}
			out.PrintFrame(data)
		}
	}()

	if err := sendFrame(conn, hello); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return closeSession(conn, readDone)
		case err := <-readDone:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				out.PrintMessage("Server closed the connection")
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		case line, ok := <-lines:
			if !ok {
				return closeSession(conn, readDone)
			}
			msg, err := parsePlayCommand(line)
			if errors.Is(err, errQuit) {
				return closeSession(conn, readDone)
			}
			if err != nil {
				out.PrintMessage(err.Error())
				continue
			}
			if msg == nil {
				continue
			}
			if err := sendFrame(conn, *msg); err != nil {
				return err
			}
		}
	}
}

// parsePlayCommand turns one input line into a frame. Blank lines yield nil.
func parsePlayCommand(line string) (*protocol.Inbound, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}

	switch strings.ToLower(fields[0]) {
	case "bg", "background":
		if len(fields) != 2 {
			return nil, errors.New("usage: bg <name>")
		}
		return &protocol.Inbound{Type: protocol.KindBackground, Value: fields[1]}, nil
	case "start":
		return &protocol.Inbound{Type: protocol.KindStart}, nil
	case "move":
		if len(fields) != 2 {
			return nil, errors.New("usage: move <x>")
		}
		x, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid position %q", fields[1])
		}
		return &protocol.Inbound{Type: protocol.KindMove, X: &x}, nil
	case "finish":
		return &protocol.Inbound{Type: protocol.KindFinish}, nil
	case "quit", "exit":
		return nil, errQuit
	case "help":
		return nil, errors.New(playHelp)
	default:
		return nil, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
}

func sendFrame(conn *websocket.Conn, msg protocol.Inbound) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// closeSession sends a close frame and waits briefly for the server to answer it
func closeSession(conn *websocket.Conn, readDone <-chan error) error {
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		return nil
	}
	select {
	case <-readDone:
	case <-time.After(time.Second):
	}
	return nil
}

