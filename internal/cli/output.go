package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"

	"github.com/mcoot/racegame-go/internal/api/response"
	"github.com/mcoot/racegame-go/internal/protocol"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

// PrintFrame outputs one server websocket frame. JSON output passes the frame through unchanged.
func (o *Output) PrintFrame(raw []byte) {
	if o.format == "json" {
		_, _ = fmt.Fprintln(o.w, string(raw))
		return
	}

	var frame struct {
		Type       protocol.Kind              `json:"type"`
		RoomCode   string                     `json:"roomCode"`
		Message    string                     `json:"message"`
		Background string                     `json:"background"`
		Roster     []protocol.Player          `json:"roster"`
		Players    map[string]protocol.Player `json:"players"`
		Completed  bool                       `json:"completed"`
		Trophies   int                        `json:"trophies"`
		Position   int                        `json:"position"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		_, _ = fmt.Fprintf(o.w, "? %s\n", string(raw))
		return
	}

	switch frame.Type {
	case protocol.KindHosted:
		_, _ = fmt.Fprintf(o.w, "Hosting room %s\n", frame.RoomCode)
	case protocol.KindError:
		_, _ = fmt.Fprintf(o.w, "Error: %s\n", frame.Message)
	case protocol.KindPlayersUpdate:
		_, _ = fmt.Fprintf(o.w, "Players (%d):\n", len(frame.Roster))
		o.printPlayers(frame.Roster)
		if frame.Completed {
			_, _ = fmt.Fprintln(o.w, "Race complete!")
		}
	case protocol.KindBackgroundUpdate:
		_, _ = fmt.Fprintf(o.w, "Background: %s\n", frame.Background)
	case protocol.KindRaceStart:
		_, _ = fmt.Fprintf(o.w, "Race started (background %s)\n", frame.Background)
	case protocol.KindSync:
		players := lo.Values(frame.Players)
		sort.Slice(players, func(i, j int) bool { return players[i].X > players[j].X })
		positions := lo.Map(players, func(p protocol.Player, _ int) string {
			return fmt.Sprintf("%s@%g", p.Name, p.X)
		})
		_, _ = fmt.Fprintf(o.w, "Positions: %s\n", strings.Join(positions, " "))
	case protocol.KindTrophy:
		_, _ = fmt.Fprintf(o.w, "Trophy won! Total trophies: %d\n", frame.Trophies)
	case protocol.KindPosition:
		_, _ = fmt.Fprintf(o.w, "Finished in position %d\n", frame.Position)
	default:
		_, _ = fmt.Fprintf(o.w, "%s: %s\n", frame.Type, string(raw))
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.RoomList:
		o.printRoomList(v)
	case response.Room:
		o.printRoom(v)
	case response.ResultList:
		o.printResults(v)
	case response.Health:
		_, _ = fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printRoomList(l response.RoomList) {
	if len(l.Rooms) == 0 {
		_, _ = fmt.Fprintln(o.w, "No rooms")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CODE\tPHASE\tPLAYERS\tHOST\tBACKGROUND")
	for _, r := range l.Rooms {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.Code, r.Phase, r.PlayerCount, yesNo(r.HostPresent), r.Background)
	}
	_ = tw.Flush()
}

func (o *Output) printRoom(r response.Room) {
	_, _ = fmt.Fprintf(o.w, "Room: %s\n", r.Code)
	_, _ = fmt.Fprintf(o.w, "Phase: %s\n", r.Phase)
	_, _ = fmt.Fprintf(o.w, "Background: %s\n", r.Background)
	if !r.HostPresent {
		_, _ = fmt.Fprintln(o.w, "Host: gone")
	}
	if r.StartedAt != nil {
		_, _ = fmt.Fprintf(o.w, "Started: %s\n", r.StartedAt.Format(time.RFC3339))
	}
	if r.Completed {
		_, _ = fmt.Fprintln(o.w, "Race complete")
	}
	_, _ = fmt.Fprintf(o.w, "Players (%d):\n", len(r.Players))
	o.printPlayers(r.Players)
}

func (o *Output) printPlayers(players []protocol.Player) {
	for _, p := range players {
		status := fmt.Sprintf("x=%g", p.X)
		if p.Finished {
			status = "finished in " + formatMillis(p.Time)
		}
		_, _ = fmt.Fprintf(o.w, "  - %s (%s) [%s] trophies=%d %s\n", p.Name, p.ID, p.Vehicle, p.Trophies, status)
	}
}

func (o *Output) printResults(l response.ResultList) {
	if len(l.Results) == 0 {
		_, _ = fmt.Fprintln(o.w, "No results")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RANK\tNAME\tVEHICLE\tTIME\tPOSITION\tROOM")
	for _, r := range l.Results {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", r.Rank, r.Name, r.Vehicle, formatMillis(r.FinishTimeMs), r.Position, r.RoomCode)
	}
	_ = tw.Flush()
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
