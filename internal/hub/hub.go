// Package hub is the UI transport: a socket.io server that broadcasts
// controller, console and loop events and turns client messages into
// commands for the application's dispatch loop.
package hub

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/loopctl/internal/console"
	"github.com/vk/loopctl/internal/device"
	"github.com/vk/loopctl/internal/sequencer"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

// Events emitted to clients.
const (
	EventBuildSuccess = "build-success"
	EventLog          = "log"
	EventClear        = "clear"
	EventPosition     = "position"
	EventStop         = "stop"
	EventNote         = "note"
	EventState        = "state"
)

// Commands accepted from clients. CommandState is also queued for every new
// connection so that it receives a state snapshot.
const (
	CommandPlay    = "play"
	CommandStop    = "stop"
	CommandRestart = "restart"
	CommandReload  = "reload"
	CommandMute    = "mute"
	CommandState   = "state"
)

const commandBuffer = 64

// Command is a client request. Track is set for CommandMute.
type Command struct {
	Name  string
	Track string
}

// Hub implements console.Sink, sequencer.Listener and device.Output.
type Hub struct {
	io       *socket.Server
	logger   *slog.Logger
	commands chan Command

	once    sync.Once
	handler http.Handler
}

var (
	_ console.Sink       = (*Hub)(nil)
	_ sequencer.Listener = (*Hub)(nil)
	_ device.Output      = (*Hub)(nil)
)

// New creates a Hub. Nothing is served until Handler is mounted.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		io:       socket.NewServer(nil, nil),
		logger:   logger.With("component", "hub"),
		commands: make(chan Command, commandBuffer),
	}
	h.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		h.onConnection(client)
	})
	return h
}

// Handler returns the socket.io HTTP handler, normally mounted at
// "/socket.io/".
func (h *Hub) Handler() http.Handler {
	h.once.Do(func() {
		opts := socket.DefaultServerOptions()
		opts.SetCors(&types.Cors{Origin: "*", Credentials: true})
		h.handler = h.io.ServeHandler(opts)
	})
	return h.handler
}

// Commands returns the channel client commands are delivered on.
func (h *Hub) Commands() <-chan Command { return h.commands }

// Close disconnects every client.
func (h *Hub) Close() {
	h.io.Close(nil)
}

func (h *Hub) onConnection(client *socket.Socket) {
	logger := h.logger.With("sid", string(client.Id()))
	logger.Debug("Client connected.")

	for _, name := range []string{CommandPlay, CommandStop, CommandRestart, CommandReload, CommandState} {
		name := name
		client.On(name, func(...any) { h.push(Command{Name: name}) })
	}
	client.On(CommandMute, func(args ...any) {
		if len(args) == 0 {
			return
		}
		track, ok := args[0].(string)
		if !ok || track == "" {
			logger.Warn("Ignoring mute without a track name.")
			return
		}
		h.push(Command{Name: CommandMute, Track: track})
	})
	client.On("disconnect", func(reason ...any) {
		logger.Debug("Client disconnected.", "reason", reason)
	})

	h.push(Command{Name: CommandState})
}

func (h *Hub) push(cmd Command) {
	select {
	case h.commands <- cmd:
	default:
		h.logger.Warn("Command dropped, dispatch loop is busy.", "command", cmd.Name)
	}
}

// BuildSuccess broadcasts a successful build.
func (h *Hub) BuildSuccess() { h.io.Emit(EventBuildSuccess) }

// State broadcasts a state snapshot.
func (h *Hub) State(state any) { h.io.Emit(EventState, state) }

// Entry forwards a console entry.
func (h *Hub) Entry(e console.Entry) { h.io.Emit(EventLog, e) }

// Clear forwards a console clear.
func (h *Hub) Clear() { h.io.Emit(EventClear) }

// OnPosition forwards the loop position.
func (h *Hub) OnPosition(p sequencer.Position) { h.io.Emit(EventPosition, p) }

// OnStop forwards a loop stop.
func (h *Hub) OnStop() { h.io.Emit(EventStop) }

// ID identifies the hub as an output.
func (h *Hub) ID() string { return "hub" }

// Name is the display name of the output.
func (h *Hub) Name() string { return "Web MIDI bridge" }

// Send forwards a note to clients, which play it through Web MIDI.
func (h *Hub) Send(msg device.Message) error {
	h.io.Emit(EventNote, map[string]any{
		"channel":  msg.Channel,
		"note":     msg.Note,
		"velocity": msg.Velocity,
		"duration": msg.Duration.Milliseconds(),
	})
	return nil
}
