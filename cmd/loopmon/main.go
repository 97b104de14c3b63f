// Command loopmon connects to a running loopctl hub and prints what it
// broadcasts. With -send it issues one command and prints the resulting
// state.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/vk/loopctl/internal/hub"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	url     string
	send    string
	track   string
	timeout time.Duration
	colors  bool
}

func parse(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("loopmon", flag.ContinueOnError)
	fs.SetOutput(output)
	o := &options{}
	fs.StringVar(&o.url, "url", "http://127.0.0.1:7410", "Base URL of the loopctl hub.")
	fs.StringVar(&o.send, "send", "", "Send one command (play, stop, restart, reload, mute) and exit.")
	fs.StringVar(&o.track, "track", "", "Track name for the mute command.")
	fs.DurationVar(&o.timeout, "timeout", 5*time.Second, "How long -send waits for the hub.")
	fs.BoolVar(&o.colors, "color", true, "Colorize output.")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch o.send {
	case "", hub.CommandPlay, hub.CommandStop, hub.CommandRestart, hub.CommandReload:
	case hub.CommandMute:
		if o.track == "" {
			return nil, errors.New("mute needs -track")
		}
	default:
		return nil, fmt.Errorf("unknown command %q", o.send)
	}
	return o, nil
}

func run(ctx context.Context, out io.Writer, args []string) error {
	o, err := parse(args, out)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.Polling, transports.WebSocket))
	client, err := socket.Connect(o.url+"/", opts)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", o.url, err)
	}
	defer client.Disconnect()

	p := &printer{w: out, colors: o.colors}
	if o.send == "" {
		return monitor(ctx, client, p)
	}
	return sendOne(ctx, client, p, o)
}

// monitored lists the broadcasts printed in monitor mode.
var monitored = []types.EventName{
	hub.EventLog, hub.EventClear, hub.EventState, hub.EventPosition,
	hub.EventStop, hub.EventNote, hub.EventBuildSuccess,
}

// monitor prints every broadcast until ctx is done.
func monitor(ctx context.Context, client *socket.Socket, p *printer) error {
	client.On("connect", func(...any) { p.line("connected") })
	client.On("disconnect", func(reason ...any) { slog.Debug("Disconnected.", "reason", reason) })
	for _, event := range monitored {
		client.On(event, func(args ...any) { p.line(format(string(event), args, p.colors)) })
	}
	<-ctx.Done()
	return nil
}

// sendOne waits for the state pushed on connect, sends the command and
// prints the next state.
func sendOne(ctx context.Context, client *socket.Socket, p *printer, o *options) error {
	states := make(chan []any, 2)
	client.On(hub.EventState, func(args ...any) {
		select {
		case states <- args:
		default:
		}
	})

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	wait := func() ([]any, error) {
		select {
		case args := <-states:
			return args, nil
		case <-ctx.Done():
			return nil, fmt.Errorf("no state from hub: %w", ctx.Err())
		}
	}

	if _, err := wait(); err != nil {
		return err
	}
	var err error
	if o.send == hub.CommandMute {
		err = client.Emit(o.send, o.track)
	} else {
		err = client.Emit(o.send)
	}
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", o.send, err)
	}
	args, err := wait()
	if err != nil {
		return err
	}
	p.line(format(hub.EventState, args, p.colors))
	return nil
}

type printer struct {
	mu     sync.Mutex
	w      io.Writer
	colors bool
}

func (p *printer) line(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}
