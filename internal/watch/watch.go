// Package watch follows a calculator session from the command line. It joins
// the session's socket.io room and prints every change pushed by the server.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/vk/calcgrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Events printed by Watch.
var Events = []string{"state", "value_changed", "validation_changed", "direction_changed", "calc_error"}

// connectTimeout bounds the wait for the first connection.
const connectTimeout = 15 * time.Second

// Printer writes one line per event.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Print renders an event. Known payloads get a compact form; anything else
// is printed as JSON.
func (p *Printer) Print(event string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, _ := data.(map[string]any)
	switch event {
	case "value_changed":
		fmt.Fprintf(p.out, "%-10s %s = %s\n", "value", m["variable"], m["formatted"])
		return
	case "validation_changed":
		if msg, ok := m["message"].(string); ok && msg != "" {
			fmt.Fprintf(p.out, "%-10s %s %s: %s\n", "valid", m["variable"], m["level"], msg)
		} else {
			fmt.Fprintf(p.out, "%-10s %s %s\n", "valid", m["variable"], m["level"])
		}
		return
	case "direction_changed":
		fmt.Fprintf(p.out, "%-10s %s -> %s\n", "direction", m["variable"], m["direction"])
		return
	}
	b, err := json.Marshal(data)
	if err != nil {
		fmt.Fprintf(p.out, "%-10s %v\n", event, data)
		return
	}
	fmt.Fprintf(p.out, "%-10s %s\n", event, b)
}

// join waits for the answer to a join request: the first state, or a
// calc_error sent before it.
type join struct {
	once sync.Once
	done chan error
}

func newJoin() *join {
	return &join{done: make(chan error, 1)}
}

// observe settles the join on its first state or calc_error event. Later
// events are ignored.
func (j *join) observe(event string, data any) {
	switch event {
	case "state":
		j.once.Do(func() { j.done <- nil })
	case "calc_error":
		msg := "server error"
		if m, ok := data.(map[string]any); ok {
			if s, ok := m["error"].(string); ok && s != "" {
				msg = s
			}
		}
		j.once.Do(func() { j.done <- errors.New(msg) })
	}
}

// Watch connects to the server at serverURL, joins session and prints events
// to out until ctx is cancelled. It fails if the server rejects the join.
func Watch(ctx context.Context, serverURL, session string, out io.Writer) error {
	logger := ctxlog.FromContext(ctx).With("url", serverURL, "session", session)

	parsed, err := url.Parse(serverURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid server URL %q: expected scheme://host[:port]", serverURL)
	}

	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.Polling, transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	manager := socket.NewManager(baseURL, opts)
	client := manager.Socket("/", opts)

	printer := NewPrinter(out)
	joined := newJoin()
	for _, ev := range Events {
		name := ev
		client.On(types.EventName(name), func(args ...any) {
			var data any
			if len(args) > 0 {
				data = args[0]
			}
			printer.Print(name, data)
			joined.observe(name, data)
		})
	}

	connected := make(chan error, 1)
	client.On(types.EventName("connect"), func(...any) {
		logger.Debug("Connected, joining session.", "sid", client.Id())
		client.Emit("join", map[string]any{"session": session})
		select {
		case connected <- nil:
		default:
		}
	})
	client.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connected <- err:
		default:
		}
	})

	client.Connect()
	defer client.Disconnect()

	select {
	case err := <-connected:
		if err != nil {
			return fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		return nil
	case <-time.After(connectTimeout):
		return fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}

	select {
	case err := <-joined.done:
		if err != nil {
			return fmt.Errorf("joining session %s: %w", session, err)
		}
	case <-ctx.Done():
		return nil
	case <-time.After(connectTimeout):
		return fmt.Errorf("timed out after %s waiting for session %s", connectTimeout, session)
	}

	logger.Info("Watching session.")
	<-ctx.Done()
	return nil
}
