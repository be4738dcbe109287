// Package remote streams probe events to a socket.io server.
//
// Each notification becomes one event (named "probe" by default) whose single
// argument is a Payload. Results are encoded with cty's JSON encoding. The
// sink never blocks execution: emit failures are logged and counted.
package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/posgridgo/internal/ctxlog"
	"github.com/specialistvlad/posgridgo/internal/node"
	"github.com/specialistvlad/posgridgo/internal/probe"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultEvent is the socket.io event name used when Config.Event is empty.
const DefaultEvent = "probe"

// Emitter is the part of a socket.io client the sink uses.
type Emitter interface {
	Emit(event string, args ...any) error
}

// Config describes the server to dial.
type Config struct {
	URL                string
	Namespace          string
	Event              string
	ConnectTimeout     time.Duration
	InsecureSkipVerify bool
}

// Payload is the argument of every emitted event.
type Payload struct {
	ID           string                   `json:"id"`
	Seq          uint64                   `json:"seq"`
	Kind         string                   `json:"kind"`
	Frame        string                   `json:"frame"`
	Source       string                   `json:"source"`
	Start        int                      `json:"start"`
	End          int                      `json:"end"`
	Tags         string                   `json:"tags"`
	Capabilities []string                 `json:"capabilities"`
	Result       *ctyjson.SimpleJSONValue `json:"result,omitempty"`
	Error        string                   `json:"error,omitempty"`
}

// Sink turns probe notifications into socket.io events.
type Sink struct {
	emitter Emitter
	event   string
	logger  *slog.Logger
	close   func()

	seq     atomic.Uint64
	dropped atomic.Uint64
}

// New wraps an already connected emitter. The logger is taken from ctx.
func New(ctx context.Context, emitter Emitter, event string) *Sink {
	if event == "" {
		event = DefaultEvent
	}
	return &Sink{
		emitter: emitter,
		event:   event,
		logger:  ctxlog.FromContext(ctx).With("component", "remote_probe", "event", event),
		close:   func() {},
	}
}

// Dial connects to cfg.URL over websocket and returns a sink bound to the
// connection. It waits for the connection to be established, for the server
// to refuse it or for cfg.ConnectTimeout (10s when zero) to elapse.
func Dial(ctx context.Context, cfg Config) (*Sink, error) {
	logger := ctxlog.FromContext(ctx).With("url", cfg.URL, "namespace", cfg.Namespace)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse probe URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("probe URL %q must be absolute", cfg.URL)
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "/"
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	connected := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Remote probe connected.", "sid", io.Id())
		select {
		case connected <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connection refused")
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
	io.Connect()

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case <-dialCtx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("timed out connecting to probe server %s", cfg.URL)
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("failed to connect to probe server %s: %w", cfg.URL, err)
		}
	}

	s := New(ctx, io, cfg.Event)
	s.close = func() {
		logger.Debug("Disconnecting remote probe.")
		io.Disconnect()
	}
	return s, nil
}

// For builds the streaming probe of n.
func (s *Sink) For(n *node.Base) node.Probe {
	section := n.SourceSection()
	var capabilities []string
	for _, c := range n.Tags().Capabilities() {
		capabilities = append(capabilities, c.String())
	}
	base := Payload{
		Source:       section.Source.Name,
		Start:        section.Start,
		End:          section.End,
		Tags:         n.Tags().String(),
		Capabilities: capabilities,
	}
	return &streamProbe{sink: s, base: base}
}

// Dropped reports how many events could not be emitted.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close disconnects the sink when it owns the connection.
func (s *Sink) Close() {
	s.close()
}

func (s *Sink) emit(p Payload) {
	p.ID = uuid.NewString()
	p.Seq = s.seq.Add(1)
	if err := s.emitter.Emit(s.event, p); err != nil {
		s.dropped.Add(1)
		s.logger.Warn("Failed to emit probe event.", "kind", p.Kind, "error", err)
	}
}

type streamProbe struct {
	sink *Sink
	base Payload
}

func (p *streamProbe) payload(kind probe.Kind, f *node.Frame) Payload {
	out := p.base
	out.Kind = kind.String()
	out.Frame = f.ID.String()
	return out
}

func (p *streamProbe) OnEnter(f *node.Frame) {
	p.sink.emit(p.payload(probe.Enter, f))
}

func (p *streamProbe) OnReturn(f *node.Frame, v cty.Value) {
	out := p.payload(probe.Return, f)
	if v != cty.NilVal {
		out.Result = &ctyjson.SimpleJSONValue{Value: v}
	}
	p.sink.emit(out)
}

func (p *streamProbe) OnError(f *node.Frame, err error) {
	out := p.payload(probe.Error, f)
	out.Error = err.Error()
	p.sink.emit(out)
}
