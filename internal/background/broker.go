package background

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrStopped is returned by Send once the broker has been stopped.
var ErrStopped = errors.New("background: broker stopped")

// Channel is the only way strategies reach the privileged context.
type Channel interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// Handler serves one action. The returned value is JSON-encoded into
// Response.Data; a non-nil error becomes Response.Error.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

type envelope struct {
	ctx   context.Context
	req   Request
	reply chan Response
}

// Broker dispatches requests to registered handlers. Each request is
// served in its own goroutine so a slow transcription does not block a
// metadata lookup.
type Broker struct {
	handlers map[Action]Handler
	inbox    chan envelope
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.RWMutex
}

// NewBroker creates a broker with no handlers.
func NewBroker() *Broker {
	return &Broker{
		handlers: make(map[Action]Handler),
		inbox:    make(chan envelope),
		stop:     make(chan struct{}),
	}
}

// Handle registers h for action, replacing any previous handler.
func (b *Broker) Handle(action Action, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[action] = h
}

// Actions returns the registered action names.
func (b *Broker) Actions() []Action {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Action, 0, len(b.handlers))
	for a := range b.handlers {
		out = append(out, a)
	}
	return out
}

// Start runs the dispatch loop until ctx is done or Stop is called.
func (b *Broker) Start(ctx context.Context) {
	b.wg.Add(1)
	go b.run(ctx)
	slog.Info("background: broker started", slog.Int("handlers", len(b.Actions())))
}

// Stop halts the dispatch loop and waits for in-flight handlers.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
	b.wg.Wait()
	slog.Info("background: broker stopped")
}

func (b *Broker) run(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			b.stopOnce.Do(func() { close(b.stop) })
			return
		case <-b.stop:
			return
		case env := <-b.inbox:
			b.dispatch(env)
		}
	}
}

func (b *Broker) dispatch(env envelope) {
	b.mu.RLock()
	h, ok := b.handlers[env.req.Action]
	b.mu.RUnlock()

	if !ok {
		env.reply <- Response{ID: env.req.ID, Error: fmt.Sprintf("unknown action %q", env.req.Action)}
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		env.reply <- serve(env.ctx, h, env.req)
	}()
}

func serve(ctx context.Context, h Handler, req Request) (resp Response) {
	resp.ID = req.ID
	defer func() {
		if r := recover(); r != nil {
			slog.Error("background: handler panic",
				slog.String("action", string(req.Action)), slog.Any("panic", r))
			resp = Response{ID: req.ID, Error: fmt.Sprintf("%s: internal error", req.Action)}
		}
	}()

	out, err := h(ctx, req.Payload)
	if err != nil {
		slog.Debug("background: handler failed",
			slog.String("action", string(req.Action)), slog.Any("error", err))
		resp.Error = err.Error()
		return resp
	}
	data, err := json.Marshal(out)
	if err != nil {
		resp.Error = fmt.Sprintf("%s: encode response: %v", req.Action, err)
		return resp
	}
	resp.Success = true
	resp.Data = data
	return resp
}

// Send delivers req and waits for the reply. Handler failures are
// reported through Response.Error; the returned error is reserved for
// transport problems (cancellation, stopped broker).
func (b *Broker) Send(ctx context.Context, req Request) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	env := envelope{ctx: ctx, req: req, reply: make(chan Response, 1)}

	select {
	case b.inbox <- env:
	case <-b.stop:
		return Response{}, ErrStopped
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	select {
	case resp := <-env.reply:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Call marshals payload into a request for action and sends it on ch.
func Call(ctx context.Context, ch Channel, action Action, payload any) (Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("background: encode %s payload: %w", action, err)
	}
	return ch.Send(ctx, Request{Action: action, Payload: raw})
}

// Decode unmarshals the response data into v. It fails when the response
// is unsuccessful.
func (r Response) Decode(v any) error {
	if !r.Success {
		if r.Error == "" {
			return errors.New("background: request failed")
		}
		return errors.New(r.Error)
	}
	if len(r.Data) == 0 {
		return errors.New("background: empty response data")
	}
	return json.Unmarshal(r.Data, v)
}

// Payload decodes a handler payload into T.
func Payload[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, errors.New("missing payload")
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode payload: %w", err)
	}
	return v, nil
}
