package wsession

import (
	"context"
	"sync"
	"time"

	"net/url"

	"github.com/pkg/errors"

	"github.com/fasthttp/websocket"
)

type Option func(*Client)

// WithTransport injects the Transport capability. Must be set, either here
// or via Configure, before the first Connect.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithContinuous controls whether the read loop re-arms after every
// delivered message (true, the default) or stops after one.
func WithContinuous(continuous bool) Option {
	return func(c *Client) { c.continuous = continuous }
}

func WithLogger(l logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithKeepAlive sends a ping frame every interval while connected.
func WithKeepAlive(interval time.Duration) Option {
	return func(c *Client) { c.keepAliveEvery = interval }
}

// Client owns a single logical WebSocket connection: it tracks the
// connection status, runs the inbound read loop and fans delivered
// messages out to subscribers. All state transitions, whether caller
// driven or transport driven, funnel through one synchronized entry point.
type Client struct {
	mu sync.Mutex

	transport       Transport
	continuous      bool
	keepAliveEvery  time.Duration
	keepAliveFrames KeepAliveFrameFactory
	logger          logger
	emitter         *EventEmitterCallback[EventType, EventType]

	handle     Handle
	hub        *hub
	status     Status
	connCtx    context.Context
	connCancel context.CancelFunc
	keepAlive  *keepAlive

	// eventsC carries lifecycle events, in transition order, to the
	// single goroutine that runs the listeners. Listeners never race
	// each other and never observe transitions out of order.
	eventsC chan EventType
}

func New(opts ...Option) *Client {
	c := &Client{
		continuous:      true,
		logger:          NewNoopLogger(),
		keepAliveFrames: NewKeepAliveFrameFactory(func() []byte { return nil }),
		emitter:         NewEventEmitter[EventType, EventType](),
		status:          statusDisconnected(),
		eventsC:         make(chan EventType, 16),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.runEmitter()
	return c
}

// NewDefault is the convenience composition-root factory: a client backed
// by the fasthttp/websocket transport with default dialing behavior.
func NewDefault() *Client {
	return New(WithTransport(
		NewWsTransport(NewNoopLogger(), websocket.DefaultDialer, nil),
	))
}

// Configure injects the transport and the continuous-read flag. It must be
// called (or the equivalent options passed to New) before Connect.
func (c *Client) Configure(t Transport, continuous bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport = t
	c.continuous = continuous
}

// On registers a listener for connection lifecycle events.
func (c *Client) On(event EventType, fn func(EventType)) {
	c.emitter.On(event, fn)
}

// Connect asks the transport to open a handle for u. It never returns an
// error: failure to connect is state, observed via Status. A previously
// held handle is replaced without being closed; callers are expected to
// Disconnect first.
func (c *Client) Connect(ctx context.Context, u *url.URL) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transport == nil {
		c.setStatusLocked(statusFailed(
			errors.Wrap(ErrOpenFailure, "no transport configured"),
		))
		return
	}

	handle, err := c.transport.Open(ctx, u)
	if err != nil || handle == nil {
		reason := error(ErrOpenFailure)
		if err != nil {
			if errors.Is(err, ErrOpenFailure) || errors.Is(err, ErrRateLimit) {
				reason = err
			} else {
				reason = errors.Wrap(ErrOpenFailure, err.Error())
			}
		}
		c.setStatusLocked(statusFailed(reason))
		return
	}

	// The previous handle, if any, is replaced without being closed, but
	// its watcher, read loop and keep-alive tasks must not outlive it.
	if c.connCancel != nil {
		c.connCancel()
	}
	if c.keepAlive != nil {
		c.keepAlive.stop()
		c.keepAlive = nil
	}

	handle.Activate()

	c.handle = handle
	c.hub = nil
	c.connCtx, c.connCancel = context.WithCancel(context.Background())

	if c.keepAliveEvery > 0 {
		c.keepAlive = newKeepAlive(c.logger, handle, c.keepAliveEvery, c.keepAliveFrames)
		c.keepAlive.start(c.connCtx)
	}

	c.setStatusLocked(statusConnected())

	go c.watchHandle(c.connCtx, handle)
}

// ConnectString parses raw into a URL and delegates to Connect. A string
// that does not parse into an absolute URL fails with ErrInvalidURL and
// leaves the status untouched.
func (c *Client) ConnectString(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrap(ErrInvalidURL, err.Error())
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.Wrapf(ErrInvalidURL, "%q", raw)
	}
	c.Connect(ctx, u)
	return nil
}

// Disconnect cancels every active subscription, closes the handle with a
// going-away reason and resets the status. Idempotent: with no active
// connection it only clears already-empty state.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connCancel != nil {
		c.connCancel()
		c.connCtx, c.connCancel = nil, nil
	}
	if c.keepAlive != nil {
		c.keepAlive.stop()
		c.keepAlive = nil
	}
	if c.hub != nil {
		// Drop, not drain: once the caller disconnects, no further
		// delivery occurs, buffered or otherwise.
		c.hub.discardAll(nil)
		c.hub = nil
	}
	if c.handle != nil {
		_ = c.handle.Close(CloseGoingAway, "going away")
		c.handle = nil
	}

	c.setStatusLocked(statusDisconnected())
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) IsConnected() bool {
	return c.Status().IsConnected()
}

// Subscribe returns a lazy, single-pass stream of inbound messages. It
// fails with ErrNotConnected when there is no active connection. The first
// subscription on a connection starts the read loop; concurrent
// subscriptions attach to the same loop and every one of them receives
// every message.
func (c *Client) Subscribe() (*Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.status.IsConnected() || c.handle == nil {
		return nil, ErrNotConnected
	}

	for {
		if c.hub == nil || c.hub.isClosed() {
			c.hub = newHub(c.logger)
			go runReadLoop(c.connCtx, c.logger, c.handle, c.hub, c.continuous)
		}
		if s, ok := c.hub.tryAdd(); ok {
			return s, nil
		}
		// The loop terminated between the check and the add. Retry with
		// a fresh hub.
		c.hub = nil
	}
}

// SubscribeFunc is the callback flavor of Subscribe: fn receives every
// delivered message with a nil error, then, if the stream terminates with
// a failure, one final call carrying that error. Clean completion produces
// no final call.
func (c *Client) SubscribeFunc(fn func(Message, error)) (*Subscription, error) {
	sub, err := c.Subscribe()
	if err != nil {
		return nil, err
	}

	go func() {
		for m := range sub.C() {
			fn(m, nil)
		}
		if err := sub.Err(); err != nil {
			fn(nil, err)
		}
	}()

	return sub, nil
}

// Send writes data as a binary frame. It fails fast with ErrNotConnected
// when there is no active connection; transport write failures come back
// wrapped as ErrTransport.
func (c *Client) Send(ctx context.Context, data []byte) error {
	return c.send(ctx, NewBinaryFrame(data))
}

// SendText writes text as a text frame.
func (c *Client) SendText(ctx context.Context, text string) error {
	return c.send(ctx, NewTextFrame([]byte(text)))
}

func (c *Client) send(ctx context.Context, f Frame) error {
	c.mu.Lock()
	h := c.handle
	connected := c.status.IsConnected()
	c.mu.Unlock()

	if !connected || h == nil {
		return ErrNotConnected
	}

	if err := h.Send(ctx, f); err != nil {
		return WrapErrorTransportFailure(err)
	}
	return nil
}

// watchHandle consumes transport-originated lifecycle notifications for
// one handle on a single goroutine, so they never race each other.
func (c *Client) watchHandle(ctx context.Context, h Handle) {
	events := h.Events()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.applyHandleEvent(h, ev)
		}
	}
}

func (c *Client) applyHandleEvent(h Handle, ev HandleEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Ignore notifications from a superseded handle.
	if c.handle != h {
		return
	}

	switch ev.Kind {
	case HandleOpened:
		c.setStatusLocked(statusConnected())
	case HandleClosed:
		if ev.Err != nil {
			c.logger.Warnf("transport reported closure: %s", ev.Err)
		}
		c.setStatusLocked(statusDisconnected())
	}
}

// setStatusLocked is the single entry point for status transitions,
// regardless of whether the trigger is caller-initiated or
// transport-initiated. Last event wins. Callers must hold c.mu.
func (c *Client) setStatusLocked(s Status) {
	prev := c.status
	c.status = s

	if prev.State == s.State {
		return
	}

	c.logger.Infof("status %s -> %s", prev, s)

	switch s.State {
	case StateConnected:
		c.eventsC <- EventConnect
	case StateDisconnected:
		c.eventsC <- EventDisconnect
	case StateFailed:
		c.eventsC <- EventFailed
	}
}

// runEmitter delivers lifecycle events to listeners one at a time, in the
// order the status transitions happened.
func (c *Client) runEmitter() {
	for ev := range c.eventsC {
		c.emitter.Emit(ev, ev)
	}
}
