package wsession

import (
	"sync"

	"github.com/eapache/queue"
)

// Subscription is a lazy, single-pass stream of inbound messages. Values
// arrive on C until the stream terminates; after C is closed, Err reports
// why. A nil Err means clean completion (single-shot delivery done, or the
// client disconnected). Once terminated a subscription cannot be restarted;
// call Subscribe again to re-read.
type Subscription struct {
	out  chan Message
	quit chan struct{}

	mu      sync.Mutex
	cond    *sync.Cond
	pending *queue.Queue
	closed  bool
	dropped bool
	err     error

	quitOnce sync.Once
	detach   func(*Subscription)
}

func newSubscription(detach func(*Subscription)) *Subscription {
	s := &Subscription{
		out:     make(chan Message),
		quit:    make(chan struct{}),
		pending: queue.New(),
		detach:  detach,
	}
	s.cond = sync.NewCond(&s.mu)
	go s.dispatch()
	return s
}

// C returns the delivery channel. It is closed when the stream terminates.
func (s *Subscription) C() <-chan Message {
	return s.out
}

// Err reports why the stream terminated. Call it after C has been closed.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel detaches the subscription and terminates its stream. Pending,
// undelivered messages are discarded. Idempotent.
func (s *Subscription) Cancel() {
	s.terminate(nil, true)

	// Unblock a dispatcher stuck on an unread consumer even when the
	// stream already terminated with drain semantics.
	s.quitOnce.Do(func() { close(s.quit) })
	s.cond.Signal()

	if s.detach != nil {
		s.detach(s)
	}
}

// push enqueues a message for delivery. Messages pushed after the stream
// terminated are dropped silently.
func (s *Subscription) push(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.pending.Add(m)
	s.cond.Signal()
}

// finish terminates the stream after all pending messages are delivered.
func (s *Subscription) finish(err error) {
	s.terminate(err, false)
}

// discard terminates the stream immediately, dropping any pending,
// undelivered messages.
func (s *Subscription) discard(err error) {
	s.terminate(err, true)
}

// terminate closes the stream. The first call wins; later calls are
// no-ops. With drop set, pending messages are discarded instead of
// drained to the consumer.
func (s *Subscription) terminate(err error, drop bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.dropped = drop
	s.err = err
	s.mu.Unlock()

	if drop {
		s.quitOnce.Do(func() { close(s.quit) })
	}
	s.cond.Signal()
}

// dispatch drains the pending queue into the out channel. The queue
// decouples the shared read loop from slow consumers: the loop never
// blocks on an unread channel.
func (s *Subscription) dispatch() {
	defer close(s.out)

	for {
		s.mu.Lock()
		for s.pending.Length() == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.dropped || (s.closed && s.pending.Length() == 0) {
			s.mu.Unlock()
			return
		}
		m := s.pending.Remove().(Message)
		s.mu.Unlock()

		// A dropped stream must not hand out a message it already popped.
		select {
		case <-s.quit:
			return
		default:
		}

		select {
		case s.out <- m:
		case <-s.quit:
			return
		}
	}
}

// hub fans one read loop out to every active subscription on a connection.
type hub struct {
	logger logger

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func newHub(logger logger) *hub {
	return &hub{
		logger: logger.WithField("component", "hub"),
		subs:   make(map[*Subscription]struct{}),
	}
}

// tryAdd registers a new subscription. It reports false when the hub has
// already terminated, in which case the caller must spin up a fresh hub.
func (h *hub) tryAdd() (*Subscription, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, false
	}

	s := newSubscription(h.remove)
	h.subs[s] = struct{}{}
	return s, true
}

func (h *hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, s)
}

func (h *hub) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// broadcast delivers one message to every active subscription.
func (h *hub) broadcast(m Message) {
	h.mu.Lock()
	targets := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.push(m)
	}
}

// finishAll terminates every subscription with the given error after
// draining their pending messages, and marks the hub closed. A closed hub
// accepts no further subscriptions; the next Subscribe call spawns a
// fresh hub and read loop.
func (h *hub) finishAll(err error) {
	h.terminateAll(err, false)
}

// discardAll terminates every subscription immediately, dropping pending
// messages. Used on disconnect: once the caller tears the connection
// down, no further delivery occurs.
func (h *hub) discardAll(err error) {
	h.terminateAll(err, true)
}

func (h *hub) terminateAll(err error, drop bool) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	targets := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		targets = append(targets, s)
	}
	h.subs = make(map[*Subscription]struct{})
	h.mu.Unlock()

	if err != nil {
		h.logger.Errorf("terminating %d subscription(s): %s", len(targets), err)
	}

	for _, s := range targets {
		if drop {
			s.discard(err)
		} else {
			s.finish(err)
		}
	}
}
