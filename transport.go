package wsession

import (
	"context"
	"net/url"
)

// CloseGoingAway is the close code sent when the caller disconnects.
const CloseGoingAway = 1001

type HandleEventKind byte

const (
	// HandleOpened signals that the transport considers the handle live.
	HandleOpened HandleEventKind = iota
	// HandleClosed signals that the transport closed the handle, either
	// because the peer went away or because Close was called.
	HandleClosed
)

// HandleEvent is an asynchronous lifecycle notification originated by the
// transport rather than by the caller.
type HandleEvent struct {
	Kind HandleEventKind
	Err  error
}

type (
	// Handle is a live connection produced by a Transport. The core issues
	// at most one outstanding ReceiveNext per handle at a time.
	Handle interface {
		// Activate arms the handle for traffic. Must be called once,
		// right after Open succeeds, before any send or receive.
		Activate()

		// ReceiveNext blocks until the next inbound frame is available.
		// Cancellation is cooperative: an in-flight receive is not
		// forcibly aborted, only superseded by closing the handle.
		ReceiveNext(ctx context.Context) (Frame, error)

		// Send writes a single frame.
		Send(ctx context.Context, f Frame) error

		// Close terminates the handle with a close code and reason.
		// It must be safe to call more than once.
		Close(code int, reason string) error

		// Events returns the channel carrying transport-originated
		// lifecycle notifications. It is closed when the handle dies.
		Events() <-chan HandleEvent
	}

	// Transport is the external capability the session manager consumes:
	// it knows how to open a handle towards a URL. Everything else about
	// the wire is the transport's business.
	Transport interface {
		Open(ctx context.Context, u *url.URL) (Handle, error)
	}
)
