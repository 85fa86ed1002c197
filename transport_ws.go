package wsession

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"context"
	"net/url"

	"github.com/pkg/errors"

	"github.com/fasthttp/websocket"
)

type (
	DialErrAdapter func(*websocket.Conn, *http.Response, error) error

	// WsTransport opens WebSocket handles with a fasthttp/websocket dialer.
	// It implements the Transport interface.
	WsTransport struct {
		dialer     *websocket.Dialer
		header     http.Header
		onDialErr  DialErrAdapter
		logger     logger
		writeGrace time.Duration
	}

	// wsHandle wraps a dialed *websocket.Conn behind the Handle contract.
	wsHandle struct {
		logger       logger
		conn         *websocket.Conn
		writeGrace   time.Duration
		events       chan HandleEvent
		activateOnce sync.Once
		closeOnce    sync.Once
		writeMu      sync.Mutex
	}
)

func NewWsTransport(
	logger logger,
	dialer *websocket.Dialer,
	header http.Header,
) *WsTransport {
	return &WsTransport{
		dialer:     dialer,
		header:     header,
		logger:     logger.WithField("transport", "ws"),
		writeGrace: time.Second,
	}
}

// WithDialErrAdapter overrides the default dial error classification.
func (t *WsTransport) WithDialErrAdapter(fn DialErrAdapter) *WsTransport {
	t.onDialErr = fn
	return t
}

func (t *WsTransport) Open(ctx context.Context, u *url.URL) (Handle, error) {
	conn, resp, err := t.dialer.DialContext(ctx, u.String(), t.header)

	if err = t.handleDialError(conn, resp, err); err != nil {
		t.logger.Errorf("connection err to %s: %s", u.String(), err)
		return nil, err
	}

	t.logger.Debugf("success opening connection to %s", u.String())

	return &wsHandle{
		logger:     t.logger,
		conn:       conn,
		writeGrace: t.writeGrace,
		events:     make(chan HandleEvent, 4),
	}, nil
}

func (t *WsTransport) handleDialError(conn *websocket.Conn, resp *http.Response, err error) error {
	if t.onDialErr != nil {
		return t.onDialErr(conn, resp, err)
	}

	// 1. Check HTTP errors first
	var msg string

	if resp != nil {
		if resp.Body != nil {
			bts, err := io.ReadAll(resp.Body)
			if err == nil {
				msg = string(bts)
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(ErrRateLimit, msg)
		}
	}

	// 2. Network errors
	if err != nil {
		return errors.Wrap(ErrOpenFailure, err.Error())
	}

	return nil
}

// Activate arms the control frame handlers and announces the handle as
// open. Overriding the close handler gives us the peer's close frame
// before the read side surfaces it as an error.
func (h *wsHandle) Activate() {
	h.activateOnce.Do(func() {
		h.conn.SetCloseHandler(func(code int, text string) error {
			h.logger.Debugln("<= [CLOSE]")
			h.emit(HandleEvent{
				Kind: HandleClosed,
				Err:  WrapErrorTransportFailure(&websocket.CloseError{Code: code, Text: text}),
			})
			return nil
		})

		h.emit(HandleEvent{Kind: HandleOpened})
	})
}

func (h *wsHandle) Events() <-chan HandleEvent {
	return h.events
}

func (h *wsHandle) ReceiveNext(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	messageType, bts, err := h.conn.ReadMessage()
	if err != nil {
		return Frame{}, errors.Wrap(err, "websocket read")
	}

	// message types from ReadMessage are either binary or text
	switch messageType {
	case websocket.BinaryMessage:
		h.logger.Debugln("<= [BIN]")
		return NewBinaryFrame(bts), nil
	default:
		h.logger.Debugf("<= [TEXT] %s", string(bts))
		return NewTextFrame(bts), nil
	}
}

func (h *wsHandle) Send(ctx context.Context, f Frame) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	deadline := time.Now().Add(h.writeGrace)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	_ = h.conn.SetWriteDeadline(deadline)

	var err error

	switch f.Type() {
	case PingFrame:
		h.logger.Debugln("=> [PING]")
		err = h.conn.WriteControl(websocket.PingMessage, f.Data(), deadline)
		if e, ok := err.(net.Error); ok && e.Temporary() {
			err = nil
		}
	case PongFrame:
		h.logger.Debugln("=> [PONG]")
		err = h.conn.WriteControl(websocket.PongMessage, f.Data(), deadline)
	case TextFrame:
		h.logger.Debugf("=> [TEXT] %s", f.Data())
		err = h.conn.WriteMessage(websocket.TextMessage, f.Data())
	case BinaryFrame:
		h.logger.Debugln("=> [BIN]")
		err = h.conn.WriteMessage(websocket.BinaryMessage, f.Data())
	default:
		return errors.Errorf("unsendable frame type %d", f.Type())
	}

	if err != nil {
		return errors.Wrap(err, "websocket write")
	}

	return nil
}

func (h *wsHandle) Close(code int, reason string) error {
	var err error
	h.closeOnce.Do(func() {
		deadline := time.Now().Add(h.writeGrace)
		_ = h.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			deadline,
		)
		err = h.conn.Close()

		h.emit(HandleEvent{Kind: HandleClosed})
		close(h.events)
	})
	return err
}

func (h *wsHandle) emit(ev HandleEvent) {
	select {
	case h.events <- ev:
	default:
	}
}
