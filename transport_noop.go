package wsession

import (
	"context"
	"net/url"
)

type noopTransport struct{}

// NewNoopTransport returns a Transport whose handles accept every send and
// never deliver a message. Useful to wire a client without a live socket.
func NewNoopTransport() Transport {
	return noopTransport{}
}

func (noopTransport) Open(_ context.Context, _ *url.URL) (Handle, error) {
	return &noopHandle{}, nil
}

type noopHandle struct{}

func (*noopHandle) Activate() {}

func (*noopHandle) ReceiveNext(ctx context.Context) (Frame, error) {
	<-ctx.Done()
	return Frame{}, ctx.Err()
}

func (*noopHandle) Send(context.Context, Frame) error { return nil }

func (*noopHandle) Close(int, string) error { return nil }

func (*noopHandle) Events() <-chan HandleEvent { return nil }
