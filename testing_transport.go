package wsession

import (
	"context"
	"net/url"

	"github.com/stretchr/testify/mock"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Open(ctx context.Context, u *url.URL) (Handle, error) {
	args := m.Called(ctx, u)
	h, _ := args.Get(0).(Handle)
	return h, args.Error(1)
}

// fakeTransport opens handles through a plain func, for tests that do not
// need call assertions.
type fakeTransport struct {
	OpenFunc func(ctx context.Context, u *url.URL) (Handle, error)
}

func (f *fakeTransport) Open(ctx context.Context, u *url.URL) (Handle, error) {
	return f.OpenFunc(ctx, u)
}

// fakeHandle is a scripted Handle. Unset funcs fall back to inert
// behavior: receives block until the context ends, sends succeed.
type fakeHandle struct {
	ActivateFunc    func()
	ReceiveNextFunc func(ctx context.Context) (Frame, error)
	SendFunc        func(ctx context.Context, f Frame) error
	CloseFunc       func(code int, reason string) error
	EventsFunc      func() <-chan HandleEvent
}

func (f *fakeHandle) Activate() {
	if f.ActivateFunc != nil {
		f.ActivateFunc()
	}
}

func (f *fakeHandle) ReceiveNext(ctx context.Context) (Frame, error) {
	if f.ReceiveNextFunc != nil {
		return f.ReceiveNextFunc(ctx)
	}
	<-ctx.Done()
	return Frame{}, ctx.Err()
}

func (f *fakeHandle) Send(ctx context.Context, fr Frame) error {
	if f.SendFunc != nil {
		return f.SendFunc(ctx, fr)
	}
	return nil
}

func (f *fakeHandle) Close(code int, reason string) error {
	if f.CloseFunc != nil {
		return f.CloseFunc(code, reason)
	}
	return nil
}

func (f *fakeHandle) Events() <-chan HandleEvent {
	if f.EventsFunc != nil {
		return f.EventsFunc()
	}
	return nil
}

func alwaysOpenTransport(h Handle) *fakeTransport {
	return &fakeTransport{
		OpenFunc: func(context.Context, *url.URL) (Handle, error) {
			return h, nil
		},
	}
}
