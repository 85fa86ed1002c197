package wsession

import (
	"context"
	"sync"
	"time"
)

type KeepAliveFrameFactory func() Frame

// keepAlive periodically sends a ping frame over a handle to keep the
// connection open from our side.
type keepAlive struct {
	handle       Handle
	pingInterval time.Duration
	frameFactory KeepAliveFrameFactory
	logger       logger

	startOnce sync.Once
	closeOnce sync.Once
	closeC    chan struct{}
}

func newKeepAlive(
	logger logger,
	h Handle,
	interval time.Duration,
	frameFactory KeepAliveFrameFactory,
) *keepAlive {
	return &keepAlive{
		handle:       h,
		logger:       logger.WithField("task", "keep_alive"),
		pingInterval: interval,
		frameFactory: frameFactory,
		closeC:       make(chan struct{}),
	}
}

// start launches the ping routine. It only executes once, subsequent calls
// have no effect.
func (k *keepAlive) start(ctx context.Context) {
	k.startOnce.Do(func() {
		go k.run(ctx)
	})
}

// stop terminates the ping routine. It only executes once, subsequent
// calls have no effect.
func (k *keepAlive) stop() {
	k.closeOnce.Do(func() {
		close(k.closeC)
	})
}

func (k *keepAlive) run(ctx context.Context) {
	ticker := time.NewTicker(k.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-k.closeC:
			return
		case <-ticker.C:
			if err := k.handle.Send(ctx, k.frameFactory()); err != nil {
				k.logger.Warnf("keep-alive ping failed: %s", err)
			}
		}
	}
}

// NewKeepAliveFrameFactory returns a factory for keep-alive frames with
// the given content.
func NewKeepAliveFrameFactory(contentFactory func() []byte) KeepAliveFrameFactory {
	return func() Frame {
		return NewPingFrame(contentFactory())
	}
}
