package wsession

import (
	"context"

	"github.com/pkg/errors"
)

// runReadLoop pulls inbound frames from the handle and fans them out to
// the hub. There is exactly one loop per live hub, so the transport's
// one-outstanding-receive-per-handle contract holds no matter how many
// subscriptions are active.
//
// The loop ends on: context cancellation (disconnect), a text frame that
// fails decoding, a transport receive failure, a close frame, or after the
// first delivery when continuous is false. A terminated loop never re-arms.
func runReadLoop(
	ctx context.Context,
	logger logger,
	h Handle,
	hub *hub,
	continuous bool,
) {
	log := logger.WithField("task", "read_loop")

	for {
		select {
		case <-ctx.Done():
			hub.discardAll(nil)
			return
		default:
		}

		frame, err := h.ReceiveNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Torn down while the receive was in flight.
				hub.discardAll(nil)
				return
			}
			log.Errorf("error occurred on receive: %s", err)
			hub.finishAll(WrapErrorTransportFailure(err))
			return
		}

		if frame.Type().IsControl() {
			// Keep-alive traffic is the transport's concern, not the
			// subscribers'.
			continue
		}

		if frame.Type().IsClose() {
			log.Infoln("peer closed the connection")
			hub.finishAll(WrapErrorTransportFailure(
				errors.Errorf("connection closed by peer: %s", frame.Data()),
			))
			return
		}

		msg, err := decodeFrame(frame)
		if err != nil {
			log.Errorf("dropping stream on undecodable frame: %s", err)
			hub.finishAll(err)
			return
		}

		hub.broadcast(msg)

		if !continuous {
			hub.finishAll(nil)
			return
		}
	}
}
