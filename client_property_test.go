package wsession

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// For any well-formed ws:// target, ConnectString must delegate to the
// transport and the synchronous open result must be observable through
// IsConnected immediately after the call returns.
func TestConnectStringValidURLProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("well-formed urls connect", prop.ForAll(
		func(host, path string) bool {
			c := New(WithTransport(alwaysOpenTransport(&fakeHandle{})))
			if err := c.ConnectString(context.Background(), "ws://"+host+"/"+path); err != nil {
				return false
			}
			connected := c.IsConnected()
			c.Disconnect()
			return connected
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("schemeless strings are rejected without touching status", prop.ForAll(
		func(raw string) bool {
			c := New(WithTransport(alwaysOpenTransport(&fakeHandle{})))
			err := c.ConnectString(context.Background(), raw)
			return err != nil && c.Status().State == StateDisconnected
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

// Every subscriber must see every delivered payload, in delivery order,
// regardless of payload content.
func TestFanOutIntegrityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("payloads survive the stream unchanged and ordered", prop.ForAll(
		func(payloads []string) bool {
			feed := make(chan Frame)
			c := New(WithTransport(alwaysOpenTransport(feedHandle(feed))))
			u, err := url.Parse("ws://example.org/feed")
			if err != nil {
				return false
			}
			c.Connect(context.Background(), u)
			defer c.Disconnect()

			sub, err := c.Subscribe()
			if err != nil {
				return false
			}

			go func() {
				for _, p := range payloads {
					feed <- NewTextFrame([]byte(p))
				}
			}()

			for _, want := range payloads {
				select {
				case got, ok := <-sub.C():
					if !ok || string(got) != want {
						return false
					}
				case <-time.After(time.Second):
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AnyString()),
	))

	properties.TestingRun(t)
}
