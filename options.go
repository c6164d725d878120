package algchan

import (
	"github.com/algchan/algchan/flow"
	"github.com/algchan/algchan/sgl"
)

// DefaultBufferSize is the default capacity for each direction's gate.
const DefaultBufferSize = 64 * flow.PageSize

type config struct {
	sndBuf   int
	rcvBuf   int
	nonblock bool
	pin      sgl.Pinner
}

func defaultConfig() config {
	return config{
		sndBuf: DefaultBufferSize,
		rcvBuf: DefaultBufferSize,
		pin:    sgl.DefaultPinner,
	}
}

// Option configures a channel at open time.
type Option func(*config)

// WithSendBuffer sets the send-direction capacity in bytes. The gate
// rounds it down to page granularity.
func WithSendBuffer(n int) Option {
	return func(c *config) { c.sndBuf = n }
}

// WithRecvBuffer sets the receive-direction capacity in bytes.
func WithRecvBuffer(n int) Option {
	return func(c *config) { c.rcvBuf = n }
}

// WithNonBlocking makes every gate wait on the channel return
// ErrWouldBlock instead of suspending the caller.
func WithNonBlocking(v bool) Option {
	return func(c *config) { c.nonblock = v }
}

// WithPinner overrides how caller-supplied output memory is pinned.
func WithPinner(pin sgl.Pinner) Option {
	return func(c *config) { c.pin = pin }
}
