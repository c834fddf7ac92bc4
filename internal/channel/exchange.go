package channel

import (
	"context"
	"time"
)

// Default exchange bounds. The reply bound is long because the peer may be
// transcoding video when asked to wait.
const (
	DefaultSendTimeout  = 5 * time.Second
	DefaultReplyTimeout = 600 * time.Second
)

// Timeouts bounds an exchange. Zero fields take the defaults.
type Timeouts struct {
	Send  time.Duration
	Reply time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Send <= 0 {
		t.Send = DefaultSendTimeout
	}
	if t.Reply <= 0 {
		t.Reply = DefaultReplyTimeout
	}
	return t
}

// SendAndWait sends data and blocks until the peer replies, the reply timeout
// elapses, or ctx ends.
func (p *Port) SendAndWait(ctx context.Context, data []byte, t Timeouts) ([]byte, error) {
	t = t.withDefaults()
	return p.Send(ctx, data, SendOptions{
		SendTimeout:  t.Send,
		ExpectReply:  true,
		ReplyTimeout: t.Reply,
	})
}

// SendAndForget sends data and returns once the transport accepted it. It
// never waits for the peer to process the payload.
func (p *Port) SendAndForget(ctx context.Context, data []byte, t Timeouts) error {
	t = t.withDefaults()
	_, err := p.Send(ctx, data, SendOptions{SendTimeout: t.Send})
	return err
}
