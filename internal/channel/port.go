// Package channel implements named local channels between two processes on
// the same machine. A channel name maps to a Unix socket inside a channel
// directory; the peer listens on it and this side connects to send.
package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/lydakis/clop/internal/paths"
)

// probeTimeout bounds IsReachable.
const probeTimeout = 250 * time.Millisecond

// SendOptions controls a single exchange on a Port.
type SendOptions struct {
	SendTimeout  time.Duration
	ExpectReply  bool
	ReplyTimeout time.Duration
}

// Port is the sending side of one logical channel purpose. Dialing and
// writing are serialized per Port; waiting for replies is not. The bound
// name can change between sends.
type Port struct {
	dir string

	nameMu sync.RWMutex
	name   string

	// sendSem admits one sender at a time from dialing until the frame is
	// written. Replies are read without it.
	sendSem chan struct{}
}

// NewPort returns a Port bound to name inside the channel directory dir.
func NewPort(dir, name string) *Port {
	return &Port{dir: dir, name: name, sendSem: make(chan struct{}, 1)}
}

// Name returns the channel name the Port currently sends to.
func (p *Port) Name() string {
	p.nameMu.RLock()
	defer p.nameMu.RUnlock()
	return p.name
}

// Address returns the socket path for the current name.
func (p *Port) Address() string {
	return paths.ChannelSocket(p.dir, p.Name())
}

// Rebind points the Port at a new channel name. An exchange already in
// flight completes against the old name.
func (p *Port) Rebind(name string) {
	p.nameMu.Lock()
	defer p.nameMu.Unlock()
	p.name = name
}

// IsReachable reports whether a listener currently accepts connections on
// the channel. It never blocks longer than a short probe.
func (p *Port) IsReachable() bool {
	conn, err := net.DialTimeout("unix", p.Address(), probeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Send delivers payload to the listener. With ExpectReply it then blocks
// until the reply arrives and returns its bytes; a nil result means the peer
// answered with nothing. Without ExpectReply it returns once the frame has
// been handed to the transport.
func (p *Port) Send(ctx context.Context, payload []byte, opts SendOptions) ([]byte, error) {
	name := p.Name()
	if len(payload) > maxPayload {
		return nil, fmt.Errorf("channel %s: payload too large (%d bytes)", name, len(payload))
	}

	conn, name, err := p.deliver(ctx, payload, opts)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if !opts.ExpectReply {
		return nil, nil
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if opts.ReplyTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(opts.ReplyTimeout))
	}
	var in frame
	if _, err := in.ReadFrom(conn); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if isTimeout(err) {
			return nil, &Error{Name: name, Op: "receive", Err: ErrReplyTimeout}
		}
		if errors.Is(err, io.EOF) {
			// Listener closed without answering.
			return nil, nil
		}
		return nil, &Error{Name: name, Op: "receive", Err: err}
	}
	if in.kind != kindReply {
		return nil, &Error{Name: name, Op: "receive", Err: errors.New("unexpected " + in.kind.String() + " frame")}
	}
	return in.payload, nil
}

// deliver dials the current name and writes the frame while holding the send
// slot. The caller owns the returned connection.
func (p *Port) deliver(ctx context.Context, payload []byte, opts SendOptions) (net.Conn, string, error) {
	if err := p.acquire(ctx, opts.SendTimeout); err != nil {
		return nil, p.Name(), err
	}
	defer p.release()

	name := p.Name()
	addr := paths.ChannelSocket(p.dir, name)

	d := net.Dialer{Timeout: opts.SendTimeout}
	conn, err := d.DialContext(ctx, "unix", addr)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, name, ctxErr
		}
		return nil, name, &Error{Name: name, Op: "dial", Err: classifyDialError(err)}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	kind := kindNotify
	if opts.ExpectReply {
		kind = kindRequest
	}
	if opts.SendTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(opts.SendTimeout))
	}
	out := frame{kind: kind, payload: payload}
	if _, err := out.WriteTo(conn); err != nil {
		conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, name, ctxErr
		}
		if isTimeout(err) {
			return nil, name, &Error{Name: name, Op: "send", Err: ErrSendTimeout}
		}
		return nil, name, &Error{Name: name, Op: "send", Err: errors.Join(ErrUnreachable, err)}
	}
	_ = conn.SetWriteDeadline(time.Time{})
	return conn, name, nil
}

// acquire takes the send slot, giving up after timeout or when ctx ends.
func (p *Port) acquire(ctx context.Context, timeout time.Duration) error {
	select {
	case p.sendSem <- struct{}{}:
		return nil
	default:
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case p.sendSem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return &Error{Name: p.Name(), Op: "send", Err: ErrSendTimeout}
	}
}

func (p *Port) release() { <-p.sendSem }

func classifyDialError(err error) error {
	if isTimeout(err) {
		return ErrSendTimeout
	}
	switch {
	case errors.Is(err, os.ErrNotExist),
		errors.Is(err, syscall.ENOENT),
		errors.Is(err, syscall.ECONNREFUSED):
		return ErrUnreachable
	}
	return errors.Join(ErrUnreachable, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
