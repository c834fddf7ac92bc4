package channel

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/creachadair/taskgroup"
	"github.com/rs/zerolog"

	"github.com/lydakis/clop/internal/log"
	"github.com/lydakis/clop/internal/paths"
)

// Handler processes one payload received on a channel. For request frames
// the returned bytes are sent back as the reply; nil replies with nothing.
// For fire-and-forget frames the result is discarded.
type Handler func(ctx context.Context, payload []byte) []byte

var peerUIDMatchesCurrentUserFn = peerUIDMatchesCurrentUser

// Listener is the receiving end of a named channel.
type Listener struct {
	name       string
	socketPath string
	handler    Handler
	listener   net.Listener
	tasks      *taskgroup.Group
	ctx        context.Context
	cancel     context.CancelFunc
	logger     zerolog.Logger
	closeOnce  sync.Once
}

// Listen binds a listener for name inside dir and starts serving it. Any
// stale socket file at the same path is removed first.
func Listen(dir, name string, handler Handler) (*Listener, error) {
	if err := paths.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("creating channel dir: %w", err)
	}
	socketPath := paths.ChannelSocket(dir, name)

	// Remove stale socket
	os.Remove(socketPath)

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", socketPath, err)
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		ln.Close()
		os.Remove(socketPath)
		return nil, fmt.Errorf("setting socket permissions: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{
		name:       name,
		socketPath: socketPath,
		handler:    handler,
		listener:   ln,
		tasks:      taskgroup.New(nil),
		ctx:        ctx,
		cancel:     cancel,
		logger:     log.WithComponent("listener").With().Str("channel", name).Logger(),
	}
	l.tasks.Go(func() error {
		l.acceptLoop()
		return nil
	})
	return l, nil
}

// Name returns the channel name the listener serves.
func (l *Listener) Name() string { return l.name }

// Close stops accepting, cancels running handlers, waits for them and
// removes the socket file.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.listener.Close()
		l.cancel()
		l.tasks.Wait()
		os.Remove(l.socketPath)
	})
	return err
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			return // listener closed
		}
		l.tasks.Go(func() error {
			defer conn.Close()
			l.handleConn(conn)
			return nil
		})
	}
}

func (l *Listener) handleConn(conn net.Conn) {
	ok, err := peerUIDMatchesCurrentUserFn(conn)
	if err != nil {
		l.logger.Warn().Err(err).Msg("peer uid check failed")
		return
	}
	if !ok {
		l.logger.Warn().Msg("rejecting sender with a different uid")
		return
	}

	var req frame
	if _, err := req.ReadFrom(conn); err != nil {
		l.logger.Debug().Err(err).Msg("reading frame")
		return
	}

	switch req.kind {
	case kindNotify:
		l.handler(l.ctx, req.payload)
	case kindRequest:
		l.serveRequest(conn, req.payload)
	default:
		l.logger.Debug().Stringer("kind", req.kind).Msg("ignoring frame")
	}
}

func (l *Listener) serveRequest(conn net.Conn, payload []byte) {
	ctx, cancel := context.WithCancel(l.ctx)
	defer cancel()

	// The sender writes nothing after its frame, so a read only returns once
	// it hangs up or gives up waiting.
	done := make(chan struct{})
	go func() {
		defer close(done)
		var buf [1]byte
		conn.Read(buf[:]) //nolint:errcheck
		cancel()
	}()

	reply := l.handler(ctx, payload)
	_ = conn.SetReadDeadline(time.Now())
	<-done
	_ = conn.SetReadDeadline(time.Time{})

	rsp := frame{kind: kindReply, payload: reply}
	if _, err := rsp.WriteTo(conn); err != nil {
		l.logger.Debug().Err(err).Msg("writing reply")
	}
}
