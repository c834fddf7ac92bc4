// Package stubpeer serves the work and stop channels the way the optimisation
// peer does, without optimising anything. Each input is answered with a
// response pointing back at the input file.
package stubpeer

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lydakis/clop"
	"github.com/lydakis/clop/internal/channel"
	"github.com/lydakis/clop/internal/log"
	"github.com/lydakis/clop/internal/peer"
)

// Options tunes how the stub answers.
type Options struct {
	Namespace string        // defaults to peer.DefaultNamespace
	Delay     time.Duration // wait before answering a request
	Empty     bool          // answer requests with nothing
	Reverse   bool          // answer in reverse input order

	// Reply overrides the generated responses.
	Reply func(clop.OptimisationRequest) []clop.OptimisationResponse
}

// Peer is a running stub.
type Peer struct {
	opts Options
	log  zerolog.Logger

	work *channel.Listener
	stop *channel.Listener

	mu       sync.Mutex
	requests []clop.OptimisationRequest
	stops    []clop.StopOptimisationRequest
	notify   chan struct{}
}

// Start listens on both channels of opts.Namespace inside dir.
func Start(dir string, opts Options) (*Peer, error) {
	if opts.Namespace == "" {
		opts.Namespace = peer.DefaultNamespace
	}
	p := &Peer{
		opts:   opts,
		log:    log.WithComponent("stubpeer"),
		notify: make(chan struct{}, 1),
	}

	// Listen on stop first so a client that sees the work channel can stop.
	stop, err := channel.Listen(dir, peer.StopChannel(opts.Namespace), p.handleStop)
	if err != nil {
		return nil, err
	}
	work, err := channel.Listen(dir, peer.WorkChannel(opts.Namespace), p.handleWork)
	if err != nil {
		return nil, errors.Join(err, stop.Close())
	}
	p.work, p.stop = work, stop
	return p, nil
}

// Namespace returns the namespace the stub serves.
func (p *Peer) Namespace() string { return p.opts.Namespace }

// Close stops both listeners.
func (p *Peer) Close() error {
	return errors.Join(p.work.Close(), p.stop.Close())
}

// Requests returns the optimisation requests received so far.
func (p *Peer) Requests() []clop.OptimisationRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]clop.OptimisationRequest(nil), p.requests...)
}

// Stops returns the stop requests received so far.
func (p *Peer) Stops() []clop.StopOptimisationRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]clop.StopOptimisationRequest(nil), p.stops...)
}

// Received is signalled after each recorded request of either kind.
func (p *Peer) Received() <-chan struct{} { return p.notify }

func (p *Peer) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *Peer) handleWork(ctx context.Context, payload []byte) []byte {
	var req clop.OptimisationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		p.log.Warn().Err(err).Msg("dropping malformed request")
		return nil
	}
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	p.signal()
	p.log.Debug().Str("id", req.ID).Int("urls", len(req.URLs)).Msg("request received")

	if p.opts.Delay > 0 {
		t := time.NewTimer(p.opts.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil
		}
	}
	if p.opts.Empty {
		return nil
	}

	var responses []clop.OptimisationResponse
	if p.opts.Reply != nil {
		responses = p.opts.Reply(req)
	} else {
		responses = Echo(req)
	}
	if p.opts.Reverse {
		for i, j := 0, len(responses)-1; i < j; i, j = i+1, j-1 {
			responses[i], responses[j] = responses[j], responses[i]
		}
	}
	out, err := json.Marshal(responses)
	if err != nil {
		p.log.Warn().Err(err).Msg("encoding responses")
		return nil
	}
	return out
}

func (p *Peer) handleStop(_ context.Context, payload []byte) []byte {
	var req clop.StopOptimisationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		p.log.Warn().Err(err).Msg("dropping malformed stop request")
		return nil
	}
	p.mu.Lock()
	p.stops = append(p.stops, req)
	p.mu.Unlock()
	p.signal()
	return nil
}

// Echo answers every URL in req with a response that leaves the file as is.
func Echo(req clop.OptimisationRequest) []clop.OptimisationResponse {
	out := make([]clop.OptimisationResponse, 0, len(req.URLs))
	for _, u := range req.URLs {
		path := u
		if parsed, err := url.Parse(u); err == nil && parsed.Scheme == "file" {
			path = parsed.Path
		}
		var size int
		if info, err := os.Stat(path); err == nil {
			size = int(info.Size())
		}
		out = append(out, clop.OptimisationResponse{
			Path:     path,
			ForURL:   u,
			OldBytes: size,
			NewBytes: size,
		})
	}
	return out
}
