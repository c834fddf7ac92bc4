package peer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/lydakis/clop/internal/channel"
	"github.com/lydakis/clop/internal/paths"
)

// Subscription delivers namespace announcements until cancelled.
type Subscription struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// Subscribe watches dir for work channel sockets appearing and calls fn with
// the namespace each one announces. Sockets already present are reported
// first. fn runs on the subscription's goroutine.
func Subscribe(dir string, logger zerolog.Logger, fn func(namespace string)) (*Subscription, error) {
	if err := paths.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("creating channel dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch directory %s: %w", dir, err)
	}

	s := &Subscription{watcher: watcher, done: make(chan struct{})}

	// Scan after Add so a socket created in between is not missed.
	var existing []string
	if entries, err := os.ReadDir(dir); err == nil {
		for _, e := range entries {
			if ns, ok := namespaceFromSocket(e.Name()); ok {
				existing = append(existing, ns)
			}
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, ns := range existing {
			fn(ns)
		}
		s.loop(logger, fn)
	}()
	return s, nil
}

func (s *Subscription) loop(logger zerolog.Logger, fn func(string)) {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if ns, ok := namespaceFromSocket(filepath.Base(event.Name)); ok {
				fn(ns)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("fsnotify watcher error")
		}
	}
}

// Cancel stops delivery and waits for an in-progress callback to return.
// It is safe to call more than once.
func (s *Subscription) Cancel() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.watcher.Close()
		s.wg.Wait()
	})
	return err
}

// Watch starts following namespace announcements in the channel directory.
// A reachable peer of the same family announcing a new namespace rebinds the
// ports. Calling Watch again is a no-op.
func (d *Directory) Watch() error {
	d.watchMu.Lock()
	defer d.watchMu.Unlock()
	if d.sub != nil {
		return nil
	}
	sub, err := Subscribe(d.opts.ChannelDir, d.log, d.onAppear)
	if err != nil {
		return err
	}
	d.sub = sub
	return nil
}

func (d *Directory) onAppear(ns string) {
	if !inFamily(ns, d.family) || ns == d.Namespace() {
		return
	}
	// Leftover sockets from a previous run are ignored.
	if !reachableSoon(channel.NewPort(d.opts.ChannelDir, WorkChannel(ns))) {
		d.log.Debug().Str("namespace", ns).Msg("ignoring stale channel")
		return
	}
	d.ObserveNamespace(ns)
}

// reachableSoon gives a freshly bound socket a moment to start listening.
func reachableSoon(p *channel.Port) bool {
	for i := 0; i < 5; i++ {
		if p.IsReachable() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}
