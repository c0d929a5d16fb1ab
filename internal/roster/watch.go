package roster

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"swarmrelay/internal/eventbus"
	logx "swarmrelay/pkg/logx"
)

// Watch reloads the roster whenever the backing file changes.
//
// Events are debounced so editors doing write-then-rename don't trigger a
// reload against a half-written file. A failed reload keeps the previous
// snapshot serving. When the watcher breaks (platform quirks), it is
// recreated with a small backoff. Blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, bus eventbus.Bus) error {
	dir := filepath.Dir(s.cfg.Path)
	file := filepath.Base(s.cfg.Path)

	const (
		restartBackoffBase = 250 * time.Millisecond
		restartBackoffMax  = 5 * time.Second
	)
	backoff := restartBackoffBase

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, func() {
			if err := s.Load(); err != nil {
				s.log.Warn("roster reload failed; keeping previous snapshot",
					logx.String("path", s.cfg.Path), logx.Err(err))
				return
			}
			if bus != nil {
				bus.Publish(eventbus.Event{
					Type: eventbus.EventRosterReloaded,
					Data: map[string]any{"agents": s.Len()},
				})
			}
		})
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		w, err := fsnotify.NewWatcher()
		if err == nil {
			err = w.Add(dir)
			if err != nil {
				_ = w.Close()
			}
		}
		if err != nil {
			s.log.Warn("roster watch init failed", logx.Err(err), logx.String("dir", dir))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			if backoff < restartBackoffMax {
				backoff *= 2
				if backoff > restartBackoffMax {
					backoff = restartBackoffMax
				}
			}
			continue
		}
		backoff = restartBackoffBase
		s.log.Debug("roster watcher started", logx.String("dir", dir), logx.String("file", file))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				// Compare by basename; event paths vary across platforms.
				if strings.EqualFold(filepath.Base(ev.Name), file) {
					if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
						debounce()
					}
				}
			case werr, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if werr == nil {
					continue
				}
				// Overflow means we may have missed events; reload once and keep going.
				if strings.Contains(strings.ToLower(werr.Error()), "overflow") {
					debounce()
					continue
				}
				s.log.Warn("roster watch error", logx.Err(werr), logx.String("dir", dir))
			}
		}
		_ = w.Close()
	}
}
