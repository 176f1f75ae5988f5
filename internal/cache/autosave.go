package cache

import (
	"time"

	"github.com/robfig/cron/v3"
)

// AutoSaver periodically snapshots a Cache to disk on a cron.Cron ticker.
// The owning process constructs and shuts this down explicitly, rather than
// the cache installing signal handlers itself.
type AutoSaver struct {
	cache *Cache
	path  string
	cron  *cron.Cron
}

// NewAutoSaver builds an AutoSaver that snapshots cache to path every
// interval.
func NewAutoSaver(c *Cache, path string, interval time.Duration) *AutoSaver {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	a := &AutoSaver{cache: c, path: path, cron: cron.New()}
	spec := "@every " + interval.String()
	// AddFunc only fails on an unparseable spec; interval.String() always
	// produces a valid Go duration literal, so the error is unreachable.
	_, _ = a.cron.AddFunc(spec, a.tick)
	return a
}

func (a *AutoSaver) tick() {
	if err := a.cache.Save(a.path); err != nil {
		a.cache.log.Warn().Err(err).Str("path", a.path).Msg("periodic cache snapshot failed")
	}
}

// Start begins the autosave ticker.
func (a *AutoSaver) Start() {
	a.cron.Start()
}

// Shutdown stops the ticker and attempts one final snapshot with a short
// bounded timeout. The process owner is responsible for calling this from
// its own signal handler; the cache package never installs one itself.
func (a *AutoSaver) Shutdown(timeout time.Duration) {
	ctx := a.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(timeout):
	}

	done := make(chan struct{})
	go func() {
		a.tick()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		a.cache.log.Warn().Msg("final cache snapshot timed out")
	}
}
