package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wealthpath/goalengine/internal/models"
)

const snapshotMagic = "MCCACHE1"
const snapshotVersion = 1

// header is the fixed-shape prefix of every snapshot file.
type header struct {
	Magic     string
	Version   int
	CreatedAt time.Time
}

// record is one length-prefixed (via gob's own framing) cache entry.
type record struct {
	Key       Key
	Value     models.TrialArray
	CreatedAt time.Time
}

type snapshot struct {
	Header  header
	Records []record
}

// Save writes a versioned binary snapshot atomically: encode to a temp file
// in the same directory, fsync, then rename over the destination. Never
// returns an error up the simulate/aggregate hot path — cache errors are not
// fatal to that path — but does return one here, since Save/Load are
// explicit, caller-invoked operations distinct from Get/Put.
func (c *Cache) Save(path string) error {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()

	c.mu.RLock()
	snap := snapshot{
		Header: header{Magic: snapshotMagic, Version: snapshotVersion, CreatedAt: time.Now()},
	}
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry)
		if time.Since(e.createdAt) > c.cfg.TTL {
			continue
		}
		snap.Records = append(snap.Records, record{Key: e.key, Value: e.value, CreatedAt: e.createdAt})
	}
	c.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return fmt.Errorf("encode cache snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".cache-snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync temp snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}

// Load reads and validates a snapshot's header. An unreadable or corrupt
// snapshot is discarded with a warning and the cache degrades to
// in-memory-only mode; a snapshot with the wrong magic or version is
// discarded with a warning only. Neither is propagated as an error to
// the caller, matching the general policy that cache errors never abort the
// simulate/aggregate path.
func (c *Cache) Load(path string) {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn().Err(err).Str("path", path).Msg("cache snapshot unreadable, continuing in-memory-only")
			c.markInMemoryOnly()
		}
		return
	}

	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("cache snapshot corrupted, ignoring file")
		c.markInMemoryOnly()
		return
	}
	if snap.Header.Magic != snapshotMagic || snap.Header.Version != snapshotVersion {
		c.log.Warn().Str("path", path).Int("version", snap.Header.Version).Msg("cache snapshot version mismatch, ignoring file")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for _, r := range snap.Records {
		if now.Sub(r.CreatedAt) > c.cfg.TTL {
			continue // don't resurrect entries that expired while we were down
		}
		e := &entry{key: r.Key, value: r.Value, createdAt: r.CreatedAt}
		elem := c.order.PushBack(e)
		c.entries[r.Key] = elem
	}
}

func (c *Cache) markInMemoryOnly() {
	c.mu.Lock()
	c.inMemoryOnly = true
	c.mu.Unlock()
}

// InMemoryOnly reports whether a prior Load detected corruption and the
// cache is operating without persistence backing.
func (c *Cache) InMemoryOnly() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inMemoryOnly
}
