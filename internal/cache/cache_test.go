package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthpath/goalengine/internal/logging"
	"github.com/wealthpath/goalengine/internal/models"
)

func sampleInputs(seed int64) models.SimulationInputs {
	return models.SimulationInputs{
		InitialAmount:        100000,
		Years:                2,
		ContributionSchedule: []float64{1000, 1000},
		AllocationSchedule: []map[models.AssetClass]float64{
			{models.AssetEquity: 0.6, models.AssetDebt: 0.4},
			{models.AssetEquity: 0.6, models.AssetDebt: 0.4},
		},
		Assumptions: map[models.AssetClass]models.AssetAssumption{
			models.AssetEquity: {ExpectedReturn: 0.1, Volatility: 0.18},
			models.AssetDebt:   {ExpectedReturn: 0.06, Volatility: 0.05},
		},
		TrialCount: 1000,
		RootSeed:   seed,
	}
}

func TestCache_PutGet(t *testing.T) {
	c := New(Config{MaxEntries: 10, TTL: time.Hour}, logging.Nop())
	key := CanonicalKey(sampleInputs(1))
	value := models.TrialArray{Outcomes: []models.TrialOutcome{{Terminal: 123}}}

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, value)
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, value, got)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCache_LRUEviction(t *testing.T) {
	c := New(Config{MaxEntries: 2, TTL: time.Hour}, logging.Nop())
	k1 := CanonicalKey(sampleInputs(1))
	k2 := CanonicalKey(sampleInputs(2))
	k3 := CanonicalKey(sampleInputs(3))

	c.Put(k1, models.TrialArray{})
	c.Put(k2, models.TrialArray{})
	c.Get(k1) // touch k1 so k2 becomes the LRU victim
	c.Put(k3, models.TrialArray{})

	_, ok := c.Get(k2)
	assert.False(t, ok, "k2 should have been evicted")
	_, ok = c.Get(k1)
	assert.True(t, ok)
	_, ok = c.Get(k3)
	assert.True(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(Config{MaxEntries: 10, TTL: time.Millisecond}, logging.Nop())
	key := CanonicalKey(sampleInputs(1))
	c.Put(key, models.TrialArray{})

	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestCache_Invalidate(t *testing.T) {
	c := New(Config{MaxEntries: 10, TTL: time.Hour}, logging.Nop())
	key := CanonicalKey(sampleInputs(1))
	c.Put(key, models.TrialArray{})

	c.Invalidate("")
	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestCache_ConfigureShrinkEvictsLRU(t *testing.T) {
	c := New(Config{MaxEntries: 3, TTL: time.Hour}, logging.Nop())
	k1 := CanonicalKey(sampleInputs(1))
	k2 := CanonicalKey(sampleInputs(2))
	k3 := CanonicalKey(sampleInputs(3))
	c.Put(k1, models.TrialArray{})
	c.Put(k2, models.TrialArray{})
	c.Put(k3, models.TrialArray{})
	c.Get(k1) // touch k1 so k2 is the least recently used

	c.Configure(Config{MaxEntries: 2})

	_, ok := c.Get(k2)
	assert.False(t, ok, "k2 should have been evicted by the shrink")
	_, ok = c.Get(k1)
	assert.True(t, ok)
	_, ok = c.Get(k3)
	assert.True(t, ok)
	assert.Equal(t, 2, c.Stats().MaxEntries)
}

func TestCache_ConfigureTTLAppliesToExistingEntries(t *testing.T) {
	c := New(Config{MaxEntries: 10, TTL: time.Hour}, logging.Nop())
	key := CanonicalKey(sampleInputs(1))
	c.Put(key, models.TrialArray{})

	c.Configure(Config{TTL: time.Nanosecond})
	time.Sleep(time.Millisecond)

	_, ok := c.Get(key)
	assert.False(t, ok, "entry should expire under the shortened TTL")
}

func TestCache_ConfigureZeroValuesLeaveSettingsUnchanged(t *testing.T) {
	c := New(Config{MaxEntries: 5, TTL: time.Hour}, logging.Nop())
	c.Configure(Config{})

	stats := c.Stats()
	assert.Equal(t, 5, stats.MaxEntries)
	assert.Equal(t, int(time.Hour.Seconds()), stats.TTLSeconds)
}

func TestCache_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.bin")

	c1 := New(Config{MaxEntries: 10, TTL: time.Hour}, logging.Nop())
	key := CanonicalKey(sampleInputs(1))
	value := models.TrialArray{Outcomes: []models.TrialOutcome{{Terminal: 42.5}}}
	c1.Put(key, value)

	require.NoError(t, c1.Save(path))

	c2 := New(Config{MaxEntries: 10, TTL: time.Hour}, logging.Nop())
	c2.Load(path)

	got, ok := c2.Get(key)
	require.True(t, ok)
	assert.Equal(t, value, got)
}

func TestCache_LoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a valid gob snapshot"), 0o644))

	c := New(Config{MaxEntries: 10, TTL: time.Hour}, logging.Nop())
	assert.NotPanics(t, func() { c.Load(path) })
	assert.True(t, c.InMemoryOnly())
}

func TestCache_LoadMissingFileIsNotCorruption(t *testing.T) {
	c := New(Config{MaxEntries: 10, TTL: time.Hour}, logging.Nop())
	c.Load(filepath.Join(t.TempDir(), "does-not-exist.bin"))
	assert.False(t, c.InMemoryOnly())
}

func TestCanonicalKey_StableAndInjective(t *testing.T) {
	k1 := CanonicalKey(sampleInputs(1))
	k2 := CanonicalKey(sampleInputs(1))
	k3 := CanonicalKey(sampleInputs(2))
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestCanonicalKey_NoCollisionsOverCorpus(t *testing.T) {
	seen := make(map[Key]int, 10000)
	for i := 0; i < 10000; i++ {
		inputs := sampleInputs(int64(i % 100))
		inputs.InitialAmount += float64(i/100) * 137.5
		key := CanonicalKey(inputs)
		if prev, dup := seen[key]; dup {
			t.Fatalf("key collision between corpus entries %d and %d", prev, i)
		}
		seen[key] = i
	}
}
