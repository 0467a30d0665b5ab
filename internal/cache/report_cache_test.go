package cache

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct{ name string }

func TestKeyString(t *testing.T) {
	key := Key{DatasetID: uuid.MustParse("12345678-1234-5678-1234-567812345678"), Options: "daily=SUN"}
	assert.Equal(t, "12345678-1234-5678-1234-567812345678:daily=SUN", key.String())
}

func TestReportCacheGetSet(t *testing.T) {
	rc := NewReportCache[*report](time.Hour, 10)
	key := Key{DatasetID: uuid.New(), Options: "a"}

	_, ok := rc.Get(key)
	assert.False(t, ok)

	rc.Set(key, &report{name: "first"})
	got, ok := rc.Get(key)
	require.True(t, ok)
	assert.Equal(t, "first", got.name)

	_, ok = rc.Get(Key{DatasetID: key.DatasetID, Options: "b"})
	assert.False(t, ok, "options are part of the key")

	hits, misses, ratio := rc.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(2), misses)
	assert.InDelta(t, 1.0/3.0, ratio, 1e-9)
}

func TestReportCacheExpiry(t *testing.T) {
	rc := NewReportCache[*report](20*time.Millisecond, 10)
	key := Key{DatasetID: uuid.New()}
	rc.Set(key, &report{})

	assert.Eventually(t, func() bool {
		_, ok := rc.Get(key)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestReportCacheNoExpiry(t *testing.T) {
	rc := NewReportCache[*report](0, 0)
	key := Key{DatasetID: uuid.New()}
	rc.Set(key, &report{})
	_, ok := rc.Get(key)
	assert.True(t, ok)
}

func TestReportCacheMaxSize(t *testing.T) {
	rc := NewReportCache[*report](time.Hour, 2)
	for i := 0; i < 5; i++ {
		rc.Set(Key{DatasetID: uuid.New()}, &report{})
		assert.LessOrEqual(t, rc.ItemCount(), 2)
	}

	rc.Clear()
	assert.Equal(t, 0, rc.ItemCount())
	hits, misses, _ := rc.Stats()
	assert.Zero(t, hits+misses)
}
