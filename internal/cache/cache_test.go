package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestGetPut(t *testing.T) {
	clock := newFakeClock()
	c := New[string](time.Hour, WithClock(clock.Now))

	_, ok := c.Get("docker")
	assert.False(t, ok)

	c.Put("docker", "<svg/>")
	v, ok := c.Get("docker")
	require.True(t, ok)
	assert.Equal(t, "<svg/>", v)

	c.Put("docker", "<svg id=\"new\"/>")
	v, _ = c.Get("docker")
	assert.Equal(t, "<svg id=\"new\"/>", v)
	assert.Equal(t, 1, c.Len())
}

func TestGet_StaleIsMissButNotDeleted(t *testing.T) {
	clock := newFakeClock()
	c := New[string](time.Hour, WithClock(clock.Now))
	c.Put("docker", "<svg/>")

	clock.Advance(59 * time.Minute)
	_, ok := c.Get("docker")
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, ok = c.Get("docker")
	assert.False(t, ok, "entry exactly TTL old must be a miss")

	_, present := c.Entry("docker")
	assert.True(t, present, "Get must not delete stale entries")
	assert.Equal(t, 1, c.Len())
}

func TestSweep(t *testing.T) {
	clock := newFakeClock()
	c := New[string](time.Hour, WithClock(clock.Now), WithShards(4))

	c.Put("old-1", "a")
	c.Put("old-2", "b")
	clock.Advance(30 * time.Minute)
	c.Put("fresh", "c")

	removed := c.Sweep(clock.Now())
	assert.Equal(t, 0, removed)

	clock.Advance(30 * time.Minute)
	removed = c.Sweep(clock.Now())
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"fresh"}, c.Keys())

	_, ok := c.Entry("old-1")
	assert.False(t, ok)
}

func TestKeysSorted(t *testing.T) {
	c := New[int](time.Hour, WithShards(3))
	for _, k := range []string{"c", "a", "b"} {
		c.Put(k, 1)
	}
	assert.Equal(t, []string{"a", "b", "c"}, c.Keys())
}

func TestConcurrentAccess(t *testing.T) {
	c := New[string](time.Hour)
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("icon-%d", i%20)
				c.Put(key, fmt.Sprintf("v%d-%d", w, i))
				if v, ok := c.Get(key); ok {
					assert.NotEmpty(t, v)
				}
			}
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			c.Sweep(time.Now())
		}
	}()

	wg.Wait()
	assert.Equal(t, 20, c.Len())
}
