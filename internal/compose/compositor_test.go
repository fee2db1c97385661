package compose

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"

	"iconsmd/internal/cache"
	"iconsmd/internal/catalog"
	"iconsmd/internal/config"
	"iconsmd/internal/render"
	"iconsmd/internal/upstream"
)

const gradientIcon = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24">
<!-- exported by an editor -->
<defs><linearGradient id="g"><stop offset="0" stop-color="#fff"/></linearGradient></defs>
<rect width="24" height="24" fill="url(#g)"/>
</svg>`

type fakeFetcher struct {
	mu    sync.Mutex
	icons map[string]string
	calls map[string]int
	gate  chan struct{}
}

func newFakeFetcher(icons map[string]string) *fakeFetcher {
	return &fakeFetcher{icons: icons, calls: make(map[string]int)}
}

func (f *fakeFetcher) FetchIcon(ctx context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	f.calls[name]++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	src, ok := f.icons[name]
	if !ok {
		return nil, &upstream.FetchError{URL: "https://icons.test/" + name, StatusCode: 404}
	}
	return []byte(src), nil
}

func (f *fakeFetcher) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func newIndex(names ...string) *catalog.Index {
	idx := catalog.NewIndex(nil)
	idx.Replace(names)
	return idx
}

func newCompositor(t *testing.T, fetcher IconFetcher, names ...string) (*Compositor, *cache.TTL[[]byte]) {
	t.Helper()
	cfg := FromConfig(config.Default())
	store := cache.New[[]byte](time.Hour)
	return New(cfg, newIndex(names...), fetcher, store, nil), store
}

func TestCompose_FiltersAndKeepsOrder(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{"a": gradientIcon, "b": gradientIcon, "c": gradientIcon})
	c, _ := newCompositor(t, fetcher, "a", "b", "c")

	img, err := c.Compose(context.Background(), []string{"c", "unknown", "a", "c"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "a", "c"}, img.Icons)
	assert.Equal(t, render.SVG, img.Format)
	assert.Equal(t, "image/svg+xml", img.ContentType)
	assert.Equal(t, 3*48+2*8, img.Width)
	assert.Equal(t, 48, img.Height)
	assert.Zero(t, fetcher.callCount("unknown"))
	assert.Zero(t, fetcher.callCount("b"))
	assert.Equal(t, 3, strings.Count(string(img.Data), "<g transform="))
}

func TestCompose_DuplicateIconsGetDisjointIds(t *testing.T) {
	c, _ := newCompositor(t, newFakeFetcher(map[string]string{"a": gradientIcon}), "a")

	img, err := c.Compose(context.Background(), []string{"a", "a"}, Options{})
	require.NoError(t, err)

	ids := regexp.MustCompile(`id="(g_a_[^"]+)"`).FindAllStringSubmatch(string(img.Data), -1)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0][1], ids[1][1])
	for _, id := range ids {
		assert.Contains(t, string(img.Data), `fill="url(#`+id[1]+`)"`)
	}
}

func TestCompose_SkipsFailedAndMalformedIcons(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		"good": gradientIcon,
		"bad":  "<html>not an icon</html>",
	})
	c, _ := newCompositor(t, fetcher, "good", "bad", "gone")

	img, err := c.Compose(context.Background(), []string{"gone", "good", "bad", "good"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"good", "good"}, img.Icons)
	assert.Equal(t, 2*48+8, img.Width)
	assert.Equal(t, 1, fetcher.callCount("gone"))
}

func TestCompose_Empty(t *testing.T) {
	c, _ := newCompositor(t, newFakeFetcher(nil), "a")

	img, err := c.Compose(context.Background(), []string{"nope"}, Options{})
	require.NoError(t, err)
	assert.Empty(t, img.Icons)
	assert.Contains(t, string(img.Data), `width="0" height="0" viewBox="0 0 0 0"`)

	img, err = c.Compose(context.Background(), nil, Options{Format: render.WEBP})
	require.NoError(t, err)
	cfg, err := webp.DecodeConfig(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Width)
	assert.Equal(t, 1, cfg.Height)
	assert.Equal(t, "image/webp", img.ContentType)
}

func TestCompose_Layouts(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o", "p", "q"}
	icons := make(map[string]string, len(names))
	for _, n := range names {
		icons[n] = gradientIcon
	}
	c, _ := newCompositor(t, newFakeFetcher(icons), names...)

	img, err := c.Compose(context.Background(), names, Options{MaxPerRow: 15})
	require.NoError(t, err)
	assert.Equal(t, 15*48+14*8, img.Width)
	assert.Equal(t, 2*48+8, img.Height)

	img, err = c.Compose(context.Background(), names[:7], Options{RowOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 7*48+6*8, img.Width)
	assert.Equal(t, 48, img.Height)

	img, err = c.Compose(context.Background(), names[:4], Options{MaxPerRow: 2, Format: render.WEBP})
	require.NoError(t, err)
	cfg, err := webp.DecodeConfig(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 2*48+8, cfg.Width)
	assert.Equal(t, 2*48+8, cfg.Height)
}

func TestCompose_CachesOptimizedSource(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{"a": gradientIcon})
	c, store := newCompositor(t, fetcher, "a")

	_, err := c.Compose(context.Background(), []string{"a"}, Options{})
	require.NoError(t, err)
	_, err = c.Compose(context.Background(), []string{"a"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.callCount("a"))
	cached, ok := store.Get("a")
	require.True(t, ok)
	assert.NotContains(t, string(cached), "exported by an editor")
	assert.Less(t, len(cached), len(gradientIcon))
}

func TestCompose_UnknownFormat(t *testing.T) {
	c, _ := newCompositor(t, newFakeFetcher(nil))

	_, err := c.Compose(context.Background(), []string{"a"}, Options{Format: "gif"})
	var cerr *CompositionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, render.Format("gif"), cerr.Format)
}

func TestSource_SharedFetchSurvivesCallerCancel(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{"a": gradientIcon})
	fetcher.gate = make(chan struct{})
	c, store := newCompositor(t, fetcher, "a")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Source(ctx, "a")
		done <- err
	}()

	require.Eventually(t, func() bool { return fetcher.callCount("a") == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(fetcher.gate)
	require.Eventually(t, func() bool {
		_, ok := store.Get("a")
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestSource_ConcurrentMissesShareOneFetch(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{"a": gradientIcon})
	fetcher.gate = make(chan struct{})
	c, _ := newCompositor(t, fetcher, "a")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Source(context.Background(), "a")
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return fetcher.callCount("a") == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(fetcher.gate)
	wg.Wait()

	assert.Equal(t, 1, fetcher.callCount("a"))
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Output.NoOptimize = true
	cfg.Output.Format = "webp"

	got := FromConfig(cfg)
	assert.False(t, got.Optimize)
	assert.Equal(t, render.WEBP, got.Format)
	assert.Equal(t, 15, got.MaxPerRow)
	assert.Equal(t, 48, got.Layout.DisplaySize)
	assert.Equal(t, 16, got.MaxConcurrency)
}
