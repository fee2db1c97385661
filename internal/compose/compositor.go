// internal/compose/compositor.go - Request pipeline from names to composite image
package compose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"iconsmd/internal/cache"
	"iconsmd/internal/config"
	"iconsmd/internal/layout"
	"iconsmd/internal/metrics"
	"iconsmd/internal/optimize"
	"iconsmd/internal/render"
	"iconsmd/internal/svgns"
)

// Filterer keeps the names that are known icons, in order.
type Filterer interface {
	Filter(names []string) []string
}

// IconFetcher downloads one icon source.
type IconFetcher interface {
	FetchIcon(ctx context.Context, name string) ([]byte, error)
}

// Options select the shape and encoding of one composite.
type Options struct {
	// MaxPerRow of zero uses the configured default.
	MaxPerRow int
	RowOnly   bool
	// Format of "" uses the configured default.
	Format render.Format
}

// Image is an encoded composite. It is never cached.
type Image struct {
	Format      render.Format
	ContentType string
	Data        []byte
	Width       int
	Height      int
	// Icons lists the names drawn, in cell order.
	Icons []string
}

// CompositionError reports a failure to assemble or encode the composite.
type CompositionError struct {
	Format render.Format
	Err    error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("compose %s: %v", e.Format, e.Err)
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}

// Config holds the compositor settings.
type Config struct {
	Layout         layout.Metrics
	MaxPerRow      int
	RowOnly        bool
	Format         render.Format
	RasterScale    int
	MaxConcurrency int
	FetchTimeout   time.Duration
	Optimize       bool
}

// FromConfig extracts compositor settings from the application config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		Layout: layout.Metrics{
			DisplaySize: cfg.Layout.DisplaySize,
			ContentSize: cfg.Layout.ContentSize,
			Gap:         cfg.Layout.Gap,
		},
		MaxPerRow:      cfg.Layout.MaxPerRow,
		RowOnly:        cfg.Layout.RowOnly,
		Format:         render.Format(cfg.Output.Format),
		RasterScale:    cfg.Output.RasterScale,
		MaxConcurrency: cfg.Upstream.MaxConcurrency,
		FetchTimeout:   cfg.Upstream.Timeout,
		Optimize:       !cfg.Output.NoOptimize,
	}
}

// Compositor turns a list of icon names into a composite image.
type Compositor struct {
	cfg       Config
	index     Filterer
	fetcher   IconFetcher
	store     *cache.TTL[[]byte]
	optimizer *optimize.Optimizer
	sanitizer *svgns.Sanitizer
	metrics   *metrics.Collector

	inflight singleflight.Group
}

// New builds a compositor. store holds optimized icon sources keyed by name;
// collector may be nil.
func New(cfg Config, index Filterer, fetcher IconFetcher, store *cache.TTL[[]byte], collector *metrics.Collector) *Compositor {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.Format == "" {
		cfg.Format = render.SVG
	}
	if cfg.Layout == (layout.Metrics{}) {
		cfg.Layout = layout.DefaultMetrics()
	}

	c := &Compositor{
		cfg:       cfg,
		index:     index,
		fetcher:   fetcher,
		store:     store,
		sanitizer: svgns.New(),
		metrics:   collector,
	}
	if cfg.Optimize {
		c.optimizer = optimize.New()
	}
	return c
}

// Compose filters names against the index, prepares every known icon
// concurrently and renders the survivors in request order. Icons that cannot
// be fetched or parsed are left out; only rendering failures are returned.
func (c *Compositor) Compose(ctx context.Context, names []string, opts Options) (*Image, error) {
	start := time.Now()

	format := opts.Format
	if format == "" {
		format = c.cfg.Format
	}
	renderer, err := render.New(format, c.cfg.RasterScale)
	if err != nil {
		return nil, &CompositionError{Format: format, Err: err}
	}

	valid := c.index.Filter(names)
	frags := make([]*svgns.Fragment, len(valid))

	var g errgroup.Group
	g.SetLimit(c.cfg.MaxConcurrency)
	for i, name := range valid {
		i, name := i, name
		g.Go(func() error {
			frags[i] = c.prepare(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	kept := frags[:0]
	drawn := make([]string, 0, len(valid))
	for _, f := range frags {
		if f != nil {
			kept = append(kept, f)
			drawn = append(drawn, f.Name)
		}
	}

	grid := layout.NewGrid(c.cfg.Layout, len(kept), c.perRow(opts))
	out, err := renderer.Render(grid, kept)
	if err != nil {
		return nil, &CompositionError{Format: format, Err: err}
	}

	elapsed := time.Since(start)
	c.metrics.RecordComposition(string(format), elapsed)
	logrus.WithFields(logrus.Fields{
		"requested": len(names),
		"drawn":     len(kept),
		"format":    format,
		"bytes":     len(out.Data),
		"duration":  elapsed,
	}).Debug("Composite rendered")

	return &Image{
		Format:      format,
		ContentType: format.ContentType(),
		Data:        out.Data,
		Width:       out.Width,
		Height:      out.Height,
		Icons:       drawn,
	}, nil
}

// perRow returns the row width for the layout; zero means a single row.
func (c *Compositor) perRow(opts Options) int {
	if opts.RowOnly || (opts.MaxPerRow == 0 && c.cfg.RowOnly) {
		return 0
	}
	if opts.MaxPerRow > 0 {
		return opts.MaxPerRow
	}
	return c.cfg.MaxPerRow
}

// prepare returns the namespaced fragment for name, or nil when the icon
// must be skipped.
func (c *Compositor) prepare(ctx context.Context, name string) *svgns.Fragment {
	log := logrus.WithField("icon", name)

	src, err := c.Source(ctx, name)
	if err != nil {
		c.metrics.RecordSkipped(metrics.ReasonFetch)
		if errors.Is(err, context.Canceled) {
			log.WithError(err).Debug("Skipping icon, request cancelled")
		} else {
			log.WithError(err).Warn("Skipping icon, fetch failed")
		}
		return nil
	}

	frag, err := c.sanitizer.Sanitize(name, src)
	if err != nil {
		c.metrics.RecordSkipped(metrics.ReasonMalformed)
		log.WithError(err).Warn("Skipping icon, malformed source")
		return nil
	}
	return frag
}

// Source returns the optimized source for name from the cache, fetching and
// caching it on a miss. Concurrent misses for one name share a single fetch
// that is not tied to any one caller's cancellation.
func (c *Compositor) Source(ctx context.Context, name string) ([]byte, error) {
	if src, ok := c.store.Get(name); ok {
		c.metrics.RecordCacheLookup(true)
		return src, nil
	}
	c.metrics.RecordCacheLookup(false)

	ch := c.inflight.DoChan(name, func() (interface{}, error) {
		fctx := context.WithoutCancel(ctx)
		if c.cfg.FetchTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, c.cfg.FetchTimeout)
			defer cancel()
		}

		start := time.Now()
		raw, err := c.fetcher.FetchIcon(fctx, name)
		c.metrics.RecordFetch("icon", err, time.Since(start))
		if err != nil {
			return nil, err
		}

		if c.optimizer != nil {
			if small, err := c.optimizer.SVG(raw); err != nil {
				logrus.WithError(err).WithField("icon", name).Debug("Optimizer rejected source, caching it as fetched")
			} else {
				raw = small
			}
		}

		c.store.Put(name, raw)
		return raw, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}
