// Package metrics exports tree statistics to Prometheus.
//
// Collector reads Tree.Stats on every scrape. FrameObserver records the
// per-frame timings that a scrape would miss; pass its Observe method as
// the onFrame callback of Tree.Run.
//
// Exported metrics (namespace ggui):
//
//   - ggui_frames_total: frames produced
//   - ggui_nodes: items in the last display list
//   - ggui_batches_rejected_total: queued batches that failed validation
//   - ggui_measurements_total: leaf measurements performed
//   - ggui_cache_bytes, ggui_cache_budget_bytes, ggui_cache_entries
//   - ggui_cache_lookups_total{result}: hit, miss, revalidated
//   - ggui_cache_invalidations_total, ggui_cache_evictions_total,
//     ggui_cache_rejected_total
//   - ggui_frame_phase_seconds{phase}: layout and paint histograms
//   - ggui_frame_draw_calls: draw calls per frame
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/ggui"
)

const namespace = "ggui"

// Source is what Collector reads. *ggui.Tree satisfies it.
type Source interface {
	Stats() ggui.Stats
}

// Collector is a prometheus.Collector over a tree's running totals.
// Every metric carries a "tree" label with the tree id.
type Collector struct {
	src Source

	frames        *prometheus.Desc
	nodes         *prometheus.Desc
	rejected      *prometheus.Desc
	measured      *prometheus.Desc
	cacheBytes    *prometheus.Desc
	cacheBudget   *prometheus.Desc
	cacheEntries  *prometheus.Desc
	lookups       *prometheus.Desc
	invalidations *prometheus.Desc
	evictions     *prometheus.Desc
	cacheRejected *prometheus.Desc
}

// NewCollector creates a collector reading src.
func NewCollector(src Source) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help,
			append([]string{"tree"}, labels...), nil)
	}
	return &Collector{
		src:           src,
		frames:        desc("frames_total", "Frames produced."),
		nodes:         desc("nodes", "Items in the last display list."),
		rejected:      desc("batches_rejected_total", "Queued batches dropped by validation."),
		measured:      desc("measurements_total", "Leaf measurements performed by layout."),
		cacheBytes:    desc("cache_bytes", "Bytes held by cached regions."),
		cacheBudget:   desc("cache_budget_bytes", "Render cache byte budget."),
		cacheEntries:  desc("cache_entries", "Cached regions."),
		lookups:       desc("cache_lookups_total", "Render cache lookups by result.", "result"),
		invalidations: desc("cache_invalidations_total", "Cache entries invalidated."),
		evictions:     desc("cache_evictions_total", "Cache entries evicted."),
		cacheRejected: desc("cache_rejected_total", "Regions too large to cache."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.frames, c.nodes, c.rejected, c.measured,
		c.cacheBytes, c.cacheBudget, c.cacheEntries,
		c.lookups, c.invalidations, c.evictions, c.cacheRejected,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	tree := s.Tree
	counter := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, append([]string{tree}, labels...)...)
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, tree)
	}

	counter(c.frames, float64(s.Frames))
	gauge(c.nodes, float64(s.Nodes))
	counter(c.rejected, float64(s.Rejected))
	counter(c.measured, float64(s.Measured))

	cs := s.Cache
	gauge(c.cacheBytes, float64(cs.Bytes))
	gauge(c.cacheBudget, float64(cs.Budget))
	gauge(c.cacheEntries, float64(cs.Entries))
	counter(c.lookups, float64(cs.Hits), "hit")
	counter(c.lookups, float64(cs.Misses), "miss")
	counter(c.lookups, float64(cs.Revalidations), "revalidated")
	counter(c.invalidations, float64(cs.Invalidations))
	counter(c.evictions, float64(cs.Evictions))
	counter(c.cacheRejected, float64(cs.Rejected))
}

// FrameObserver records per-frame timing histograms.
type FrameObserver struct {
	phase *prometheus.HistogramVec
	draws prometheus.Histogram
}

// NewFrameObserver creates an observer for the tree with the given id.
func NewFrameObserver(tree string) *FrameObserver {
	labels := prometheus.Labels{"tree": tree}
	return &FrameObserver{
		phase: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "frame_phase_seconds",
			Help:        "Time spent per frame phase.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"phase"}),
		draws: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "frame_draw_calls",
			Help:        "Surface draw calls per frame.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

// Observe records one frame.
func (o *FrameObserver) Observe(fs ggui.FrameStats) {
	o.phase.WithLabelValues("layout").Observe(fs.LayoutTime.Seconds())
	o.phase.WithLabelValues("paint").Observe(fs.PaintTime.Seconds())
	o.draws.Observe(float64(fs.Paint.DrawCalls))
}

// Describe implements prometheus.Collector.
func (o *FrameObserver) Describe(ch chan<- *prometheus.Desc) {
	o.phase.Describe(ch)
	o.draws.Describe(ch)
}

// Collect implements prometheus.Collector.
func (o *FrameObserver) Collect(ch chan<- prometheus.Metric) {
	o.phase.Collect(ch)
	o.draws.Collect(ch)
}

// Register registers a Collector and a FrameObserver for tree on reg and
// returns the observer.
func Register(reg prometheus.Registerer, tree *ggui.Tree) (*FrameObserver, error) {
	if err := reg.Register(NewCollector(tree)); err != nil {
		return nil, err
	}
	obs := NewFrameObserver(tree.ID().String())
	if err := reg.Register(obs); err != nil {
		return nil, err
	}
	return obs, nil
}
