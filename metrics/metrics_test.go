package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gogpu/ggui"
	"github.com/gogpu/ggui/compositor"
	"github.com/gogpu/ggui/rendercache"
)

type fixedStats ggui.Stats

func (f fixedStats) Stats() ggui.Stats { return ggui.Stats(f) }

func TestCollector(t *testing.T) {
	src := fixedStats{
		Tree:     "t1",
		Frames:   5,
		Nodes:    12,
		Rejected: 1,
		Measured: 7,
		Cache: rendercache.Stats{
			Entries: 3, Bytes: 4096, Budget: 1 << 20,
			Hits: 40, Misses: 9, Revalidations: 2,
		},
	}
	c := NewCollector(src)

	want := `
# HELP ggui_cache_lookups_total Render cache lookups by result.
# TYPE ggui_cache_lookups_total counter
ggui_cache_lookups_total{result="hit",tree="t1"} 40
ggui_cache_lookups_total{result="miss",tree="t1"} 9
ggui_cache_lookups_total{result="revalidated",tree="t1"} 2
# HELP ggui_frames_total Frames produced.
# TYPE ggui_frames_total counter
ggui_frames_total{tree="t1"} 5
# HELP ggui_nodes Items in the last display list.
# TYPE ggui_nodes gauge
ggui_nodes{tree="t1"} 12
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want),
		"ggui_cache_lookups_total", "ggui_frames_total", "ggui_nodes"); err != nil {
		t.Error(err)
	}
	if n := testutil.CollectAndCount(c); n != 13 {
		t.Errorf("CollectAndCount() = %d, want 13", n)
	}
	if problems, err := testutil.CollectAndLint(c); err != nil || len(problems) > 0 {
		t.Errorf("CollectAndLint() = %v, %v", problems, err)
	}
}

func TestFrameObserver(t *testing.T) {
	o := NewFrameObserver("t1")
	o.Observe(ggui.FrameStats{
		LayoutTime: 2 * time.Millisecond,
		PaintTime:  5 * time.Millisecond,
		Paint:      compositor.FrameReport{DrawCalls: 10},
	})
	o.Observe(ggui.FrameStats{})
	if n := testutil.CollectAndCount(o, "ggui_frame_phase_seconds"); n != 2 {
		t.Errorf("phase series = %d, want 2", n)
	}
	if n := testutil.CollectAndCount(o, "ggui_frame_draw_calls"); n != 1 {
		t.Errorf("draw call series = %d, want 1", n)
	}
}

func TestRegister(t *testing.T) {
	tree, err := ggui.New()
	if err != nil {
		t.Fatal(err)
	}
	reg := prometheus.NewPedanticRegistry()
	obs, err := Register(reg, tree)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	obs.Observe(ggui.FrameStats{})
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "ggui_frames_total" {
			found = true
			if got := mf.GetMetric()[0].GetLabel()[0].GetValue(); got != tree.ID().String() {
				t.Errorf("tree label = %q, want %q", got, tree.ID())
			}
		}
	}
	if !found {
		t.Error("ggui_frames_total not gathered")
	}
	if _, err := Register(reg, tree); err == nil {
		t.Error("second Register() error = nil, want AlreadyRegisteredError")
	}
}
