package measure

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/ggui/internal/logging"
	"github.com/gogpu/ggui/layout"
)

// Service implements layout.Measurer over a TextMetrics and an ImageMetrics.
//
// Prefetch measures a batch of leaves concurrently and parks the results;
// Measure consumes a parked result when its content and width constraint
// still match, and measures synchronously otherwise.
type Service struct {
	text    TextMetrics
	images  ImageMetrics
	workers int

	prefetchMu sync.Mutex // serializes Prefetch calls

	mu    sync.Mutex
	ready map[layout.ID]parked
	gone  map[layout.ID]struct{} // discarded while a prefetch is in flight
}

type parked struct {
	req  layout.MeasureRequest
	size layout.Size
	err  error
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithWorkers bounds the number of concurrent measurements in Prefetch.
// Values below 1 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) ServiceOption {
	return func(s *Service) { s.workers = n }
}

// NewService creates a Service. Nil metrics select NewShaper(nil) and
// HeaderDecoder.
func NewService(text TextMetrics, images ImageMetrics, opts ...ServiceOption) *Service {
	if text == nil {
		text = NewShaper(nil)
	}
	if images == nil {
		images = HeaderDecoder{}
	}
	s := &Service{
		text:   text,
		images: images,
		ready:  make(map[layout.ID]parked),
		gone:   make(map[layout.ID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	return s
}

// Text returns the text metrics in use.
func (s *Service) Text() TextMetrics { return s.text }

// Measure implements layout.Measurer.
func (s *Service) Measure(id layout.ID, c layout.Content, maxWidth float64) (layout.Size, error) {
	s.mu.Lock()
	p, ok := s.ready[id]
	if ok {
		delete(s.ready, id)
	}
	s.mu.Unlock()
	if ok && p.req.Content.Equal(c) && p.req.MaxWidth == maxWidth {
		return p.size, p.err
	}
	return s.measure(c, maxWidth)
}

func (s *Service) measure(c layout.Content, maxWidth float64) (layout.Size, error) {
	switch c.Kind {
	case layout.ContentText:
		w, h, err := s.text.Measure(c.Text, c.Font, maxWidth)
		return layout.Size{Width: w, Height: h}, err
	case layout.ContentImage:
		w, h, err := s.images.IntrinsicSize(c.Image)
		return layout.Size{Width: w, Height: h}, err
	default:
		return layout.Size{}, fmt.Errorf("%w: %v", ErrUnsupportedContent, c.Kind)
	}
}

// Prefetch measures reqs concurrently, at most the configured number of
// workers at a time, and parks the results for Measure. Measurement errors
// are parked too; Prefetch itself only fails when ctx is cancelled.
//
// Results for ids passed to Discard while Prefetch runs are dropped.
func (s *Service) Prefetch(ctx context.Context, reqs []layout.MeasureRequest) error {
	s.prefetchMu.Lock()
	defer s.prefetchMu.Unlock()
	defer func() {
		s.mu.Lock()
		clear(s.gone)
		s.mu.Unlock()
	}()
	if len(reqs) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			size, err := s.measure(req.Content, req.MaxWidth)
			s.park(parked{req: req, size: size, err: err})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("measure: prefetch: %w", err)
	}
	logging.L().Debug("measure: prefetched", "leaves", len(reqs), "workers", s.workers)
	return nil
}

func (s *Service) park(p parked) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dropped := s.gone[p.req.ID]; dropped {
		return
	}
	s.ready[p.req.ID] = p
}

// Discard drops parked results for ids, typically nodes removed from the
// tree. A prefetch still running for one of them will not park its result.
func (s *Service) Discard(ids ...layout.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.ready, id)
		s.gone[id] = struct{}{}
	}
}

// Parked returns the number of results waiting to be consumed.
func (s *Service) Parked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ready)
}
