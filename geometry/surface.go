package geometry

import (
	"context"
	"sync"

	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
)

// View identifies what the surface is currently showing.
type View struct {
	Page int
	Zoom float64
}

// Measurer reports the current rendered content size. It is implemented by
// whatever owns the rendered page.
type Measurer interface {
	Measure() (Size, bool)
}

// MeasurerFunc adapts a function to Measurer.
type MeasurerFunc func() (Size, bool)

// Measure calls f.
func (f MeasurerFunc) Measure() (Size, bool) { return f() }

// Surface tracks the last valid content measurement for the current view.
// Any view change or layout invalidation discards it, so conversions fail
// with GeometryNotReady until a fresh measurement arrives.
type Surface struct {
	mu          sync.Mutex
	view        View
	size        Size
	measured    bool
	measurer    Measurer
	subscribers map[int]func(View, Size)
	nextSub     int
}

// NewSurface creates a surface for the given view. m may be nil.
func NewSurface(view View, m Measurer) *Surface {
	if view.Zoom <= 0 {
		view.Zoom = 1
	}
	return &Surface{view: view, measurer: m, subscribers: make(map[int]func(View, Size))}
}

// View returns the current view.
func (s *Surface) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// SetView switches page or zoom and discards the current measurement.
func (s *Surface) SetView(v View) {
	if v.Zoom <= 0 {
		v.Zoom = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v != s.view {
		s.view = v
		s.measured = false
	}
}

// Invalidate discards the current measurement after a layout-affecting
// change such as a field being added or removed.
func (s *Surface) Invalidate() {
	s.mu.Lock()
	s.measured = false
	s.mu.Unlock()
}

// Observe records a new measurement. Zero or non-finite sizes are ignored.
// It reports whether the measurement was accepted.
func (s *Surface) Observe(size Size) bool {
	if !size.Valid() {
		return false
	}
	s.mu.Lock()
	s.size = size
	s.measured = true
	view := s.view
	subs := make([]func(View, Size), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(view, size)
	}
	return true
}

// Remeasure asks the injected Measurer for the current size.
func (s *Surface) Remeasure() bool {
	if s.measurer == nil {
		return false
	}
	size, ok := s.measurer.Measure()
	if !ok {
		return false
	}
	return s.Observe(size)
}

// Subscribe registers fn for every accepted measurement. The returned
// function removes it.
func (s *Surface) Subscribe(fn func(View, Size)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Watch observes measurements from sizes until ctx is done or sizes is
// closed.
func (s *Surface) Watch(ctx context.Context, sizes <-chan Size) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case size, ok := <-sizes:
			if !ok {
				return nil
			}
			s.Observe(size)
		}
	}
}

// Size returns the current measurement.
func (s *Surface) Size() (Size, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.measured {
		return Size{}, sigerr.New(sigerr.KindGeometryNotReady, "page %d at zoom %g has not been measured", s.view.Page, s.view.Zoom)
	}
	return s.size, nil
}

// Capture converts a pointer position using the current measurement.
func (s *Surface) Capture(p Point) (Fraction, error) {
	size, err := s.Size()
	if err != nil {
		return Fraction{}, err
	}
	return Capture(p, size)
}

// Display converts a fraction using the current measurement.
func (s *Surface) Display(f Fraction) (Point, error) {
	size, err := s.Size()
	if err != nil {
		return Point{}, err
	}
	return Display(f, size)
}

// Overlay returns a field's on-screen rectangle at the current view.
func (s *Surface) Overlay(f Fraction, widthPx, heightPx float64) (Rect, error) {
	size, err := s.Size()
	if err != nil {
		return Rect{}, err
	}
	return Overlay(f, widthPx, heightPx, size, s.View().Zoom)
}
