package geometry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
)

func TestSurfaceRequiresMeasurement(t *testing.T) {
	s := NewSurface(View{Page: 1, Zoom: 1}, nil)
	if _, err := s.Capture(Point{1, 1}); !errors.Is(err, sigerr.ErrGeometryNotReady) {
		t.Fatalf("Capture before measurement error = %v, want GeometryNotReady", err)
	}

	if s.Observe(Size{0, 0}) {
		t.Error("zero measurement should be ignored")
	}
	if _, err := s.Size(); err == nil {
		t.Error("zero measurement should not make the surface ready")
	}

	if !s.Observe(Size{800, 1000}) {
		t.Fatal("valid measurement rejected")
	}
	f, err := s.Capture(Point{400, 250})
	if err != nil {
		t.Fatal(err)
	}
	if f != (Fraction{0.5, 0.25}) {
		t.Errorf("Capture() = %v, want {0.5 0.25}", f)
	}
}

func TestSurfaceViewChangeDiscardsMeasurement(t *testing.T) {
	tests := []struct {
		name   string
		change func(*Surface)
		stale  bool
	}{
		{"page change", func(s *Surface) { s.SetView(View{Page: 2, Zoom: 1}) }, true},
		{"zoom change", func(s *Surface) { s.SetView(View{Page: 1, Zoom: 2}) }, true},
		{"same view", func(s *Surface) { s.SetView(View{Page: 1, Zoom: 1}) }, false},
		{"invalidate", func(s *Surface) { s.Invalidate() }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSurface(View{Page: 1, Zoom: 1}, nil)
			s.Observe(Size{800, 1000})
			tt.change(s)
			_, err := s.Display(Fraction{0.5, 0.5})
			if stale := errors.Is(err, sigerr.ErrGeometryNotReady); stale != tt.stale {
				t.Errorf("stale = %v, want %v (err %v)", stale, tt.stale, err)
			}
		})
	}
}

func TestSurfaceOverlayUsesZoom(t *testing.T) {
	s := NewSurface(View{Page: 1, Zoom: 2}, nil)
	s.Observe(Size{1632, 2112})
	r, err := s.Overlay(Fraction{0.5, 0.5}, 100, 40)
	if err != nil {
		t.Fatal(err)
	}
	if r != (Rect{X: 816, Y: 1056, Width: 200, Height: 80}) {
		t.Errorf("Overlay() = %+v", r)
	}
}

func TestSurfaceRemeasureAndSubscribe(t *testing.T) {
	size := Size{}
	m := MeasurerFunc(func() (Size, bool) { return size, size.Valid() })
	s := NewSurface(View{Page: 1}, m)

	var seen []Size
	cancel := s.Subscribe(func(_ View, sz Size) { seen = append(seen, sz) })

	if s.Remeasure() {
		t.Error("Remeasure() = true for unmeasured content")
	}
	size = Size{500, 700}
	if !s.Remeasure() {
		t.Error("Remeasure() = false for measured content")
	}
	cancel()
	s.Observe(Size{10, 10})

	if len(seen) != 1 || seen[0] != (Size{500, 700}) {
		t.Errorf("subscriber saw %v, want [{500 700}]", seen)
	}
}

func TestSurfaceWatch(t *testing.T) {
	s := NewSurface(View{Page: 1}, nil)
	sizes := make(chan Size, 3)
	sizes <- Size{0, 0}
	sizes <- Size{300, 400}
	close(sizes)

	if err := s.Watch(context.Background(), sizes); err != nil {
		t.Fatalf("Watch() = %v", err)
	}
	if got, err := s.Size(); err != nil || got != (Size{300, 400}) {
		t.Errorf("Size() = %v, %v", got, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Watch(ctx, make(chan Size)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Watch() = %v, want DeadlineExceeded", err)
	}
}
