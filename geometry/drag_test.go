package geometry

import (
	"context"
	"errors"
	"testing"
)

func readySurface() *Surface {
	s := NewSurface(View{Page: 1, Zoom: 1}, nil)
	s.Observe(Size{1000, 1000})
	return s
}

func TestDragCommitOnRelease(t *testing.T) {
	var committed []Fraction
	d := NewDrag(readySurface(), Fraction{0.1, 0.1})
	d.OnCommit = func(f Fraction) error {
		committed = append(committed, f)
		return nil
	}

	steps := []PointerEvent{
		{PointerPress, Point{120, 120}},
		{PointerMove, Point{220, 170}},
	}
	for _, ev := range steps {
		if err := d.Handle(ev); err != nil {
			t.Fatalf("Handle(%v) failed: %v", ev, err)
		}
	}
	if d.Preview() != (Fraction{0.2, 0.15}) {
		t.Errorf("Preview() = %v, want {0.2 0.15}", d.Preview())
	}
	if len(committed) != 0 || d.Position() != (Fraction{0.1, 0.1}) {
		t.Error("move must not commit")
	}

	if err := d.Handle(PointerEvent{PointerRelease, Point{2000, 120}}); err != nil {
		t.Fatal(err)
	}
	want := Fraction{1, 0.1}
	if d.Position() != want || len(committed) != 1 || committed[0] != want {
		t.Errorf("committed %v / position %v, want clamped %v", committed, d.Position(), want)
	}
	if d.State() != DragIdle {
		t.Errorf("State() = %v, want idle", d.State())
	}
}

func TestDragCancel(t *testing.T) {
	d := NewDrag(readySurface(), Fraction{0.3, 0.3})
	d.Handle(PointerEvent{PointerPress, Point{300, 300}})
	d.Handle(PointerEvent{PointerMove, Point{500, 500}})
	if err := d.Handle(PointerEvent{PointerCancel, Point{}}); err != nil {
		t.Fatal(err)
	}
	if d.Position() != (Fraction{0.3, 0.3}) || d.Preview() != (Fraction{0.3, 0.3}) {
		t.Errorf("cancel moved the field to %v", d.Position())
	}
}

func TestDragRejectsEventsInWrongState(t *testing.T) {
	d := NewDrag(readySurface(), Fraction{})
	for _, kind := range []PointerKind{PointerMove, PointerRelease, PointerCancel} {
		if err := d.Handle(PointerEvent{Kind: kind}); !errors.Is(err, ErrDragState) {
			t.Errorf("%v while idle: error = %v, want ErrDragState", kind, err)
		}
	}
	d.Handle(PointerEvent{Kind: PointerPress})
	if err := d.Handle(PointerEvent{Kind: PointerPress}); !errors.Is(err, ErrDragState) {
		t.Errorf("press while dragging: error = %v, want ErrDragState", err)
	}
}

func TestDragCommitFailureKeepsPosition(t *testing.T) {
	d := NewDrag(readySurface(), Fraction{0.5, 0.5})
	d.OnCommit = func(Fraction) error { return errors.New("store down") }
	d.Handle(PointerEvent{PointerPress, Point{500, 500}})
	if err := d.Handle(PointerEvent{PointerRelease, Point{600, 600}}); err == nil {
		t.Fatal("expected commit error")
	}
	if d.Position() != (Fraction{0.5, 0.5}) || d.State() != DragIdle {
		t.Errorf("position %v state %v after failed commit", d.Position(), d.State())
	}
}

func TestDragRun(t *testing.T) {
	d := NewDrag(readySurface(), Fraction{0, 0})
	events := make(chan PointerEvent, 4)
	events <- PointerEvent{PointerPress, Point{0, 0}}
	events <- PointerEvent{PointerMove, Point{100, 100}}
	events <- PointerEvent{PointerRelease, Point{250, 400}}
	events <- PointerEvent{PointerPress, Point{0, 0}}

	if err := d.Run(context.Background(), events); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if d.Position() != (Fraction{0.25, 0.4}) {
		t.Errorf("Position() = %v, want {0.25 0.4}", d.Position())
	}
	if len(events) != 1 {
		t.Errorf("Run consumed events past the release")
	}
}
