package geometry

import (
	"context"
	"errors"
	"fmt"
)

// DragState is the state of a field drag.
type DragState int

const (
	DragIdle DragState = iota
	DragDragging
)

func (s DragState) String() string {
	if s == DragDragging {
		return "dragging"
	}
	return "idle"
}

// PointerKind is the kind of a pointer event.
type PointerKind int

const (
	PointerPress PointerKind = iota
	PointerMove
	PointerRelease
	PointerCancel
)

func (k PointerKind) String() string {
	switch k {
	case PointerPress:
		return "press"
	case PointerMove:
		return "move"
	case PointerRelease:
		return "release"
	case PointerCancel:
		return "cancel"
	}
	return fmt.Sprintf("PointerKind(%d)", int(k))
}

// PointerEvent is a discrete pointer event in content pixels.
type PointerEvent struct {
	Kind PointerKind
	At   Point
}

// ErrDragState is returned for events that are not valid in the current
// drag state.
var ErrDragState = errors.New("pointer event not valid in drag state")

// Drag moves one field. Press grabs the field, moves update a preview and
// release commits a clamped fraction. Cancel drops the preview.
type Drag struct {
	surface *Surface
	state   DragState

	origin  Fraction
	grab    Point
	preview Fraction

	// OnCommit is called with the committed position on release.
	OnCommit func(Fraction) error
}

// NewDrag creates an idle drag for a field currently at origin.
func NewDrag(surface *Surface, origin Fraction) *Drag {
	return &Drag{surface: surface, origin: origin, preview: origin}
}

// State returns the current state.
func (d *Drag) State() DragState { return d.state }

// Position returns the committed position.
func (d *Drag) Position() Fraction { return d.origin }

// Preview returns the uncommitted position while dragging, or the committed
// position when idle.
func (d *Drag) Preview() Fraction {
	if d.state == DragDragging {
		return d.preview
	}
	return d.origin
}

// Handle applies one event.
func (d *Drag) Handle(ev PointerEvent) error {
	switch ev.Kind {
	case PointerPress:
		if d.state != DragIdle {
			return d.invalid(ev)
		}
		if _, err := d.surface.Size(); err != nil {
			return err
		}
		d.grab = ev.At
		d.preview = d.origin
		d.state = DragDragging
		return nil

	case PointerMove:
		if d.state != DragDragging {
			return d.invalid(ev)
		}
		f, err := d.follow(ev.At)
		if err != nil {
			return err
		}
		d.preview = f
		return nil

	case PointerRelease:
		if d.state != DragDragging {
			return d.invalid(ev)
		}
		f, err := d.follow(ev.At)
		if err != nil {
			return err
		}
		if d.OnCommit != nil {
			if err := d.OnCommit(f); err != nil {
				d.reset()
				return err
			}
		}
		d.origin = f
		d.reset()
		return nil

	case PointerCancel:
		if d.state != DragDragging {
			return d.invalid(ev)
		}
		d.reset()
		return nil
	}
	return d.invalid(ev)
}

func (d *Drag) reset() {
	d.state = DragIdle
	d.preview = d.origin
}

func (d *Drag) invalid(ev PointerEvent) error {
	return fmt.Errorf("%w: %s while %s", ErrDragState, ev.Kind, d.state)
}

// follow offsets the original position by the pointer travel since press.
func (d *Drag) follow(at Point) (Fraction, error) {
	start, err := d.surface.Display(d.origin)
	if err != nil {
		return Fraction{}, err
	}
	return d.surface.Capture(Point{
		X: start.X + at.X - d.grab.X,
		Y: start.Y + at.Y - d.grab.Y,
	})
}

// Run drives the drag from events until ctx is done, the channel closes or
// a release or cancel ends the gesture.
func (d *Drag) Run(ctx context.Context, events <-chan PointerEvent) error {
	for {
		select {
		case <-ctx.Done():
			if d.state == DragDragging {
				d.reset()
			}
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if d.state == DragDragging {
					d.reset()
				}
				return nil
			}
			if err := d.Handle(ev); err != nil {
				return err
			}
			if ev.Kind == PointerRelease || ev.Kind == PointerCancel {
				return nil
			}
		}
	}
}
