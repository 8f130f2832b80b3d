package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pari-ranasaria28/Document-Signature-App/capture"
	"github.com/pari-ranasaria28/Document-Signature-App/field"
	"github.com/pari-ranasaria28/Document-Signature-App/geometry"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/generic"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/writer"
	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
)

var start = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(start)
	o := New(NewMemoryStore(), &Options{
		Clock:  clock,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return o, clock
}

func place(t *testing.T, o *Orchestrator, email string, page int, x, y float64) *field.SignatureField {
	t.Helper()
	f, err := o.PlaceField(context.Background(), field.Placement{
		DocumentID:  "doc-1",
		SignerEmail: email,
		SignerName:  "Signer",
		PageNumber:  page,
		Position:    geometry.Fraction{X: x, Y: y},
		WidthPx:     200,
		HeightPx:    50,
	})
	if err != nil {
		t.Fatalf("PlaceField failed: %v", err)
	}
	return f
}

func signature(t *testing.T) *capture.Signature {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 20, 5))
	img.SetNRGBA(3, 2, color.NRGBA{A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return &capture.Signature{
		PNG:    buf.Bytes(),
		Width:  20,
		Height: 5,
		Method: capture.MethodDrawn,
		Signer: capture.Signer{Name: "Ana Lima", Email: "ana@example.com"},
	}
}

func document(t *testing.T, pages int) []byte {
	t.Helper()
	w := writer.NewPdfFileWriter("1.7")
	for i := 0; i < pages; i++ {
		if _, err := w.AddPage(&generic.Rectangle{URX: 612, URY: 792}, []byte("0 0 m 1 1 l S")); err != nil {
			t.Fatalf("AddPage failed: %v", err)
		}
	}
	data, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	return data
}

func TestNextPendingReadingOrder(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()

	late := place(t, o, "ana@example.com", 2, 0.1, 0.1)
	low := place(t, o, "ana@example.com", 1, 0.1, 0.8)
	first := place(t, o, "ana@example.com", 1, 0.5, 0.2)
	place(t, o, "bo@example.com", 1, 0.0, 0.0)

	var order []string
	for {
		f, err := o.NextPending(ctx, "doc-1", "ANA@example.com")
		if err != nil {
			t.Fatalf("NextPending failed: %v", err)
		}
		if f == nil {
			break
		}
		order = append(order, f.ID)
		if _, err := o.MarkSigned(ctx, f.ID, "ana@example.com", signature(t)); err != nil {
			t.Fatalf("MarkSigned failed: %v", err)
		}
	}

	want := []string{first.ID, low.ID, late.ID}
	if len(order) != len(want) {
		t.Fatalf("visited %d fields, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestMarkSignedUsesClock(t *testing.T) {
	o, clock := newTestOrchestrator(t)
	ctx := context.Background()
	f := place(t, o, "ana@example.com", 1, 0.1, 0.1)

	clock.Advance(90 * time.Second)
	signed, err := o.MarkSigned(ctx, f.ID, "ana@example.com", signature(t))
	if err != nil {
		t.Fatalf("MarkSigned failed: %v", err)
	}
	if signed.Status != field.StatusSigned {
		t.Errorf("Status = %s, want signed", signed.Status)
	}
	if want := start.Add(90 * time.Second); signed.SignedAt == nil || !signed.SignedAt.Equal(want) {
		t.Errorf("SignedAt = %v, want %v", signed.SignedAt, want)
	}

	clock.Advance(time.Hour)
	if _, err := o.MarkSigned(ctx, f.ID, "ana@example.com", signature(t)); !errors.Is(err, sigerr.ErrInvalidTransition) {
		t.Errorf("second MarkSigned error = %v, want InvalidTransition", err)
	}
	again, err := o.store.Get(ctx, f.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !again.SignedAt.Equal(start.Add(90 * time.Second)) {
		t.Errorf("SignedAt changed to %v", again.SignedAt)
	}
}

func TestTransitionErrors(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()
	f := place(t, o, "ana@example.com", 1, 0.1, 0.1)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"wrong signer", func() error {
			_, err := o.MarkSigned(ctx, f.ID, "eve@example.com", signature(t))
			return err
		}, sigerr.ErrInvalidTransition},
		{"empty signature", func() error {
			_, err := o.MarkSigned(ctx, f.ID, "ana@example.com", &capture.Signature{})
			return err
		}, sigerr.ErrEmptyInput},
		{"missing signer name", func() error {
			sig := signature(t)
			sig.Signer.Name = " "
			_, err := o.MarkSigned(ctx, f.ID, "ana@example.com", sig)
			return err
		}, sigerr.ErrMissingSignerInfo},
		{"missing signer email", func() error {
			sig := signature(t)
			sig.Signer.Email = ""
			_, err := o.MarkSigned(ctx, f.ID, "ana@example.com", sig)
			return err
		}, sigerr.ErrMissingSignerInfo},
		{"unknown field", func() error {
			_, err := o.MarkRejected(ctx, "missing", "ana@example.com")
			return err
		}, sigerr.ErrNotFound},
		{"reject wrong signer", func() error {
			_, err := o.MarkRejected(ctx, f.ID, "eve@example.com")
			return err
		}, sigerr.ErrInvalidTransition},
		{"remove unknown", func() error {
			return o.RemoveField(ctx, "missing")
		}, sigerr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	got, err := o.store.Get(ctx, f.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != field.StatusPending {
		t.Errorf("failed operations changed status to %s", got.Status)
	}
}

func TestSettledFieldsAreFrozen(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()
	f := place(t, o, "ana@example.com", 1, 0.1, 0.1)
	if _, err := o.MarkRejected(ctx, f.ID, "ana@example.com"); err != nil {
		t.Fatalf("MarkRejected failed: %v", err)
	}

	if _, err := o.MoveField(ctx, f.ID, 1, geometry.Fraction{X: 0.5, Y: 0.5}); !errors.Is(err, sigerr.ErrInvalidTransition) {
		t.Errorf("MoveField error = %v, want InvalidTransition", err)
	}
	if err := o.RemoveField(ctx, f.ID); !errors.Is(err, sigerr.ErrInvalidTransition) {
		t.Errorf("RemoveField error = %v, want InvalidTransition", err)
	}
}

func TestMoveAndRemove(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()
	f := place(t, o, "ana@example.com", 1, 0.1, 0.1)

	moved, err := o.MoveField(ctx, f.ID, 3, geometry.Fraction{X: 1.4, Y: -0.2})
	if err != nil {
		t.Fatalf("MoveField failed: %v", err)
	}
	if moved.PageNumber != 3 || moved.XFraction != 1 || moved.YFraction != 0 {
		t.Errorf("moved to page %d (%v, %v), want page 3 (1, 0)", moved.PageNumber, moved.XFraction, moved.YFraction)
	}

	if err := o.RemoveField(ctx, f.ID); err != nil {
		t.Fatalf("RemoveField failed: %v", err)
	}
	if _, err := o.store.Get(ctx, f.ID); !errors.Is(err, sigerr.ErrNotFound) {
		t.Errorf("Get after remove error = %v, want NotFound", err)
	}
}

func TestFieldDragCommitsMove(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()
	f := place(t, o, "ana@example.com", 2, 0.1, 0.1)

	surface := geometry.NewSurface(geometry.View{Page: 2, Zoom: 1}, nil)
	surface.Observe(geometry.Size{Width: 600, Height: 800})

	drag, err := o.NewFieldDrag(ctx, surface, f.ID)
	if err != nil {
		t.Fatalf("NewFieldDrag failed: %v", err)
	}
	events := make(chan geometry.PointerEvent, 3)
	events <- geometry.PointerEvent{Kind: geometry.PointerPress, At: geometry.Point{X: 70, Y: 90}}
	events <- geometry.PointerEvent{Kind: geometry.PointerMove, At: geometry.Point{X: 100, Y: 100}}
	events <- geometry.PointerEvent{Kind: geometry.PointerRelease, At: geometry.Point{X: 130, Y: 170}}
	if err := drag.Run(ctx, events); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got, err := o.store.Get(ctx, f.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.PageNumber != 2 || math.Abs(got.XFraction-0.2) > 1e-9 || math.Abs(got.YFraction-0.2) > 1e-9 {
		t.Errorf("field at page %d (%v, %v), want page 2 (0.2, 0.2)", got.PageNumber, got.XFraction, got.YFraction)
	}

	if _, err := o.MarkRejected(ctx, f.ID, "ana@example.com"); err != nil {
		t.Fatalf("MarkRejected failed: %v", err)
	}
	if _, err := o.NewFieldDrag(ctx, surface, f.ID); !errors.Is(err, sigerr.ErrInvalidTransition) {
		t.Errorf("NewFieldDrag on rejected field error = %v, want InvalidTransition", err)
	}
}

func TestMarkSignedWithoutSignerInfoLeavesFieldPending(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()
	f := place(t, o, "ana@example.com", 1, 0.1, 0.1)

	sig := signature(t)
	sig.Signer = capture.Signer{Email: "ana@example.com"}
	_, err := o.MarkSigned(ctx, f.ID, "ana@example.com", sig)
	if !errors.Is(err, sigerr.ErrMissingSignerInfo) {
		t.Fatalf("MarkSigned error = %v, want MissingSignerInfo", err)
	}
	var se *sigerr.Error
	if !errors.As(err, &se) || se.FieldID != f.ID {
		t.Errorf("error field = %+v, want %s", se, f.ID)
	}

	got, err := o.store.Get(ctx, f.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != field.StatusPending || len(got.SignatureImage) != 0 {
		t.Errorf("field status = %s with %d image bytes, want pending and empty", got.Status, len(got.SignatureImage))
	}
}

func TestFieldDragRejectsPageChange(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()
	f := place(t, o, "ana@example.com", 2, 0.1, 0.1)

	surface := geometry.NewSurface(geometry.View{Page: 2, Zoom: 1}, nil)
	surface.Observe(geometry.Size{Width: 600, Height: 800})

	drag, err := o.NewFieldDrag(ctx, surface, f.ID)
	if err != nil {
		t.Fatalf("NewFieldDrag failed: %v", err)
	}
	if _, err := o.MoveField(ctx, f.ID, 3, geometry.Fraction{X: 0.5, Y: 0.5}); err != nil {
		t.Fatalf("MoveField failed: %v", err)
	}

	events := make(chan geometry.PointerEvent, 2)
	events <- geometry.PointerEvent{Kind: geometry.PointerPress, At: geometry.Point{X: 70, Y: 90}}
	events <- geometry.PointerEvent{Kind: geometry.PointerRelease, At: geometry.Point{X: 130, Y: 170}}
	if err := drag.Run(ctx, events); !errors.Is(err, sigerr.ErrInvalidTransition) {
		t.Fatalf("Run error = %v, want InvalidTransition", err)
	}

	got, err := o.store.Get(ctx, f.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.PageNumber != 3 || got.XFraction != 0.5 || got.YFraction != 0.5 {
		t.Errorf("field at page %d (%v, %v), want page 3 (0.5, 0.5)", got.PageNumber, got.XFraction, got.YFraction)
	}
	if n := o.locks.size(); n != 0 {
		t.Errorf("%d field locks leaked", n)
	}
}

func TestIssueLinkLocksSigner(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()
	a := place(t, o, "ana@example.com", 1, 0.1, 0.1)
	b := place(t, o, "ana@example.com", 2, 0.1, 0.1)
	other := place(t, o, "bo@example.com", 1, 0.5, 0.5)

	if _, err := o.AssignSigner(ctx, a.ID, "Ana", "ana@example.com"); err != nil {
		t.Fatalf("AssignSigner before link failed: %v", err)
	}

	n, err := o.IssueLink(ctx, "doc-1", "ana@example.com")
	if err != nil {
		t.Fatalf("IssueLink failed: %v", err)
	}
	if n != 2 {
		t.Errorf("IssueLink locked %d fields, want 2", n)
	}
	for _, id := range []string{a.ID, b.ID} {
		if _, err := o.AssignSigner(ctx, id, "Eve", "eve@example.com"); !errors.Is(err, sigerr.ErrInvalidTransition) {
			t.Errorf("AssignSigner(%s) error = %v, want InvalidTransition", id, err)
		}
	}
	if _, err := o.AssignSigner(ctx, other.ID, "Cy", "cy@example.com"); err != nil {
		t.Errorf("unlocked field reassignment failed: %v", err)
	}

	if _, err := o.IssueLink(ctx, "doc-1", "nobody@example.com"); !errors.Is(err, sigerr.ErrNotFound) {
		t.Errorf("IssueLink for unknown signer error = %v, want NotFound", err)
	}
}

func TestFinalize(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()
	original := document(t, 2)

	signedField := place(t, o, "ana@example.com", 1, 0.1, 0.1)
	rejected := place(t, o, "bo@example.com", 2, 0.2, 0.2)

	if ready, err := o.Ready(ctx, "doc-1"); err != nil || ready {
		t.Errorf("Ready() = %v, %v; want false", ready, err)
	}
	if _, _, err := o.Finalize(ctx, "doc-1", original); !errors.Is(err, sigerr.ErrNotComplete) {
		t.Fatalf("Finalize error = %v, want NotComplete", err)
	}

	if _, err := o.MarkSigned(ctx, signedField.ID, "ana@example.com", signature(t)); err != nil {
		t.Fatalf("MarkSigned failed: %v", err)
	}
	if _, err := o.MarkRejected(ctx, rejected.ID, "bo@example.com"); err != nil {
		t.Fatalf("MarkRejected failed: %v", err)
	}

	progress, err := o.Progress(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if want := (Progress{Total: 2, Signed: 1, Rejected: 1}); progress != want {
		t.Errorf("Progress() = %+v, want %+v", progress, want)
	}
	if ready, err := o.Ready(ctx, "doc-1"); err != nil || !ready {
		t.Errorf("Ready() = %v, %v; want true", ready, err)
	}

	out, report, err := o.Finalize(ctx, "doc-1", original)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if !bytes.HasPrefix(out, original) {
		t.Error("output should be an incremental update of the original")
	}
	if len(report.Placements) != 1 || report.Placements[0].FieldID != signedField.ID {
		t.Errorf("placements = %+v, want only the signed field", report.Placements)
	}
}

func TestConcurrentSignSameField(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()
	f := place(t, o, "ana@example.com", 1, 0.1, 0.1)
	sig := signature(t)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.MarkSigned(ctx, f.ID, "ana@example.com", sig); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("%d concurrent signings succeeded, want 1", got)
	}
	if n := o.locks.size(); n != 0 {
		t.Errorf("%d field locks leaked", n)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	f, err := field.New(field.Placement{DocumentID: "d", SignerEmail: "a@b.c", PageNumber: 1, WidthPx: 1, HeightPx: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Put(ctx, f); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	f.Status = field.StatusSigned

	got, err := s.Get(ctx, f.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != field.StatusPending {
		t.Error("store shares state with the caller")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.List(cancelled, "d"); !errors.Is(err, context.Canceled) {
		t.Errorf("List on cancelled context error = %v, want context.Canceled", err)
	}
}
