package content

import (
	"testing"

	"github.com/pari-ranasaria28/Document-Signature-App/pdf/layout"
)

func TestContentBuilderRender(t *testing.T) {
	got := string(NewContentBuilder().
		SaveState().
		Transform(layout.Transform{A: 200, D: 50, E: 61.2, F: 662.8}).
		PaintXObject("Im0").
		RestoreState().
		Render())

	want := "q\n200 0 0 50 61.2 662.8 cm\n/Im0 Do\nQ\n"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestClipRect(t *testing.T) {
	got := string(NewContentBuilder().ClipRect(layout.Rectangle{X: 1, Y: 2, Width: 3.5, Height: 4}).Render())
	want := "1 2 3.5 4 re\nW\nn\n"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestBuildOperations(t *testing.T) {
	cs := NewContentBuilder().SaveState().PaintXObject("X").RestoreState().Build()
	if len(cs.Operations) != 3 {
		t.Fatalf("len(Operations) = %d, want 3", len(cs.Operations))
	}
	if cs.Operations[1].Operator != OpPaintXObject {
		t.Errorf("Operations[1] = %v, want Do", cs.Operations[1].Operator)
	}
}

func TestFormatOperandRejectsUnknownTypes(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unsupported operand")
		}
	}()
	var cs ContentStream
	cs.AddOperation(OpSetCTM, "raw")
	cs.Render()
}
