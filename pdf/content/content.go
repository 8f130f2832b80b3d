// Package content builds PDF content streams.
package content

import (
	"bytes"
	"strconv"

	"github.com/pari-ranasaria28/Document-Signature-App/pdf/generic"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/layout"
)

// Operator represents a PDF content stream operator.
type Operator string

// Operators used when placing images.
const (
	OpSaveState    Operator = "q"
	OpRestoreState Operator = "Q"
	OpSetCTM       Operator = "cm"
	OpRectangle    Operator = "re"
	OpClip         Operator = "W"
	OpEndPath      Operator = "n"
	OpPaintXObject Operator = "Do"
)

// Operation represents a single operation in a content stream.
type Operation struct {
	Operator Operator
	Operands []any
}

// ContentStream is an ordered list of operations.
type ContentStream struct {
	Operations []Operation
}

// AddOperation adds an operation to the content stream.
func (cs *ContentStream) AddOperation(op Operator, operands ...any) {
	cs.Operations = append(cs.Operations, Operation{Operator: op, Operands: operands})
}

// Render renders the content stream to bytes, one operation per line.
func (cs *ContentStream) Render() []byte {
	var buf bytes.Buffer
	for _, op := range cs.Operations {
		for _, operand := range op.Operands {
			buf.WriteString(formatOperand(operand))
			buf.WriteByte(' ')
		}
		buf.WriteString(string(op.Operator))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func formatOperand(v any) string {
	switch val := v.(type) {
	case int:
		return strconv.Itoa(val)
	case float64:
		return generic.FormatReal(val)
	case generic.NameObject:
		var buf bytes.Buffer
		val.Write(&buf)
		return buf.String()
	default:
		panic("content: unsupported operand type")
	}
}

// ContentBuilder provides a fluent interface for building content streams.
type ContentBuilder struct {
	stream ContentStream
}

// NewContentBuilder creates a new content builder.
func NewContentBuilder() *ContentBuilder {
	return &ContentBuilder{}
}

// SaveState saves the graphics state.
func (cb *ContentBuilder) SaveState() *ContentBuilder {
	cb.stream.AddOperation(OpSaveState)
	return cb
}

// RestoreState restores the graphics state.
func (cb *ContentBuilder) RestoreState() *ContentBuilder {
	cb.stream.AddOperation(OpRestoreState)
	return cb
}

// Transform concatenates t to the current transformation matrix.
func (cb *ContentBuilder) Transform(t layout.Transform) *ContentBuilder {
	m := t.Array()
	cb.stream.AddOperation(OpSetCTM, m[0], m[1], m[2], m[3], m[4], m[5])
	return cb
}

// ClipRect intersects the clipping path with a rectangle.
func (cb *ContentBuilder) ClipRect(r layout.Rectangle) *ContentBuilder {
	cb.stream.AddOperation(OpRectangle, r.X, r.Y, r.Width, r.Height)
	cb.stream.AddOperation(OpClip)
	cb.stream.AddOperation(OpEndPath)
	return cb
}

// PaintXObject paints a named XObject.
func (cb *ContentBuilder) PaintXObject(name string) *ContentBuilder {
	cb.stream.AddOperation(OpPaintXObject, generic.NameObject(name))
	return cb
}

// Build returns the content stream.
func (cb *ContentBuilder) Build() *ContentStream {
	return &cb.stream
}

// Render renders the content stream to bytes.
func (cb *ContentBuilder) Render() []byte {
	return cb.stream.Render()
}
