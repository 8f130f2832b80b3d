package writer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pari-ranasaria28/Document-Signature-App/pdf/generic"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/reader"
)

// createTestPDF creates a small document with the fixture writer.
func createTestPDF(t *testing.T, xrefStream bool, pages ...*generic.Rectangle) []byte {
	t.Helper()
	w := NewPdfFileWriter("1.7")
	w.XRefStream = xrefStream
	for _, box := range pages {
		if _, err := w.AddPage(box, []byte("0 0 m 10 10 l S")); err != nil {
			t.Fatalf("AddPage failed: %v", err)
		}
	}
	data, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	return data
}

func letter() *generic.Rectangle {
	return &generic.Rectangle{URX: 612, URY: 792}
}

func openWriter(t *testing.T, data []byte) *IncrementalPdfFileWriter {
	t.Helper()
	r, err := reader.NewPdfFileReaderFromBytes(data)
	if err != nil {
		t.Fatalf("NewPdfFileReaderFromBytes failed: %v", err)
	}
	return NewIncrementalPdfFileWriter(r)
}

func reread(t *testing.T, w *IncrementalPdfFileWriter) (*reader.PdfFileReader, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	r, err := reader.NewPdfFileReaderFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("re-reading output failed: %v", err)
	}
	return r, buf.Bytes()
}

func TestFixtureWriterRoundTrip(t *testing.T) {
	for _, stream := range []bool{false, true} {
		data := createTestPDF(t, stream, letter(), &generic.Rectangle{URX: 595, URY: 842})
		r, err := reader.NewPdfFileReaderFromBytes(data)
		if err != nil {
			t.Fatalf("xref stream %v: reading fixture failed: %v", stream, err)
		}
		if r.PageCount() != 2 {
			t.Errorf("xref stream %v: PageCount() = %d, want 2", stream, r.PageCount())
		}
		if r.HasXRefStream != stream {
			t.Errorf("HasXRefStream = %v, want %v", r.HasXRefStream, stream)
		}
	}
}

func TestNewIncrementalPdfFileWriter(t *testing.T) {
	w := openWriter(t, createTestPDF(t, false, letter()))

	if w.RootRef().ObjectNumber == 0 {
		t.Error("root reference not found")
	}
	if w.NextObjectNumber() != len(w.Reader.XRef) {
		t.Errorf("NextObjectNumber() = %d, want %d", w.NextObjectNumber(), len(w.Reader.XRef))
	}
	if w.HasChanges() {
		t.Error("new writer should have no changes")
	}
}

func TestWriteNoChanges(t *testing.T) {
	data := createTestPDF(t, false, letter())
	w := openWriter(t, data)

	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Error("output without changes should equal the original")
	}
}

func TestWriteAppendsAfterOriginal(t *testing.T) {
	data := createTestPDF(t, false, letter())
	w := openWriter(t, data)

	ref := w.AddObject(generic.NewLiteralString("marker"))
	r, out := reread(t, w)

	if !bytes.HasPrefix(out, data) {
		t.Fatal("original bytes were not preserved")
	}
	obj, err := r.GetObject(ref.ObjectNumber)
	if err != nil {
		t.Fatalf("GetObject(%d) failed: %v", ref.ObjectNumber, err)
	}
	if s, ok := obj.(*generic.StringObject); !ok || string(s.Value) != "marker" {
		t.Errorf("added object = %v, want (marker)", obj)
	}
	if len(r.XRefOffsets) != 2 {
		t.Errorf("XRefOffsets = %v, want two sections", r.XRefOffsets)
	}

	tail := string(out[len(data):])
	if strings.Contains(tail, "/Type /XRef") || !strings.Contains(tail, "/Prev") {
		t.Errorf("update trailer malformed:\n%s", tail)
	}
}

func TestWriteXRefStreamUpdate(t *testing.T) {
	data := createTestPDF(t, true, letter())
	w := openWriter(t, data)
	if !w.StreamXRefs() {
		t.Fatal("StreamXRefs() = false for a document with an xref stream")
	}

	ref := w.AddObject(generic.IntegerObject(42))
	r, out := reread(t, w)

	if !strings.Contains(string(out[len(data):]), "/Type /XRef") {
		t.Error("update section should use an xref stream")
	}
	obj, err := r.GetObject(ref.ObjectNumber)
	if err != nil || obj != generic.IntegerObject(42) {
		t.Errorf("GetObject(%d) = %v, %v; want 42", ref.ObjectNumber, obj, err)
	}
	if r.PageCount() != 1 {
		t.Errorf("PageCount() = %d, want 1", r.PageCount())
	}
}

func TestUpdateTrailerEntries(t *testing.T) {
	data := createTestPDF(t, true, letter())
	w := openWriter(t, data)
	w.AddObject(generic.IntegerObject(1))
	r, _ := reread(t, w)

	if !r.Trailer.Has("Index") || r.Trailer.Has("XRefStm") {
		t.Errorf("unexpected xref stream dictionary keys: %v", r.Trailer.Keys())
	}
	prev, ok := r.Trailer.GetPrev()
	if !ok || prev != r.XRefOffsets[1] {
		t.Errorf("Prev = %d, want %d", prev, r.XRefOffsets[1])
	}
}

func TestPageForUpdateIsSharedPerPage(t *testing.T) {
	data := createTestPDF(t, false, letter(), letter())
	w := openWriter(t, data)

	first, err := w.PageForUpdate(1)
	if err != nil {
		t.Fatalf("PageForUpdate failed: %v", err)
	}
	second, _ := w.PageForUpdate(1)
	if first != second {
		t.Error("PageForUpdate should return the same working copy")
	}
	if first == w.Reader.Pages[1].Dict {
		t.Error("working copy must not alias the reader's page")
	}
	if _, err := w.PageForUpdate(5); err == nil {
		t.Error("expected error for page out of range")
	}
}

func TestAddStreamAndResources(t *testing.T) {
	data := createTestPDF(t, false, letter())
	w := openWriter(t, data)

	pre := w.AddObject(generic.NewStream(nil, []byte("q")))
	post := w.AddObject(generic.NewStream(nil, []byte("Q")))
	if err := w.AddStreamToPage(0, pre, true); err != nil {
		t.Fatalf("AddStreamToPage failed: %v", err)
	}
	if err := w.AddStreamToPage(0, post, false); err != nil {
		t.Fatalf("AddStreamToPage failed: %v", err)
	}

	img := w.AddObject(generic.NewDictionary())
	name0, err := w.AddPageResource(0, "XObject", "Im", img)
	if err != nil {
		t.Fatalf("AddPageResource failed: %v", err)
	}
	name1, _ := w.AddPageResource(0, "XObject", "Im", img)
	if name0 == name1 {
		t.Errorf("resource names collide: %s", name0)
	}

	r, _ := reread(t, w)
	page := r.Pages[0]
	contents := page.Dict.GetArray("Contents")
	if len(contents) != 3 {
		t.Fatalf("Contents = %v, want 3 streams", contents)
	}
	if contents[0] != pre || contents[2] != post {
		t.Errorf("Contents order = %v", contents)
	}
	xobjects := page.Resources.GetDict("XObject")
	if xobjects == nil || !xobjects.Has(name0) || !xobjects.Has(name1) {
		t.Errorf("XObject resources = %v", xobjects)
	}
}

func TestResourcesByReferenceAreCopied(t *testing.T) {
	fw := NewPdfFileWriter("1.4")
	fonts := generic.NewDictionary()
	fonts.Set("F1", generic.NameObject("Helvetica"))
	fontsRef := fw.AddObject(fonts)
	res := generic.NewDictionary()
	res.Set("Font", fontsRef)
	res.Set("XObject", fw.AddObject(generic.NewDictionary()))
	resRef := fw.AddObject(res)

	page := generic.NewDictionary()
	page.Set("Type", generic.NameObject("Page"))
	page.Set("Parent", fw.pagesRef)
	page.Set("MediaBox", letter().ToArray())
	page.Set("Resources", resRef)
	pageRef := fw.AddObject(page)
	fw.Pages.Set("Kids", generic.ArrayObject{pageRef})
	fw.Pages.Set("Count", generic.IntegerObject(1))
	data, err := fw.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}

	w := openWriter(t, data)
	if _, err := w.AddPageResource(0, "XObject", "Im", generic.Reference{ObjectNumber: 99}); err != nil {
		t.Fatalf("AddPageResource failed: %v", err)
	}
	if err := w.EnsureOutputVersion(PDFVersion{Major: 1, Minor: 4}); err != nil {
		t.Fatalf("EnsureOutputVersion failed: %v", err)
	}
	r, _ := reread(t, w)

	got := r.Pages[0].Resources
	if got.GetDict("Font") == nil || got.GetDict("Font").GetName("F1") != "Helvetica" {
		t.Errorf("Font resources lost: %v", got.Get("Font"))
	}
	if !got.GetDict("XObject").Has("Im0") {
		t.Error("new XObject missing")
	}
	// The shared resource dictionary itself is untouched.
	shared := r.ResolveDict(resRef)
	if xo := r.ResolveDict(shared.Get("XObject")); xo == nil || xo.Len() != 0 {
		t.Errorf("shared XObject dictionary modified: %v", xo)
	}
}

func TestEnsureOutputVersion(t *testing.T) {
	fw := NewPdfFileWriter("1.3")
	fw.AddPage(letter(), nil)
	data, _ := fw.Bytes()
	w := openWriter(t, data)

	if err := w.EnsureOutputVersion(PDFVersion{Major: 1, Minor: 4}); err != nil {
		t.Fatalf("EnsureOutputVersion failed: %v", err)
	}
	r, _ := reread(t, w)
	if v := r.Root.GetName("Version"); v != "1.4" {
		t.Errorf("catalog Version = %q, want 1.4", v)
	}
}

func TestRebuiltXRefWritesFullTable(t *testing.T) {
	data := createTestPDF(t, false, letter())
	data = bytes.Replace(data, []byte("startxref\n"), []byte("startxref\n9"), 1)

	w := openWriter(t, data)
	if len(w.Reader.XRefOffsets) != 0 {
		t.Fatalf("expected a rebuilt xref, got sections %v", w.Reader.XRefOffsets)
	}
	w.AddObject(generic.IntegerObject(7))
	r, _ := reread(t, w)
	if r.PageCount() != 1 {
		t.Errorf("PageCount() = %d, want 1", r.PageCount())
	}
	if r.Trailer.Has("Prev") {
		t.Error("full table should not point at a previous section")
	}
}

func TestDocumentIDKeepsFirstHalf(t *testing.T) {
	data := createTestPDF(t, false, letter())
	w := openWriter(t, data)

	orig := w.Reader.Trailer.GetArray("ID")[0].(*generic.StringObject).Value
	id1, id2 := w.DocumentID()
	if !bytes.Equal(id1, orig) {
		t.Errorf("first ID half = %X, want %X", id1, orig)
	}
	if len(id2) != 16 || bytes.Equal(id2, orig) {
		t.Errorf("second ID half should be regenerated, got %X", id2)
	}
}

func TestPDFVersion(t *testing.T) {
	tests := []struct {
		in   string
		want PDFVersion
	}{
		{"1.4", PDFVersion{1, 4}},
		{"2.0", PDFVersion{2, 0}},
		{"", DefaultOutputVersion},
		{"garbage", DefaultOutputVersion},
	}
	for _, tt := range tests {
		if got := ParseVersion(tt.in); got != tt.want {
			t.Errorf("ParseVersion(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if (PDFVersion{1, 7}).Compare(PDFVersion{1, 4}) <= 0 {
		t.Error("1.7 should compare greater than 1.4")
	}
	if s := (PDFVersion{1, 7}).String(); s != "1.7" {
		t.Errorf("String() = %q, want 1.7", s)
	}
}
