// Package writer provides PDF file writing and incremental update support.
// This file contains the IncrementalPdfFileWriter for incremental updates.
package writer

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/pari-ranasaria28/Document-Signature-App/pdf/filters"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/generic"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/reader"
)

// Common errors for incremental writer
var (
	ErrNoRoot = errors.New("document has no catalog")
)

// IncrementalPdfFileWriter appends modifications to the end of an existing
// file. The original bytes are copied through unchanged.
type IncrementalPdfFileWriter struct {
	Reader *reader.PdfFileReader

	// Objects contains modified/new objects to be written
	Objects map[ObjectKey]*generic.IndirectObject

	nextObjNum    int
	originalData  []byte
	rootRef       generic.Reference
	infoRef       *generic.Reference
	documentID    generic.ArrayObject
	outputVersion PDFVersion
	streamXRefs   bool

	// pages holds the working copy of each page touched so far, keyed by
	// page index, so repeated edits to one page land in one update.
	pages map[int]*generic.DictionaryObject
}

// ObjectKey uniquely identifies an object by number and generation
type ObjectKey struct {
	ObjectNumber int
	Generation   int
}

// PDFVersion represents a PDF version as (major, minor)
type PDFVersion struct {
	Major int
	Minor int
}

// Compare compares two PDF versions
func (v PDFVersion) Compare(other PDFVersion) int {
	if v.Major != other.Major {
		return v.Major - other.Major
	}
	return v.Minor - other.Minor
}

func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// DefaultOutputVersion is the default output PDF version
var DefaultOutputVersion = PDFVersion{Major: 1, Minor: 7}

// NewIncrementalPdfFileWriter creates an incremental writer from an existing PDF.
func NewIncrementalPdfFileWriter(r *reader.PdfFileReader) *IncrementalPdfFileWriter {
	maxObjNum := 0
	for objNum := range r.XRef {
		maxObjNum = max(maxObjNum, objNum)
	}
	if size, ok := r.Trailer.GetInt("Size"); ok && int(size)-1 > maxObjNum {
		maxObjNum = int(size) - 1
	}

	var rootRef generic.Reference
	if root := r.Trailer.GetRoot(); root != nil {
		rootRef = *root
	}

	return &IncrementalPdfFileWriter{
		Reader:        r,
		Objects:       make(map[ObjectKey]*generic.IndirectObject),
		nextObjNum:    maxObjNum + 1,
		originalData:  r.Data(),
		rootRef:       rootRef,
		infoRef:       r.Trailer.GetInfo(),
		documentID:    handleDocumentID(r),
		outputVersion: ParseVersion(r.Version),
		// A rebuilt xref has nothing to chain to, so the whole table is
		// rewritten in classic form.
		streamXRefs: r.HasXRefStream && len(r.XRefOffsets) > 0,
		pages:       make(map[int]*generic.DictionaryObject),
	}
}

// handleDocumentID keeps the first half of the file identifier and
// regenerates the second.
func handleDocumentID(r *reader.PdfFileReader) generic.ArrayObject {
	id2 := make([]byte, 16)
	rand.Read(id2)

	var id1 []byte
	if idArray := r.Trailer.GetArray("ID"); len(idArray) >= 1 {
		if str, ok := idArray[0].(*generic.StringObject); ok {
			id1 = str.Value
		}
	}
	if id1 == nil {
		id1 = make([]byte, 16)
		rand.Read(id1)
	}

	return generic.ArrayObject{generic.NewHexString(id1), generic.NewHexString(id2)}
}

// ParseVersion parses a PDF version string like "1.7" into a PDFVersion.
func ParseVersion(version string) PDFVersion {
	var major, minor int
	fmt.Sscanf(version, "%d.%d", &major, &minor)
	if major == 0 {
		return DefaultOutputVersion
	}
	return PDFVersion{Major: major, Minor: minor}
}

// EnsureOutputVersion raises the catalog /Version when the document
// declares an older version than required.
func (w *IncrementalPdfFileWriter) EnsureOutputVersion(version PDFVersion) error {
	if w.outputVersion.Compare(version) >= 0 {
		return nil
	}
	root, err := w.GetRoot()
	if err != nil {
		return err
	}
	if v := root.GetName("Version"); v != "" && ParseVersion(v).Compare(version) >= 0 {
		w.outputVersion = ParseVersion(v)
		return nil
	}

	rootCopy := root.Clone().(*generic.DictionaryObject)
	rootCopy.Set("Version", generic.NameObject(version.String()))
	w.UpdateObject(w.rootRef.ObjectNumber, rootCopy)
	w.outputVersion = version
	return nil
}

// GetObject retrieves an object by number, preferring modified versions.
func (w *IncrementalPdfFileWriter) GetObject(objNum int) (generic.PdfObject, error) {
	gen := 0
	if entry := w.Reader.XRef[objNum]; entry != nil {
		gen = entry.Generation
	}
	if obj, ok := w.Objects[ObjectKey{ObjectNumber: objNum, Generation: gen}]; ok {
		return obj.Object, nil
	}
	return w.Reader.GetObject(objNum)
}

// GetRoot returns the document catalog.
func (w *IncrementalPdfFileWriter) GetRoot() (*generic.DictionaryObject, error) {
	if w.rootRef.ObjectNumber == 0 {
		return nil, ErrNoRoot
	}
	obj, err := w.GetObject(w.rootRef.ObjectNumber)
	if err != nil {
		return nil, err
	}
	dict, ok := obj.(*generic.DictionaryObject)
	if !ok {
		return nil, fmt.Errorf("%w: root is not a dictionary", ErrNoRoot)
	}
	return dict, nil
}

// AddObject adds a new object and returns its reference.
func (w *IncrementalPdfFileWriter) AddObject(obj generic.PdfObject) generic.Reference {
	objNum := w.nextObjNum
	w.nextObjNum++

	w.Objects[ObjectKey{ObjectNumber: objNum}] = generic.NewIndirectObject(objNum, 0, obj)
	return generic.Reference{ObjectNumber: objNum}
}

// UpdateObject replaces an existing object in the update section.
func (w *IncrementalPdfFileWriter) UpdateObject(objNum int, obj generic.PdfObject) {
	gen := 0
	if entry := w.Reader.XRef[objNum]; entry != nil {
		gen = entry.Generation
	}
	w.Objects[ObjectKey{ObjectNumber: objNum, Generation: gen}] = generic.NewIndirectObject(objNum, gen, obj)
}

// PageForUpdate returns the working copy of a page. The first call clones
// the page, materializes its (possibly inherited) resources as a direct
// dictionary and registers the copy for writing; later calls return the
// same copy.
func (w *IncrementalPdfFileWriter) PageForUpdate(index int) (*generic.DictionaryObject, error) {
	if page, ok := w.pages[index]; ok {
		return page, nil
	}
	page, err := w.Reader.Page(index)
	if err != nil {
		return nil, err
	}

	pageCopy := page.Dict.Clone().(*generic.DictionaryObject)
	resources := generic.NewDictionary()
	if page.Resources != nil {
		for _, key := range page.Resources.Keys() {
			val := page.Resources.Get(key)
			// Category dictionaries are resolved so entries can be added
			// without touching shared objects.
			if dict := w.Reader.ResolveDict(val); dict != nil {
				val = dict
			}
			resources.Set(key, val.Clone())
		}
	}
	pageCopy.Set("Resources", resources)

	w.pages[index] = pageCopy
	w.UpdateObject(page.Ref.ObjectNumber, pageCopy)
	return pageCopy, nil
}

// AddStreamToPage adds a content stream reference to a page, either before
// or after its existing content.
func (w *IncrementalPdfFileWriter) AddStreamToPage(index int, streamRef generic.Reference, prepend bool) error {
	page, err := w.PageForUpdate(index)
	if err != nil {
		return err
	}

	var contents generic.ArrayObject
	switch c := page.Get("Contents").(type) {
	case generic.Reference:
		// A reference may point at a single stream or at an array of them.
		if arr, rerr := w.Reader.Resolve(c); rerr == nil {
			if items, ok := arr.(generic.ArrayObject); ok {
				contents = append(contents, items...)
				break
			}
		}
		contents = generic.ArrayObject{c}
	case generic.ArrayObject:
		contents = append(contents, c...)
	case nil:
	default:
		return fmt.Errorf("unsupported /Contents entry %T on page %d", c, index)
	}

	if prepend {
		contents = append(generic.ArrayObject{streamRef}, contents...)
	} else {
		contents = append(contents, streamRef)
	}
	page.Set("Contents", contents)
	return nil
}

// AddPageResource registers value under a fresh name in the given resource
// category of a page and returns the name used.
func (w *IncrementalPdfFileWriter) AddPageResource(index int, category, prefix string, value generic.PdfObject) (string, error) {
	page, err := w.PageForUpdate(index)
	if err != nil {
		return "", err
	}
	resources := page.GetDict("Resources")
	dict := resources.GetDict(category)
	if dict == nil {
		dict = generic.NewDictionary()
		resources.Set(category, dict)
	}

	for i := 0; ; i++ {
		name := prefix + strconv.Itoa(i)
		if !dict.Has(name) {
			dict.Set(name, value)
			return name, nil
		}
	}
}

// HasChanges reports whether there are pending changes.
func (w *IncrementalPdfFileWriter) HasChanges() bool {
	return len(w.Objects) > 0
}

// RootRef returns the root catalog reference.
func (w *IncrementalPdfFileWriter) RootRef() generic.Reference {
	return w.rootRef
}

// NextObjectNumber returns the next available object number.
func (w *IncrementalPdfFileWriter) NextObjectNumber() int {
	return w.nextObjNum
}

// StreamXRefs reports whether the update is written with an xref stream.
func (w *IncrementalPdfFileWriter) StreamXRefs() bool {
	return w.streamXRefs
}

// DocumentID returns both halves of the file identifier.
func (w *IncrementalPdfFileWriter) DocumentID() ([]byte, []byte) {
	return w.documentID[0].(*generic.StringObject).Value, w.documentID[1].(*generic.StringObject).Value
}

// populateTrailer fills in the entries an update trailer carries over.
// Entries specific to the previous section (/XRefStm, stream keys of an
// xref stream dictionary) are not copied.
func (w *IncrementalPdfFileWriter) populateTrailer(trailer *generic.DictionaryObject) {
	trailer.Set("Size", generic.IntegerObject(w.nextObjNum))
	if len(w.Reader.XRefOffsets) > 0 {
		trailer.Set("Prev", generic.IntegerObject(w.Reader.XRefOffsets[0]))
	}
	trailer.Set("Root", w.rootRef)
	if w.infoRef != nil {
		trailer.Set("Info", *w.infoRef)
	}
	if enc := w.Reader.Trailer.Get("Encrypt"); enc != nil {
		trailer.Set("Encrypt", enc)
	}
	trailer.Set("ID", w.documentID)
}

// Write writes the original file followed by the update section. Without
// changes the original bytes are written as they are.
func (w *IncrementalPdfFileWriter) Write(out io.Writer) error {
	if !w.HasChanges() {
		_, err := out.Write(w.originalData)
		return err
	}

	var buf bytes.Buffer
	buf.Write(w.originalData)
	if n := len(w.originalData); n > 0 && w.originalData[n-1] != '\n' && w.originalData[n-1] != '\r' {
		buf.WriteByte('\n')
	}

	offsets := make(map[ObjectKey]int64)
	for _, key := range w.sortedKeys() {
		offsets[key] = int64(buf.Len())
		if err := w.Objects[key].Write(&buf); err != nil {
			return fmt.Errorf("writing object %d: %w", key.ObjectNumber, err)
		}
		buf.WriteByte('\n')
	}

	var err error
	if w.streamXRefs {
		err = w.writeXRefStream(&buf, offsets)
	} else {
		err = w.writeXRefTable(&buf, offsets)
	}
	if err != nil {
		return err
	}

	_, err = out.Write(buf.Bytes())
	return err
}

func (w *IncrementalPdfFileWriter) sortedKeys() []ObjectKey {
	keys := make([]ObjectKey, 0, len(w.Objects))
	for k := range w.Objects {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys []ObjectKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].ObjectNumber < keys[j].ObjectNumber
	})
}

type xrefRow struct {
	key    ObjectKey
	offset int64
	free   bool
}

type subsection struct {
	start int
	rows  []xrefRow
}

// subsections groups rows with consecutive object numbers.
func subsections(rows []xrefRow) []subsection {
	var out []subsection
	for _, row := range rows {
		n := len(out)
		if n > 0 && row.key.ObjectNumber == out[n-1].start+len(out[n-1].rows) {
			out[n-1].rows = append(out[n-1].rows, row)
			continue
		}
		out = append(out, subsection{start: row.key.ObjectNumber, rows: []xrefRow{row}})
	}
	return out
}

// xrefRows lists the rows of the new section. When the original xref had
// to be rebuilt there is no previous section, so every object is listed.
func (w *IncrementalPdfFileWriter) xrefRows(offsets map[ObjectKey]int64) []xrefRow {
	all := make(map[ObjectKey]int64, len(offsets))
	for k, v := range offsets {
		all[k] = v
	}
	full := len(w.Reader.XRefOffsets) == 0
	if full {
		for num, entry := range w.Reader.XRef {
			key := ObjectKey{ObjectNumber: num, Generation: entry.Generation}
			if _, updated := w.Objects[key]; updated || !entry.InUse || entry.ObjectStreamRef > 0 {
				continue
			}
			all[key] = entry.Offset
		}
	}

	keys := make([]ObjectKey, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sortKeys(keys)

	var rows []xrefRow
	if full {
		rows = append(rows, xrefRow{key: ObjectKey{Generation: 65535}, free: true})
	}
	for _, k := range keys {
		rows = append(rows, xrefRow{key: k, offset: all[k]})
	}
	return rows
}

// writeXRefTable writes a traditional xref table and trailer.
func (w *IncrementalPdfFileWriter) writeXRefTable(buf *bytes.Buffer, offsets map[ObjectKey]int64) error {
	xrefOffset := buf.Len()
	buf.WriteString("xref\n")
	for _, sub := range subsections(w.xrefRows(offsets)) {
		fmt.Fprintf(buf, "%d %d\n", sub.start, len(sub.rows))
		for _, row := range sub.rows {
			kind := 'n'
			if row.free {
				kind = 'f'
			}
			fmt.Fprintf(buf, "%010d %05d %c \n", row.offset, row.key.Generation, kind)
		}
	}

	trailer := generic.NewDictionary()
	w.populateTrailer(trailer)
	buf.WriteString("trailer\n")
	if err := trailer.Write(buf); err != nil {
		return err
	}
	fmt.Fprintf(buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	return nil
}

// writeXRefStream writes the cross-reference section as a compressed
// stream object, for files whose previous section is itself a stream.
func (w *IncrementalPdfFileWriter) writeXRefStream(buf *bytes.Buffer, offsets map[ObjectKey]int64) error {
	xrefOffset := int64(buf.Len())
	streamNum := w.nextObjNum
	w.nextObjNum++

	rows := append(w.xrefRows(offsets), xrefRow{key: ObjectKey{ObjectNumber: streamNum}, offset: xrefOffset})

	var index generic.ArrayObject
	var data bytes.Buffer
	for _, sub := range subsections(rows) {
		index = append(index, generic.IntegerObject(sub.start), generic.IntegerObject(len(sub.rows)))
		for _, row := range sub.rows {
			typ, f2, f3 := byte(1), uint32(row.offset), uint16(row.key.Generation)
			if row.free {
				typ, f2 = 0, 0
			}
			data.WriteByte(typ)
			binary.Write(&data, binary.BigEndian, f2)
			binary.Write(&data, binary.BigEndian, f3)
		}
	}

	encoded, err := filters.FlateEncode(data.Bytes())
	if err != nil {
		return err
	}
	dict := generic.NewDictionary()
	dict.Set("Type", generic.NameObject("XRef"))
	w.populateTrailer(dict)
	dict.Set("W", generic.ArrayObject{generic.IntegerObject(1), generic.IntegerObject(4), generic.IntegerObject(2)})
	dict.Set("Index", index)
	dict.Set("Filter", generic.NameObject("FlateDecode"))

	obj := generic.NewIndirectObject(streamNum, 0, generic.NewStream(dict, encoded))
	if err := obj.Write(buf); err != nil {
		return err
	}
	fmt.Fprintf(buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	return nil
}
