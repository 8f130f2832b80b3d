// Package reader provides PDF file reading and parsing.
package reader

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/pari-ranasaria28/Document-Signature-App/pdf/filters"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/generic"
)

// Common errors
var (
	ErrInvalidPDF     = errors.New("invalid PDF file")
	ErrNoXRef         = errors.New("no xref found")
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidXRef    = errors.New("invalid xref")
	ErrPageOutOfRange = errors.New("page index out of range")
)

// maxPageTreeDepth bounds the page tree walk.
const maxPageTreeDepth = 64

// XRefEntry is an entry in the cross-reference table.
type XRefEntry struct {
	Offset     int64
	Generation int
	InUse      bool

	// Set for objects stored inside an object stream.
	ObjectStreamRef int
	IndexInStream   int
}

// Page is a leaf of the page tree with its inheritable attributes resolved.
type Page struct {
	Ref       generic.Reference
	Dict      *generic.DictionaryObject
	MediaBox  *generic.Rectangle
	CropBox   *generic.Rectangle
	Rotate    int
	Resources *generic.DictionaryObject
}

// Box returns the visible page area: the crop box clipped to the media box.
func (p *Page) Box() *generic.Rectangle {
	if p.CropBox != nil {
		if box := p.MediaBox.Intersect(p.CropBox); box != nil {
			return box
		}
	}
	return p.MediaBox
}

// PdfFileReader reads and parses PDF files held in memory. The input slice
// is never modified.
type PdfFileReader struct {
	data    []byte
	Version string
	Trailer *generic.TrailerDictionary
	XRef    map[int]*XRefEntry

	// XRefOffsets lists cross-reference sections, newest first.
	XRefOffsets   []int64
	HasXRefStream bool
	Encrypted     bool

	Root  *generic.DictionaryObject
	Pages []*Page

	objects   map[int]generic.PdfObject
	resolving map[int]bool
}

// NewPdfFileReaderFromBytes parses data. Malformed input is reported as an
// error wrapping ErrInvalidPDF, never as a panic.
func NewPdfFileReaderFromBytes(data []byte) (r *PdfFileReader, err error) {
	r = &PdfFileReader{
		data:      data,
		XRef:      make(map[int]*XRefEntry),
		objects:   make(map[int]generic.PdfObject),
		resolving: make(map[int]bool),
	}
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("%w: %v", ErrInvalidPDF, rec)
		}
	}()

	if err := r.parse(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *PdfFileReader) parse() error {
	if err := r.parseHeader(); err != nil {
		return err
	}
	err := r.findAndParseXRef()
	if err == nil {
		r.Encrypted = r.Trailer.Has("Encrypt")
		if err = r.loadDocumentStructure(); err == nil {
			return nil
		}
	}

	// Damaged cross-reference data: rebuild from the object headers.
	r.XRef = make(map[int]*XRefEntry)
	r.XRefOffsets = nil
	r.HasXRefStream = false
	r.Trailer = nil
	r.Pages = nil
	r.objects = make(map[int]generic.PdfObject)
	if rerr := r.rebuildXRef(); rerr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	r.Encrypted = r.Trailer.Has("Encrypt")
	if rerr := r.loadDocumentStructure(); rerr != nil {
		return rerr
	}
	return nil
}

var headerRegex = regexp.MustCompile(`%PDF-(\d\.\d)`)

func (r *PdfFileReader) parseHeader() error {
	head := r.data[:min(1024, len(r.data))]
	m := headerRegex.FindSubmatch(head)
	if m == nil {
		return fmt.Errorf("%w: missing PDF header", ErrInvalidPDF)
	}
	r.Version = string(m[1])
	return nil
}

func (r *PdfFileReader) findAndParseXRef() error {
	pos := bytes.LastIndex(r.data, []byte("startxref"))
	if pos < 0 {
		return ErrNoXRef
	}
	p := generic.NewParserFromBytes(r.data[pos+len("startxref"):])
	obj, err := p.ParseObject()
	offset, ok := obj.(generic.IntegerObject)
	if err != nil || !ok || offset <= 0 || int64(offset) >= int64(len(r.data)) {
		return fmt.Errorf("%w: bad startxref offset", ErrInvalidXRef)
	}
	return r.parseXRefChain(int64(offset))
}

// parseXRefChain follows /Prev links from the newest section backwards.
// Entries from newer sections win.
func (r *PdfFileReader) parseXRefChain(offset int64) error {
	visited := make(map[int64]bool)
	for offset > 0 {
		if visited[offset] {
			break
		}
		visited[offset] = true
		if offset >= int64(len(r.data)) {
			return fmt.Errorf("%w: xref offset %d out of bounds", ErrInvalidXRef, offset)
		}
		r.XRefOffsets = append(r.XRefOffsets, offset)

		pos := int(offset)
		for pos < len(r.data) && isSpace(r.data[pos]) {
			pos++
		}

		var trailer *generic.TrailerDictionary
		var err error
		if bytes.HasPrefix(r.data[pos:], []byte("xref")) {
			trailer, err = r.parseXRefTable(pos + len("xref"))
			if err == nil {
				if stm, ok := trailer.GetInt("XRefStm"); ok && stm > 0 && stm < int64(len(r.data)) {
					if _, serr := r.parseXRefStream(int(stm)); serr == nil {
						r.HasXRefStream = true
					}
				}
			}
		} else {
			trailer, err = r.parseXRefStream(pos)
			r.HasXRefStream = true
		}
		if err != nil {
			return err
		}
		if r.Trailer == nil {
			r.Trailer = trailer
		}

		prev, ok := trailer.GetPrev()
		if !ok {
			break
		}
		offset = prev
	}
	if r.Trailer == nil {
		return ErrNoXRef
	}
	return nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t' || b == '\f' || b == 0
}

// parseXRefTable parses a classic table starting just after the xref
// keyword and returns the trailer that follows it.
func (r *PdfFileReader) parseXRefTable(pos int) (*generic.TrailerDictionary, error) {
	p := generic.NewParserFromBytes(r.data[pos:])
	for {
		tok := p.Token()
		if tok == "trailer" {
			obj, err := p.ParseObject()
			if err != nil {
				return nil, fmt.Errorf("%w: trailer: %v", ErrInvalidXRef, err)
			}
			dict, ok := obj.(*generic.DictionaryObject)
			if !ok {
				return nil, fmt.Errorf("%w: trailer is not a dictionary", ErrInvalidXRef)
			}
			return &generic.TrailerDictionary{DictionaryObject: dict}, nil
		}

		start, err1 := strconv.Atoi(tok)
		count, err2 := strconv.Atoi(p.Token())
		if err1 != nil || err2 != nil || start < 0 || count < 0 {
			return nil, fmt.Errorf("%w: bad subsection header %q", ErrInvalidXRef, tok)
		}

		for i := 0; i < count; i++ {
			off, err1 := strconv.ParseInt(p.Token(), 10, 64)
			gen, err2 := strconv.Atoi(p.Token())
			kind := p.Token()
			if err1 != nil || err2 != nil || (kind != "n" && kind != "f") {
				return nil, fmt.Errorf("%w: malformed entry in subsection %d", ErrInvalidXRef, start)
			}
			objNum := start + i
			if _, seen := r.XRef[objNum]; seen {
				continue
			}
			r.XRef[objNum] = &XRefEntry{Offset: off, Generation: gen, InUse: kind == "n"}
		}
	}
}

// parseXRefStream parses a cross-reference stream object at pos.
func (r *PdfFileReader) parseXRefStream(pos int) (*generic.TrailerDictionary, error) {
	p := generic.NewParserFromBytes(r.data[pos:])
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("%w: xref stream: %v", ErrInvalidXRef, err)
	}
	stream, ok := ind.Object.(*generic.StreamObject)
	if !ok || stream.Dictionary.GetName("Type") != "XRef" {
		return nil, fmt.Errorf("%w: expected xref stream at %d", ErrInvalidXRef, pos)
	}
	dict := stream.Dictionary

	data, err := r.decodeStream(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: xref stream: %v", ErrInvalidXRef, err)
	}

	wArr := dict.GetArray("W")
	if len(wArr) != 3 {
		return nil, fmt.Errorf("%w: invalid /W", ErrInvalidXRef)
	}
	var w [3]int
	for i, v := range wArr {
		n, ok := v.(generic.IntegerObject)
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("%w: invalid /W", ErrInvalidXRef)
		}
		w[i] = int(n)
	}
	entrySize := w[0] + w[1] + w[2]
	if entrySize == 0 {
		return nil, fmt.Errorf("%w: zero entry size", ErrInvalidXRef)
	}

	var index []int
	if idx := dict.GetArray("Index"); idx != nil {
		for _, v := range idx {
			n, _ := v.(generic.IntegerObject)
			index = append(index, int(n))
		}
	} else if size, ok := dict.GetInt("Size"); ok {
		index = []int{0, int(size)}
	}

	at := 0
	for i := 0; i+1 < len(index); i += 2 {
		for j := 0; j < index[i+1]; j++ {
			if at+entrySize > len(data) {
				break
			}
			entry := parseXRefStreamEntry(data[at:at+entrySize], w)
			at += entrySize
			objNum := index[i] + j
			if _, seen := r.XRef[objNum]; !seen {
				r.XRef[objNum] = entry
			}
		}
	}
	return &generic.TrailerDictionary{DictionaryObject: dict}, nil
}

func parseXRefStreamEntry(data []byte, w [3]int) *XRefEntry {
	field := func(start, n int) int64 {
		var v int64
		for i := 0; i < n; i++ {
			v = v<<8 | int64(data[start+i])
		}
		return v
	}
	typ := int64(1)
	if w[0] > 0 {
		typ = field(0, w[0])
	}
	f2 := field(w[0], w[1])
	f3 := field(w[0]+w[1], w[2])

	switch typ {
	case 1:
		return &XRefEntry{Offset: f2, Generation: int(f3), InUse: true}
	case 2:
		return &XRefEntry{ObjectStreamRef: int(f2), IndexInStream: int(f3), InUse: true}
	default:
		return &XRefEntry{InUse: false}
	}
}

var objHeaderRegex = regexp.MustCompile(`(?m)(\d+)\s+(\d+)\s+obj\b`)

// rebuildXRef scans the file for object headers. Later definitions win,
// matching incremental update semantics.
func (r *PdfFileReader) rebuildXRef() error {
	for _, m := range objHeaderRegex.FindAllSubmatchIndex(r.data, -1) {
		num, err1 := strconv.Atoi(string(r.data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(r.data[m[4]:m[5]]))
		if err1 != nil || err2 != nil {
			continue
		}
		r.XRef[num] = &XRefEntry{Offset: int64(m[0]), Generation: gen, InUse: true}
	}
	if len(r.XRef) == 0 {
		return ErrNoXRef
	}

	if idx := bytes.LastIndex(r.data, []byte("trailer")); idx >= 0 {
		obj, err := generic.NewParserFromBytes(r.data[idx+len("trailer"):]).ParseObject()
		if dict, ok := obj.(*generic.DictionaryObject); err == nil && ok && dict.Has("Root") {
			r.Trailer = &generic.TrailerDictionary{DictionaryObject: dict}
			return nil
		}
	}
	for num := range r.XRef {
		obj, err := r.GetObject(num)
		if err != nil {
			continue
		}
		if dict, ok := obj.(*generic.DictionaryObject); ok && dict.GetName("Type") == "Catalog" {
			trailer := generic.NewDictionary()
			trailer.Set("Root", generic.Reference{ObjectNumber: num, GenerationNumber: r.XRef[num].Generation})
			r.Trailer = &generic.TrailerDictionary{DictionaryObject: trailer}
			return nil
		}
	}
	return fmt.Errorf("%w: no document catalog", ErrInvalidPDF)
}

func (r *PdfFileReader) loadDocumentStructure() error {
	rootRef := r.Trailer.GetRoot()
	if rootRef == nil {
		return fmt.Errorf("%w: missing /Root", ErrInvalidPDF)
	}
	rootObj, err := r.GetObject(rootRef.ObjectNumber)
	if err != nil {
		return fmt.Errorf("%w: loading /Root: %v", ErrInvalidPDF, err)
	}
	root, ok := rootObj.(*generic.DictionaryObject)
	if !ok {
		return fmt.Errorf("%w: /Root is not a dictionary", ErrInvalidPDF)
	}
	r.Root = root

	pagesRef, ok := root.Get("Pages").(generic.Reference)
	if !ok {
		return fmt.Errorf("%w: missing /Pages reference", ErrInvalidPDF)
	}
	if err := r.walkPageTree(pagesRef, inherited{rotate: 0}, make(map[int]bool), 0); err != nil {
		return err
	}
	return nil
}

// inherited carries the attributes a page may take from its ancestors.
type inherited struct {
	mediaBox  *generic.Rectangle
	cropBox   *generic.Rectangle
	rotate    int
	resources *generic.DictionaryObject
}

func (r *PdfFileReader) walkPageTree(ref generic.Reference, inh inherited, visited map[int]bool, depth int) error {
	if depth > maxPageTreeDepth {
		return fmt.Errorf("%w: page tree too deep", ErrInvalidPDF)
	}
	if visited[ref.ObjectNumber] {
		return fmt.Errorf("%w: cycle in page tree at object %d", ErrInvalidPDF, ref.ObjectNumber)
	}
	visited[ref.ObjectNumber] = true

	obj, err := r.GetObject(ref.ObjectNumber)
	if err != nil {
		return fmt.Errorf("%w: page tree node %d: %v", ErrInvalidPDF, ref.ObjectNumber, err)
	}
	node, ok := obj.(*generic.DictionaryObject)
	if !ok {
		return fmt.Errorf("%w: page tree node %d is not a dictionary", ErrInvalidPDF, ref.ObjectNumber)
	}

	if box := r.rectangle(node.Get("MediaBox")); box != nil {
		inh.mediaBox = box
	}
	if box := r.rectangle(node.Get("CropBox")); box != nil {
		inh.cropBox = box
	}
	if rot, ok := r.resolveInt(node.Get("Rotate")); ok {
		inh.rotate = normalizeRotation(int(rot))
	}
	if res := r.ResolveDict(node.Get("Resources")); res != nil {
		inh.resources = res
	}

	kidsObj, _ := r.Resolve(node.Get("Kids"))
	kids, hasKids := kidsObj.(generic.ArrayObject)
	if node.GetName("Type") == "Page" || (!hasKids && node.GetName("Type") != "Pages") {
		mediaBox := inh.mediaBox
		if mediaBox == nil {
			mediaBox = &generic.Rectangle{URX: 612, URY: 792}
		}
		r.Pages = append(r.Pages, &Page{
			Ref:       ref,
			Dict:      node,
			MediaBox:  mediaBox,
			CropBox:   inh.cropBox,
			Rotate:    inh.rotate,
			Resources: inh.resources,
		})
		return nil
	}

	for _, kid := range kids {
		kidRef, ok := kid.(generic.Reference)
		if !ok {
			return fmt.Errorf("%w: page tree kid is not an indirect reference", ErrInvalidPDF)
		}
		if err := r.walkPageTree(kidRef, inh, visited, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func normalizeRotation(rot int) int {
	rot %= 360
	if rot < 0 {
		rot += 360
	}
	if rot%90 != 0 {
		return 0
	}
	return rot
}

func (r *PdfFileReader) rectangle(obj generic.PdfObject) *generic.Rectangle {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil
	}
	arr, ok := resolved.(generic.ArrayObject)
	if !ok {
		return nil
	}
	values := make(generic.ArrayObject, len(arr))
	for i, item := range arr {
		if values[i], err = r.Resolve(item); err != nil {
			return nil
		}
	}
	rect, err := generic.NewRectangle(values)
	if err != nil || rect.Width() <= 0 || rect.Height() <= 0 {
		return nil
	}
	return rect
}

func (r *PdfFileReader) resolveInt(obj generic.PdfObject) (int64, bool) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return 0, false
	}
	n, ok := generic.Number(resolved)
	return int64(n), ok
}

// GetObject retrieves an object by number.
func (r *PdfFileReader) GetObject(objNum int) (generic.PdfObject, error) {
	if obj, ok := r.objects[objNum]; ok {
		return obj, nil
	}
	entry, ok := r.XRef[objNum]
	if !ok || !entry.InUse {
		return nil, fmt.Errorf("%w: object %d", ErrObjectNotFound, objNum)
	}
	if r.resolving[objNum] {
		return nil, fmt.Errorf("%w: object %d refers to itself", ErrInvalidPDF, objNum)
	}
	r.resolving[objNum] = true
	defer delete(r.resolving, objNum)

	var obj generic.PdfObject
	var err error
	if entry.ObjectStreamRef > 0 {
		obj, err = r.getObjectFromStream(entry.ObjectStreamRef, entry.IndexInStream)
	} else {
		obj, err = r.getObjectAtOffset(objNum, entry.Offset)
	}
	if err != nil {
		return nil, err
	}
	r.objects[objNum] = obj
	return obj, nil
}

func (r *PdfFileReader) getObjectAtOffset(objNum int, offset int64) (generic.PdfObject, error) {
	if offset < 0 || offset >= int64(len(r.data)) {
		return nil, fmt.Errorf("%w: object %d offset out of bounds", ErrObjectNotFound, objNum)
	}
	p := generic.NewParserFromBytes(r.data[offset:])
	p.ResolveLength = func(ref generic.Reference) (int64, bool) {
		obj, err := r.GetObject(ref.ObjectNumber)
		if err != nil {
			return 0, false
		}
		n, ok := obj.(generic.IntegerObject)
		return int64(n), ok
	}
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", objNum, err)
	}
	if ind.ObjectNumber != objNum {
		return nil, fmt.Errorf("%w: expected object %d at offset %d, found %d", ErrInvalidXRef, objNum, offset, ind.ObjectNumber)
	}
	if stream, ok := ind.Object.(*generic.StreamObject); ok {
		if decoded, err := r.decodeStream(stream); err == nil {
			stream.Decoded = decoded
		}
	}
	return ind.Object, nil
}

func (r *PdfFileReader) getObjectFromStream(streamNum, index int) (generic.PdfObject, error) {
	obj, err := r.GetObject(streamNum)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*generic.StreamObject)
	if !ok {
		return nil, fmt.Errorf("%w: object stream %d is not a stream", ErrInvalidPDF, streamNum)
	}
	data, err := r.decodeStream(stream)
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", streamNum, err)
	}
	n, _ := stream.Dictionary.GetInt("N")
	first, _ := stream.Dictionary.GetInt("First")
	if index < 0 || int64(index) >= n || first < 0 || first > int64(len(data)) {
		return nil, fmt.Errorf("%w: index %d in object stream %d", ErrObjectNotFound, index, streamNum)
	}

	p := generic.NewParserFromBytes(data[:first])
	var offset int64 = -1
	for i := 0; i <= index; i++ {
		if _, err := p.ParseObject(); err != nil {
			return nil, fmt.Errorf("%w: object stream %d header", ErrInvalidPDF, streamNum)
		}
		off, err := p.ParseObject()
		v, ok := off.(generic.IntegerObject)
		if err != nil || !ok {
			return nil, fmt.Errorf("%w: object stream %d header", ErrInvalidPDF, streamNum)
		}
		offset = int64(v)
	}
	start := first + offset
	if offset < 0 || start >= int64(len(data)) {
		return nil, fmt.Errorf("%w: object stream %d offset", ErrInvalidPDF, streamNum)
	}
	return generic.NewParserFromBytes(data[start:]).ParseObjectOrReference()
}

// decodeStream returns the unfiltered data of stream.
func (r *PdfFileReader) decodeStream(stream *generic.StreamObject) ([]byte, error) {
	if stream.Decoded != nil {
		return stream.Decoded, nil
	}
	filterObj, _ := r.Resolve(stream.Dictionary.Get("Filter"))
	var names []string
	switch f := filterObj.(type) {
	case generic.NameObject:
		names = []string{string(f)}
	case generic.ArrayObject:
		for _, item := range f {
			if name, ok := item.(generic.NameObject); ok {
				names = append(names, string(name))
			}
		}
	}
	if len(names) == 0 {
		return stream.Data, nil
	}

	var params []filters.Params
	parmsObj, _ := r.Resolve(stream.Dictionary.Get("DecodeParms"))
	switch v := parmsObj.(type) {
	case *generic.DictionaryObject:
		params = append(params, r.decodeParams(v))
	case generic.ArrayObject:
		for _, item := range v {
			params = append(params, r.decodeParams(r.ResolveDict(item)))
		}
	}
	return filters.Decode(stream.Data, names, params)
}

func (r *PdfFileReader) decodeParams(d *generic.DictionaryObject) filters.Params {
	if d == nil {
		return filters.Params{}
	}
	get := func(key string) int {
		v, _ := r.resolveInt(d.Get(key))
		return int(v)
	}
	return filters.Params{
		Predictor:        get("Predictor"),
		Colors:           get("Colors"),
		BitsPerComponent: get("BitsPerComponent"),
		Columns:          get("Columns"),
	}
}

// Resolve follows obj if it is a reference.
func (r *PdfFileReader) Resolve(obj generic.PdfObject) (generic.PdfObject, error) {
	if ref, ok := obj.(generic.Reference); ok {
		return r.GetObject(ref.ObjectNumber)
	}
	return obj, nil
}

// ResolveDict resolves obj and returns it when it is a dictionary.
func (r *PdfFileReader) ResolveDict(obj generic.PdfObject) *generic.DictionaryObject {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil
	}
	dict, _ := resolved.(*generic.DictionaryObject)
	return dict
}

// PageCount returns the number of pages.
func (r *PdfFileReader) PageCount() int {
	return len(r.Pages)
}

// Page returns a page by zero-based index.
func (r *PdfFileReader) Page(index int) (*Page, error) {
	if index < 0 || index >= len(r.Pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, index, len(r.Pages))
	}
	return r.Pages[index], nil
}

// Data returns the bytes the reader was created from.
func (r *PdfFileReader) Data() []byte {
	return r.data
}
