package writer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/pari-ranasaria28/Document-Signature-App/pdf/filters"
	"github.com/pari-ranasaria28/Document-Signature-App/pdf/generic"
)

// PdfFileWriter creates new PDF files.
type PdfFileWriter struct {
	Version    string
	Objects    map[int]*generic.IndirectObject
	nextObjNum int
	Root       *generic.DictionaryObject
	Info       *generic.DictionaryObject
	Pages      *generic.DictionaryObject
	pagesRef   generic.Reference
	rootRef    generic.Reference
	infoRef    generic.Reference
	pageCount  int

	// XRefStream writes the cross-reference section as a stream object
	// instead of a classic table.
	XRefStream bool
}

// PageOptions holds optional page attributes.
type PageOptions struct {
	CropBox   *generic.Rectangle
	Rotate    int
	Resources *generic.DictionaryObject
}

// NewPdfFileWriter creates a new PDF writer.
func NewPdfFileWriter(version string) *PdfFileWriter {
	if version == "" {
		version = "1.7"
	}

	w := &PdfFileWriter{
		Version:    version,
		Objects:    make(map[int]*generic.IndirectObject),
		nextObjNum: 1,
	}

	w.Root = generic.NewDictionary()
	w.Root.Set("Type", generic.NameObject("Catalog"))

	w.Pages = generic.NewDictionary()
	w.Pages.Set("Type", generic.NameObject("Pages"))
	w.Pages.Set("Kids", generic.ArrayObject{})
	w.Pages.Set("Count", generic.IntegerObject(0))
	w.pagesRef = w.AddObject(w.Pages)
	w.Root.Set("Pages", w.pagesRef)

	w.Info = generic.NewDictionary()
	w.Info.Set("Producer", generic.NewTextString("docsign"))
	w.Info.Set("CreationDate", generic.NewTextString(formatPdfDate(time.Now())))

	return w
}

// AddObject adds an object and returns its reference.
func (w *PdfFileWriter) AddObject(obj generic.PdfObject) generic.Reference {
	objNum := w.nextObjNum
	w.nextObjNum++

	w.Objects[objNum] = generic.NewIndirectObject(objNum, 0, obj)
	return generic.Reference{ObjectNumber: objNum}
}

// AddPage adds a page with an optional content stream.
func (w *PdfFileWriter) AddPage(mediaBox *generic.Rectangle, contents []byte) (generic.Reference, error) {
	return w.AddPageWithOptions(mediaBox, contents, PageOptions{})
}

// AddPageWithOptions adds a page with the given attributes.
func (w *PdfFileWriter) AddPageWithOptions(mediaBox *generic.Rectangle, contents []byte, opts PageOptions) (generic.Reference, error) {
	page := generic.NewDictionary()
	page.Set("Type", generic.NameObject("Page"))
	page.Set("Parent", w.pagesRef)
	page.Set("MediaBox", mediaBox.ToArray())
	if opts.CropBox != nil {
		page.Set("CropBox", opts.CropBox.ToArray())
	}
	if opts.Rotate != 0 {
		page.Set("Rotate", generic.IntegerObject(opts.Rotate))
	}
	if opts.Resources != nil {
		page.Set("Resources", opts.Resources)
	}

	if contents != nil {
		encoded, err := filters.FlateEncode(contents)
		if err != nil {
			return generic.Reference{}, err
		}
		stream := generic.NewStream(nil, encoded)
		stream.Dictionary.Set("Filter", generic.NameObject("FlateDecode"))
		page.Set("Contents", w.AddObject(stream))
	}

	pageRef := w.AddObject(page)
	w.pageCount++
	w.Pages.Set("Kids", append(w.Pages.GetArray("Kids"), pageRef))
	w.Pages.Set("Count", generic.IntegerObject(w.pageCount))
	return pageRef, nil
}

// Write writes the PDF to the given writer.
func (w *PdfFileWriter) Write(out io.Writer) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%%PDF-%s\n", w.Version)
	buf.Write([]byte{0x25, 0xE2, 0xE3, 0xCF, 0xD3, 0x0A})

	if w.rootRef.ObjectNumber == 0 {
		w.rootRef = w.AddObject(w.Root)
		w.infoRef = w.AddObject(w.Info)
	}

	offsets := make([]int64, w.nextObjNum)
	for objNum := 1; objNum < w.nextObjNum; objNum++ {
		obj := w.Objects[objNum]
		if obj == nil {
			continue
		}
		offsets[objNum] = int64(buf.Len())
		if err := obj.Write(&buf); err != nil {
			return err
		}
		buf.WriteByte('\n')
	}

	// The file identifier is a digest of the body, so identical documents
	// get identical identifiers.
	sum := blake2b.Sum256(buf.Bytes())
	fileID := sum[:16]

	trailer := generic.NewDictionary()
	trailer.Set("Root", w.rootRef)
	trailer.Set("Info", w.infoRef)
	trailer.Set("ID", generic.ArrayObject{generic.NewHexString(fileID), generic.NewHexString(fileID)})

	xrefOffset := int64(buf.Len())
	if w.XRefStream {
		offsets = append(offsets, xrefOffset)
		var data bytes.Buffer
		for objNum, off := range offsets {
			typ, gen := byte(1), uint16(0)
			if objNum == 0 {
				typ, gen = 0, 65535
			}
			data.WriteByte(typ)
			binary.Write(&data, binary.BigEndian, uint32(off))
			binary.Write(&data, binary.BigEndian, gen)
		}
		encoded, err := filters.FlateEncode(data.Bytes())
		if err != nil {
			return err
		}
		trailer.Set("Type", generic.NameObject("XRef"))
		trailer.Set("Size", generic.IntegerObject(len(offsets)))
		trailer.Set("W", generic.ArrayObject{generic.IntegerObject(1), generic.IntegerObject(4), generic.IntegerObject(2)})
		trailer.Set("Filter", generic.NameObject("FlateDecode"))
		if err := generic.NewIndirectObject(len(offsets)-1, 0, generic.NewStream(trailer, encoded)).Write(&buf); err != nil {
			return err
		}
		buf.WriteByte('\n')
	} else {
		fmt.Fprintf(&buf, "xref\n0 %d\n", w.nextObjNum)
		buf.WriteString("0000000000 65535 f \n")
		for objNum := 1; objNum < w.nextObjNum; objNum++ {
			fmt.Fprintf(&buf, "%010d %05d n \n", offsets[objNum], 0)
		}
		trailer.Set("Size", generic.IntegerObject(w.nextObjNum))
		buf.WriteString("trailer\n")
		if err := trailer.Write(&buf); err != nil {
			return err
		}
		buf.WriteByte('\n')
	}
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)

	_, err := out.Write(buf.Bytes())
	return err
}

// Bytes renders the document into memory.
func (w *PdfFileWriter) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// formatPdfDate formats a time as a PDF date string.
func formatPdfDate(t time.Time) string {
	_, offset := t.Zone()
	offsetHours := offset / 3600
	offsetMinutes := (offset % 3600) / 60

	sign := "+"
	if offset < 0 {
		sign = "-"
		offsetHours = -offsetHours
		offsetMinutes = -offsetMinutes
	}

	return fmt.Sprintf("D:%04d%02d%02d%02d%02d%02d%s%02d'%02d'",
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
		sign, offsetHours, offsetMinutes)
}
