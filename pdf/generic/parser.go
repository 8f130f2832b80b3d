package generic

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Common errors
var (
	ErrInvalidObject     = errors.New("invalid PDF object")
	ErrInvalidStream     = errors.New("invalid PDF stream")
	ErrInvalidDictionary = errors.New("invalid PDF dictionary")
	ErrInvalidArray      = errors.New("invalid PDF array")
	ErrInvalidString     = errors.New("invalid PDF string")
	ErrInvalidName       = errors.New("invalid PDF name")
	ErrInvalidNumber     = errors.New("invalid PDF number")
)

// maxNesting bounds array and dictionary nesting so that hostile input
// cannot exhaust the stack.
const maxNesting = 256

// Parser parses PDF objects from an in-memory byte slice.
type Parser struct {
	data  []byte
	pos   int
	depth int

	// ResolveLength resolves an indirect /Length entry of a stream. When it
	// is nil or fails, the parser scans for the endstream keyword.
	ResolveLength func(ref Reference) (int64, bool)
}

// NewParserFromBytes creates a parser over data.
func NewParserFromBytes(data []byte) *Parser {
	return &Parser{data: data}
}

// Pos returns the current offset into the data.
func (p *Parser) Pos() int { return p.pos }

func (p *Parser) readByte() (byte, error) {
	if p.pos >= len(p.data) {
		return 0, io.EOF
	}
	b := p.data[p.pos]
	p.pos++
	return b, nil
}

func (p *Parser) peekByte() (byte, error) {
	if p.pos >= len(p.data) {
		return 0, io.EOF
	}
	return p.data[p.pos], nil
}

// skipWhitespace skips whitespace and comments.
func (p *Parser) skipWhitespace() {
	for p.pos < len(p.data) {
		b := p.data[p.pos]
		switch {
		case isWhitespace(b):
			p.pos++
		case b == '%':
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
		default:
			return
		}
	}
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == 0 || b == '\f'
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// readToken reads a run of regular characters.
func (p *Parser) readToken() string {
	p.skipWhitespace()
	start := p.pos
	for p.pos < len(p.data) && !isWhitespace(p.data[p.pos]) && !isDelimiter(p.data[p.pos]) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// Token reads the next run of regular characters, such as a keyword or an
// unparsed number.
func (p *Parser) Token() string {
	return p.readToken()
}

// ParseObject parses a direct object. Numbers are never combined into
// references; use ParseObjectOrReference for that.
func (p *Parser) ParseObject() (PdfObject, error) {
	p.skipWhitespace()
	b, err := p.peekByte()
	if err != nil {
		return nil, fmt.Errorf("%w: unexpected end of data", ErrInvalidObject)
	}

	switch {
	case b == '(':
		return p.parseString()
	case b == '<':
		if p.pos+1 < len(p.data) && p.data[p.pos+1] == '<' {
			p.pos += 2
			return p.parseDictionary()
		}
		p.pos++
		return p.parseHexString()
	case b == '[':
		p.pos++
		return p.parseArray()
	case b == '/':
		return p.parseName()
	case b == '-' || b == '+' || b == '.' || (b >= '0' && b <= '9'):
		return p.parseNumber()
	}

	switch tok := p.readToken(); tok {
	case "true":
		return BooleanObject(true), nil
	case "false":
		return BooleanObject(false), nil
	case "null":
		return NullObject{}, nil
	case "":
		return nil, fmt.Errorf("%w: unexpected character %q at offset %d", ErrInvalidObject, b, p.pos)
	default:
		return nil, fmt.Errorf("%w: unexpected keyword %q", ErrInvalidObject, tok)
	}
}

func (p *Parser) parseString() (*StringObject, error) {
	p.pos++ // (
	var buf bytes.Buffer
	depth := 1
	for {
		b, err := p.readByte()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated string", ErrInvalidString)
		}
		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				return &StringObject{Value: buf.Bytes()}, nil
			}
			buf.WriteByte(b)
		case '\\':
			p.parseEscape(&buf)
		default:
			buf.WriteByte(b)
		}
	}
}

func (p *Parser) parseEscape(buf *bytes.Buffer) {
	e, err := p.readByte()
	if err != nil {
		return
	}
	switch e {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '\r':
		if next, err := p.peekByte(); err == nil && next == '\n' {
			p.pos++
		}
	case '\n':
	default:
		if e < '0' || e > '7' {
			buf.WriteByte(e)
			return
		}
		val := int(e - '0')
		for i := 0; i < 2; i++ {
			next, err := p.peekByte()
			if err != nil || next < '0' || next > '7' {
				break
			}
			p.pos++
			val = val*8 + int(next-'0')
		}
		buf.WriteByte(byte(val))
	}
}

func (p *Parser) parseHexString() (*StringObject, error) {
	var digits []byte
	for {
		b, err := p.readByte()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated hex string", ErrInvalidString)
		}
		if b == '>' {
			break
		}
		if !isWhitespace(b) {
			digits = append(digits, b)
		}
	}
	if len(digits)%2 != 0 {
		digits = append(digits, '0')
	}
	data := make([]byte, len(digits)/2)
	if _, err := hex.Decode(data, digits); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidString, err)
	}
	return &StringObject{Value: data, IsHex: true}, nil
}

func (p *Parser) enter() error {
	p.depth++
	if p.depth > maxNesting {
		return fmt.Errorf("%w: nesting too deep", ErrInvalidObject)
	}
	return nil
}

// parseDictionary parses dictionary entries after the opening <<.
func (p *Parser) parseDictionary() (*DictionaryObject, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	dict := NewDictionary()
	for {
		p.skipWhitespace()
		b, err := p.peekByte()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated dictionary", ErrInvalidDictionary)
		}
		if b == '>' {
			if p.pos+1 >= len(p.data) || p.data[p.pos+1] != '>' {
				return nil, fmt.Errorf("%w: expected '>>'", ErrInvalidDictionary)
			}
			p.pos += 2
			return dict, nil
		}
		key, err := p.parseName()
		if err != nil {
			return nil, fmt.Errorf("%w: key: %v", ErrInvalidDictionary, err)
		}
		value, err := p.ParseObjectOrReference()
		if err != nil {
			return nil, fmt.Errorf("%w: value for /%s: %v", ErrInvalidDictionary, key, err)
		}
		if _, isNull := value.(NullObject); !isNull {
			dict.Set(string(key), value)
		}
	}
}

// parseArray parses array elements after the opening bracket.
func (p *Parser) parseArray() (ArrayObject, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	arr := ArrayObject{}
	for {
		p.skipWhitespace()
		b, err := p.peekByte()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated array", ErrInvalidArray)
		}
		if b == ']' {
			p.pos++
			return arr, nil
		}
		obj, err := p.ParseObjectOrReference()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArray, err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseName() (NameObject, error) {
	p.skipWhitespace()
	if b, err := p.readByte(); err != nil || b != '/' {
		return "", ErrInvalidName
	}
	var buf bytes.Buffer
	for p.pos < len(p.data) {
		b := p.data[p.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		p.pos++
		if b == '#' && p.pos+1 < len(p.data) {
			if v, err := strconv.ParseUint(string(p.data[p.pos:p.pos+2]), 16, 8); err == nil {
				buf.WriteByte(byte(v))
				p.pos += 2
				continue
			}
		}
		buf.WriteByte(b)
	}
	return NameObject(buf.String()), nil
}

func (p *Parser) parseNumber() (PdfObject, error) {
	start := p.pos
	if b := p.data[p.pos]; b == '-' || b == '+' {
		p.pos++
	}
	real := false
	for p.pos < len(p.data) {
		b := p.data[p.pos]
		if b == '.' && !real {
			real = true
		} else if b < '0' || b > '9' {
			break
		}
		p.pos++
	}
	tok := string(p.data[start:p.pos])
	if real {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, tok)
		}
		return RealObject(v), nil
	}
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, tok)
	}
	return IntegerObject(v), nil
}

// ParseObjectOrReference parses an object, recognising "n g R" as a
// reference.
func (p *Parser) ParseObjectOrReference() (PdfObject, error) {
	obj, err := p.ParseObject()
	if err != nil {
		return nil, err
	}
	objNum, ok := obj.(IntegerObject)
	if !ok || objNum < 0 {
		return obj, nil
	}

	afterFirst := p.pos
	p.skipWhitespace()
	if b, err := p.peekByte(); err != nil || b < '0' || b > '9' {
		p.pos = afterFirst
		return obj, nil
	}
	gen, err := p.parseNumber()
	genNum, isInt := gen.(IntegerObject)
	if err != nil || !isInt {
		p.pos = afterFirst
		return obj, nil
	}
	p.skipWhitespace()
	if p.pos < len(p.data) && p.data[p.pos] == 'R' &&
		(p.pos+1 == len(p.data) || isWhitespace(p.data[p.pos+1]) || isDelimiter(p.data[p.pos+1])) {
		p.pos++
		return Reference{ObjectNumber: int(objNum), GenerationNumber: int(genNum)}, nil
	}
	p.pos = afterFirst
	return obj, nil
}

// ParseIndirectObject parses "n g obj ... endobj", including stream data.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	p.skipWhitespace()
	numObj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("%w: object number: %v", ErrInvalidObject, err)
	}
	genObj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("%w: generation number: %v", ErrInvalidObject, err)
	}
	objNum, ok1 := numObj.(IntegerObject)
	genNum, ok2 := genObj.(IntegerObject)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: object header is not numeric", ErrInvalidObject)
	}
	if tok := p.readToken(); tok != "obj" {
		return nil, fmt.Errorf("%w: expected 'obj', got %q", ErrInvalidObject, tok)
	}

	obj, err := p.ParseObjectOrReference()
	if err != nil {
		return nil, err
	}

	if dict, ok := obj.(*DictionaryObject); ok {
		save := p.pos
		if p.readToken() == "stream" {
			stream, err := p.parseStreamBody(dict)
			if err != nil {
				return nil, err
			}
			obj = stream
		} else {
			p.pos = save
		}
	}

	// Some writers omit endobj; tolerate it.
	save := p.pos
	if p.readToken() != "endobj" {
		p.pos = save
	}
	return NewIndirectObject(int(objNum), int(genNum), obj), nil
}

// parseStreamBody reads stream data after the stream keyword.
func (p *Parser) parseStreamBody(dict *DictionaryObject) (*StreamObject, error) {
	if p.pos < len(p.data) && p.data[p.pos] == '\r' {
		p.pos++
	}
	if p.pos < len(p.data) && p.data[p.pos] == '\n' {
		p.pos++
	}
	start := p.pos

	length := int64(-1)
	switch l := dict.Get("Length").(type) {
	case IntegerObject:
		length = int64(l)
	case Reference:
		if p.ResolveLength != nil {
			if v, ok := p.ResolveLength(l); ok {
				length = v
			}
		}
	}

	end := -1
	if length >= 0 && int64(start)+length <= int64(len(p.data)) {
		end = start + int(length)
		rest := p.data[end:]
		trimmed := bytes.TrimLeft(rest, " \t\r\n\f\x00")
		if !bytes.HasPrefix(trimmed, []byte("endstream")) {
			end = -1
		}
	}
	if end < 0 {
		idx := bytes.Index(p.data[start:], []byte("endstream"))
		if idx < 0 {
			return nil, fmt.Errorf("%w: missing endstream", ErrInvalidStream)
		}
		end = start + idx
		for end > start && (p.data[end-1] == '\n' || p.data[end-1] == '\r') {
			end--
		}
	}

	data := make([]byte, end-start)
	copy(data, p.data[start:end])
	p.pos = end
	if tok := p.readToken(); tok != "endstream" {
		return nil, fmt.Errorf("%w: expected 'endstream', got %q", ErrInvalidStream, tok)
	}
	return &StreamObject{Dictionary: dict, Data: data}, nil
}
