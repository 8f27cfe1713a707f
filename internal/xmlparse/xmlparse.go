// Package xmlparse drives a build from serialized XML.
//
// The parser walks raw tokens, so prefixes survive untouched and
// namespace declarations reach the builder as declarations rather than
// resolved names. One Parser delivers one document.
package xmlparse

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/pretreedb/pretree/internal/builder"
)

// Parser feeds the events of one XML document into a builder.
type Parser struct {
	name string
	size int64
	dec  *xml.Decoder

	// Progress state, readable from other goroutines.
	offset atomic.Int64
	line   atomic.Int64
}

// New returns a parser reading the document from r. name becomes the
// document name in the database.
func New(r io.Reader, name string) *Parser {
	return &Parser{name: name, dec: xml.NewDecoder(r)}
}

// NewSized is New with a known input size, which lets the disk back-end
// size its stream buffers and the progress view report a fraction.
func NewSized(r io.Reader, name string, size int64) *Parser {
	p := New(r, name)
	p.size = size
	return p
}

// Len implements builder.Sized.
func (p *Parser) Len() int64 {
	return p.size
}

// Detail implements builder.Parser.
func (p *Parser) Detail() string {
	return fmt.Sprintf("%s: line %d", p.name, p.line.Load())
}

// Progress implements builder.Parser.
func (p *Parser) Progress() float64 {
	if p.size <= 0 {
		return -1
	}
	f := float64(p.offset.Load()) / float64(p.size)
	if f > 1 {
		f = 1
	}
	return f
}

// Parse implements builder.Parser.
func (p *Parser) Parse(e builder.Events) error {
	if err := e.OpenDoc([]byte(p.name)); err != nil {
		return err
	}

	// Raw tokens are not checked for well-formedness by the decoder, so
	// tag matching is enforced here.
	var open [][]byte
	for {
		tok, err := p.dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("xmlparse: %w", err)
		}
		p.offset.Store(p.dec.InputOffset())
		line, _ := p.dec.InputPos()
		p.line.Store(int64(line))

		switch t := tok.(type) {
		case xml.StartElement:
			name := qname(t.Name)
			atts, nsps := splitAttrs(t.Attr)
			if err := e.OpenElem(name, atts, nsps); err != nil {
				return err
			}
			open = append(open, name)

		case xml.EndElement:
			name := qname(t.Name)
			if len(open) == 0 {
				return fmt.Errorf("xmlparse: unexpected closing tag %q", name)
			}
			if want := open[len(open)-1]; !bytes.Equal(want, name) {
				return fmt.Errorf("xmlparse: closing tag %q does not match %q", name, want)
			}
			open = open[:len(open)-1]
			if err := e.CloseElem(); err != nil {
				return err
			}

		case xml.CharData:
			// Whitespace outside the root element is markup spacing,
			// not document content.
			if len(open) == 0 && len(bytes.TrimSpace(t)) == 0 {
				continue
			}
			if err := e.Text(t); err != nil {
				return err
			}

		case xml.Comment:
			if err := e.Comment(t); err != nil {
				return err
			}

		case xml.ProcInst:
			// The XML declaration is not a document node.
			if t.Target == "xml" {
				continue
			}
			value := append([]byte(t.Target), ' ')
			value = append(value, t.Inst...)
			if err := e.PI(value); err != nil {
				return err
			}

		case xml.Directive:
			// DOCTYPE and friends carry no tree content.
		}
	}
	if len(open) != 0 {
		return fmt.Errorf("xmlparse: input ended inside %q", open[len(open)-1])
	}
	return e.CloseDoc()
}

// qname rebuilds the prefixed name of a raw token.
func qname(n xml.Name) []byte {
	if n.Space == "" {
		return []byte(n.Local)
	}
	out := make([]byte, 0, len(n.Space)+1+len(n.Local))
	out = append(out, n.Space...)
	out = append(out, ':')
	return append(out, n.Local...)
}

// splitAttrs separates namespace declarations from ordinary attributes.
// In raw tokens, xmlns="u" arrives as local name "xmlns" and xmlns:p="u"
// as space "xmlns".
func splitAttrs(in []xml.Attr) ([]builder.Attr, []builder.Binding) {
	var atts []builder.Attr
	var nsps []builder.Binding
	for _, a := range in {
		switch {
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			nsps = append(nsps, builder.Binding{URI: []byte(a.Value)})
		case a.Name.Space == "xmlns":
			nsps = append(nsps, builder.Binding{
				Prefix: []byte(a.Name.Local),
				URI:    []byte(a.Value),
			})
		default:
			atts = append(atts, builder.Attr{
				Name:  qname(a.Name),
				Value: []byte(a.Value),
			})
		}
	}
	return atts, nsps
}
