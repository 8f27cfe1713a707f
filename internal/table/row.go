// Package table defines the fixed-width row format of the node table and
// provides in-memory and on-disk access to it.
//
// Every node occupies exactly 16 bytes. Rows are stored in document order
// (preorder); a node's position in the table is its pre value. All fields
// are big-endian. Layout by node kind:
//
//	DOC:            0: kind, 3-7: text ref, 8-11: size, 12-15: id
//	ELEM:           0: asize<<3|kind, 1-2: nsflag<<15|name id, 3: uri id,
//	                4-7: dist, 8-11: size, 12-15: id
//	TEXT/COMM/PI:   0: kind, 3-7: text ref, 8-11: dist, 12-15: id
//	ATTR:           0: dist<<3|kind, 1-2: name id, 3-7: value ref,
//	                8-11: uri id, 12-15: id
//
// The size field of DOC and ELEM rows is written after the subtree has been
// traversed; SizeOffset below is the position the patch pass writes to.
// ELEM rows are created with size initialized to asize, so an element whose
// size is never patched (an empty element with an unsaturated attribute
// count) already carries its correct subtree size.
package table

import "github.com/pretreedb/pretree/internal/encoding"

// Kind identifies the node kind stored in a row.
type Kind uint8

const (
	// Doc is a document node.
	Doc Kind = 0
	// Elem is an element node.
	Elem Kind = 1
	// Text is a text node.
	Text Kind = 2
	// Attr is an attribute node.
	Attr Kind = 3
	// Comm is a comment node.
	Comm Kind = 4
	// PI is a processing instruction node.
	PI Kind = 5
)

// String returns the conventional name of the kind.
func (k Kind) String() string {
	switch k {
	case Doc:
		return "DOC"
	case Elem:
		return "ELEM"
	case Text:
		return "TEXT"
	case Attr:
		return "ATTR"
	case Comm:
		return "COMM"
	case PI:
		return "PI"
	default:
		return "?"
	}
}

const (
	// RowSize is the fixed size of a table row in bytes.
	RowSize = 16

	// MaxAtts is the widest value the 5-bit asize/dist fields can hold.
	// Elements with more attributes saturate the field; their size is
	// patched explicitly instead of being derived from asize.
	MaxAtts = 0x1F

	// SizeOffset is the byte offset of the size field within a DOC or
	// ELEM row. The patch pass writes a fixed32 here.
	SizeOffset = 8

	// OffNum flags a text reference holding an inlined integer instead
	// of a side-file offset.
	OffNum = uint64(1) << 39

	// OffComp flags a side-file offset whose stored token is compressed.
	OffComp = uint64(1) << 38
)

// Row is one 16-byte table entry.
type Row [RowSize]byte

// DocRow builds a document row. ref points at the document name token,
// id is the node's pre value. The size field starts at zero and is patched
// when the document closes.
func DocRow(ref uint64, id uint32) Row {
	var r Row
	encoding.EncodeFixed40(r[3:8], ref)
	encoding.EncodeFixed32(r[12:16], id)
	return r
}

// ElemRow builds an element row. The caller saturates asize at MaxAtts;
// size is initialized to asize.
func ElemRow(asize int, nameID int, nsFlag bool, uriID int, dist uint32, id uint32) Row {
	var r Row
	r[0] = byte(asize)<<3 | byte(Elem)
	name := uint16(nameID)
	if nsFlag {
		name |= 1 << 15
	}
	encoding.EncodeFixed16(r[1:3], name)
	r[3] = byte(uriID)
	encoding.EncodeFixed32(r[4:8], dist)
	encoding.EncodeFixed32(r[8:12], uint32(asize))
	encoding.EncodeFixed32(r[12:16], id)
	return r
}

// TextRow builds a text, comment or processing instruction row.
func TextRow(kind Kind, ref uint64, dist uint32, id uint32) Row {
	var r Row
	r[0] = byte(kind)
	encoding.EncodeFixed40(r[3:8], ref)
	encoding.EncodeFixed32(r[8:12], dist)
	encoding.EncodeFixed32(r[12:16], id)
	return r
}

// AttrRow builds an attribute row. dist is the offset from the owning
// element, in [1, MaxAtts].
func AttrRow(dist int, nameID int, ref uint64, uriID int, id uint32) Row {
	var r Row
	r[0] = byte(dist)<<3 | byte(Attr)
	encoding.EncodeFixed16(r[1:3], uint16(nameID))
	encoding.EncodeFixed40(r[3:8], ref)
	encoding.EncodeFixed32(r[8:12], uint32(uriID))
	encoding.EncodeFixed32(r[12:16], id)
	return r
}

// Kind returns the node kind of the row.
func (r *Row) Kind() Kind {
	return Kind(r[0] & 0x07)
}

// ASize returns the attribute size of an element row: the number of
// attribute rows plus one, saturated at MaxAtts.
func (r *Row) ASize() int {
	return int(r[0] >> 3)
}

// NameID returns the name id of an element or attribute row.
func (r *Row) NameID() int {
	return int(encoding.DecodeFixed16(r[1:3]) & 0x7FFF)
}

// NSFlag reports whether an element row introduces namespace bindings.
func (r *Row) NSFlag() bool {
	return encoding.DecodeFixed16(r[1:3])&0x8000 != 0
}

// URIID returns the namespace uri id of an element or attribute row.
func (r *Row) URIID() int {
	if r.Kind() == Attr {
		return int(encoding.DecodeFixed32(r[8:12]))
	}
	return int(r[3])
}

// Ref returns the 40-bit text or value reference of a row that has one
// (DOC, TEXT, COMM, PI, ATTR).
func (r *Row) Ref() uint64 {
	return encoding.DecodeFixed40(r[3:8])
}

// Dist returns the preorder distance to the parent node.
func (r *Row) Dist() uint32 {
	switch r.Kind() {
	case Elem:
		return encoding.DecodeFixed32(r[4:8])
	case Attr:
		return uint32(r[0] >> 3)
	case Doc:
		return 0
	default:
		return encoding.DecodeFixed32(r[8:12])
	}
}

// Size returns the subtree size of a DOC or ELEM row. Leaf kinds have an
// implicit size of one.
func (r *Row) Size() uint32 {
	switch r.Kind() {
	case Doc, Elem:
		return encoding.DecodeFixed32(r[8:12])
	default:
		return 1
	}
}

// ID returns the node id (equal to pre for freshly built databases).
func (r *Row) ID() uint32 {
	return encoding.DecodeFixed32(r[12:16])
}

// SetSize overwrites the size field of a DOC or ELEM row.
func (r *Row) SetSize(size uint32) {
	encoding.EncodeFixed32(r[SizeOffset:SizeOffset+4], size)
}
