package builder

import (
	"fmt"

	"github.com/pretreedb/pretree/internal/compress"
	"github.com/pretreedb/pretree/internal/encoding"
	"github.com/pretreedb/pretree/internal/table"
)

// MemBackend builds the database in memory. Rows live in a MemTable and
// sizes are written directly into the target row, with no temporary file
// and no second pass. Side payloads use the same token layout and
// inline/compression rules as the disk streams.
type MemBackend struct {
	meta  *Meta
	codec compress.Type

	tbl *table.MemTable
	txt []byte
	atv []byte
}

// NewMemBackend returns a memory back-end for meta.
func NewMemBackend(meta *Meta, codec compress.Type) *MemBackend {
	meta.Codec = codec
	return &MemBackend{
		meta:  meta,
		codec: codec,
		tbl:   table.NewMemTable(),
	}
}

// Table returns the in-memory row table.
func (m *MemBackend) Table() *table.MemTable {
	return m.tbl
}

func (m *MemBackend) textOff(value []byte, isText bool) (uint64, error) {
	if v := table.ToSimpleInt(value); v != table.IntSentinel {
		return table.InlineRef(v), nil
	}
	pack, compressed := PackToken(m.codec, value)
	buf := &m.atv
	if isText {
		buf = &m.txt
	}
	off := uint64(len(*buf))
	if off >= table.OffComp {
		return 0, ErrLimitRange
	}
	*buf = encoding.AppendToken(*buf, pack)
	if compressed {
		off |= table.OffComp
	}
	return off, nil
}

// AddDoc implements Backend.
func (m *MemBackend) AddDoc(name []byte) error {
	ref, err := m.textOff(name, true)
	if err != nil {
		return err
	}
	m.tbl.Append(table.DocRow(ref, uint32(m.meta.Size)))
	return nil
}

// AddElem implements Backend.
func (m *MemBackend) AddElem(dist uint32, nameID, asize, uriID int, nsFlag bool) error {
	m.tbl.Append(table.ElemRow(asize, nameID, nsFlag, uriID, dist, uint32(m.meta.Size)))
	return nil
}

// AddAttr implements Backend.
func (m *MemBackend) AddAttr(nameID int, value []byte, dist int, uriID int) error {
	ref, err := m.textOff(value, false)
	if err != nil {
		return err
	}
	m.tbl.Append(table.AttrRow(dist, nameID, ref, uriID, uint32(m.meta.Size)))
	return nil
}

// AddText implements Backend.
func (m *MemBackend) AddText(value []byte, dist uint32, kind table.Kind) error {
	ref, err := m.textOff(value, true)
	if err != nil {
		return err
	}
	m.tbl.Append(table.TextRow(kind, ref, dist, uint32(m.meta.Size)))
	return nil
}

// SetSize implements Backend: updates the row in place.
func (m *MemBackend) SetSize(pre int, size uint32) error {
	m.tbl.Write4(pre, table.SizeOffset, size)
	return nil
}

// Close implements Backend.
func (m *MemBackend) Close() error {
	m.meta.LastID = m.meta.Size - 1
	return nil
}

// Abort implements Backend: drops the in-memory state.
func (m *MemBackend) Abort() {
	m.tbl = table.NewMemTable()
	m.txt, m.atv = nil, nil
}

// Token resolves a text or attribute-value reference produced by this
// back-end: inlined integers are formatted, compressed tokens unpacked.
func (m *MemBackend) Token(ref uint64, isText bool) ([]byte, error) {
	if table.IsInline(ref) {
		return []byte(fmt.Sprintf("%d", table.InlineValue(ref))), nil
	}
	buf := m.atv
	if isText {
		buf = m.txt
	}
	off := table.RefOffset(ref)
	if off > uint64(len(buf)) {
		return nil, fmt.Errorf("builder: token offset %d out of range", off)
	}
	token, _, err := encoding.DecodeToken(buf[off:])
	if err != nil {
		return nil, err
	}
	if table.IsCompressed(ref) {
		return UnpackToken(m.codec, token)
	}
	return append([]byte(nil), token...), nil
}
