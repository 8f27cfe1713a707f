package table

// MemTable is an in-memory node table. The memory back-end appends rows
// during the parse and patches sizes in place, with no second pass.
type MemTable struct {
	rows []Row
}

// NewMemTable returns an empty in-memory table.
func NewMemTable() *MemTable {
	return &MemTable{}
}

// Append adds a row at the next pre position.
func (t *MemTable) Append(r Row) {
	t.rows = append(t.rows, r)
}

// Len returns the number of rows.
func (t *MemTable) Len() int {
	return len(t.rows)
}

// Row returns the row at pre.
func (t *MemTable) Row(pre int) *Row {
	return &t.rows[pre]
}

// Write4 overwrites four bytes within the row at pre.
func (t *MemTable) Write4(pre int, off int, value uint32) {
	r := &t.rows[pre]
	r[off] = byte(value >> 24)
	r[off+1] = byte(value >> 16)
	r[off+2] = byte(value >> 8)
	r[off+3] = byte(value)
}

// Bytes returns the raw table contents, rows concatenated in preorder.
func (t *MemTable) Bytes() []byte {
	out := make([]byte, 0, len(t.rows)*RowSize)
	for i := range t.rows {
		out = append(out, t.rows[i][:]...)
	}
	return out
}
