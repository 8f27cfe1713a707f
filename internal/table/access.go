package table

import (
	"fmt"

	"github.com/pretreedb/pretree/internal/encoding"
	"github.com/pretreedb/pretree/internal/vfs"
)

// Access is random write access to row fields. The size-patch pass uses it
// to revisit DOC and ELEM rows after the parse; the memory back-end's
// MemTable satisfies it directly.
type Access interface {
	// Write4 overwrites four bytes at the given offset within the row
	// at pre.
	Write4(pre int, off int, value uint32)
}

// DiskAccess patches rows of a table file in place.
type DiskAccess struct {
	f   vfs.ReadWriteFile
	err error
}

// OpenDiskAccess opens the table file at path for in-place updates.
func OpenDiskAccess(fs vfs.FS, path string) (*DiskAccess, error) {
	f, err := fs.OpenReadWrite(path)
	if err != nil {
		return nil, err
	}
	return &DiskAccess{f: f}, nil
}

// Write4 overwrites four bytes within the row at pre. The first I/O error
// is retained and returned by Close.
func (a *DiskAccess) Write4(pre int, off int, value uint32) {
	if a.err != nil {
		return
	}
	var buf [4]byte
	encoding.EncodeFixed32(buf[:], value)
	if _, err := a.f.WriteAt(buf[:], int64(pre)*RowSize+int64(off)); err != nil {
		a.err = fmt.Errorf("table: patch row %d: %w", pre, err)
	}
}

// Close syncs and closes the table file, returning the first error
// encountered during patching.
func (a *DiskAccess) Close() error {
	syncErr := a.f.Sync()
	closeErr := a.f.Close()
	if a.err != nil {
		return a.err
	}
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}

// Reader reads rows from a table file.
type Reader struct {
	f    vfs.RandomAccessFile
	rows int
}

// OpenReader opens the table file at path for reading.
func OpenReader(fs vfs.FS, path string) (*Reader, error) {
	f, err := fs.OpenRandomAccess(path)
	if err != nil {
		return nil, err
	}
	if f.Size()%RowSize != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("table: %s: size %d is not a multiple of %d", path, f.Size(), RowSize)
	}
	return &Reader{f: f, rows: int(f.Size() / RowSize)}, nil
}

// Len returns the number of rows in the table.
func (r *Reader) Len() int {
	return r.rows
}

// Row reads the row at pre.
func (r *Reader) Row(pre int) (Row, error) {
	var row Row
	if pre < 0 || pre >= r.rows {
		return row, fmt.Errorf("table: pre %d out of range [0, %d)", pre, r.rows)
	}
	if _, err := r.f.ReadAt(row[:], int64(pre)*RowSize); err != nil {
		return row, fmt.Errorf("table: read row %d: %w", pre, err)
	}
	return row, nil
}

// Close closes the table file.
func (r *Reader) Close() error {
	return r.f.Close()
}
