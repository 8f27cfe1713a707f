package pretree

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/zeebo/xxh3"

	"github.com/pretreedb/pretree/internal/builder"
	"github.com/pretreedb/pretree/internal/encoding"
	"github.com/pretreedb/pretree/internal/names"
	"github.com/pretreedb/pretree/internal/ns"
	"github.com/pretreedb/pretree/internal/pathidx"
	"github.com/pretreedb/pretree/internal/table"
	"github.com/pretreedb/pretree/internal/vfs"
)

// Database is a read handle on a built on-disk database.
type Database struct {
	Meta      *builder.Meta
	ElemNames *names.Index
	AttrNames *names.Index
	NS        *ns.Scopes
	Paths     *pathidx.Summary

	fs  vfs.FS
	tbl *table.Reader
	txt vfs.RandomAccessFile
	atv vfs.RandomAccessFile
}

func openFiles(fs vfs.FS, meta *builder.Meta, elemNames, attrNames *names.Index,
	uris *ns.Scopes, paths *pathidx.Summary) (*Database, error) {
	tbl, err := table.OpenReader(fs, filepath.Join(meta.Path, builder.TableFile))
	if err != nil {
		return nil, err
	}
	txt, err := fs.OpenRandomAccess(filepath.Join(meta.Path, builder.TextFile))
	if err != nil {
		_ = tbl.Close()
		return nil, err
	}
	atv, err := fs.OpenRandomAccess(filepath.Join(meta.Path, builder.ValueFile))
	if err != nil {
		_ = tbl.Close()
		_ = txt.Close()
		return nil, err
	}
	return &Database{
		Meta:      meta,
		ElemNames: elemNames,
		AttrNames: attrNames,
		NS:        uris,
		Paths:     paths,
		fs:        fs,
		tbl:       tbl,
		txt:       txt,
		atv:       atv,
	}, nil
}

// Close releases the database files.
func (db *Database) Close() error {
	err := db.tbl.Close()
	if e := db.txt.Close(); err == nil {
		err = e
	}
	if e := db.atv.Close(); err == nil {
		err = e
	}
	return err
}

// Size returns the number of nodes.
func (db *Database) Size() int {
	return db.tbl.Len()
}

// Row returns the table row at pre.
func (db *Database) Row(pre int) (table.Row, error) {
	return db.tbl.Row(pre)
}

// Name returns the name of the element or attribute at pre, or nil for
// other kinds.
func (db *Database) Name(pre int) ([]byte, error) {
	row, err := db.tbl.Row(pre)
	if err != nil {
		return nil, err
	}
	switch row.Kind() {
	case table.Elem:
		return db.ElemNames.Name(row.NameID()), nil
	case table.Attr:
		return db.AttrNames.Name(row.NameID()), nil
	default:
		return nil, nil
	}
}

// Text returns the textual value of the node at pre: the document name
// for DOC rows, the attribute value for ATTR rows, the content for
// TEXT/COMM/PI rows, and nil for elements.
func (db *Database) Text(pre int) ([]byte, error) {
	row, err := db.tbl.Row(pre)
	if err != nil {
		return nil, err
	}
	kind := row.Kind()
	if kind == table.Elem {
		return nil, nil
	}
	return db.token(row.Ref(), kind != table.Attr)
}

func (db *Database) token(ref uint64, isText bool) ([]byte, error) {
	if table.IsInline(ref) {
		return strconv.AppendInt(nil, int64(table.InlineValue(ref)), 10), nil
	}
	f := db.atv
	if isText {
		f = db.txt
	}
	stored, err := readTokenAt(f, table.RefOffset(ref))
	if err != nil {
		return nil, err
	}
	if table.IsCompressed(ref) {
		return builder.UnpackToken(db.Meta.Codec, stored)
	}
	return stored, nil
}

// readTokenAt reads a varint-length-prefixed token at off.
func readTokenAt(f vfs.RandomAccessFile, off uint64) ([]byte, error) {
	var hdr [encoding.MaxVarintLength]byte
	n, err := f.ReadAt(hdr[:], int64(off))
	if err != nil && err != io.EOF {
		return nil, err
	}
	length, used, err := encoding.DecodeVarint(hdr[:n])
	if err != nil {
		return nil, err
	}
	token := make([]byte, length)
	if _, err := f.ReadAt(token, int64(off)+int64(used)); err != nil && err != io.EOF {
		return nil, err
	}
	return token, nil
}

// VerifyChecksums recomputes the side-file digests and compares them with
// the meta. The table digest is not checked: it covers the stream before
// size patching.
func (db *Database) VerifyChecksums() error {
	for _, s := range []struct {
		name string
		want uint64
	}{
		{builder.TextFile, db.Meta.TxtSum},
		{builder.ValueFile, db.Meta.AtvSum},
	} {
		f, err := db.fs.Open(filepath.Join(db.Meta.Path, s.name))
		if err != nil {
			return err
		}
		h := xxh3.New()
		_, err = io.Copy(h, f)
		_ = f.Close()
		if err != nil {
			return err
		}
		if got := h.Sum64(); got != s.want {
			return fmt.Errorf("pretree: %s checksum mismatch: %016x != %016x", s.name, got, s.want)
		}
	}
	return nil
}

// Replay re-emits the event sequence of the stored documents into e.
// Namespace declarations are not part of the stored tree and are not
// replayed; for databases without them, rebuilding from the replayed
// events reproduces the table byte for byte.
func (db *Database) Replay(e Events) error {
	return replay(db, e)
}

func (db *Database) rows() int                      { return db.tbl.Len() }
func (db *Database) row(pre int) (table.Row, error) { return db.tbl.Row(pre) }
func (db *Database) elemName(id int) []byte         { return db.ElemNames.Name(id) }
func (db *Database) attrName(id int) []byte         { return db.AttrNames.Name(id) }

// MemDatabase is a handle on a database built in memory.
type MemDatabase struct {
	Meta      *builder.Meta
	ElemNames *names.Index
	AttrNames *names.Index
	NS        *ns.Scopes
	Paths     *pathidx.Summary

	mem *builder.MemBackend
}

// Size returns the number of nodes.
func (db *MemDatabase) Size() int {
	return db.mem.Table().Len()
}

// Row returns the table row at pre.
func (db *MemDatabase) Row(pre int) (table.Row, error) {
	if pre < 0 || pre >= db.mem.Table().Len() {
		return table.Row{}, fmt.Errorf("pretree: pre %d out of range", pre)
	}
	return *db.mem.Table().Row(pre), nil
}

// TableBytes returns the raw table contents.
func (db *MemDatabase) TableBytes() []byte {
	return db.mem.Table().Bytes()
}

// Text returns the textual value of the node at pre, as Database.Text.
func (db *MemDatabase) Text(pre int) ([]byte, error) {
	row, err := db.Row(pre)
	if err != nil {
		return nil, err
	}
	kind := row.Kind()
	if kind == table.Elem {
		return nil, nil
	}
	return db.mem.Token(row.Ref(), kind != table.Attr)
}

// Replay re-emits the event sequence of the stored documents into e, as
// Database.Replay.
func (db *MemDatabase) Replay(e Events) error {
	return replay(db, e)
}

func (db *MemDatabase) rows() int { return db.mem.Table().Len() }
func (db *MemDatabase) row(pre int) (table.Row, error) {
	return db.Row(pre)
}
func (db *MemDatabase) token(ref uint64, isText bool) ([]byte, error) {
	return db.mem.Token(ref, isText)
}
func (db *MemDatabase) elemName(id int) []byte { return db.ElemNames.Name(id) }
func (db *MemDatabase) attrName(id int) []byte { return db.AttrNames.Name(id) }
