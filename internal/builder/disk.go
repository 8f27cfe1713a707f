package builder

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/pretreedb/pretree/internal/compress"
	"github.com/pretreedb/pretree/internal/logging"
	"github.com/pretreedb/pretree/internal/output"
	"github.com/pretreedb/pretree/internal/table"
	"github.com/pretreedb/pretree/internal/vfs"
)

// Database stream file names.
const (
	// TableFile holds the 16-byte rows in preorder.
	TableFile = "tbl"
	// TextFile holds text tokens, varint-length-prefixed.
	TextFile = "txt"
	// ValueFile holds attribute-value tokens, same layout as TextFile.
	ValueFile = "atv"
	// sizesFile is transient: varint (pre, size) pairs for the patch
	// pass, deleted on success.
	sizesFile = "tmp"
)

// DiskBackend writes a database to its directory. The table file is
// strictly append-only during the parse; subtree sizes are collected in a
// temporary stream and patched into the table in a second pass.
type DiskBackend struct {
	fs     vfs.FS
	dir    string
	meta   *Meta
	codec  compress.Type
	logger logging.Logger

	tout *output.DataOutput // table rows
	xout *output.DataOutput // texts
	vout *output.DataOutput // attribute values
	sout *output.DataOutput // size patches

	ssize atomic.Int64 // patches written
	spos  atomic.Int64 // patches applied
}

// NewDiskBackend creates the database directory under dbpath, dropping any
// existing database of the same name, and opens the four streams.
// sizeHint is the expected input size and drives stream buffer sizes.
func NewDiskBackend(fs vfs.FS, dbpath string, meta *Meta, codec compress.Type, sizeHint int64, logger logging.Logger) (*DiskBackend, error) {
	d := &DiskBackend{
		fs:     fs,
		dir:    filepath.Join(dbpath, meta.Name),
		meta:   meta,
		codec:  codec,
		logger: logging.OrDefault(logger),
	}
	meta.Path = d.dir
	meta.Codec = codec
	meta.FileSize = sizeHint

	if err := fs.RemoveAll(d.dir); err != nil {
		return nil, fmt.Errorf("builder: drop %s: %w", d.dir, err)
	}
	if err := fs.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("builder: create %s: %w", d.dir, err)
	}

	for _, s := range []struct {
		out  **output.DataOutput
		name string
		hint int64
	}{
		{&d.tout, TableFile, sizeHint},
		{&d.xout, TextFile, sizeHint},
		{&d.vout, ValueFile, sizeHint / 4},
		{&d.sout, sizesFile, sizeHint / 16},
	} {
		f, err := fs.Create(filepath.Join(d.dir, s.name))
		if err != nil {
			d.Abort()
			return nil, fmt.Errorf("builder: create %s: %w", s.name, err)
		}
		*s.out = output.NewDataOutput(f, s.hint)
	}
	return d, nil
}

// textOff stores value in the text or attribute-value stream and returns
// its 40-bit reference. Simple integers are inlined without touching the
// stream; other tokens are compressed when that makes them shorter.
func (d *DiskBackend) textOff(value []byte, isText bool) (uint64, error) {
	if v := table.ToSimpleInt(value); v != table.IntSentinel {
		return table.InlineRef(v), nil
	}
	pack, compressed := PackToken(d.codec, value)
	out := d.vout
	if isText {
		out = d.xout
	}
	off := uint64(out.Size())
	if off >= table.OffComp {
		return 0, ErrLimitRange
	}
	if _, err := out.WriteToken(pack); err != nil {
		return 0, err
	}
	if compressed {
		off |= table.OffComp
	}
	return off, nil
}

func (d *DiskBackend) addRow(r table.Row) error {
	return d.tout.WriteBytes(r[:])
}

// AddDoc implements Backend.
func (d *DiskBackend) AddDoc(name []byte) error {
	ref, err := d.textOff(name, true)
	if err != nil {
		return err
	}
	return d.addRow(table.DocRow(ref, uint32(d.meta.Size)))
}

// AddElem implements Backend.
func (d *DiskBackend) AddElem(dist uint32, nameID, asize, uriID int, nsFlag bool) error {
	return d.addRow(table.ElemRow(asize, nameID, nsFlag, uriID, dist, uint32(d.meta.Size)))
}

// AddAttr implements Backend.
func (d *DiskBackend) AddAttr(nameID int, value []byte, dist int, uriID int) error {
	ref, err := d.textOff(value, false)
	if err != nil {
		return err
	}
	return d.addRow(table.AttrRow(dist, nameID, ref, uriID, uint32(d.meta.Size)))
}

// AddText implements Backend.
func (d *DiskBackend) AddText(value []byte, dist uint32, kind table.Kind) error {
	ref, err := d.textOff(value, true)
	if err != nil {
		return err
	}
	return d.addRow(table.TextRow(kind, ref, dist, uint32(d.meta.Size)))
}

// SetSize implements Backend. The pair is appended to the temporary size
// stream; the table file stays append-only until the patch pass.
func (d *DiskBackend) SetSize(pre int, size uint32) error {
	if err := d.sout.WriteNum(uint32(pre)); err != nil {
		return err
	}
	if err := d.sout.WriteNum(size); err != nil {
		return err
	}
	d.ssize.Add(1)
	return nil
}

// PatchProgress reports the size-patch pass position.
func (d *DiskBackend) PatchProgress() (done, total int) {
	return int(d.spos.Load()), int(d.ssize.Load())
}

// Close implements Backend: closes the row file, applies the size patches,
// closes the side streams and publishes the meta.
func (d *DiskBackend) Close() error {
	d.meta.TblSum = d.tout.Sum64()
	if err := d.tout.Close(); err != nil {
		return err
	}
	d.tout = nil
	if err := d.sout.Close(); err != nil {
		return err
	}
	d.sout = nil

	if err := d.patchSizes(); err != nil {
		return err
	}
	if err := d.fs.Remove(filepath.Join(d.dir, sizesFile)); err != nil {
		return err
	}

	d.meta.TxtSum = d.xout.Sum64()
	if err := d.xout.Close(); err != nil {
		return err
	}
	d.xout = nil
	d.meta.AtvSum = d.vout.Sum64()
	if err := d.vout.Close(); err != nil {
		return err
	}
	d.vout = nil

	d.meta.LastID = d.meta.Size - 1
	if err := d.meta.WriteFile(filepath.Join(d.dir, MetaFile)); err != nil {
		return err
	}
	return d.fs.SyncDir(d.dir)
}

// patchSizes replays the temporary size stream against the row file.
func (d *DiskBackend) patchSizes() error {
	total := d.ssize.Load()
	if total == 0 {
		return nil
	}
	d.logger.Debugf(logging.NSPatch+"%s: applying %d size patches", d.meta.Name, total)

	sf, err := d.fs.Open(filepath.Join(d.dir, sizesFile))
	if err != nil {
		return err
	}
	defer sf.Close()
	in := output.NewDataInput(sf)

	access, err := table.OpenDiskAccess(d.fs, filepath.Join(d.dir, TableFile))
	if err != nil {
		return err
	}
	for i := int64(0); i < total; i++ {
		pre, err := in.ReadNum()
		if err != nil {
			_ = access.Close()
			return fmt.Errorf("builder: size stream: %w", err)
		}
		size, err := in.ReadNum()
		if err != nil {
			_ = access.Close()
			return fmt.Errorf("builder: size stream: %w", err)
		}
		access.Write4(int(pre), table.SizeOffset, size)
		d.spos.Add(1)
	}
	return access.Close()
}

// Abort implements Backend: closes any open streams and drops the
// database directory. Cleanup errors are logged at debug level and never
// surface; the original failure stays the reported cause.
func (d *DiskBackend) Abort() {
	for _, out := range []*output.DataOutput{d.tout, d.xout, d.vout, d.sout} {
		if out == nil {
			continue
		}
		if err := out.Close(); err != nil {
			d.logger.Debugf(logging.NSDisk+"%s: abort close: %v", d.meta.Name, err)
		}
	}
	d.tout, d.xout, d.vout, d.sout = nil, nil, nil, nil
	if err := d.fs.RemoveAll(d.dir); err != nil {
		d.logger.Debugf(logging.NSDisk+"%s: abort drop: %v", d.meta.Name, err)
	}
}
