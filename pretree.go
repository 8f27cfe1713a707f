package pretree

import (
	"fmt"
	"path/filepath"

	"github.com/pretreedb/pretree/internal/builder"
	"github.com/pretreedb/pretree/internal/names"
	"github.com/pretreedb/pretree/internal/ns"
	"github.com/pretreedb/pretree/internal/output"
	"github.com/pretreedb/pretree/internal/pathidx"
	"github.com/pretreedb/pretree/internal/vfs"
)

// Dictionary file names within a database directory.
const (
	elemNamesFile = "elm"
	attrNamesFile = "att"
	urisFile      = "uri"
	pathsFile     = "pth"
)

// Create builds a database named name under opts.DBPath from the events
// delivered by p. Any existing database of that name is dropped first.
// On failure no database remains on disk.
func Create(name string, p Parser, opts *Options) (*Database, error) {
	o := opts.withDefaults()
	fs := vfs.Default()
	meta := builder.NewMeta(name)

	var hint int64
	if sized, ok := p.(builder.Sized); ok {
		hint = sized.Len()
	}
	backend, err := builder.NewDiskBackend(fs, o.DBPath, meta, o.Compression, hint, o.Logger)
	if err != nil {
		return nil, err
	}
	b := builder.New(meta, p, backend, o.Logger)
	if err := b.Build(); err != nil {
		return nil, err
	}

	if err := writeDictionaries(fs, meta.Path, b); err != nil {
		_ = fs.RemoveAll(meta.Path)
		return nil, err
	}

	return openFiles(fs, meta, b.ElemNames, b.AttrNames, b.NS, b.Paths)
}

// CreateMem builds a database entirely in memory from the events
// delivered by p.
func CreateMem(name string, p Parser, opts *Options) (*MemDatabase, error) {
	o := opts.withDefaults()
	meta := builder.NewMeta(name)
	backend := builder.NewMemBackend(meta, o.Compression)
	b := builder.New(meta, p, backend, o.Logger)
	if err := b.Build(); err != nil {
		return nil, err
	}
	return &MemDatabase{
		Meta:      meta,
		ElemNames: b.ElemNames,
		AttrNames: b.AttrNames,
		NS:        b.NS,
		Paths:     b.Paths,
		mem:       backend,
	}, nil
}

// Open opens an existing database directory.
func Open(name string, opts *Options) (*Database, error) {
	o := opts.withDefaults()
	fs := vfs.Default()
	dir := filepath.Join(o.DBPath, name)

	mf, err := fs.Open(filepath.Join(dir, builder.MetaFile))
	if err != nil {
		return nil, fmt.Errorf("pretree: open %s: %w", name, err)
	}
	meta, err := builder.ReadMeta(mf)
	_ = mf.Close()
	if err != nil {
		return nil, err
	}
	meta.Path = dir

	elemNames, err := readNames(fs, filepath.Join(dir, elemNamesFile))
	if err != nil {
		return nil, err
	}
	attrNames, err := readNames(fs, filepath.Join(dir, attrNamesFile))
	if err != nil {
		return nil, err
	}

	uf, err := fs.Open(filepath.Join(dir, urisFile))
	if err != nil {
		return nil, err
	}
	uris, err := ns.Read(output.NewDataInput(uf))
	_ = uf.Close()
	if err != nil {
		return nil, err
	}

	pf, err := fs.Open(filepath.Join(dir, pathsFile))
	if err != nil {
		return nil, err
	}
	paths, err := pathidx.Read(output.NewDataInput(pf))
	_ = pf.Close()
	if err != nil {
		return nil, err
	}

	return openFiles(fs, meta, elemNames, attrNames, uris, paths)
}

func readNames(fs vfs.FS, path string) (*names.Index, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return names.Read(output.NewDataInput(f))
}

// writeDictionaries persists the name dictionaries, the uri dictionary
// and the path summary next to the table.
func writeDictionaries(fs vfs.FS, dir string, b *builder.Builder) error {
	write := func(name string, w func(*output.DataOutput) error) error {
		f, err := fs.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		o := output.NewDataOutput(f, 0)
		if err := w(o); err != nil {
			_ = o.Close()
			return err
		}
		return o.Close()
	}
	if err := write(elemNamesFile, b.ElemNames.Write); err != nil {
		return err
	}
	if err := write(attrNamesFile, b.AttrNames.Write); err != nil {
		return err
	}
	if err := write(urisFile, b.NS.Write); err != nil {
		return err
	}
	return write(pathsFile, b.Paths.Write)
}
