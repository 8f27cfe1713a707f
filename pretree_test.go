package pretree

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pretreedb/pretree/internal/table"
	"github.com/pretreedb/pretree/internal/xmlparse"
)

const sampleXML = `<library><book id="42" lang="en">` +
	`<title>On Trees</title><pages>311</pages>` +
	`<!--second edition--><?render mode=fast?>` +
	`</book><book id="43"><title>On Tables</title></book></library>`

func createSample(t *testing.T, opts *Options) *Database {
	t.Helper()
	if opts == nil {
		opts = &Options{}
	}
	if opts.DBPath == "" {
		opts.DBPath = t.TempDir()
	}
	db, err := Create("sample", xmlparse.New(strings.NewReader(sampleXML), "sample.xml"), opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreateAndRead(t *testing.T) {
	db := createSample(t, nil)

	// doc, library, book, @id, @lang, title, text, pages, text, comment,
	// pi, book, @id, title, text.
	if db.Size() != 15 {
		t.Fatalf("Size = %d, want 15", db.Size())
	}
	if db.Meta.NDocs != 1 {
		t.Errorf("NDocs = %d", db.Meta.NDocs)
	}

	root, err := db.Row(1)
	if err != nil {
		t.Fatal(err)
	}
	if root.Kind() != table.Elem || root.Size() != 14 {
		t.Errorf("root row: kind=%v size=%d, want ELEM 14", root.Kind(), root.Size())
	}
	name, err := db.Name(1)
	if err != nil {
		t.Fatal(err)
	}
	if string(name) != "library" {
		t.Errorf("root name = %q", name)
	}

	// Document name.
	docName, err := db.Text(0)
	if err != nil {
		t.Fatal(err)
	}
	if string(docName) != "sample.xml" {
		t.Errorf("doc name = %q", docName)
	}

	// The page count is a simple integer and must be inlined.
	pages, err := db.Row(8)
	if err != nil {
		t.Fatal(err)
	}
	if !table.IsInline(pages.Ref()) {
		t.Errorf("pages text ref = %#x, want inlined", pages.Ref())
	}
	text, err := db.Text(8)
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "311" {
		t.Errorf("pages text = %q", text)
	}

	if err := db.VerifyChecksums(); err != nil {
		t.Errorf("VerifyChecksums: %v", err)
	}
}

func TestSubtreeContiguity(t *testing.T) {
	// For every DOC/ELEM row, every row inside [pre, pre+size) must
	// point back into the enclosing subtree through its parent chain.
	db := createSample(t, nil)

	parents := make([]int, db.Size())
	for pre := 0; pre < db.Size(); pre++ {
		row, err := db.Row(pre)
		if err != nil {
			t.Fatal(err)
		}
		if row.Kind() == table.Doc {
			parents[pre] = -1
			continue
		}
		parents[pre] = pre - int(row.Dist())
		if parents[pre] < 0 || parents[pre] >= pre {
			t.Fatalf("row %d: parent %d out of order", pre, parents[pre])
		}
	}

	for pre := 0; pre < db.Size(); pre++ {
		row, err := db.Row(pre)
		if err != nil {
			t.Fatal(err)
		}
		if row.Kind() != table.Doc && row.Kind() != table.Elem {
			continue
		}
		end := pre + int(row.Size())
		for c := pre + 1; c < end; c++ {
			anc := c
			for anc > pre && anc >= 0 {
				anc = parents[anc]
			}
			if anc != pre {
				t.Errorf("row %d not a descendant of %d despite being in its subtree", c, pre)
			}
		}
	}
}

func TestOpenReload(t *testing.T) {
	dbpath := t.TempDir()
	built := createSample(t, &Options{DBPath: dbpath})

	db, err := Open("sample", &Options{DBPath: dbpath})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if db.Size() != built.Size() {
		t.Errorf("reloaded Size = %d, want %d", db.Size(), built.Size())
	}
	if db.Meta.TxtSum != built.Meta.TxtSum || db.Meta.AtvSum != built.Meta.AtvSum {
		t.Error("reloaded meta checksums differ")
	}
	if db.ElemNames.Len() != built.ElemNames.Len() || db.AttrNames.Len() != built.AttrNames.Len() {
		t.Error("reloaded dictionaries differ in size")
	}
	if db.Paths.Len() != built.Paths.Len() {
		t.Error("reloaded path summary differs in size")
	}
	name, err := db.Name(1)
	if err != nil || string(name) != "library" {
		t.Errorf("reloaded Name(1) = (%q, %v)", name, err)
	}
	if err := db.VerifyChecksums(); err != nil {
		t.Errorf("VerifyChecksums after reload: %v", err)
	}
}

// replayParser adapts a database handle into a Parser.
type replayParser struct {
	replay func(Events) error
}

func (p *replayParser) Parse(e Events) error { return p.replay(e) }
func (p *replayParser) Detail() string       { return "" }
func (p *replayParser) Progress() float64    { return -1 }

func TestRoundTrip(t *testing.T) {
	// Rebuilding a database from its own replayed event stream must
	// reproduce the table file byte for byte.
	dbpath := t.TempDir()
	first := createSample(t, &Options{DBPath: dbpath})

	second, err := Create("copy", &replayParser{replay: first.Replay}, &Options{DBPath: dbpath})
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	a, err := os.ReadFile(filepath.Join(dbpath, "sample", "tbl"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dbpath, "copy", "tbl"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("replayed rebuild produced a different table")
	}
}

func TestMemMatchesDisk(t *testing.T) {
	disk := createSample(t, nil)

	mem, err := CreateMem("sample", xmlparse.New(strings.NewReader(sampleXML), "sample.xml"), nil)
	if err != nil {
		t.Fatal(err)
	}

	if mem.Size() != disk.Size() {
		t.Fatalf("mem Size = %d, disk Size = %d", mem.Size(), disk.Size())
	}
	for pre := 0; pre < disk.Size(); pre++ {
		dr, err := disk.Row(pre)
		if err != nil {
			t.Fatal(err)
		}
		mr, err := mem.Row(pre)
		if err != nil {
			t.Fatal(err)
		}
		if dr.Kind() != mr.Kind() || dr.Size() != mr.Size() || dr.Dist() != mr.Dist() {
			t.Errorf("row %d differs: disk %v/%d/%d, mem %v/%d/%d",
				pre, dr.Kind(), dr.Size(), dr.Dist(), mr.Kind(), mr.Size(), mr.Dist())
		}
		dt, err := disk.Text(pre)
		if err != nil {
			t.Fatal(err)
		}
		mt, err := mem.Text(pre)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(dt, mt) {
			t.Errorf("row %d text differs: %q vs %q", pre, dt, mt)
		}
	}
}

func TestMemRoundTrip(t *testing.T) {
	mem, err := CreateMem("m", xmlparse.New(strings.NewReader(sampleXML), "m.xml"), nil)
	if err != nil {
		t.Fatal(err)
	}
	again, err := CreateMem("m", &replayParser{replay: mem.Replay}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(mem.TableBytes(), again.TableBytes()) {
		t.Error("in-memory replay rebuild produced a different table")
	}
}

func TestCompressedDatabase(t *testing.T) {
	long := strings.Repeat("a fairly repetitive sentence. ", 40)
	src := "<a><b>" + long + "</b></a>"

	for _, c := range []Compression{CompressionSnappy, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			dbpath := t.TempDir()
			db, err := Create("c", xmlparse.New(strings.NewReader(src), "c.xml"),
				&Options{DBPath: dbpath, Compression: c})
			if err != nil {
				t.Fatal(err)
			}
			defer db.Close()

			row, err := db.Row(3)
			if err != nil {
				t.Fatal(err)
			}
			if !table.IsCompressed(row.Ref()) {
				t.Errorf("long text not stored compressed under %s", c)
			}
			text, err := db.Text(3)
			if err != nil {
				t.Fatal(err)
			}
			if string(text) != long {
				t.Error("compressed text round-trip mismatch")
			}

			// Reopening must pick the codec up from the meta.
			re, err := Open("c", &Options{DBPath: dbpath})
			if err != nil {
				t.Fatal(err)
			}
			defer re.Close()
			text, err = re.Text(3)
			if err != nil {
				t.Fatal(err)
			}
			if string(text) != long {
				t.Error("compressed text mismatch after reopen")
			}
		})
	}
}

func TestCreateFailureLeavesNothing(t *testing.T) {
	dbpath := t.TempDir()
	_, err := Create("bad", xmlparse.New(strings.NewReader("<a><b></a>"), "bad.xml"),
		&Options{DBPath: dbpath})
	if err == nil {
		t.Fatal("Create accepted malformed input")
	}
	if _, statErr := os.Stat(filepath.Join(dbpath, "bad")); !os.IsNotExist(statErr) {
		t.Error("failed create left a database directory behind")
	}
}
