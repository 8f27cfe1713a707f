package names

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pretreedb/pretree/internal/output"
	"github.com/pretreedb/pretree/internal/vfs"
)

func TestIndexAssignsDenseIds(t *testing.T) {
	ix := NewIndex()

	a, err := ix.Index([]byte("a"), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ix.Index([]byte("b"), nil, false)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := ix.Index([]byte("a"), nil, false)
	if err != nil {
		t.Fatal(err)
	}

	if a != 1 || b != 2 || a2 != 1 {
		t.Errorf("ids = %d, %d, %d; want 1, 2, 1", a, b, a2)
	}
	if ix.Len() != 2 {
		t.Errorf("Len = %d, want 2", ix.Len())
	}
	if !bytes.Equal(ix.Name(a), []byte("a")) {
		t.Errorf("Name(1) = %q", ix.Name(a))
	}
	if ix.Stat(a).Count != 2 {
		t.Errorf("Count(a) = %d, want 2", ix.Stat(a).Count)
	}
}

func TestIndexCopiesNames(t *testing.T) {
	ix := NewIndex()
	buf := []byte("mutated")
	id, err := ix.Index(buf, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	copy(buf, "XXXXXXX")
	if !bytes.Equal(ix.Name(id), []byte("mutated")) {
		t.Errorf("Name(1) = %q; dictionary aliases caller buffer", ix.Name(id))
	}
}

func TestValueStats(t *testing.T) {
	ix := NewIndex()
	id, err := ix.Index([]byte("id"), []byte("x1"), true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ix.Index([]byte("id"), []byte("longer"), true); err != nil {
		t.Fatal(err)
	}

	st := ix.Stat(id)
	if st.MinLen != 2 || st.MaxLen != 6 {
		t.Errorf("length bounds = [%d, %d], want [2, 6]", st.MinLen, st.MaxLen)
	}
	if st.Values["x1"] != 1 || st.Values["longer"] != 1 {
		t.Errorf("value sample = %v", st.Values)
	}
}

func TestValueSampleCap(t *testing.T) {
	ix := NewIndex()
	id, _ := ix.Index([]byte("n"), nil, false)
	for i := 0; i < maxValues+1; i++ {
		ix.IndexText(id, []byte(fmt.Sprintf("v%04d", i)))
	}
	st := ix.Stat(id)
	if st.Values != nil {
		t.Errorf("value sample not dropped after %d distinct values", maxValues+1)
	}
	if st.MinLen != 5 || st.MaxLen != 5 {
		t.Errorf("length bounds = [%d, %d] after sample drop", st.MinLen, st.MaxLen)
	}
}

func TestLeafFlag(t *testing.T) {
	ix := NewIndex()
	id, _ := ix.Index([]byte("a"), nil, false)
	if !ix.Stat(id).Leaf() {
		t.Fatal("new name must start as leaf")
	}
	ix.Stat(id).SetLeaf(false)
	if ix.Stat(id).Leaf() {
		t.Error("leaf flag not cleared")
	}
}

func TestIndexFull(t *testing.T) {
	ix := NewIndex()
	for i := 1; i < MaxNames; i++ {
		if _, err := ix.Index([]byte(fmt.Sprintf("n%05d", i)), nil, false); err != nil {
			t.Fatalf("Index(%d): %v", i, err)
		}
	}
	if _, err := ix.Index([]byte("overflow"), nil, false); !errors.Is(err, ErrFull) {
		t.Errorf("got %v, want ErrFull", err)
	}
	// Existing names still resolve at capacity.
	if id, err := ix.Index([]byte("n00001"), nil, false); err != nil || id != 1 {
		t.Errorf("lookup at capacity = (%d, %v)", id, err)
	}
}

func TestWriteRead(t *testing.T) {
	ix := NewIndex()
	a, _ := ix.Index([]byte("a"), nil, false)
	ix.Stat(a).SetLeaf(false)
	if _, err := ix.Index([]byte("id"), []byte("k7"), true); err != nil {
		t.Fatal(err)
	}
	ix.IndexText(a, []byte("some text"))

	path := filepath.Join(t.TempDir(), "elm")
	f, err := vfs.Default().Create(path)
	if err != nil {
		t.Fatal(err)
	}
	o := output.NewDataOutput(f, 0)
	if err := ix.Write(o); err != nil {
		t.Fatal(err)
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}

	rf, err := vfs.Default().Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()
	got, err := Read(output.NewDataInput(rf))
	if err != nil {
		t.Fatal(err)
	}

	if got.Len() != ix.Len() {
		t.Fatalf("Len = %d, want %d", got.Len(), ix.Len())
	}
	for id := 1; id <= ix.Len(); id++ {
		if !bytes.Equal(got.Name(id), ix.Name(id)) {
			t.Errorf("Name(%d) = %q, want %q", id, got.Name(id), ix.Name(id))
		}
		ws, gs := ix.Stat(id), got.Stat(id)
		if gs.Count != ws.Count || gs.Leaf() != ws.Leaf() ||
			gs.MinLen != ws.MinLen || gs.MaxLen != ws.MaxLen {
			t.Errorf("Stat(%d) = %+v, want %+v", id, gs, ws)
		}
		if diff := cmp.Diff(ws.Values, gs.Values); diff != "" {
			t.Errorf("Stat(%d).Values mismatch (-want +got):\n%s", id, diff)
		}
	}
}
