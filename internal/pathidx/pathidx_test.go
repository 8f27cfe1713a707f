package pathidx

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/pretreedb/pretree/internal/output"
	"github.com/pretreedb/pretree/internal/table"
	"github.com/pretreedb/pretree/internal/vfs"
)

func TestPutAggregates(t *testing.T) {
	s := New()
	s.Put(0, table.Doc, 0, nil)
	s.Put(1, table.Elem, 1, nil)
	s.Put(1, table.Elem, 1, nil)
	s.Put(2, table.Attr, 2, []byte("v"))
	s.Put(2, table.Attr, 2, []byte("value"))

	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}

	nodes := s.Nodes()
	if nodes[0].Kind != table.Doc || nodes[1].Kind != table.Elem || nodes[2].Kind != table.Attr {
		t.Errorf("node order: %v, %v, %v", nodes[0].Kind, nodes[1].Kind, nodes[2].Kind)
	}
	if nodes[1].Count != 2 {
		t.Errorf("elem count = %d, want 2", nodes[1].Count)
	}
	if nodes[2].MinLen != 1 || nodes[2].MaxLen != 5 {
		t.Errorf("attr length bounds = [%d, %d], want [1, 5]", nodes[2].MinLen, nodes[2].MaxLen)
	}
}

func TestSamePathDifferentDepth(t *testing.T) {
	s := New()
	// The same name at different depths is a distinct path.
	s.Put(1, table.Elem, 1, nil)
	s.Put(1, table.Elem, 2, nil)
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}

	hist := s.DepthHistogram()
	want := []int{0, 1, 1}
	if diff := cmp.Diff(want, hist); diff != "" {
		t.Errorf("DepthHistogram mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptySummary(t *testing.T) {
	s := New()
	if s.Len() != 0 || len(s.Nodes()) != 0 || len(s.DepthHistogram()) != 0 {
		t.Error("empty summary must have no entries")
	}
}

func TestWriteRead(t *testing.T) {
	s := New()
	s.Put(0, table.Doc, 0, nil)
	s.Put(1, table.Elem, 1, nil)
	s.Put(3, table.Text, 2, []byte("42"))

	path := filepath.Join(t.TempDir(), "pth")
	f, err := vfs.Default().Create(path)
	if err != nil {
		t.Fatal(err)
	}
	o := output.NewDataOutput(f, 0)
	if err := s.Write(o); err != nil {
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

	opt := cmp.AllowUnexported(Node{})
	if diff := cmp.Diff(s.Nodes(), got.Nodes(), opt, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("reloaded summary mismatch (-want +got):\n%s", diff)
	}
}
