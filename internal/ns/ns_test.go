package ns

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/pretreedb/pretree/internal/output"
	"github.com/pretreedb/pretree/internal/vfs"
)

func TestURIIndex(t *testing.T) {
	s := NewScopes()
	a, err := s.URIIndex([]byte("urn:a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.URIIndex([]byte("urn:b"))
	if err != nil {
		t.Fatal(err)
	}
	a2, err := s.URIIndex([]byte("urn:a"))
	if err != nil {
		t.Fatal(err)
	}
	if a != 1 || b != 2 || a2 != 1 {
		t.Errorf("ids = %d, %d, %d; want 1, 2, 1", a, b, a2)
	}
	if !bytes.Equal(s.URIString(a), []byte("urn:a")) {
		t.Errorf("URIString(1) = %q", s.URIString(a))
	}
	if s.URIString(0) != nil {
		t.Error("URIString(0) must be nil")
	}
}

func TestURIIndexFull(t *testing.T) {
	s := NewScopes()
	for i := 1; i < MaxURIs; i++ {
		if _, err := s.URIIndex([]byte(fmt.Sprintf("urn:%03d", i))); err != nil {
			t.Fatalf("URIIndex(%d): %v", i, err)
		}
	}
	if _, err := s.URIIndex([]byte("urn:overflow")); !errors.Is(err, ErrFull) {
		t.Errorf("got %v, want ErrFull", err)
	}
}

func TestScopeResolution(t *testing.T) {
	s := NewScopes()
	s.Prepare()
	if _, err := s.Add([]byte("p"), []byte("urn:outer"), 0); err != nil {
		t.Fatal(err)
	}

	if got := s.URI([]byte("p:x"), true); got != 1 {
		t.Errorf("URI(p:x) = %d, want 1", got)
	}
	if got := s.URI([]byte("q:x"), true); got != 0 {
		t.Errorf("URI(q:x) = %d, want 0", got)
	}

	// Inner frame shadows the outer binding.
	s.Prepare()
	if _, err := s.Add([]byte("p"), []byte("urn:inner"), 3); err != nil {
		t.Fatal(err)
	}
	if got := s.URI([]byte("p:x"), true); got != 2 {
		t.Errorf("shadowed URI(p:x) = %d, want 2", got)
	}

	// Closing the inner element restores the outer binding.
	s.Close(3)
	if got := s.URI([]byte("p:x"), true); got != 1 {
		t.Errorf("URI(p:x) after close = %d, want 1", got)
	}

	s.Close(0)
	if got := s.URI([]byte("p:x"), true); got != 0 {
		t.Errorf("URI(p:x) after closing all = %d, want 0", got)
	}
}

func TestDefaultNamespace(t *testing.T) {
	s := NewScopes()
	s.Prepare()
	if _, err := s.Add(nil, []byte("urn:default"), 1); err != nil {
		t.Fatal(err)
	}

	// Elements pick up the default namespace; attributes never do.
	if got := s.URI([]byte("x"), true); got != 1 {
		t.Errorf("element URI(x) = %d, want 1", got)
	}
	if got := s.URI([]byte("x"), false); got != 0 {
		t.Errorf("attribute URI(x) = %d, want 0", got)
	}
}

func TestPrepareWithoutBindings(t *testing.T) {
	s := NewScopes()
	s.Prepare()
	if _, err := s.Add([]byte("p"), []byte("u"), 1); err != nil {
		t.Fatal(err)
	}
	// A prepared scope with no Add leaves no frame behind, so closing a
	// deeper node must not pop the outer frame.
	s.Prepare()
	s.Close(5)
	if got := s.URI([]byte("p:x"), true); got != 1 {
		t.Errorf("URI(p:x) = %d, want 1 after closing empty scope", got)
	}
}

func TestPrefixLocal(t *testing.T) {
	tests := []struct {
		qname, prefix, local string
	}{
		{"a", "", "a"},
		{"p:a", "p", "a"},
		{"xml:lang", "xml", "lang"},
		{":a", "", "a"},
	}
	for _, tt := range tests {
		gotP := Prefix([]byte(tt.qname))
		if tt.prefix == "" && tt.qname != ":a" {
			if gotP != nil {
				t.Errorf("Prefix(%q) = %q, want nil", tt.qname, gotP)
			}
		} else if string(gotP) != tt.prefix {
			t.Errorf("Prefix(%q) = %q, want %q", tt.qname, gotP, tt.prefix)
		}
		if got := Local([]byte(tt.qname)); string(got) != tt.local {
			t.Errorf("Local(%q) = %q, want %q", tt.qname, got, tt.local)
		}
	}
}

func TestWriteRead(t *testing.T) {
	s := NewScopes()
	if _, err := s.URIIndex([]byte("urn:a")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.URIIndex([]byte("urn:b")); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "uri")
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
	if got.Len() != 2 || !bytes.Equal(got.URIString(1), []byte("urn:a")) ||
		!bytes.Equal(got.URIString(2), []byte("urn:b")) {
		t.Errorf("reloaded dictionary = %d uris: %q, %q",
			got.Len(), got.URIString(1), got.URIString(2))
	}
	if id, err := got.URIIndex([]byte("urn:b")); err != nil || id != 2 {
		t.Errorf("reloaded URIIndex(urn:b) = (%d, %v), want (2, nil)", id, err)
	}
}
