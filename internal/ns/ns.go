// Package ns tracks namespace bindings during a build.
//
// Bindings are grouped into frames, each keyed by the pre value of the
// element (or document) that introduced it. Closing a node pops every frame
// whose pre is not smaller than the closing pre, so scopes nest exactly
// like elements. Uris are interned into a global dictionary with dense
// 1-based ids; id 0 means "no namespace".
package ns

import (
	"bytes"
	"errors"

	"github.com/pretreedb/pretree/internal/output"
)

// MaxURIs is the hard capacity of the uri dictionary. Ids are strictly
// below it, so they fit the single uri byte of an element row.
const MaxURIs = 0x100

// XMLPrefix is the reserved prefix that resolves without a binding.
var XMLPrefix = []byte("xml")

// ErrFull is returned when the uri dictionary has no free ids left.
var ErrFull = errors.New("ns: uri dictionary full")

type binding struct {
	prefix []byte
	uriID  int
}

type frame struct {
	pre      int
	bindings []binding
}

// Scopes is the build-time namespace state.
type Scopes struct {
	uriIDs  map[string]int
	uris    [][]byte // 1-based; uris[0] unused
	frames  []frame
	prepare bool
}

// NewScopes returns an empty namespace state.
func NewScopes() *Scopes {
	return &Scopes{
		uriIDs: make(map[string]int),
		uris:   make([][]byte, 1),
	}
}

// URIIndex interns uri and returns its id.
func (s *Scopes) URIIndex(uri []byte) (int, error) {
	if id, ok := s.uriIDs[string(uri)]; ok {
		return id, nil
	}
	if len(s.uris) >= MaxURIs {
		return 0, ErrFull
	}
	id := len(s.uris)
	owned := append([]byte(nil), uri...)
	s.uriIDs[string(owned)] = id
	s.uris = append(s.uris, owned)
	return id, nil
}

// Prepare marks the start of a new scope. The next Add call opens a fresh
// frame; if no binding is added, no frame exists and Close is a no-op for
// this scope.
func (s *Scopes) Prepare() {
	s.prepare = true
}

// Add records a prefix binding on the scope of the node at pre.
// An empty prefix binds the default element namespace.
func (s *Scopes) Add(prefix, uri []byte, pre int) (int, error) {
	id, err := s.URIIndex(uri)
	if err != nil {
		return 0, err
	}
	if s.prepare || len(s.frames) == 0 || s.frames[len(s.frames)-1].pre != pre {
		s.frames = append(s.frames, frame{pre: pre})
		s.prepare = false
	}
	top := &s.frames[len(s.frames)-1]
	top.bindings = append(top.bindings, binding{
		prefix: append([]byte(nil), prefix...),
		uriID:  id,
	})
	return id, nil
}

// Close pops all frames introduced at or after pre.
func (s *Scopes) Close(pre int) {
	n := len(s.frames)
	for n > 0 && s.frames[n-1].pre >= pre {
		n--
	}
	s.frames = s.frames[:n]
	s.prepare = false
}

// Prefix returns the prefix part of a qname, or nil if it has none.
func Prefix(qname []byte) []byte {
	if i := bytes.IndexByte(qname, ':'); i >= 0 {
		return qname[:i]
	}
	return nil
}

// Local returns the local part of a qname.
func Local(qname []byte) []byte {
	if i := bytes.IndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

// URI resolves the prefix of qname against the current scope and returns
// the uri id, or 0 if no binding is in scope. Unprefixed attribute names
// never fall back to the default element namespace.
func (s *Scopes) URI(qname []byte, isElem bool) int {
	prefix := Prefix(qname)
	if prefix == nil {
		if !isElem {
			return 0
		}
		prefix = []byte{}
	}
	for i := len(s.frames) - 1; i >= 0; i-- {
		b := s.frames[i].bindings
		for j := len(b) - 1; j >= 0; j-- {
			if bytes.Equal(b[j].prefix, prefix) {
				return b[j].uriID
			}
		}
	}
	return 0
}

// URIString returns the uri bytes for id, or nil for id 0.
func (s *Scopes) URIString(id int) []byte {
	if id <= 0 || id >= len(s.uris) {
		return nil
	}
	return s.uris[id]
}

// Len returns the number of interned uris.
func (s *Scopes) Len() int {
	return len(s.uris) - 1
}

// Write serializes the uri dictionary. Frames are build-time state and are
// empty by the time a build completes; they are not persisted.
func (s *Scopes) Write(o *output.DataOutput) error {
	if err := o.WriteNum(uint32(s.Len())); err != nil {
		return err
	}
	for id := 1; id < len(s.uris); id++ {
		if _, err := o.WriteToken(s.uris[id]); err != nil {
			return err
		}
	}
	return nil
}

// Read deserializes a uri dictionary written with Write.
func Read(in *output.DataInput) (*Scopes, error) {
	n, err := in.ReadNum()
	if err != nil {
		return nil, err
	}
	s := NewScopes()
	for i := uint32(0); i < n; i++ {
		uri, err := in.ReadToken()
		if err != nil {
			return nil, err
		}
		id := len(s.uris)
		s.uriIDs[string(uri)] = id
		s.uris = append(s.uris, uri)
	}
	return s, nil
}
