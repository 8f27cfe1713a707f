// Package pathidx maintains the path summary: the set of distinct
// root-to-node paths observed during a build, keyed by name id, node kind
// and depth, with occurrence counts and value statistics for leaf kinds.
//
// During a build the summary only accepts appends; queries are meant for
// the published database handle.
package pathidx

import (
	"sort"

	"github.com/pretreedb/pretree/internal/output"
	"github.com/pretreedb/pretree/internal/table"
)

// Node is one distinct (name id, kind, depth) path entry.
type Node struct {
	NameID int
	Kind   table.Kind
	Depth  int
	Count  uint32

	// Value-length bounds for leaf kinds that carry values.
	MinLen, MaxLen int
	hasValue       bool
}

type key struct {
	nameID int
	kind   table.Kind
	depth  int
}

// Summary is the build-time path summary.
type Summary struct {
	nodes map[key]*Node
}

// New returns an empty path summary.
func New() *Summary {
	return &Summary{nodes: make(map[key]*Node)}
}

// Put records the occurrence of a node at the given position. value may be
// nil; for leaf kinds it contributes to the entry's value statistics.
func (s *Summary) Put(nameID int, kind table.Kind, depth int, value []byte) {
	k := key{nameID: nameID, kind: kind, depth: depth}
	n := s.nodes[k]
	if n == nil {
		n = &Node{NameID: nameID, Kind: kind, Depth: depth}
		s.nodes[k] = n
	}
	n.Count++
	if value != nil {
		l := len(value)
		if !n.hasValue || l < n.MinLen {
			n.MinLen = l
		}
		if !n.hasValue || l > n.MaxLen {
			n.MaxLen = l
		}
		n.hasValue = true
	}
}

// Len returns the number of distinct paths.
func (s *Summary) Len() int {
	return len(s.nodes)
}

// Nodes returns all entries ordered by depth, kind, name id.
func (s *Summary) Nodes() []*Node {
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.NameID < b.NameID
	})
	return out
}

// DepthHistogram returns the number of distinct paths per depth, indexed
// by depth.
func (s *Summary) DepthHistogram() []int {
	maxDepth := -1
	for _, n := range s.nodes {
		if n.Depth > maxDepth {
			maxDepth = n.Depth
		}
	}
	hist := make([]int, maxDepth+1)
	for _, n := range s.nodes {
		hist[n.Depth]++
	}
	return hist
}

// Write serializes the summary.
func (s *Summary) Write(o *output.DataOutput) error {
	nodes := s.Nodes()
	if err := o.WriteNum(uint32(len(nodes))); err != nil {
		return err
	}
	for _, n := range nodes {
		if err := o.WriteNum(uint32(n.NameID)); err != nil {
			return err
		}
		if err := o.Write1(uint8(n.Kind)); err != nil {
			return err
		}
		if err := o.WriteNum(uint32(n.Depth)); err != nil {
			return err
		}
		if err := o.WriteNum(n.Count); err != nil {
			return err
		}
		var flags uint8
		if n.hasValue {
			flags = 1
		}
		if err := o.Write1(flags); err != nil {
			return err
		}
		if n.hasValue {
			if err := o.WriteNum(uint32(n.MinLen)); err != nil {
				return err
			}
			if err := o.WriteNum(uint32(n.MaxLen)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Read deserializes a summary written with Write.
func Read(in *output.DataInput) (*Summary, error) {
	count, err := in.ReadNum()
	if err != nil {
		return nil, err
	}
	s := New()
	for i := uint32(0); i < count; i++ {
		nameID, err := in.ReadNum()
		if err != nil {
			return nil, err
		}
		kind, err := in.Read1()
		if err != nil {
			return nil, err
		}
		depth, err := in.ReadNum()
		if err != nil {
			return nil, err
		}
		occ, err := in.ReadNum()
		if err != nil {
			return nil, err
		}
		flags, err := in.Read1()
		if err != nil {
			return nil, err
		}
		n := &Node{
			NameID: int(nameID),
			Kind:   table.Kind(kind),
			Depth:  int(depth),
			Count:  occ,
		}
		if flags&1 != 0 {
			minLen, err := in.ReadNum()
			if err != nil {
				return nil, err
			}
			maxLen, err := in.ReadNum()
			if err != nil {
				return nil, err
			}
			n.MinLen, n.MaxLen, n.hasValue = int(minLen), int(maxLen), true
		}
		s.nodes[key{nameID: n.NameID, kind: n.Kind, depth: n.Depth}] = n
	}
	return s, nil
}
