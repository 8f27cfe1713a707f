// Package names maps element and attribute names to dense integer ids and
// tracks per-name statistics.
//
// Ids are 1-based and dense; id 0 is never assigned. A dictionary holds at
// most MaxNames-1 entries so every id fits the 15-bit name field of an
// element row. Each entry carries usage statistics: an occurrence count,
// value-length bounds, a capped sample of distinct values, and a leaf flag
// that is cleared once any non-text child is observed below an instance of
// the name.
package names

import (
	"errors"
	"sort"

	"github.com/pretreedb/pretree/internal/output"
)

// MaxNames is the hard capacity of a dictionary. Ids are strictly below it.
const MaxNames = 0x8000

// maxValues caps the distinct-value sample per name. Once exceeded, the
// sample is discarded and only the length bounds are maintained.
const maxValues = 50

// ErrFull is returned when a dictionary has no free ids left.
var ErrFull = errors.New("names: dictionary full")

// Stats aggregates what has been seen under one name.
type Stats struct {
	// Count is the number of times the name occurred.
	Count uint32
	// MinLen and MaxLen bound the lengths of all recorded values.
	MinLen, MaxLen int
	// Values samples distinct values with occurrence counts. Nil once
	// more than maxValues distinct values were seen.
	Values map[string]uint32

	leaf     bool
	hasValue bool
}

// Leaf reports whether every recorded instance of the name was a leaf.
func (s *Stats) Leaf() bool {
	return s.leaf
}

// SetLeaf updates the leaf flag.
func (s *Stats) SetLeaf(leaf bool) {
	s.leaf = leaf
}

func (s *Stats) addValue(value []byte) {
	l := len(value)
	if !s.hasValue || l < s.MinLen {
		s.MinLen = l
	}
	if !s.hasValue || l > s.MaxLen {
		s.MaxLen = l
	}
	s.hasValue = true
	if s.Values == nil {
		return
	}
	key := string(value)
	if _, ok := s.Values[key]; !ok && len(s.Values) >= maxValues {
		s.Values = nil
		return
	}
	s.Values[key]++
}

// Index is one name dictionary (element names or attribute names).
type Index struct {
	ids   map[string]int
	names [][]byte // 1-based; names[0] unused
	stats []*Stats // parallel to names
}

// NewIndex returns an empty dictionary.
func NewIndex() *Index {
	return &Index{
		ids:   make(map[string]int),
		names: make([][]byte, 1),
		stats: make([]*Stats, 1),
	}
}

// Len returns the number of names in the dictionary.
func (ix *Index) Len() int {
	return len(ix.names) - 1
}

// Index returns the id for name, allocating one if needed. If stats is
// true and value is non-nil, the value is recorded in the name's
// statistics. Returns ErrFull when the dictionary capacity is exhausted.
func (ix *Index) Index(name []byte, value []byte, stats bool) (int, error) {
	id, ok := ix.ids[string(name)]
	if !ok {
		if len(ix.names) >= MaxNames {
			return 0, ErrFull
		}
		id = len(ix.names)
		owned := append([]byte(nil), name...)
		ix.ids[string(owned)] = id
		ix.names = append(ix.names, owned)
		ix.stats = append(ix.stats, &Stats{leaf: true, Values: make(map[string]uint32)})
	}
	st := ix.stats[id]
	st.Count++
	if stats && value != nil {
		st.addValue(value)
	}
	return id, nil
}

// IndexText records a text value under an existing element name id.
func (ix *Index) IndexText(id int, value []byte) {
	ix.stats[id].addValue(value)
}

// Stat returns the statistics entry for id.
func (ix *Index) Stat(id int) *Stats {
	return ix.stats[id]
}

// Name returns the name bytes for id.
func (ix *Index) Name(id int) []byte {
	return ix.names[id]
}

// Names returns all names in id order.
func (ix *Index) Names() [][]byte {
	return ix.names[1:]
}

// Write serializes the dictionary.
func (ix *Index) Write(o *output.DataOutput) error {
	if err := o.WriteNum(uint32(ix.Len())); err != nil {
		return err
	}
	for id := 1; id < len(ix.names); id++ {
		if _, err := o.WriteToken(ix.names[id]); err != nil {
			return err
		}
		st := ix.stats[id]
		var flags uint8
		if st.leaf {
			flags |= 1
		}
		if st.hasValue {
			flags |= 2
		}
		if st.Values != nil {
			flags |= 4
		}
		if err := o.Write1(flags); err != nil {
			return err
		}
		if err := o.WriteNum(st.Count); err != nil {
			return err
		}
		if st.hasValue {
			if err := o.WriteNum(uint32(st.MinLen)); err != nil {
				return err
			}
			if err := o.WriteNum(uint32(st.MaxLen)); err != nil {
				return err
			}
		}
		if st.Values != nil {
			keys := make([]string, 0, len(st.Values))
			for k := range st.Values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if err := o.WriteNum(uint32(len(keys))); err != nil {
				return err
			}
			for _, k := range keys {
				if _, err := o.WriteToken([]byte(k)); err != nil {
					return err
				}
				if err := o.WriteNum(st.Values[k]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Read deserializes a dictionary written with Write.
func Read(in *output.DataInput) (*Index, error) {
	n, err := in.ReadNum()
	if err != nil {
		return nil, err
	}
	ix := NewIndex()
	for i := uint32(0); i < n; i++ {
		name, err := in.ReadToken()
		if err != nil {
			return nil, err
		}
		flags, err := in.Read1()
		if err != nil {
			return nil, err
		}
		count, err := in.ReadNum()
		if err != nil {
			return nil, err
		}
		st := &Stats{
			leaf:     flags&1 != 0,
			hasValue: flags&2 != 0,
			Count:    count,
		}
		if st.hasValue {
			minLen, err := in.ReadNum()
			if err != nil {
				return nil, err
			}
			maxLen, err := in.ReadNum()
			if err != nil {
				return nil, err
			}
			st.MinLen, st.MaxLen = int(minLen), int(maxLen)
		}
		if flags&4 != 0 {
			nv, err := in.ReadNum()
			if err != nil {
				return nil, err
			}
			st.Values = make(map[string]uint32, nv)
			for j := uint32(0); j < nv; j++ {
				v, err := in.ReadToken()
				if err != nil {
					return nil, err
				}
				c, err := in.ReadNum()
				if err != nil {
					return nil, err
				}
				st.Values[string(v)] = c
			}
		}
		id := len(ix.names)
		ix.ids[string(name)] = id
		ix.names = append(ix.names, name)
		ix.stats = append(ix.stats, st)
	}
	return ix, nil
}
