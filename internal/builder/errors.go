package builder

import (
	"errors"
	"fmt"

	"github.com/pretreedb/pretree/internal/table"
)

var (
	// ErrLimitElems is returned when the element name dictionary exceeds
	// its capacity of 0x8000 entries.
	ErrLimitElems = errors.New("builder: too many distinct element names")

	// ErrLimitAtts is returned when the attribute name dictionary exceeds
	// its capacity of 0x8000 entries.
	ErrLimitAtts = errors.New("builder: too many distinct attribute names")

	// ErrLimitNS is returned when the namespace uri dictionary exceeds
	// its capacity of 0x100 entries.
	ErrLimitNS = errors.New("builder: too many distinct namespace uris")

	// ErrLimitRange is returned when the node count would exceed 2^31-1
	// or a side file outgrows its 38-bit offset space.
	ErrLimitRange = errors.New("builder: database size limit reached")

	// ErrCancelled is returned when the host stop flag was observed.
	ErrCancelled = errors.New("builder: build cancelled")
)

// MaxAttsPerElem is the widest attribute count the element row can encode.
// Elements with more attributes are still built; their asize field and
// attribute distances saturate at this value and the subtree size is
// patched explicitly.
const MaxAttsPerElem = table.MaxAtts

// NamespaceError reports a prefixed name with no in-scope binding.
type NamespaceError struct {
	// Name is the qname that failed to resolve.
	Name []byte
}

func (e *NamespaceError) Error() string {
	return fmt.Sprintf("builder: no namespace declared for %q", e.Name)
}
