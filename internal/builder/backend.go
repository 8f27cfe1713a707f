package builder

import "github.com/pretreedb/pretree/internal/table"

// Backend receives the rows the front-end produces. The disk back-end
// appends to stream files and patches sizes in a second pass; the memory
// back-end mutates an in-memory table directly. Row ids are assigned by
// the front-end through the shared Meta; a backend always appends the row
// for pre = meta.Size.
type Backend interface {
	// AddDoc appends a document row. name is the document name token.
	AddDoc(name []byte) error

	// AddElem appends an element row.
	AddElem(dist uint32, nameID, asize, uriID int, nsFlag bool) error

	// AddAttr appends an attribute row. dist is the offset from the
	// owning element, in [1, MaxAttsPerElem].
	AddAttr(nameID int, value []byte, dist int, uriID int) error

	// AddText appends a text, comment or processing instruction row.
	AddText(value []byte, dist uint32, kind table.Kind) error

	// SetSize records the subtree size of the DOC or ELEM row at pre.
	// The disk back-end defers the write to the patch pass; the memory
	// back-end updates the row immediately.
	SetSize(pre int, size uint32) error

	// Close finishes the build: flushes streams, runs the patch pass,
	// and publishes the meta. After Close returns nil the database is
	// complete on its medium.
	Close() error

	// Abort discards all partial state. It never fails loudly; cleanup
	// errors are logged at debug level.
	Abort()
}
