package builder

// Attr is one attribute of an element event.
type Attr struct {
	Name  []byte
	Value []byte
}

// Binding is one namespace declaration of an element event.
type Binding struct {
	// Prefix is the declared prefix; empty for the default namespace.
	Prefix []byte
	URI    []byte
}

// Events is the sink a parser drives. Byte buffers passed in are only valid
// for the duration of the call; the sink copies what it retains. Names and
// values are UTF-8 byte strings.
//
// Valid event order: a document opens at level 0, elements nest freely
// inside it, and every open is matched by a close. Events outside that
// order are parser bugs and surface as build errors.
type Events interface {
	OpenDoc(name []byte) error
	CloseDoc() error
	OpenElem(name []byte, atts []Attr, nsps []Binding) error
	EmptyElem(name []byte, atts []Attr, nsps []Binding) error
	CloseElem() error
	Text(value []byte) error
	Comment(value []byte) error
	PI(value []byte) error
}

// Parser drives a builder with structural events.
type Parser interface {
	// Parse delivers the event stream to e. Errors from e must be
	// returned unchanged.
	Parse(e Events) error

	// Detail describes the parser's current position, used to annotate
	// build errors and progress displays.
	Detail() string

	// Progress returns the parse completion fraction in [0, 1], or a
	// negative value if unknown.
	Progress() float64
}

// Sized is optionally implemented by parsers that know the input size in
// advance; the disk back-end uses it to size stream buffers.
type Sized interface {
	Len() int64
}
