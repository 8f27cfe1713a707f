package pretree

import (
	"github.com/pretreedb/pretree/internal/builder"
	"github.com/pretreedb/pretree/internal/compress"
	"github.com/pretreedb/pretree/internal/logging"
)

// Logger is an alias for the logging.Logger interface.
// Users can provide their own implementation or use the default.
type Logger = logging.Logger

// Compression is the token compression codec for the side files.
type Compression = compress.Type

// Compression codec constants.
const (
	CompressionNone   = compress.None
	CompressionSnappy = compress.Snappy
	CompressionZstd   = compress.Zstd
	CompressionLZ4    = compress.LZ4
)

// Event protocol aliases, for implementing custom parsers.
type (
	// Events is the sink a parser drives.
	Events = builder.Events
	// Parser drives a builder with structural events.
	Parser = builder.Parser
	// Attr is one attribute of an element event.
	Attr = builder.Attr
	// Binding is one namespace declaration of an element event.
	Binding = builder.Binding
)

// Limit and failure sentinels, re-exported for errors.Is.
var (
	ErrLimitElems = builder.ErrLimitElems
	ErrLimitAtts  = builder.ErrLimitAtts
	ErrLimitNS    = builder.ErrLimitNS
	ErrLimitRange = builder.ErrLimitRange
	ErrCancelled  = builder.ErrCancelled
)

// Options configures database creation.
type Options struct {
	// DBPath is the directory databases are created under.
	// Default: "data".
	DBPath string

	// Compression is the token codec for text and attribute values.
	// Default: CompressionNone.
	Compression Compression

	// Logger receives build diagnostics. Default: a WARN-level logger
	// on stderr.
	Logger Logger
}

// DefaultOptions returns the default creation options.
func DefaultOptions() *Options {
	return &Options{
		DBPath: "data",
	}
}

// withDefaults fills unset fields. A nil receiver yields the defaults.
func (o *Options) withDefaults() *Options {
	out := DefaultOptions()
	if o == nil {
		return out
	}
	if o.DBPath != "" {
		out.DBPath = o.DBPath
	}
	out.Compression = o.Compression
	if !logging.IsNil(o.Logger) {
		out.Logger = o.Logger
	}
	return out
}
