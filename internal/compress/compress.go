// Package compress provides token compression for the text and
// attribute-value side files.
//
// Tokens are compressed individually. A token is stored compressed only when
// the compressed form is strictly shorter than the original; Pack reports
// which form was chosen so the caller can flag the stored reference. The
// codec in use is recorded in the database meta, so a database is always
// read with the codec it was written with.
package compress

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type represents a token compression codec.
type Type uint8

const (
	// None disables token compression.
	None Type = 0

	// Snappy uses Google Snappy block compression.
	Snappy Type = 1

	// Zstd uses Zstandard compression.
	Zstd Type = 2

	// LZ4 uses LZ4 raw block compression.
	LZ4 Type = 3
)

// String returns the human-readable name of the codec.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// ParseType returns the codec named by s.
func ParseType(s string) (Type, error) {
	switch s {
	case "none":
		return None, nil
	case "snappy":
		return Snappy, nil
	case "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	}
	return None, fmt.Errorf("compress: unknown codec %q", s)
}

// Pack compresses token with the given codec. It returns the bytes to store
// and whether they are compressed. The original token is returned unchanged
// when the codec is None, when compression fails to shrink the token, or
// when the token is incompressible.
func Pack(t Type, token []byte) ([]byte, bool) {
	if t == None || len(token) == 0 {
		return token, false
	}

	var packed []byte
	switch t {
	case Snappy:
		packed = snappy.Encode(nil, token)

	case Zstd:
		packed = zstdEncoder.EncodeAll(token, nil)

	case LZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(token)))
		var ht [1 << 16]int
		n, err := lz4.CompressBlock(token, dst, ht[:])
		if err != nil || n == 0 {
			// Incompressible input; store raw.
			return token, false
		}
		packed = dst[:n]

	default:
		return token, false
	}

	if len(packed) >= len(token) {
		return token, false
	}
	return packed, true
}

// Unpack reverses Pack for a token that was stored compressed.
// size is the uncompressed token length; it is required for LZ4 raw blocks
// and ignored by the other codecs.
func Unpack(t Type, packed []byte, size int) ([]byte, error) {
	switch t {
	case Snappy:
		return snappy.Decode(nil, packed)

	case Zstd:
		return zstdDecoder.DecodeAll(packed, nil)

	case LZ4:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(packed, dst)
		if err != nil {
			return nil, fmt.Errorf("lz4 uncompress block: %w", err)
		}
		return dst[:n], nil

	default:
		return nil, fmt.Errorf("compress: codec %s cannot unpack", t)
	}
}

// Shared zstd coders. EncodeAll/DecodeAll on zero-value-configured coders are
// safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(err)
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
}
