package builder

import (
	"github.com/pretreedb/pretree/internal/compress"
	"github.com/pretreedb/pretree/internal/encoding"
)

// PackToken prepares value for storage in a side file. When the codec
// shrinks the value, the stored form is a varint of the uncompressed
// length followed by the compressed bytes, and true is returned; LZ4 raw
// blocks cannot be unpacked without that length. The value itself is
// returned when compression does not pay off once the prefix is counted.
func PackToken(codec compress.Type, value []byte) ([]byte, bool) {
	pack, compressed := compress.Pack(codec, value)
	if !compressed {
		return value, false
	}
	stored := encoding.AppendVarint(nil, uint32(len(value)))
	stored = append(stored, pack...)
	if len(stored) >= len(value) {
		return value, false
	}
	return stored, true
}

// UnpackToken reverses PackToken for a token stored compressed.
func UnpackToken(codec compress.Type, stored []byte) ([]byte, error) {
	size, n, err := encoding.DecodeVarint(stored)
	if err != nil {
		return nil, err
	}
	return compress.Unpack(codec, stored[n:], int(size))
}
