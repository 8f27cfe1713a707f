// Package output provides the append-only writers and sequential readers
// used for all database streams.
//
// DataOutput buffers writes and offers the fixed-width primitives of the
// row format (1/2/4/5-byte big-endian), canonical varints, and
// varint-length-prefixed tokens. Every byte written is also fed into a
// running XXH3 digest; the disk back-end records the digests of the table,
// text and attribute-value streams in the database meta.
package output

import (
	"runtime"

	"github.com/zeebo/xxh3"

	"github.com/pretreedb/pretree/internal/encoding"
	"github.com/pretreedb/pretree/internal/vfs"
)

// BlockSize is the granularity of stream buffers.
const BlockSize = 4096

// maxBuffer caps stream buffers at 4 MiB.
const maxBuffer = 4 << 20

// BufferSize returns the buffer size for a stream whose final size is
// expected to be around sizeHint bytes: the hint clamped to
// [BlockSize, min(4 MiB, free heap/4)] and rounded down to a multiple of
// BlockSize. A non-positive hint yields BlockSize.
func BufferSize(sizeHint int64) int {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	ceil := int64(m.HeapSys-m.HeapAlloc) / 4
	if ceil > maxBuffer {
		ceil = maxBuffer
	}
	if ceil < BlockSize {
		ceil = BlockSize
	}
	size := sizeHint
	if size > ceil {
		size = ceil
	}
	if size < BlockSize {
		size = BlockSize
	}
	return int(size &^ (BlockSize - 1))
}

// DataOutput is a buffered append-only writer for one database stream.
type DataOutput struct {
	f      vfs.WritableFile
	buf    []byte
	size   int64
	digest *xxh3.Hasher
}

// NewDataOutput wraps f with a buffer sized for sizeHint expected bytes.
func NewDataOutput(f vfs.WritableFile, sizeHint int64) *DataOutput {
	return &DataOutput{
		f:      f,
		buf:    make([]byte, 0, BufferSize(sizeHint)),
		digest: xxh3.New(),
	}
}

// Size returns the number of bytes written so far.
func (o *DataOutput) Size() int64 {
	return o.size
}

// Sum64 returns the XXH3 digest of all bytes written so far.
func (o *DataOutput) Sum64() uint64 {
	return o.digest.Sum64()
}

func (o *DataOutput) write(p []byte) error {
	o.size += int64(len(p))
	_, _ = o.digest.Write(p)
	if len(o.buf)+len(p) <= cap(o.buf) {
		o.buf = append(o.buf, p...)
		return nil
	}
	if err := o.Flush(); err != nil {
		return err
	}
	if len(p) >= cap(o.buf) {
		_, err := o.f.Write(p)
		return err
	}
	o.buf = append(o.buf, p...)
	return nil
}

// Write1 writes a single byte.
func (o *DataOutput) Write1(v uint8) error {
	return o.write([]byte{v})
}

// Write2 writes a big-endian uint16.
func (o *DataOutput) Write2(v uint16) error {
	var buf [2]byte
	encoding.EncodeFixed16(buf[:], v)
	return o.write(buf[:])
}

// Write4 writes a big-endian uint32.
func (o *DataOutput) Write4(v uint32) error {
	var buf [4]byte
	encoding.EncodeFixed32(buf[:], v)
	return o.write(buf[:])
}

// Write5 writes the low 40 bits of v as 5 big-endian bytes.
func (o *DataOutput) Write5(v uint64) error {
	var buf [5]byte
	encoding.EncodeFixed40(buf[:], v)
	return o.write(buf[:])
}

// WriteNum writes v as a canonical varint.
func (o *DataOutput) WriteNum(v uint32) error {
	var buf [encoding.MaxVarintLength]byte
	n := encoding.EncodeVarint(buf[:], v)
	return o.write(buf[:n])
}

// WriteBytes writes raw bytes with no prefix.
func (o *DataOutput) WriteBytes(p []byte) error {
	return o.write(p)
}

// WriteToken writes a varint-length-prefixed token and returns the total
// number of bytes written for it.
func (o *DataOutput) WriteToken(token []byte) (int, error) {
	if err := o.WriteNum(uint32(len(token))); err != nil {
		return 0, err
	}
	if err := o.write(token); err != nil {
		return 0, err
	}
	return encoding.VarintLength(uint32(len(token))) + len(token), nil
}

// Flush writes buffered bytes to the underlying file.
func (o *DataOutput) Flush() error {
	if len(o.buf) == 0 {
		return nil
	}
	_, err := o.f.Write(o.buf)
	o.buf = o.buf[:0]
	return err
}

// Close flushes, syncs and closes the stream.
func (o *DataOutput) Close() error {
	if err := o.Flush(); err != nil {
		_ = o.f.Close()
		return err
	}
	if err := o.f.Sync(); err != nil {
		_ = o.f.Close()
		return err
	}
	return o.f.Close()
}
