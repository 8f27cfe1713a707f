package output

import (
	"bufio"
	"io"

	"github.com/pretreedb/pretree/internal/encoding"
)

// DataInput reads back streams written with DataOutput.
type DataInput struct {
	r *bufio.Reader
}

// NewDataInput wraps r for sequential decoding.
func NewDataInput(r io.Reader) *DataInput {
	return &DataInput{r: bufio.NewReader(r)}
}

// Read1 reads a single byte.
func (in *DataInput) Read1() (uint8, error) {
	return in.r.ReadByte()
}

// Read2 reads a big-endian uint16.
func (in *DataInput) Read2() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(in.r, buf[:]); err != nil {
		return 0, err
	}
	return encoding.DecodeFixed16(buf[:]), nil
}

// Read4 reads a big-endian uint32.
func (in *DataInput) Read4() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(in.r, buf[:]); err != nil {
		return 0, err
	}
	return encoding.DecodeFixed32(buf[:]), nil
}

// Read5 reads a 40-bit big-endian value.
func (in *DataInput) Read5() (uint64, error) {
	var buf [5]byte
	if _, err := io.ReadFull(in.r, buf[:]); err != nil {
		return 0, err
	}
	return encoding.DecodeFixed40(buf[:]), nil
}

// ReadNum reads a canonical varint.
func (in *DataInput) ReadNum() (uint32, error) {
	var result uint32
	for shift := uint(0); shift < 35; shift += 7 {
		b, err := in.r.ReadByte()
		if err != nil {
			return 0, err
		}
		if b < 128 {
			return result | uint32(b)<<shift, nil
		}
		result |= uint32(b&0x7f) << shift
	}
	return 0, encoding.ErrVarintOverflow
}

// ReadToken reads a varint-length-prefixed token.
func (in *DataInput) ReadToken() ([]byte, error) {
	n, err := in.ReadNum()
	if err != nil {
		return nil, err
	}
	token := make([]byte, n)
	if _, err := io.ReadFull(in.r, token); err != nil {
		return nil, err
	}
	return token, nil
}
