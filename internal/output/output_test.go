package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/xxh3"

	"github.com/pretreedb/pretree/internal/vfs"
)

func TestBufferSize(t *testing.T) {
	tests := []struct {
		name string
		hint int64
	}{
		{"zero", 0},
		{"negative", -1},
		{"small", 100},
		{"one block", BlockSize},
		{"odd", 10000},
		{"huge", 1 << 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BufferSize(tt.hint)
			if got < BlockSize {
				t.Errorf("BufferSize(%d) = %d, below BlockSize", tt.hint, got)
			}
			if got > maxBuffer {
				t.Errorf("BufferSize(%d) = %d, above 4 MiB", tt.hint, got)
			}
			if got%BlockSize != 0 {
				t.Errorf("BufferSize(%d) = %d, not a multiple of BlockSize", tt.hint, got)
			}
		})
	}
}

func newOutput(t *testing.T) (*DataOutput, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stream")
	f, err := vfs.Default().Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return NewDataOutput(f, 0), path
}

func TestDataOutputPrimitives(t *testing.T) {
	o, path := newOutput(t)

	if err := o.Write1(0xAB); err != nil {
		t.Fatal(err)
	}
	if err := o.Write2(0x1234); err != nil {
		t.Fatal(err)
	}
	if err := o.Write4(0xDEADBEEF); err != nil {
		t.Fatal(err)
	}
	if err := o.Write5(0x1234567890); err != nil {
		t.Fatal(err)
	}
	if err := o.WriteNum(300); err != nil {
		t.Fatal(err)
	}
	n, err := o.WriteToken([]byte("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("WriteToken = %d bytes, want 3", n)
	}

	want := []byte{
		0xAB,
		0x12, 0x34,
		0xDE, 0xAD, 0xBE, 0xEF,
		0x12, 0x34, 0x56, 0x78, 0x90,
		0xAC, 0x02,
		0x02, 'h', 'i',
	}
	if o.Size() != int64(len(want)) {
		t.Errorf("Size = %d, want %d", o.Size(), len(want))
	}
	if o.Sum64() != xxh3.Hash(want) {
		t.Errorf("Sum64 mismatch")
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("stream = % x, want % x", got, want)
	}
}

func TestDataOutputLargeWrites(t *testing.T) {
	o, path := newOutput(t)

	// Larger than any buffer: must pass through without loss or reorder.
	big := bytes.Repeat([]byte{0x5A}, 5<<20)
	if err := o.WriteBytes([]byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := o.WriteBytes(big); err != nil {
		t.Fatal(err)
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3+len(big) {
		t.Fatalf("file length = %d, want %d", len(got), 3+len(big))
	}
	if !bytes.Equal(got[:3], []byte{1, 2, 3}) || got[3] != 0x5A || got[len(got)-1] != 0x5A {
		t.Error("stream contents corrupted around buffer boundary")
	}
}

func TestDataInputRoundTrip(t *testing.T) {
	o, path := newOutput(t)
	if err := o.Write1(7); err != nil {
		t.Fatal(err)
	}
	if err := o.Write2(0x7FFF); err != nil {
		t.Fatal(err)
	}
	if err := o.Write4(1 << 30); err != nil {
		t.Fatal(err)
	}
	if err := o.Write5(1 << 39); err != nil {
		t.Fatal(err)
	}
	if err := o.WriteNum(16384); err != nil {
		t.Fatal(err)
	}
	if _, err := o.WriteToken([]byte("token")); err != nil {
		t.Fatal(err)
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := vfs.Default().Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	in := NewDataInput(f)

	if v, err := in.Read1(); err != nil || v != 7 {
		t.Errorf("Read1 = (%d, %v)", v, err)
	}
	if v, err := in.Read2(); err != nil || v != 0x7FFF {
		t.Errorf("Read2 = (%d, %v)", v, err)
	}
	if v, err := in.Read4(); err != nil || v != 1<<30 {
		t.Errorf("Read4 = (%d, %v)", v, err)
	}
	if v, err := in.Read5(); err != nil || v != 1<<39 {
		t.Errorf("Read5 = (%#x, %v)", v, err)
	}
	if v, err := in.ReadNum(); err != nil || v != 16384 {
		t.Errorf("ReadNum = (%d, %v)", v, err)
	}
	if tok, err := in.ReadToken(); err != nil || !bytes.Equal(tok, []byte("token")) {
		t.Errorf("ReadToken = (%q, %v)", tok, err)
	}
}
