package xdr

import (
	"errors"
	"math"
	"testing"
)

func TestReaderIntegers(t *testing.T) {
	data := []byte{
		0x34, 0x12, // uint16: 0x1234
		0x78, 0x56, 0x34, 0x12, // uint32: 0x12345678
		0xEF, 0xCD, 0xAB, 0x89, 0x67, 0x45, 0x23, 0x01, // uint64: 0x0123456789ABCDEF
	}
	r := NewReader(data)

	u16, err := r.ReadUint16()
	if err != nil {
		t.Fatalf("ReadUint16() error = %v", err)
	}
	if u16 != 0x1234 {
		t.Errorf("ReadUint16() = 0x%04X, want 0x1234", u16)
	}

	u32, err := r.ReadUint32()
	if err != nil {
		t.Fatalf("ReadUint32() error = %v", err)
	}
	if u32 != 0x12345678 {
		t.Errorf("ReadUint32() = 0x%08X, want 0x12345678", u32)
	}

	u64, err := r.ReadUint64()
	if err != nil {
		t.Fatalf("ReadUint64() error = %v", err)
	}
	if u64 != 0x0123456789ABCDEF {
		t.Errorf("ReadUint64() = 0x%016X, want 0x0123456789ABCDEF", u64)
	}

	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if _, err := r.ReadByte(); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("ReadByte() past end error = %v, want ErrShortBuffer", err)
	}
}

func TestWriterReaderValues(t *testing.T) {
	w := NewBufferWriter(0)
	w.WriteBool(true)
	w.WriteInt32(-3)
	w.WriteFloat32(float32(math.Pi))
	w.WriteString("color_space")
	w.WriteSized([]byte{9, 8, 7})

	r := NewReader(w.Bytes())
	if b, _ := r.ReadBool(); !b {
		t.Error("ReadBool() = false, want true")
	}
	if v, _ := r.ReadInt32(); v != -3 {
		t.Errorf("ReadInt32() = %d, want -3", v)
	}
	if v, _ := r.ReadFloat32(); v != float32(math.Pi) {
		t.Errorf("ReadFloat32() = %v, want %v", v, float32(math.Pi))
	}
	if s, err := r.ReadString(64); err != nil || s != "color_space" {
		t.Errorf("ReadString() = %q, %v", s, err)
	}
	b, err := r.ReadSized(3)
	if err != nil {
		t.Fatalf("ReadSized() error = %v", err)
	}
	if len(b) != 3 || b[0] != 9 || b[2] != 7 {
		t.Errorf("ReadSized() = %v, want [9 8 7]", b)
	}
}

func TestReadSizedLimit(t *testing.T) {
	w := NewBufferWriter(8)
	w.WriteUint32(0xFFFFFFF0) // forged length, no payload
	r := NewReader(w.Bytes())
	if _, err := r.ReadSized(1 << 20); !errors.Is(err, ErrFieldTooLarge) {
		t.Errorf("ReadSized() error = %v, want ErrFieldTooLarge", err)
	}

	w = NewBufferWriter(8)
	w.WriteUint32(16)
	w.WriteBytes([]byte{1, 2})
	r = NewReader(w.Bytes())
	if _, err := r.ReadSized(1 << 20); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("ReadSized() truncated error = %v, want ErrShortBuffer", err)
	}
}

func TestReaderSkip(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	if err := r.Skip(-1); !errors.Is(err, ErrNegativeSize) {
		t.Errorf("Skip(-1) error = %v, want ErrNegativeSize", err)
	}
	if err := r.Skip(4); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("Skip(4) error = %v, want ErrShortBuffer", err)
	}
	if err := r.Skip(2); err != nil {
		t.Fatalf("Skip(2) error = %v", err)
	}
	if r.Pos() != 2 {
		t.Errorf("Pos() = %d, want 2", r.Pos())
	}
}
