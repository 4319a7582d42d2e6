package scramble

import (
	"bytes"
	"testing"
	"testing/quick"
)

func TestSequence(t *testing.T) {
	expected := []byte{0xFF, 0x48, 0x0E, 0xC0, 0x9A, 0x0D, 0x70, 0xBC, 0x8E, 0x2C, 0x93, 0xAD}

	seq := Sequence()
	if !bytes.Equal(seq[:len(expected)], expected) {
		t.Fatalf("Expected %02X got %02X\n", expected, seq[:len(expected)])
	}
}

func TestApplyWraps(t *testing.T) {
	buf := make([]byte, Period+2)
	Apply(buf)

	if buf[Period] != 0xFF || buf[Period+1] != 0x48 {
		t.Fatalf("sequence did not restart: %02X", buf[Period:])
	}
}

func TestApplyInvolution(t *testing.T) {
	f := func(data []byte) bool {
		buf := append([]byte(nil), data...)
		Apply(buf)
		Apply(buf)
		return bytes.Equal(buf, data)
	}

	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}
