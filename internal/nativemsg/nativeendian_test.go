//go:build amd64 || arm64 || 386

package nativemsg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"
)

// These tests assume a little-endian architecture.
func TestNativeEndian(t *testing.T) {
	if detectByteOrder() != binary.LittleEndian {
		t.Fatalf("detectByteOrder() got %v, want LittleEndian", detectByteOrder())
	}

	var tests = []struct {
		raw []byte
		n   uint32
	}{
		{[]byte("\x01\x00\x00\x00"), 1},
		{[]byte("\x00\x00\x00\x01"), 0x1000000},
		{[]byte("\x11\x00\x00\x00"), 17},
	}

	for _, tt := range tests {
		testname := fmt.Sprintf("%d", tt.n)
		t.Run(testname, func(t *testing.T) {
			n, ok := FrameLength(tt.raw)
			if !ok || n != tt.n {
				t.Errorf("FrameLength() got %d, %v, want %d", n, ok, tt.n)
			}

			rt := make([]byte, headerLen)
			putLength(rt, int(n))
			if !bytes.Equal(rt, tt.raw) {
				t.Errorf("putLength() got %v, want %v", rt, tt.raw)
			}
		})
	}
}

func TestFrameLengthShort(t *testing.T) {
	if _, ok := FrameLength([]byte{1, 2, 3}); ok {
		t.Error("FrameLength() accepted a 3-byte buffer")
	}
}
