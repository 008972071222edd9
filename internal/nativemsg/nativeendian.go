package nativemsg

import (
	"encoding/binary"
	"unsafe"
)

// nativeEndian is the runtime native byte order.  Browsers write the frame
// length in the host CPU's order, not a fixed one.
var nativeEndian = detectByteOrder()

// detectByteOrder inspects the in-memory layout of a known integer.
func detectByteOrder() binary.ByteOrder {
	var i int32 = 1
	if b := (*byte)(unsafe.Pointer(&i)); *b == 0 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// putLength writes n as a frame length prefix into the first headerLen bytes
// of buf.
func putLength(buf []byte, n int) {
	nativeEndian.PutUint32(buf[:headerLen], uint32(n))
}

// FrameLength interprets the first 4 bytes of a frame as its payload length.
func FrameLength(frame []byte) (uint32, bool) {
	if len(frame) < headerLen {
		return 0, false
	}
	return nativeEndian.Uint32(frame[:headerLen]), true
}
