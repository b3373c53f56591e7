package segwin

import (
	"encoding/binary"
	"unsafe"
)

// nativeOrder is resolved once at init time by inspecting the host's byte
// order. The V2 dictionary header file is written and read in native byte
// order by design (see DESIGN.md, "V2 header endianness"), which makes it
// non-portable across heterogeneous-endian deployments — an accepted,
// documented limitation inherited from the source format, not a bug.
var nativeOrder binary.ByteOrder

// NativeOrder exposes the resolved native byte order so writers can encode
// the V2 header file with the same order readers decode it with.
func NativeOrder() binary.ByteOrder {
	return nativeOrder
}

func init() {
	var i uint16 = 1
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 1 {
		nativeOrder = binary.LittleEndian
	} else {
		nativeOrder = binary.BigEndian
	}
}
