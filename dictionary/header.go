package dictionary

import (
	"encoding/binary"
	"io"
	"strconv"

	"github.com/UngureanuSerg/druid/segwin"
)

// versionByte identifies the on-disk container format (spec.md §4.3).
type versionByte byte

const (
	// versionReservedStringDict is used elsewhere (an encoded-string
	// dictionary format) and MUST be rejected here.
	versionReservedStringDict versionByte = 0x00
	versionV1                versionByte = 0x01
	versionV2                versionByte = 0x02
)

// PeekVersion reads the first byte of a container without consuming
// anything else, and rejects unknown or reserved versions.
func PeekVersion(w segwin.Window) (byte, error) {
	if w.Len() < 1 {
		return 0, errCorruptData("container too short to contain a version byte")
	}
	v := w.Bytes()[0]
	switch versionByte(v) {
	case versionV1, versionV2:
		return v, nil
	default:
		return 0, errUnknownVersion(v)
	}
}

// headerV1 holds the fixed-size prologue fields of a V1 container, i.e.
// everything before the offsets table.
type headerV1 struct {
	reverseLookupAllowed bool
	numElements          int32
	numBytesUsed         int32
}

const headerV1PrologueSize = 10 // version(1) + reverseLookup(1) + numBytesUsed(4) + numElements(4)

// parseHeaderV1 reads the V1 prologue from w (a window over the whole V1
// blob, positioned at 0) and returns the parsed header plus the two
// sub-windows for the offsets table and the payload region, per spec.md
// §4.3/§4.4: numBytesUsed is defined as the byte count from the start of
// numElements to the end of the buffer, i.e. 4 (numElements) + 4*n
// (offsets) + len(payload); the sliced sub-region is then split into the
// offsets table and the payload region.
func parseHeaderV1(w segwin.Window) (headerV1, segwin.Window, segwin.Window, error) {
	var h headerV1

	if w.Len() < headerV1PrologueSize {
		return h, segwin.Window{}, segwin.Window{}, errCorruptData("V1 header shorter than prologue")
	}

	raw := w.Bytes()
	h.reverseLookupAllowed = raw[1] != 0

	numBytesUsed, err := w.ReadInt32BE(2)
	if err != nil {
		return h, segwin.Window{}, segwin.Window{}, errCorruptData("read V1 numBytesUsed")
	}
	h.numBytesUsed = numBytesUsed

	numElements, err := w.ReadInt32BE(6)
	if err != nil {
		return h, segwin.Window{}, segwin.Window{}, errCorruptData("read V1 numElements")
	}
	if numElements < 0 {
		return h, segwin.Window{}, segwin.Window{}, errCorruptData("V1 numElements is negative")
	}
	h.numElements = numElements

	offsetsLen := int(numElements) * 4
	offsetsStart := headerV1PrologueSize
	offsetsEnd := offsetsStart + offsetsLen
	payloadStart := offsetsEnd
	payloadEnd := w.Capacity()

	expectedNumBytesUsed := int32(4 + offsetsLen + (payloadEnd - payloadStart))
	if numBytesUsed != expectedNumBytesUsed {
		return h, segwin.Window{}, segwin.Window{}, errCorruptData("V1 numBytesUsed inconsistent with buffer length")
	}

	offsetsWindow, err := w.Slice(offsetsStart, offsetsEnd)
	if err != nil {
		return h, segwin.Window{}, segwin.Window{}, errCorruptData("V1 offsets table out of range")
	}
	payloadWindow, err := w.Slice(payloadStart, payloadEnd)
	if err != nil {
		return h, segwin.Window{}, segwin.Window{}, errCorruptData("V1 payload region out of range")
	}

	return h, offsetsWindow, payloadWindow, nil
}

// writeHeaderV1 writes the version byte, reverseLookupAllowed byte,
// numBytesUsed and numElements fields (the 10-byte prologue) to sink.
func writeHeaderV1(sink io.Writer, reverseLookupAllowed bool, numElements int32, offsetsLen, payloadLen int) error {
	buf := make([]byte, headerV1PrologueSize)
	buf[0] = byte(versionV1)
	if reverseLookupAllowed {
		buf[1] = 1
	}
	numBytesUsed := int32(4 + offsetsLen + payloadLen)
	binary.BigEndian.PutUint32(buf[2:6], uint32(numBytesUsed))
	binary.BigEndian.PutUint32(buf[6:10], uint32(numElements))
	_, err := sink.Write(buf)
	return err
}

// MetaV2 is the fixed descriptor block of a V2 container (spec.md §4.3).
type MetaV2 struct {
	ReverseLookupAllowed bool
	Exp                  int32
	NumElements          int32
	ColumnName           string
}

const metaV2PrologueSize = 14 // version(1) + reverseLookup(1) + exp(4) + numElements(4) + nameLen(4)

// ParseMetaV2 reads the V2 meta block from w, a window over the whole meta
// file positioned at 0.
func ParseMetaV2(w segwin.Window) (MetaV2, error) {
	var m MetaV2

	if w.Len() < metaV2PrologueSize {
		return m, errCorruptData("V2 meta block truncated")
	}

	raw := w.Bytes()
	m.ReverseLookupAllowed = raw[1] != 0

	exp, err := w.ReadInt32BE(2)
	if err != nil {
		return m, errCorruptData("read V2 exp")
	}
	if exp < 1 || exp > 30 {
		return m, errCorruptData("V2 exp out of range [1, 30]")
	}
	m.Exp = exp

	numElements, err := w.ReadInt32BE(6)
	if err != nil {
		return m, errCorruptData("read V2 numElements")
	}
	if numElements < 0 {
		return m, errCorruptData("V2 numElements is negative")
	}
	m.NumElements = numElements

	nameLen, err := w.ReadInt32BE(10)
	if err != nil || nameLen < 0 {
		return m, errCorruptData("read V2 columnNameLength")
	}
	nameEnd := metaV2PrologueSize + int(nameLen)
	if nameEnd > w.Capacity() {
		return m, errCorruptData("V2 columnName exceeds meta block")
	}
	m.ColumnName = string(raw[metaV2PrologueSize:nameEnd])

	return m, nil
}

// WriteMetaV2 writes the V2 meta block to sink.
func WriteMetaV2(sink io.Writer, m MetaV2) error {
	buf := make([]byte, metaV2PrologueSize)
	buf[0] = byte(versionV2)
	if m.ReverseLookupAllowed {
		buf[1] = 1
	}
	binary.BigEndian.PutUint32(buf[2:6], uint32(m.Exp))
	binary.BigEndian.PutUint32(buf[6:10], uint32(m.NumElements))
	name := []byte(m.ColumnName)
	binary.BigEndian.PutUint32(buf[10:14], uint32(len(name)))
	if _, err := sink.Write(buf); err != nil {
		return err
	}
	_, err := sink.Write(name)
	return err
}

// fileNum returns which value file holds global index i, given exp.
func fileNum(i int, exp uint) int { return i >> exp }

// relative returns i's position within its own value file, given exp.
func relative(i int, exp uint) int { return i & ((1 << exp) - 1) }

// valueFileName builds the V2 value file name for bag k of column.
func valueFileName(column string, k int) string {
	return column + "_value_" + strconv.Itoa(k)
}

// headerFileName builds the V2 header file name for column.
func headerFileName(column string) string {
	return column + "_header"
}
