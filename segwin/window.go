// Package segwin implements the byte-window primitive shared by every
// container reader in the dictionary package: a read-only view over a
// contiguous immutable region with its own position/limit cursor, so a
// single mapped buffer can back many independent, concurrently readable
// cursors without copying bytes.
package segwin

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Window is a triple (base, position, limit) over an immutable byte region,
// 0 <= position <= limit <= len(base). It never copies base; Slice and
// Duplicate always alias the same backing array.
type Window struct {
	base     []byte
	position int
	limit    int
}

// New wraps base as a window spanning the whole region.
func New(base []byte) Window {
	return Window{base: base, position: 0, limit: len(base)}
}

// Len returns the number of bytes between position and limit.
func (w Window) Len() int { return w.limit - w.position }

// Capacity returns the size of the backing region, ignoring position/limit.
func (w Window) Capacity() int { return len(w.base) }

// Position returns the current read cursor.
func (w Window) Position() int { return w.position }

// Limit returns the current limit.
func (w Window) Limit() int { return w.limit }

// SetPosition moves the read cursor. It panics if pos is out of [0, limit],
// mirroring the teacher's convention of failing fast on programmer error
// rather than returning an error from a hot-path cursor mutation.
func (w *Window) SetPosition(pos int) {
	if pos < 0 || pos > w.limit {
		panic(errors.Errorf("position %d out of range [0, %d]", pos, w.limit))
	}
	w.position = pos
}

// SetLimit moves the limit. It panics if limit is out of [position, capacity].
func (w *Window) SetLimit(limit int) {
	if limit < w.position || limit > len(w.base) {
		panic(errors.Errorf("limit %d out of range [%d, %d]", limit, w.position, len(w.base)))
	}
	w.limit = limit
}

// Duplicate returns an independent cursor over the same backing bytes.
// Mutating the duplicate's position/limit never affects w.
func (w Window) Duplicate() Window {
	return w
}

// Slice returns a fresh window over base[start:end], sharing bytes with w.
// start and end are absolute offsets into the backing array, not relative
// to w's own position/limit.
func (w Window) Slice(start, end int) (Window, error) {
	if start < 0 || end > len(w.base) || start > end {
		return Window{}, errors.Errorf("invalid slice [%d:%d) of capacity %d", start, end, len(w.base))
	}
	return Window{base: w.base[start:end], position: 0, limit: end - start}, nil
}

// Bytes returns the raw slice between position and limit without copying.
// The returned slice aliases the backing array and must not outlive it.
func (w Window) Bytes() []byte {
	return w.base[w.position:w.limit]
}

// ReadInt32BE reads a big-endian int32 at the given absolute offset into
// the backing array (not relative to position).
func (w Window) ReadInt32BE(offset int) (int32, error) {
	if offset < 0 || offset+4 > len(w.base) {
		return 0, errors.Errorf("read int32 at %d out of range (capacity %d)", offset, len(w.base))
	}
	return int32(binary.BigEndian.Uint32(w.base[offset : offset+4])), nil
}

// ReadInt32Native reads a native-byte-order int32 at the given absolute
// offset. This is used exclusively by the V2 header file, which the source
// format deliberately writes in the host's native order.
func (w Window) ReadInt32Native(offset int) (int32, error) {
	if offset < 0 || offset+4 > len(w.base) {
		return 0, errors.Errorf("read int32 at %d out of range (capacity %d)", offset, len(w.base))
	}
	return int32(nativeOrder.Uint32(w.base[offset : offset+4])), nil
}

// CompareUTF8 orders two windows' contents (from position to limit) the way
// their decoded UTF-8 code-point sequences would order, consistent with the
// natural ordering of decoded strings. UTF-8's encoding is designed so that
// byte-lexicographic order of well-formed UTF-8 already equals code-point
// order, so a raw byte comparison is a correct and allocation-free
// shortcut; window_test.go verifies this equivalence against
// strings.Compare over a multi-byte fixture.
func CompareUTF8(a, b Window) int {
	return bytes.Compare(a.Bytes(), b.Bytes())
}
