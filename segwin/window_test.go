package segwin

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowReadInt32BE(t *testing.T) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], 42)
	binary.BigEndian.PutUint32(buf[4:8], 0xffffffff) // -1 as int32
	w := New(buf)

	v, err := w.ReadInt32BE(0)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)

	v, err = w.ReadInt32BE(4)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), v)

	_, err = w.ReadInt32BE(6)
	assert.Error(t, err)
}

func TestWindowReadInt32Native(t *testing.T) {
	buf := make([]byte, 4)
	NativeOrder().PutUint32(buf, 7)
	w := New(buf)

	v, err := w.ReadInt32Native(0)
	require.NoError(t, err)
	assert.Equal(t, int32(7), v)
}

func TestWindowSliceAndDuplicateShareBytes(t *testing.T) {
	buf := []byte("abcdefgh")
	w := New(buf)

	sl, err := w.Slice(2, 5)
	require.NoError(t, err)
	assert.Equal(t, "cde", string(sl.Bytes()))

	dup := sl.Duplicate()
	dup.SetPosition(1)
	assert.Equal(t, "de", string(dup.Bytes()))
	// original slice's position is untouched
	assert.Equal(t, "cde", string(sl.Bytes()))

	// mutating the shared backing array is visible through both
	buf[2] = 'X'
	assert.Equal(t, "Xde", string(sl.Bytes()))
}

func TestWindowSliceOutOfRange(t *testing.T) {
	w := New([]byte("short"))
	_, err := w.Slice(0, 100)
	assert.Error(t, err)
	_, err = w.Slice(3, 1)
	assert.Error(t, err)
}

func TestCompareUTF8MatchesStringsCompare(t *testing.T) {
	cases := [][2]string{
		{"apple", "banana"},
		{"banana", "apple"},
		{"café", "cafe"},
		{"日本語", "日本"},
		{"", "a"},
		{"z", "z"},
		{"😀", "😁"},
	}

	for _, c := range cases {
		a, b := New([]byte(c[0])), New([]byte(c[1]))
		got := CompareUTF8(a, b)
		want := strings.Compare(c[0], c[1])
		assert.Equal(t, sign(want), sign(got), "comparing %q vs %q", c[0], c[1])
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
