package dictionary

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UngureanuSerg/druid/segwin"
)

func TestPeekVersionRejectsReservedAndUnknown(t *testing.T) {
	_, err := PeekVersion(segwin.New([]byte{0x00}))
	assert.Error(t, err)

	_, err = PeekVersion(segwin.New([]byte{0x7f}))
	assert.Error(t, err)

	_, err = PeekVersion(segwin.New(nil))
	assert.Error(t, err)

	v, err := PeekVersion(segwin.New([]byte{0x01}))
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), v)
}

func TestParseHeaderV1RejectsInconsistentNumBytesUsed(t *testing.T) {
	buf := make([]byte, headerV1PrologueSize)
	buf[0] = byte(versionV1)
	buf[1] = 1
	// numBytesUsed deliberately wrong (should be 4 for zero elements).
	buf[2], buf[3], buf[4], buf[5] = 0, 0, 0, 99

	_, _, _, err := parseHeaderV1(segwin.New(buf))
	assert.Error(t, err)
}

func TestMetaV2RoundTrip(t *testing.T) {
	meta := MetaV2{ReverseLookupAllowed: true, Exp: 4, NumElements: 1000, ColumnName: "some_column"}

	var buf bytes.Buffer
	require.NoError(t, WriteMetaV2(&buf, meta))

	got, err := ParseMetaV2(segwin.New(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

func TestParseMetaV2RejectsExpOutOfRange(t *testing.T) {
	meta := MetaV2{Exp: 31, NumElements: 1, ColumnName: "c"}
	var buf bytes.Buffer
	require.NoError(t, WriteMetaV2(&buf, meta))

	_, err := ParseMetaV2(segwin.New(buf.Bytes()))
	assert.Error(t, err)
}

func TestFileNumAndRelativeAddressing(t *testing.T) {
	cases := []struct {
		i, exp       int
		wantFile     int
		wantRelative int
	}{
		{0, 2, 0, 0},
		{3, 2, 0, 3},
		{4, 2, 1, 0},
		{7, 2, 1, 3},
		{8, 2, 2, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.wantFile, fileNum(c.i, uint(c.exp)))
		assert.Equal(t, c.wantRelative, relative(c.i, uint(c.exp)))
	}
}

func TestValueAndHeaderFileNames(t *testing.T) {
	assert.Equal(t, "col_header", headerFileName("col"))
	assert.Equal(t, "col_value_0", valueFileName("col", 0))
	assert.Equal(t, "col_value_12", valueFileName("col", 12))
}
