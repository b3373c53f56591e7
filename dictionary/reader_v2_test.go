package dictionary

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UngureanuSerg/druid/segwin"
)

// fakeMapper serves in-memory byte slices keyed by name, for tests that
// build a V2 container without touching the filesystem.
type fakeMapper struct {
	files map[string][]byte
}

func newFakeMapper(t *testing.T, columnName string, header []byte, values [][]byte) *fakeMapper {
	t.Helper()
	files := map[string][]byte{headerFileName(columnName): header}
	for k, v := range values {
		files[valueFileName(columnName, k)] = v
	}
	return &fakeMapper{files: files}
}

func (m *fakeMapper) Map(name string) (segwin.Window, error) {
	data, ok := m.files[name]
	if !ok {
		return segwin.Window{}, errFileMapping(assert.AnError, name)
	}
	return segwin.New(data), nil
}

func (m *fakeMapper) Close() error { return nil }

func encodeMetaWindow(t *testing.T, meta MetaV2) segwin.Window {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteMetaV2(&buf, meta))
	return segwin.New(buf.Bytes())
}

func buildV2(t *testing.T, exp uint, words ...string) (*ReaderV2[[]byte], *fakeMapper) {
	t.Helper()
	w, err := NewWriterV2WithExp[[]byte]("col", BytesCodec{}, exp)
	require.NoError(t, err)
	for _, s := range words {
		require.NoError(t, w.Write([]byte(s)))
	}
	header, values, meta, err := w.Files()
	require.NoError(t, err)

	mapper := newFakeMapper(t, meta.ColumnName, header, values)
	r, err := OpenV2[[]byte](encodeMetaWindow(t, meta), mapper, BytesCodec{})
	require.NoError(t, err)
	return r, mapper
}

func TestReaderV2GetAcrossMultipleBags(t *testing.T) {
	words := []string{"apple", "banana", "cherry", "date", "fig", "grape"}
	r, _ := buildV2(t, 1, words...) // exp=1 => 2 elements per bag, 3 bags

	assert.Equal(t, len(words), r.Size())
	assert.True(t, r.IsSorted())

	for i, want := range words {
		v, err := r.Get(i)
		require.NoError(t, err)
		assert.False(t, v.IsNull)
		assert.Equal(t, want, string(v.Data))
	}
}

func TestReaderV2IndexOf(t *testing.T) {
	words := []string{"apple", "banana", "cherry", "date", "fig", "grape"}
	r, _ := buildV2(t, 1, words...)

	idx, err := r.IndexOf(NonNull([]byte("fig")))
	require.NoError(t, err)
	assert.Equal(t, 4, idx)

	idx, err = r.IndexOf(NonNull([]byte("avocado"))) // miss, between apple and banana
	require.NoError(t, err)
	assert.True(t, idx < 0)
}

func TestReaderV2WriteToUnsupported(t *testing.T) {
	r, _ := buildV2(t, 1, "a", "b")

	_, err := r.WriteTo(nil)
	assert.Error(t, err)
	_, err = r.SerializedSize()
	assert.Error(t, err)
}

func TestReaderV2SingleBagWhenExpNeverFixedAdaptively(t *testing.T) {
	// With a 1 MiB targetPageSize, a handful of short entries never exceed
	// it, so exp is fixed lazily at Files() time.
	w, err := NewWriterV2[[]byte]("col", BytesCodec{}, 1<<20)
	require.NoError(t, err)
	require.NoError(t, w.Write([]byte("a")))
	require.NoError(t, w.Write([]byte("b")))
	require.NoError(t, w.Write([]byte("c")))

	header, values, meta, err := w.Files()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, meta.Exp, int32(1))
	assert.Len(t, values, 1)

	mapper := newFakeMapper(t, meta.ColumnName, header, values)
	r, err := OpenV2[[]byte](encodeMetaWindow(t, meta), mapper, BytesCodec{})
	require.NoError(t, err)
	assert.Equal(t, 3, r.Size())

	v, err := r.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "c", string(v.Data))
}
