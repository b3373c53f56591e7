package dictionary

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UngureanuSerg/druid/segwin"
)

func TestCompressedCodecRoundTrip(t *testing.T) {
	codec := NewCompressedCodec[[]byte](BytesCodec{})

	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 50)

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(payload, &buf))
	assert.Less(t, buf.Len(), len(payload), "repetitive payload should compress smaller")

	decoded, err := codec.Decode(segwin.New(buf.Bytes()), buf.Len())
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestCompressedCodecDecodeDoesNotAliasAcrossCalls(t *testing.T) {
	codec := NewCompressedCodec[[]byte](BytesCodec{})

	var bufA, bufB bytes.Buffer
	require.NoError(t, codec.Encode([]byte("first payload"), &bufA))
	require.NoError(t, codec.Encode([]byte("second payload, longer than the first"), &bufB))

	first, err := codec.Decode(segwin.New(bufA.Bytes()), bufA.Len())
	require.NoError(t, err)
	firstCopy := append([]byte(nil), first...)

	// A second, unrelated Decode call must not corrupt the bytes already
	// returned from the first call, even though both calls go through
	// BytesCodec's zero-copy Decode.
	second, err := codec.Decode(segwin.New(bufB.Bytes()), bufB.Len())
	require.NoError(t, err)

	assert.Equal(t, firstCopy, first, "first Decode result must survive a later Decode call")
	assert.Equal(t, "second payload, longer than the first", string(second))
}

func TestCompressedCodecDecodeScopedReleaseIsIdempotent(t *testing.T) {
	codec := NewCompressedCodec[[]byte](BytesCodec{})

	var buf bytes.Buffer
	require.NoError(t, codec.Encode([]byte("hello world"), &buf))

	scoped, err := codec.DecodeScoped(segwin.New(buf.Bytes()), buf.Len())
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(scoped.Window().Bytes()))

	scoped.Release()
	assert.NotPanics(t, func() { scoped.Release() })
}

func TestCompressedCodecInWriterV1(t *testing.T) {
	w, err := NewWriterV1[[]byte](NewCompressedCodec[[]byte](BytesCodec{}))
	require.NoError(t, err)

	require.NoError(t, w.Write([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")))
	require.NoError(t, w.Write([]byte("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")))

	r, err := w.Open()
	require.NoError(t, err)

	v, err := r.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", string(v.Data))
}
