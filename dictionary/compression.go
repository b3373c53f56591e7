package dictionary

import (
	"bytes"
	"compress/flate"
	"io"
	"sync"

	"github.com/UngureanuSerg/druid/segwin"
)

// decompressPool recycles the scratch buffers that DecodeScoped hands out
// through ScopedBuffer. Decode, which Get and IndexOf go through, never
// draws from it.
var decompressPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// ScopedBuffer is a release-on-exit buffer returned by CompressedCodec's
// DecodeScoped, per spec.md §4.9/§5: the dictionary itself stores
// compressed blocks, so DecodeScoped inflates one block into a buffer drawn
// from decompressPool, and the caller must call Release when done with it
// so that buffer can return to decompressPool.
type ScopedBuffer struct {
	buf *bytes.Buffer
}

// Window returns a read-only view over the decompressed bytes. The window
// is only valid until Release is called.
func (b ScopedBuffer) Window() segwin.Window { return segwin.New(b.buf.Bytes()) }

// Release returns the backing buffer to decompressPool. It is safe to call
// on a zero ScopedBuffer and to call more than once: only the first call
// returns the buffer.
func (b *ScopedBuffer) Release() {
	if b.buf == nil {
		return
	}
	b.buf.Reset()
	decompressPool.Put(b.buf)
	b.buf = nil
}

// CompressedCodec wraps an inner codec that works on uncompressed bytes:
// Encode runs inner.Encode and DEFLATE-compresses its output, and Decode
// decompresses the window's bytes before delegating to inner.Decode. This turns a dictionary of raw payloads into a dictionary
// of independently-decompressible blocks, per spec.md §4.9. The dictionary
// container format itself is never compressed; only individual payload
// blocks are.
type CompressedCodec[T any] struct {
	inner Codec[T]
}

var _ Codec[[]byte] = CompressedCodec[[]byte]{}

// NewCompressedCodec wraps inner so every payload is transparently
// DEFLATE-compressed on encode and decompressed on decode.
func NewCompressedCodec[T any](inner Codec[T]) CompressedCodec[T] {
	return CompressedCodec[T]{inner: inner}
}

func (c CompressedCodec[T]) Encode(payload T, sink io.Writer) error {
	var raw bytes.Buffer
	if err := c.inner.Encode(payload, &raw); err != nil {
		return err
	}

	fw, err := flate.NewWriter(sink, flate.DefaultCompression)
	if err != nil {
		return errCorruptData("construct deflate writer")
	}
	if _, err := fw.Write(raw.Bytes()); err != nil {
		return err
	}
	return fw.Close()
}

// inflateInto decompresses window's nBytes into buf, which the caller owns.
func inflateInto(window segwin.Window, nBytes int, buf *bytes.Buffer) error {
	if window.Len() < nBytes {
		return errCorruptData("payload length exceeds remaining window")
	}
	compressed := window.Bytes()[:nBytes]

	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()

	buf.Reset()
	if _, err := io.Copy(buf, fr); err != nil {
		return errCorruptData("inflate payload block")
	}
	return nil
}

// Decode decompresses window's bytes into a buffer that is never pooled,
// and decodes the inner payload from it. Unlike DecodeScoped, Decode's
// buffer is not returned to decompressPool: inner.Decode may be a
// zero-copy codec (BytesCodec) that hands back a slice aliasing the
// buffer's backing array, and that slice must outlive this call, so the
// buffer it aliases must never be reused by a later, unrelated Decode.
func (c CompressedCodec[T]) Decode(window segwin.Window, nBytes int) (T, error) {
	var zero T

	var buf bytes.Buffer
	if err := inflateInto(window, nBytes, &buf); err != nil {
		return zero, err
	}

	return c.inner.Decode(segwin.New(buf.Bytes()), buf.Len())
}

// DecodeScoped inflates window's bytes into a ScopedBuffer the caller owns
// and must Release, without decoding the inner payload. Use this when the
// caller wants to inspect the raw decompressed block itself, e.g. to feed
// it to a further nested codec, rather than going through inner.Decode.
// Because the caller controls when Release runs, DecodeScoped (unlike
// Decode) may safely draw its buffer from decompressPool.
func (c CompressedCodec[T]) DecodeScoped(window segwin.Window, nBytes int) (ScopedBuffer, error) {
	buf := decompressPool.Get().(*bytes.Buffer)
	if err := inflateInto(window, nBytes, buf); err != nil {
		decompressPool.Put(buf)
		return ScopedBuffer{}, err
	}
	return ScopedBuffer{buf: buf}, nil
}

func (c CompressedCodec[T]) Compare(a, b T) int {
	return c.inner.Compare(a, b)
}

func (c CompressedCodec[T]) CanCompare() bool { return c.inner.CanCompare() }
