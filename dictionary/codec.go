package dictionary

import (
	"io"

	"github.com/UngureanuSerg/druid/segwin"
)

// Codec is the payload-codec role from spec.md §4.2: it encodes a payload
// to bytes, decodes a byte window back into a payload, and, if the payload
// type supports a total order, compares two non-null payloads. NULL never
// reaches a codec; compareValues places it before every non-null payload.
//
// Decode must not retain window past its return unless it is returning a
// window-backed (zero-copy) payload, in which case the implementation must
// document the borrowed lifetime, as BytesCodec does below.
type Codec[T any] interface {
	// Encode writes only payload's bytes to sink. The writers emit the
	// 4-byte length marker themselves (0 for non-null; -1 for NULL, in
	// which case Encode is not called at all).
	Encode(payload T, sink io.Writer) error
	// Decode consumes exactly nBytes starting at window's current position
	// and returns the decoded payload.
	Decode(window segwin.Window, nBytes int) (T, error)
	// Compare defines a total order over T when CanCompare is true. It is
	// undefined (never called) when CanCompare is false.
	Compare(a, b T) int
	// CanCompare reports whether this codec's payload type supports Compare,
	// i.e. whether a dictionary built with it can ever support reverse
	// lookup.
	CanCompare() bool
}

// ByteIdentity is an optional capability a Codec can implement to tell the
// single-threaded cursor (C6) that it is the identity byte-slice codec, so
// IndexOf can compare raw windows without materializing a decoded payload.
// This replaces a runtime type check with an explicit, queryable capability,
// per the REDESIGN FLAGS in spec.md §9.
type ByteIdentity interface {
	IsByteIdentity() bool
}

// BytesCodec is the zero-copy byte-slice codec: Decode returns a window-
// backed slice that aliases the reader's mapped buffer directly. The
// returned slice is only valid as long as the backing Mapper's memory
// remains mapped; callers that need to retain it past the dictionary's
// lifetime must copy it themselves.
type BytesCodec struct{}

var (
	_ Codec[[]byte] = BytesCodec{}
	_ ByteIdentity  = BytesCodec{}
)

func (BytesCodec) Encode(payload []byte, sink io.Writer) error {
	_, err := sink.Write(payload)
	return err
}

func (BytesCodec) Decode(window segwin.Window, nBytes int) ([]byte, error) {
	if window.Len() < nBytes {
		return nil, errCorruptData("payload length exceeds remaining window")
	}
	return window.Bytes()[:nBytes], nil
}

func (BytesCodec) Compare(a, b []byte) int {
	return segwin.CompareUTF8(segwin.New(a), segwin.New(b))
}

func (BytesCodec) CanCompare() bool { return true }

func (BytesCodec) IsByteIdentity() bool { return true }

// StringCodec decodes a UTF-8 string, copying out of the mapped buffer, and
// orders non-null payloads by Go string comparison; as with BytesCodec,
// nulls-first ordering comes from compareValues.
type StringCodec struct{}

var _ Codec[string] = StringCodec{}

func (StringCodec) Encode(payload string, sink io.Writer) error {
	_, err := io.WriteString(sink, payload)
	return err
}

func (StringCodec) Decode(window segwin.Window, nBytes int) (string, error) {
	if window.Len() < nBytes {
		return "", errCorruptData("payload length exceeds remaining window")
	}
	return string(window.Bytes()[:nBytes]), nil
}

func (StringCodec) Compare(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func (StringCodec) CanCompare() bool { return true }
