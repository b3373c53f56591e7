package dictionary

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a dictionary error so callers can branch on it without
// string matching, per spec.md §7.
type Kind int

const (
	// OutOfRangeIndex: i < 0 or i >= n.
	OutOfRangeIndex Kind = iota
	// UnknownVersion: the first byte of a container is neither V1 nor V2,
	// or is the reserved 0x00.
	UnknownVersion
	// MissingFileMapper: a V2 dictionary was detected but no Mapper was
	// supplied to open its value/header files.
	MissingFileMapper
	// FileMappingFailure: the Mapper failed to open or map a named file.
	FileMappingFailure
	// ReverseLookupUnsupported: IndexOf was called on a dictionary that was
	// not built from strictly ascending input.
	ReverseLookupUnsupported
	// UnsupportedSerialization: WriteTo/SerializedSize was called on a V2
	// reader; only V1 readers can be re-serialized directly.
	UnsupportedSerialization
	// CorruptData: offset monotonicity violated, bag-size math inconsistent
	// with the element count, or a payload length exceeds its buffer.
	CorruptData
)

func (k Kind) String() string {
	switch k {
	case OutOfRangeIndex:
		return "OutOfRangeIndex"
	case UnknownVersion:
		return "UnknownVersion"
	case MissingFileMapper:
		return "MissingFileMapper"
	case FileMappingFailure:
		return "FileMappingFailure"
	case ReverseLookupUnsupported:
		return "ReverseLookupUnsupported"
	case UnsupportedSerialization:
		return "UnsupportedSerialization"
	case CorruptData:
		return "CorruptData"
	default:
		return "Unknown"
	}
}

// DictionaryError is the structured failure type this package returns for
// every Kind above. Errors from a caller's io.Writer, from a codec's Encode,
// and from a Mapper's Close are returned without this wrapper. It wraps an
// optional underlying cause so callers can still errors.Is/errors.As
// against it.
type DictionaryError struct {
	Kind  Kind
	msg   string
	cause error
}

func (e *DictionaryError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *DictionaryError) Unwrap() error { return e.cause }

func newErr(kind Kind, msg string) error {
	return &DictionaryError{Kind: kind, msg: msg}
}

func wrapErr(kind Kind, cause error, msg string) error {
	return &DictionaryError{Kind: kind, msg: msg, cause: cause}
}

func errOutOfRange(i, n int) error {
	return newErr(OutOfRangeIndex, errors.Errorf("index %d out of range [0, %d)", i, n).Error())
}

func errUnknownVersion(v byte) error {
	return newErr(UnknownVersion, errors.Errorf("unrecognized container version byte 0x%02x", v).Error())
}

func errMissingMapper() error {
	return newErr(MissingFileMapper, "a V2 dictionary requires a file mapper to open its value and header files")
}

func errFileMapping(cause error, name string) error {
	return wrapErr(FileMappingFailure, cause, fmt.Sprintf("map file %q", name))
}

func errReverseLookupUnsupported() error {
	return newErr(ReverseLookupUnsupported,
		"indexOf requires a dictionary written in strictly ascending order; this one is not")
}

func errUnsupportedSerialization(op string) error {
	return newErr(UnsupportedSerialization,
		fmt.Sprintf("%s is not supported on a V2 reader; rebuild through the V2 writer instead", op))
}

func errCorruptData(msg string) error {
	return newErr(CorruptData, msg)
}
