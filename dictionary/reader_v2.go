package dictionary

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/UngureanuSerg/druid/segwin"
)

// ReaderV2 is the multi-file reader (C5): one header window plus N value
// windows addressed by index >> exp.
type ReaderV2[T any] struct {
	codec                Codec[T]
	reverseLookupAllowed bool
	numElements          int32
	exp                  uint
	columnName           string
	header               segwin.Window
	values               []segwin.Window
	logger               logrus.FieldLogger
	metrics              *Metrics
}

// OpenV2 reads the V2 meta block from metaWindow, then asks mapper for the
// header file and every value file the meta block implies, per spec.md
// §4.5.
func OpenV2[T any](metaWindow segwin.Window, mapper Mapper, codec Codec[T], opts ...ReaderOption) (*ReaderV2[T], error) {
	cfg, err := newReaderConfig(opts)
	if err != nil {
		return nil, err
	}

	v, err := PeekVersion(metaWindow)
	if err != nil {
		return nil, err
	}
	if versionByte(v) != versionV2 {
		return nil, errUnknownVersion(v)
	}

	meta, err := ParseMetaV2(metaWindow)
	if err != nil {
		return nil, err
	}

	if mapper == nil {
		return nil, errMissingMapper()
	}

	numFiles := numValueFiles(int(meta.NumElements), uint(meta.Exp))

	headerWindow, err := mapper.Map(headerFileName(meta.ColumnName))
	if err != nil {
		return nil, err
	}
	expectedHeaderLen := int(meta.NumElements) * 4
	if headerWindow.Capacity() != expectedHeaderLen {
		return nil, errCorruptData("V2 header file length inconsistent with element count")
	}

	values := make([]segwin.Window, numFiles)
	for k := 0; k < numFiles; k++ {
		vw, err := mapper.Map(valueFileName(meta.ColumnName, k))
		if err != nil {
			return nil, err
		}
		values[k] = vw
	}

	cfg.logger.WithField("action", "dictionary_v2_open").
		WithField("num_elements", meta.NumElements).
		WithField("exp", meta.Exp).
		WithField("num_value_files", numFiles).
		Debug("opened V2 dictionary")

	return &ReaderV2[T]{
		codec:                codec,
		reverseLookupAllowed: meta.ReverseLookupAllowed,
		numElements:          meta.NumElements,
		exp:                  uint(meta.Exp),
		columnName:           meta.ColumnName,
		header:               headerWindow,
		values:               values,
		logger:               cfg.logger,
		metrics:              cfg.metrics,
	}, nil
}

// numValueFiles returns ceil(n / 2^exp), the number of value files a V2
// dictionary of n elements and the given exp is split across.
func numValueFiles(n int, exp uint) int {
	if n == 0 {
		return 0
	}
	bag := 1 << exp
	return (n + bag - 1) / bag
}

// Size returns the number of elements in the dictionary.
func (r *ReaderV2[T]) Size() int { return int(r.numElements) }

// IsSorted reports whether IndexOf is legal.
func (r *ReaderV2[T]) IsSorted() bool { return r.reverseLookupAllowed }

// Get returns the payload at i, per spec.md §4.5's fileNum/relative
// addressing.
func (r *ReaderV2[T]) Get(i int) (Value[T], error) {
	start := time.Now()
	defer func() { r.metrics.observeGet(time.Since(start)) }()

	if i < 0 || i >= int(r.numElements) {
		return Value[T]{}, errOutOfRange(i, int(r.numElements))
	}

	rel := relative(i, r.exp)

	var valueStart, valueEnd int
	if rel == 0 {
		valueStart = 4
	} else {
		prevEnd, err := r.header.ReadInt32Native((i - 1) * 4)
		if err != nil {
			return Value[T]{}, errCorruptData("read V2 header entry")
		}
		valueStart = int(prevEnd) + 4
	}
	end32, err := r.header.ReadInt32Native(i * 4)
	if err != nil {
		return Value[T]{}, errCorruptData("read V2 header entry")
	}
	valueEnd = int(end32)

	fileIdx := fileNum(i, r.exp)
	if fileIdx < 0 || fileIdx >= len(r.values) {
		return Value[T]{}, errCorruptData("V2 index maps to an out-of-range value file")
	}
	valueWindow := r.values[fileIdx]

	dup := valueWindow.Duplicate()
	marker, err := dup.ReadInt32BE(valueStart - 4)
	if err != nil {
		return Value[T]{}, errCorruptData("read V2 length marker")
	}

	length := valueEnd - valueStart
	if length == 0 && marker == nullMarker {
		return NullValue[T](), nil
	}
	if length < 0 {
		return Value[T]{}, errCorruptData("V2 entry has negative length")
	}

	sliced, err := dup.Slice(valueStart, valueEnd)
	if err != nil {
		return Value[T]{}, errCorruptData("V2 entry payload out of range")
	}

	decoded, err := r.codec.Decode(sliced, length)
	if err != nil {
		return Value[T]{}, err
	}
	return NonNull(decoded), nil
}

// IndexOf is algorithmically identical to ReaderV1.IndexOf; only Get's
// file dispatch differs between the two readers.
func (r *ReaderV2[T]) IndexOf(v Value[T]) (int, error) {
	if !r.reverseLookupAllowed {
		return 0, errReverseLookupUnsupported()
	}
	if !r.codec.CanCompare() {
		return 0, errReverseLookupUnsupported()
	}

	lo, hi := 0, int(r.numElements)-1
	for lo <= hi {
		mid := binarySearchMid(lo, hi)
		r.metrics.observeBinarySearchProbe()

		cur, err := r.Get(mid)
		if err != nil {
			return 0, err
		}

		cmp := compareValues(cur, v, r.codec)
		switch {
		case cmp < 0:
			lo = mid + 1
		case cmp > 0:
			hi = mid - 1
		default:
			return mid, nil
		}
	}
	return -(lo + 1), nil
}

// entryLocation reports which value file holds index i and its [start, end)
// byte range within that file, for use by the single-threaded cursor (C6).
func (r *ReaderV2[T]) entryLocation(i int) (fileIdx, start, end int, err error) {
	if i < 0 || i >= int(r.numElements) {
		return 0, 0, 0, errOutOfRange(i, int(r.numElements))
	}

	rel := relative(i, r.exp)
	if rel == 0 {
		start = 4
	} else {
		prevEnd, err := r.header.ReadInt32Native((i - 1) * 4)
		if err != nil {
			return 0, 0, 0, errCorruptData("read V2 header entry")
		}
		start = int(prevEnd) + 4
	}
	end32, err := r.header.ReadInt32Native(i * 4)
	if err != nil {
		return 0, 0, 0, errCorruptData("read V2 header entry")
	}
	return fileNum(i, r.exp), start, int(end32), nil
}

// valueWindowAt returns the backing window for value file fileIdx.
func (r *ReaderV2[T]) valueWindowAt(fileIdx int) segwin.Window {
	return r.values[fileIdx]
}

func (r *ReaderV2[T]) numValueWindows() int { return len(r.values) }

func (r *ReaderV2[T]) valueCodec() Codec[T] { return r.codec }

// WriteTo is not supported on a V2 reader; rebuild through WriterV2 instead
// (spec.md §4.4's "V2 is not re-serializable through the reader").
func (r *ReaderV2[T]) WriteTo(w io.Writer) (int64, error) {
	return 0, errUnsupportedSerialization("WriteTo")
}

// SerializedSize is not supported on a V2 reader, matching WriteTo.
func (r *ReaderV2[T]) SerializedSize() (int64, error) {
	return 0, errUnsupportedSerialization("SerializedSize")
}
