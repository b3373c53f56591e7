package dictionary

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/UngureanuSerg/druid/segwin"
)

// nullMarker and emptyMarker are the two length-marker words spec.md §3/§6
// require: -1 unambiguously denotes NULL, 0 denotes a zero-length non-null
// payload. The writers emit no other marker value, and the readers consult
// the marker only for an entry whose byte range is empty.
const (
	nullMarker  int32 = -1
	emptyMarker int32 = 0
)

// ReaderV1 is the single-buffer positional/binary-search reader (C4).
type ReaderV1[T any] struct {
	codec                Codec[T]
	reverseLookupAllowed bool
	numElements          int32
	offsets              segwin.Window
	payload              segwin.Window
	logger               logrus.FieldLogger
	metrics              *Metrics
}

// OpenV1 parses buf as a complete V1 container and returns a reader over it.
func OpenV1[T any](buf segwin.Window, codec Codec[T], opts ...ReaderOption) (*ReaderV1[T], error) {
	cfg, err := newReaderConfig(opts)
	if err != nil {
		return nil, err
	}

	v, err := PeekVersion(buf)
	if err != nil {
		return nil, err
	}
	if versionByte(v) != versionV1 {
		return nil, errUnknownVersion(v)
	}

	h, offsets, payload, err := parseHeaderV1(buf)
	if err != nil {
		return nil, err
	}

	cfg.logger.WithField("action", "dictionary_v1_open").
		WithField("num_elements", h.numElements).
		Debug("opened V1 dictionary")

	return &ReaderV1[T]{
		codec:                codec,
		reverseLookupAllowed: h.reverseLookupAllowed,
		numElements:          h.numElements,
		offsets:              offsets,
		payload:              payload,
		logger:               cfg.logger,
		metrics:              cfg.metrics,
	}, nil
}

// Size returns the number of elements in the dictionary.
func (r *ReaderV1[T]) Size() int { return int(r.numElements) }

// IsSorted reports whether IndexOf is legal, per spec.md §4.4.
func (r *ReaderV1[T]) IsSorted() bool { return r.reverseLookupAllowed }

// entryBounds computes the [start, end) byte range within the payload
// window for logical index i, exactly as spec.md §4.3 defines for V1:
// start = i==0 ? 4 : offsets[i-1]+4, end = i==0 ? offsets[0] : offsets[i].
func (r *ReaderV1[T]) entryBounds(i int) (start, end int, err error) {
	end32, err := r.offsets.ReadInt32BE(i * 4)
	if err != nil {
		return 0, 0, errCorruptData("read V1 offset entry")
	}
	end = int(end32)

	if i == 0 {
		start = 4
	} else {
		prevEnd, err := r.offsets.ReadInt32BE((i - 1) * 4)
		if err != nil {
			return 0, 0, errCorruptData("read V1 offset entry")
		}
		if end32 < prevEnd {
			return 0, 0, errCorruptData("V1 offsets are not monotonically non-decreasing")
		}
		start = int(prevEnd) + 4
	}
	return start, end, nil
}

// Get returns the payload at i.
func (r *ReaderV1[T]) Get(i int) (Value[T], error) {
	start := time.Now()
	defer func() { r.metrics.observeGet(time.Since(start)) }()

	if i < 0 || i >= int(r.numElements) {
		return Value[T]{}, errOutOfRange(i, int(r.numElements))
	}

	valueStart, valueEnd, err := r.entryBounds(i)
	if err != nil {
		return Value[T]{}, err
	}

	return r.copyBufferAndGet(valueStart, valueEnd)
}

// copyBufferAndGet duplicates the payload window (so unrelated calls never
// see each other's cursor motion), reads the length marker at start-4, and
// either reports NULL or delegates to the codec.
func (r *ReaderV1[T]) copyBufferAndGet(start, end int) (Value[T], error) {
	dup := r.payload.Duplicate()
	marker, err := dup.ReadInt32BE(start - 4)
	if err != nil {
		return Value[T]{}, errCorruptData("read V1 length marker")
	}

	length := end - start
	if length == 0 && marker == nullMarker {
		return NullValue[T](), nil
	}
	if length < 0 {
		return Value[T]{}, errCorruptData("V1 entry has negative length")
	}

	sliced, err := dup.Slice(start, end)
	if err != nil {
		return Value[T]{}, errCorruptData("V1 entry payload out of range")
	}

	decoded, err := r.codec.Decode(sliced, length)
	if err != nil {
		return Value[T]{}, err
	}
	return NonNull(decoded), nil
}

// IndexOf performs the Arrays.binarySearch-style lookup from spec.md §4.4:
// on a hit, returns the index; on a miss, returns -(insertionPoint+1).
func (r *ReaderV1[T]) IndexOf(v Value[T]) (int, error) {
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

// entryLocation reports which backing window holds index i (always 0 for a
// V1 reader) and its [start, end) byte range, for use by the single-
// threaded cursor (C6).
func (r *ReaderV1[T]) entryLocation(i int) (fileIdx, start, end int, err error) {
	if i < 0 || i >= int(r.numElements) {
		return 0, 0, 0, errOutOfRange(i, int(r.numElements))
	}
	start, end, err = r.entryBounds(i)
	return 0, start, end, err
}

// valueWindowAt returns the backing window for fileIdx (always the single
// payload window for a V1 reader).
func (r *ReaderV1[T]) valueWindowAt(fileIdx int) segwin.Window {
	return r.payload
}

func (r *ReaderV1[T]) numValueWindows() int { return 1 }

func (r *ReaderV1[T]) valueCodec() Codec[T] { return r.codec }

// SerializedSize returns the number of bytes WriteTo would emit.
func (r *ReaderV1[T]) SerializedSize() int64 {
	return int64(headerV1PrologueSize + r.offsets.Capacity() + r.payload.Capacity())
}

// WriteTo re-serializes this V1 dictionary, byte-identical to the buffer it
// was parsed from (spec.md §8 property 5), per spec.md §4.4.
func (r *ReaderV1[T]) WriteTo(w io.Writer) (int64, error) {
	if err := writeHeaderV1(w, r.reverseLookupAllowed, r.numElements,
		r.offsets.Capacity(), r.payload.Capacity()); err != nil {
		return 0, err
	}
	n1, err := w.Write(r.offsets.Bytes())
	if err != nil {
		return int64(headerV1PrologueSize + n1), err
	}
	n2, err := w.Write(r.payload.Bytes())
	total := int64(headerV1PrologueSize + n1 + n2)
	return total, err
}
