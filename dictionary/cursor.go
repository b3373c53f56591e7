package dictionary

import (
	"github.com/UngureanuSerg/druid/segwin"
)

// windowedReader is the small internal seam ReaderV1 and ReaderV2 both
// satisfy so Cursor can work against either without knowing which version
// backs it.
type windowedReader[T any] interface {
	Size() int
	IsSorted() bool
	entryLocation(i int) (fileIdx, start, end int, err error)
	valueWindowAt(fileIdx int) segwin.Window
	numValueWindows() int
	valueCodec() Codec[T]
}

var (
	_ windowedReader[[]byte] = (*ReaderV1[[]byte])(nil)
	_ windowedReader[[]byte] = (*ReaderV2[[]byte])(nil)
)

// Cursor is the single-threaded accelerator from spec.md §4.6: it
// pre-duplicates one cursor window per value file and reuses it, trading
// the multi-threaded reader's per-call allocation for O(1) access at the
// cost of invalidating any previously returned zero-copy payload on the
// next call. Callers MUST consume or copy the last returned value before
// calling any other method on the same Cursor.
type Cursor[T any] struct {
	reader     windowedReader[T]
	duplicates []segwin.Window
	lastSize   int
	metrics    *Metrics
}

// NewCursor builds a single-threaded cursor over reader.
func NewCursor[T any](reader windowedReader[T], opts ...ReaderOption) (*Cursor[T], error) {
	cfg, err := newReaderConfig(opts)
	if err != nil {
		return nil, err
	}

	n := reader.numValueWindows()
	dups := make([]segwin.Window, n)
	for i := 0; i < n; i++ {
		dups[i] = reader.valueWindowAt(i).Duplicate()
	}

	return &Cursor[T]{reader: reader, duplicates: dups, metrics: cfg.metrics}, nil
}

// Get returns the payload at i, reusing this cursor's per-file duplicate
// window. The returned Value (and any codec payload borrowing from it,
// e.g. BytesCodec's zero-copy slice) is only valid until the next call on
// this same Cursor.
func (c *Cursor[T]) Get(i int) (Value[T], error) {
	c.metrics.observeCursorReuse()

	fileIdx, start, end, err := c.reader.entryLocation(i)
	if err != nil {
		return Value[T]{}, err
	}

	dup := &c.duplicates[fileIdx]
	marker, err := dup.ReadInt32BE(start - 4)
	if err != nil {
		return Value[T]{}, errCorruptData("read length marker")
	}

	length := end - start
	c.lastSize = length
	if length == 0 && marker == nullMarker {
		return NullValue[T](), nil
	}
	if length < 0 {
		return Value[T]{}, errCorruptData("entry has negative length")
	}

	sliced, err := dup.Slice(start, end)
	if err != nil {
		return Value[T]{}, errCorruptData("entry payload out of range")
	}

	decoded, err := c.reader.valueCodec().Decode(sliced, length)
	if err != nil {
		return Value[T]{}, err
	}
	return NonNull(decoded), nil
}

// GetLastValueSize returns the byte length of the most recently read entry,
// so callers that already know they need the raw length can avoid
// re-reading the header.
func (c *Cursor[T]) GetLastValueSize() int { return c.lastSize }

// IndexOf mirrors ReaderV1/ReaderV2's binary search, but reuses this
// cursor's duplicated windows via Get instead of allocating a fresh
// duplicate per probe.
func (c *Cursor[T]) IndexOf(v Value[T]) (int, error) {
	if !c.reader.IsSorted() {
		return 0, errReverseLookupUnsupported()
	}
	codec := c.reader.valueCodec()
	if !codec.CanCompare() {
		return 0, errReverseLookupUnsupported()
	}

	if byteIdentity, ok := codec.(ByteIdentity); ok && byteIdentity.IsByteIdentity() {
		return c.indexOfRawBytes(v)
	}

	lo, hi := 0, c.reader.Size()-1
	for lo <= hi {
		mid := binarySearchMid(lo, hi)
		c.metrics.observeBinarySearchProbe()

		cur, err := c.Get(mid)
		if err != nil {
			return 0, err
		}
		cmp := compareValues(cur, v, codec)
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

// indexOfRawBytes is the accelerator described in spec.md §4.6: when the
// codec is the identity byte-slice codec, compare raw byte windows with the
// UTF-8 comparator, skipping payload materialization entirely. It requires
// T to actually be []byte at the call site; ByteIdentity codecs are only
// ever registered as Codec[[]byte], so this type assertion cannot fail in
// practice, but it degrades to the generic path instead of panicking if it
// ever does.
func (c *Cursor[T]) indexOfRawBytes(v Value[T]) (int, error) {
	target, ok := any(v).(Value[[]byte])
	if !ok {
		return c.genericIndexOf(v)
	}

	lo, hi := 0, c.reader.Size()-1
	for lo <= hi {
		mid := binarySearchMid(lo, hi)
		c.metrics.observeBinarySearchProbe()

		fileIdx, start, end, err := c.reader.entryLocation(mid)
		if err != nil {
			return 0, err
		}
		dup := &c.duplicates[fileIdx]
		marker, err := dup.ReadInt32BE(start - 4)
		if err != nil {
			return 0, errCorruptData("read length marker")
		}

		length := end - start
		var cmp int
		if length == 0 && marker == nullMarker {
			if target.IsNull {
				cmp = 0
			} else {
				cmp = -1
			}
		} else if target.IsNull {
			cmp = 1
		} else {
			sliced, err := dup.Slice(start, end)
			if err != nil {
				return 0, errCorruptData("entry payload out of range")
			}
			cmp = segwin.CompareUTF8(sliced, segwin.New(target.Data))
		}

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

func (c *Cursor[T]) genericIndexOf(v Value[T]) (int, error) {
	codec := c.reader.valueCodec()
	lo, hi := 0, c.reader.Size()-1
	for lo <= hi {
		mid := binarySearchMid(lo, hi)
		cur, err := c.Get(mid)
		if err != nil {
			return 0, err
		}
		cmp := compareValues(cur, v, codec)
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
