package dictionary

import (
	"bytes"
	"encoding/binary"
	"math/bits"

	"github.com/sirupsen/logrus"

	"github.com/UngureanuSerg/druid/dictionary/diskio"
	"github.com/UngureanuSerg/druid/segwin"
)

// WriterV2 streams payloads into the multi-file V2 layout from spec.md
// §4.5/§4.8: one header file (int32 end-offsets, native byte order) plus N
// value files, each holding at most 2^exp elements. exp cannot be fixed
// until the writer has seen enough entries to know how many fit under
// targetPageSize, so entries are buffered in pending until that first bag
// fills (or Files is called on a dictionary too small to ever fill one);
// exp is derived once, from that first bag's entry count, and applies to
// every subsequent bag.
type WriterV2[T any] struct {
	codec              Codec[T]
	columnName         string
	targetPageSize     int
	exp                uint
	expFixed           bool
	allowReverseLookup bool
	haveWritten        bool
	prevValue          T
	prevIsNull         bool
	count              int32
	pending            []pendingEntryV2
	pendingBytes       int
	header             bytes.Buffer
	bags               []bytes.Buffer
	logger             logrus.FieldLogger
	metrics            *Metrics
}

type pendingEntryV2 struct {
	marker  int32
	payload []byte
}

// defaultTargetPageSize matches the teacher's default LSM segment page
// size used for mmap-friendly chunking elsewhere.
const defaultTargetPageSize = 4 << 20 // 4 MiB

// NewWriterV2 creates a V2 writer that derives exp from targetPageSize per
// spec.md §4.8: it buffers entries until their combined size would exceed
// targetPageSize, then fixes exp = ceil(log2(count-so-far)) and flushes.
func NewWriterV2[T any](columnName string, codec Codec[T], targetPageSize int, opts ...WriterOption) (*WriterV2[T], error) {
	if targetPageSize <= 0 {
		targetPageSize = defaultTargetPageSize
	}
	cfg, err := newWriterConfig(opts)
	if err != nil {
		return nil, err
	}
	return &WriterV2[T]{
		codec:              codec,
		columnName:         columnName,
		targetPageSize:     targetPageSize,
		allowReverseLookup: codec.CanCompare(),
		bags:               []bytes.Buffer{{}},
		logger:             cfg.logger,
		metrics:            cfg.metrics,
	}, nil
}

// NewWriterV2WithExp creates a V2 writer with a fixed exp, for callers who
// already know the target elements-per-file count and want to skip the
// buffering pass. exp must be in [1, 30] per spec.md §4.3's V2 meta block
// constraint.
func NewWriterV2WithExp[T any](columnName string, codec Codec[T], exp uint, opts ...WriterOption) (*WriterV2[T], error) {
	if exp < 1 || exp > 30 {
		return nil, errCorruptData("exp out of range [1, 30]")
	}
	cfg, err := newWriterConfig(opts)
	if err != nil {
		return nil, err
	}
	return &WriterV2[T]{
		codec:              codec,
		columnName:         columnName,
		exp:                exp,
		expFixed:           true,
		allowReverseLookup: codec.CanCompare(),
		bags:               []bytes.Buffer{{}},
		logger:             cfg.logger,
		metrics:            cfg.metrics,
	}, nil
}

// Write appends a non-null payload.
func (w *WriterV2[T]) Write(v T) error {
	w.checkOrder(v, false)

	var buf bytes.Buffer
	if err := w.codec.Encode(v, &buf); err != nil {
		return err
	}
	return w.enqueue(emptyMarker, buf.Bytes())
}

// WriteNull appends the distinguished NULL element.
func (w *WriterV2[T]) WriteNull() error {
	w.checkOrder(w.prevValue, true)
	return w.enqueue(nullMarker, nil)
}

// enqueue buffers entries until exp is fixed, then flushes directly.
func (w *WriterV2[T]) enqueue(marker int32, payload []byte) error {
	if w.expFixed {
		return w.append(marker, payload)
	}

	w.pending = append(w.pending, pendingEntryV2{marker: marker, payload: payload})
	w.pendingBytes += 4 + len(payload)
	w.count++

	if w.pendingBytes > w.targetPageSize {
		return w.fixExp()
	}
	return nil
}

// fixExp derives exp from the number of entries buffered so far and
// flushes them into the first bag.
func (w *WriterV2[T]) fixExp() error {
	w.exp = ceilLog2(len(w.pending))
	w.expFixed = true

	pending := w.pending
	w.pending = nil
	w.pendingBytes = 0
	w.count -= int32(len(pending))

	for _, e := range pending {
		if err := w.append(e.marker, e.payload); err != nil {
			return err
		}
	}
	return nil
}

// ceilLog2 returns the smallest exp >= 1 such that 2^exp >= n.
func ceilLog2(n int) uint {
	if n <= 2 {
		return 1
	}
	return uint(bits.Len(uint(n - 1)))
}

func (w *WriterV2[T]) append(marker int32, payload []byte) error {
	fileIdx := fileNum(int(w.count), w.exp)
	for len(w.bags) <= fileIdx {
		w.bags = append(w.bags, bytes.Buffer{})
	}
	bag := &w.bags[fileIdx]

	var cb diskio.WriteCallback
	if w.metrics != nil {
		cb = w.metrics.observeBytesWritten
	}
	meteredBag := diskio.NewMeteredWriter(bag, cb)

	if err := binary.Write(meteredBag, binary.BigEndian, marker); err != nil {
		return err
	}
	if _, err := meteredBag.Write(payload); err != nil {
		return err
	}

	end := int32(bag.Len())
	if err := binary.Write(&w.header, segwin.NativeOrder(), end); err != nil {
		return err
	}

	w.count++
	return nil
}

func (w *WriterV2[T]) checkOrder(v T, isNull bool) {
	if !w.allowReverseLookup {
		return
	}
	if w.haveWritten {
		cur := Value[T]{Data: v, IsNull: isNull}
		prev := Value[T]{Data: w.prevValue, IsNull: w.prevIsNull}
		if compareValues(prev, cur, w.codec) >= 0 {
			w.allowReverseLookup = false
		}
	}
	w.haveWritten = true
	w.prevValue = v
	w.prevIsNull = isNull
}

// Count returns the number of elements written so far.
func (w *WriterV2[T]) Count() int { return int(w.count) }

// Files finalizes the writer (fixing exp from whatever was buffered if the
// dictionary never filled a full bag) and returns the header bytes and, in
// order, every value file's bytes, ready to be written out under
// headerFileName/valueFileName.
func (w *WriterV2[T]) Files() (header []byte, values [][]byte, meta MetaV2, err error) {
	if !w.expFixed {
		if len(w.pending) == 0 {
			w.exp = 1
			w.expFixed = true
		} else if err := w.fixExp(); err != nil {
			return nil, nil, MetaV2{}, err
		}
	}

	values = make([][]byte, len(w.bags))
	for i := range w.bags {
		values[i] = w.bags[i].Bytes()
	}
	meta = MetaV2{
		ReverseLookupAllowed: w.allowReverseLookup,
		Exp:                  int32(w.exp),
		NumElements:          w.count,
		ColumnName:           w.columnName,
	}

	w.logger.WithField("action", "dictionary_v2_write").
		WithField("num_elements", w.count).
		WithField("exp", w.exp).
		WithField("num_value_files", len(w.bags)).
		WithField("reverse_lookup_allowed", w.allowReverseLookup).
		Debug("wrote V2 dictionary")

	return w.header.Bytes(), values, meta, nil
}
