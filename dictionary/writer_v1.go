package dictionary

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/UngureanuSerg/druid/dictionary/diskio"
	"github.com/UngureanuSerg/druid/segwin"
)

// WriterV1 accumulates payloads into an in-memory V1 container, per
// spec.md §4.7. Payloads must be written in their final on-disk order; if
// the caller writes them in strictly ascending order (per the codec's
// Compare), the resulting container keeps reverseLookupAllowed set so
// IndexOf works once reopened.
type WriterV1[T any] struct {
	codec              Codec[T]
	allowReverseLookup bool
	haveWritten        bool
	prevValue          T
	prevIsNull         bool
	count              int32
	offsets            bytes.Buffer
	payload            bytes.Buffer
	meteredPayload     *diskio.MeteredWriter
	logger             logrus.FieldLogger
	metrics            *Metrics
}

// NewWriterV1 creates an empty V1 writer. allowReverseLookup starts true
// only if codec supports comparison at all; it is permanently cleared the
// first time two consecutive writes are not strictly ascending (equal or
// decreasing).
func NewWriterV1[T any](codec Codec[T], opts ...WriterOption) (*WriterV1[T], error) {
	cfg, err := newWriterConfig(opts)
	if err != nil {
		return nil, err
	}
	w := &WriterV1[T]{
		codec:              codec,
		allowReverseLookup: codec.CanCompare(),
		logger:             cfg.logger,
		metrics:            cfg.metrics,
	}
	var cb diskio.WriteCallback
	if w.metrics != nil {
		cb = func(n int64) { w.metrics.observeBytesWritten(n) }
	}
	w.meteredPayload = diskio.NewMeteredWriter(&w.payload, cb)
	return w, nil
}

// Write appends a non-null payload. Payloads must be written in the order
// they should appear at read time.
func (w *WriterV1[T]) Write(v T) error {
	w.checkOrder(v, false)

	var buf bytes.Buffer
	if err := w.codec.Encode(v, &buf); err != nil {
		return err
	}

	if err := binary.Write(w.meteredPayload, binary.BigEndian, emptyMarker); err != nil {
		return err
	}
	if _, err := w.meteredPayload.Write(buf.Bytes()); err != nil {
		return err
	}

	return w.appendOffset()
}

// WriteNull appends the distinguished NULL element.
func (w *WriterV1[T]) WriteNull() error {
	w.checkOrder(w.prevValue, true)

	if err := binary.Write(w.meteredPayload, binary.BigEndian, nullMarker); err != nil {
		return err
	}

	return w.appendOffset()
}

// appendOffset records the current end offset of the payload buffer (an
// int value that fits within int32 for any dictionary that legally
// serializes to a V1 container, since V1 offsets are themselves int32).
func (w *WriterV1[T]) appendOffset() error {
	end := int32(w.payload.Len())
	if err := binary.Write(&w.offsets, binary.BigEndian, end); err != nil {
		return err
	}
	w.count++
	return nil
}

// checkOrder flips allowReverseLookup false the first time consecutive
// writes are not strictly ascending, per spec.md §4.7's sortedness
// tracking. NULL is the minimum element, so any non-null value following a
// NULL keeps order; a NULL following anything but the very first write
// breaks it.
func (w *WriterV1[T]) checkOrder(v T, isNull bool) {
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
func (w *WriterV1[T]) Count() int { return int(w.count) }

// SerializedSize returns the number of bytes WriteTo would emit for the
// elements written so far.
func (w *WriterV1[T]) SerializedSize() int64 {
	return int64(headerV1PrologueSize + w.offsets.Len() + w.payload.Len())
}

// WriteTo emits the complete V1 container: the 10-byte prologue, the
// offsets table, then the payload region, matching parseHeaderV1's layout
// exactly.
func (w *WriterV1[T]) WriteTo(sink io.Writer) (int64, error) {
	if err := writeHeaderV1(sink, w.allowReverseLookup, w.count, w.offsets.Len(), w.payload.Len()); err != nil {
		return 0, err
	}
	n1, err := sink.Write(w.offsets.Bytes())
	if err != nil {
		return int64(headerV1PrologueSize + n1), err
	}
	n2, err := sink.Write(w.payload.Bytes())
	total := int64(headerV1PrologueSize + n1 + n2)

	w.logger.WithField("action", "dictionary_v1_write").
		WithField("num_elements", w.count).
		WithField("reverse_lookup_allowed", w.allowReverseLookup).
		WithField("bytes", total).
		Debug("wrote V1 dictionary")

	return total, err
}

// Open finalizes the writer's in-memory buffers into a live ReaderV1
// without a round trip through an external file, for callers that build
// small dictionaries entirely in memory.
func (w *WriterV1[T]) Open(opts ...ReaderOption) (*ReaderV1[T], error) {
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return OpenV1[T](segwin.New(buf.Bytes()), w.codec, opts...)
}
