// Package diskio provides small io.Writer/io.Reader wrappers that report
// byte counts and latency to a caller-supplied callback, so the dictionary
// writers and file mappers can feed optional metrics without depending on
// any particular metrics backend.
package diskio

import (
	"io"
	"time"
)

// WriteCallback is invoked after every successful Write with the number of
// bytes written.
type WriteCallback func(written int64)

// MeteredWriter wraps an io.Writer and reports every successful write to cb.
// A nil cb turns this into a transparent passthrough.
type MeteredWriter struct {
	w  io.Writer
	cb WriteCallback
}

// NewMeteredWriter wraps w so that every successful Write is reported to cb.
func NewMeteredWriter(w io.Writer, cb WriteCallback) *MeteredWriter {
	return &MeteredWriter{w: w, cb: cb}
}

func (m *MeteredWriter) Write(p []byte) (int, error) {
	n, err := m.w.Write(p)
	if err != nil {
		return n, err
	}
	if m.cb != nil {
		m.cb(int64(n))
	}
	return n, nil
}

// ReadCallback is invoked after every successful Read with the number of
// bytes read and the time it took.
type ReadCallback func(read int64, took time.Duration)

// MeteredReader wraps an io.Reader and reports every successful read to cb.
type MeteredReader struct {
	r  io.Reader
	cb ReadCallback
}

// NewMeteredReader wraps r so that every successful Read is reported to cb.
func NewMeteredReader(r io.Reader, cb ReadCallback) *MeteredReader {
	return &MeteredReader{r: r, cb: cb}
}

func (m *MeteredReader) Read(p []byte) (int, error) {
	start := time.Now()
	n, err := m.r.Read(p)
	if err != nil {
		return n, err
	}
	if m.cb != nil {
		m.cb(int64(n), time.Since(start))
	}
	return n, nil
}
