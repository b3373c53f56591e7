package dictionary

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the optional Prometheus instrumentation for a dictionary
// reader or writer, grounded on the teacher's monitoring.GetMetrics()...With(...)
// pattern in compactor_set.go. A nil *Metrics is always safe to use — every
// observe method is a no-op guard away from a nil receiver check at the
// call site, so instrumentation never becomes a required dependency.
type Metrics struct {
	getLatency        prometheus.Histogram
	binarySearchProbe prometheus.Counter
	cursorReuse       prometheus.Counter
	bytesWritten      prometheus.Counter
	pageReadLatency   prometheus.Histogram
}

// NewMetrics registers a Metrics bundle under reg, labeling every series
// with the given column name.
func NewMetrics(reg prometheus.Registerer, column string) (*Metrics, error) {
	labels := prometheus.Labels{"column": column}

	m := &Metrics{
		getLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "dictionary_get_seconds",
			Help:        "Latency of positional Get calls against the dictionary.",
			ConstLabels: labels,
		}),
		binarySearchProbe: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dictionary_binary_search_probes_total",
			Help:        "Number of comparisons performed by IndexOf.",
			ConstLabels: labels,
		}),
		cursorReuse: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dictionary_cursor_reuse_total",
			Help:        "Number of Get calls served by a reused single-threaded cursor window.",
			ConstLabels: labels,
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dictionary_bytes_written_total",
			Help:        "Bytes written while building a dictionary.",
			ConstLabels: labels,
		}),
		pageReadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "dictionary_page_read_seconds",
			Help:        "Latency of a single page read by a PagedMapper.",
			ConstLabels: labels,
		}),
	}

	for _, c := range []prometheus.Collector{
		m.getLatency, m.binarySearchProbe, m.cursorReuse, m.bytesWritten, m.pageReadLatency,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observeGet(d time.Duration) {
	if m == nil {
		return
	}
	m.getLatency.Observe(d.Seconds())
}

func (m *Metrics) observeBinarySearchProbe() {
	if m == nil {
		return
	}
	m.binarySearchProbe.Inc()
}

func (m *Metrics) observeCursorReuse() {
	if m == nil {
		return
	}
	m.cursorReuse.Inc()
}

func (m *Metrics) observeBytesWritten(n int64) {
	if m == nil {
		return
	}
	m.bytesWritten.Add(float64(n))
}

func (m *Metrics) observeRead(read int64, took time.Duration) {
	if m == nil {
		return
	}
	m.pageReadLatency.Observe(took.Seconds())
}
