package dictionary

import (
	"github.com/sirupsen/logrus"
)

// ReaderOption configures a reader at construction time, following the
// teacher's functional-options idiom (lsmkv.BucketOption).
type ReaderOption func(*readerConfig) error

type readerConfig struct {
	logger  logrus.FieldLogger
	metrics *Metrics
}

func newReaderConfig(opts []ReaderOption) (readerConfig, error) {
	cfg := readerConfig{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// WithReaderLogger overrides the default standard logger.
func WithReaderLogger(logger logrus.FieldLogger) ReaderOption {
	return func(c *readerConfig) error {
		c.logger = logger
		return nil
	}
}

// WithReaderMetrics attaches Prometheus instrumentation to a reader.
func WithReaderMetrics(m *Metrics) ReaderOption {
	return func(c *readerConfig) error {
		c.metrics = m
		return nil
	}
}

// WriterOption configures a writer at construction time.
type WriterOption func(*writerConfig) error

type writerConfig struct {
	logger  logrus.FieldLogger
	metrics *Metrics
}

func newWriterConfig(opts []WriterOption) (writerConfig, error) {
	cfg := writerConfig{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// WithWriterLogger overrides the default standard logger.
func WithWriterLogger(logger logrus.FieldLogger) WriterOption {
	return func(c *writerConfig) error {
		c.logger = logger
		return nil
	}
}

// WithWriterMetrics attaches Prometheus instrumentation to a writer.
func WithWriterMetrics(m *Metrics) WriterOption {
	return func(c *writerConfig) error {
		c.metrics = m
		return nil
	}
}
