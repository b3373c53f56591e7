package dictionary

import (
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"

	"github.com/UngureanuSerg/druid/dictionary/diskio"
	"github.com/UngureanuSerg/druid/segwin"
)

// Mapper is the file-mapper collaborator from spec.md §1: given a logical
// name, it returns a read-only byte window whose limit equals its capacity.
// Implementations conceptually back the window with an mmap'd region, but
// the dictionary never assumes that; it only relies on the returned Window.
type Mapper interface {
	// Map opens name and returns a window over its full contents.
	Map(name string) (segwin.Window, error)
	// Close releases any resources (mapped memory, open files) held by
	// windows this mapper has returned. Readers built from this mapper must
	// not be used after Close.
	Close() error
}

// MMapMapper maps each requested file with a real mmap, grounded on the
// teacher's segment_precompute_for_compaction.go call to
// mmap.MapRegion(file, size, mmap.RDONLY, 0, 0).
type MMapMapper struct {
	dir     string
	handles []mmap.MMap
	files   []*os.File
}

// NewMMapMapper opens files relative to dir via mmap.
func NewMMapMapper(dir string) *MMapMapper {
	return &MMapMapper{dir: dir}
}

func (m *MMapMapper) Map(name string) (segwin.Window, error) {
	path := name
	if m.dir != "" {
		path = m.dir + "/" + name
	}

	f, err := os.Open(path)
	if err != nil {
		return segwin.Window{}, errFileMapping(err, name)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return segwin.Window{}, errFileMapping(err, name)
	}

	contents, err := mmap.MapRegion(f, int(info.Size()), mmap.RDONLY, 0, 0)
	if err != nil {
		f.Close()
		return segwin.Window{}, errFileMapping(err, name)
	}

	m.handles = append(m.handles, contents)
	m.files = append(m.files, f)

	return segwin.New(contents), nil
}

func (m *MMapMapper) Close() error {
	var firstErr error
	for _, h := range m.handles {
		if err := h.Unmap(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "unmap segment")
		}
	}
	for _, f := range m.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "close mapped file")
		}
	}
	m.handles = nil
	m.files = nil
	return firstErr
}

// PagedMapper is a pread-backed fallback for deployments that cannot afford
// an mmap per file (e.g. a V2 dictionary sharded into many small bags),
// grounded directly on the teacher's contentReader.Pread: it reads each
// opened file page by page through a MeteredReader, so I/O latency is
// observable per page, then assembles the full logical file into one
// contiguous buffer for the dictionary's Window contract. Unlike Pread,
// which serves many independent, possibly-repeated ReadRange calls over a
// long-lived value and so benefits from an LRU page cache, Map reads each
// file exactly once from start to end, so every page is read exactly once
// and a cache would never see a hit; it was dropped for that reason.
type PagedMapper struct {
	dir      string
	pageSize int
	files    []*os.File
	metrics  *Metrics
}

// NewPagedMapper opens files relative to dir using paged, metered reads
// instead of mmap.
func NewPagedMapper(dir string) *PagedMapper {
	return &PagedMapper{dir: dir, pageSize: os.Getpagesize()}
}

// WithMetrics attaches m so every page read reports its latency. It returns
// the mapper for chaining at construction time.
func (m *PagedMapper) WithMetrics(metrics *Metrics) *PagedMapper {
	m.metrics = metrics
	return m
}

func (m *PagedMapper) Map(name string) (segwin.Window, error) {
	path := name
	if m.dir != "" {
		path = m.dir + "/" + name
	}

	f, err := os.Open(path)
	if err != nil {
		return segwin.Window{}, errFileMapping(err, name)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return segwin.Window{}, errFileMapping(err, name)
	}
	size := info.Size()
	out := make([]byte, size)

	var readCB diskio.ReadCallback
	if m.metrics != nil {
		readCB = m.metrics.observeRead
	}

	pos := int64(0)
	for pos < size {
		end := pos + int64(m.pageSize)
		if end > size {
			end = size
		}
		section := io.NewSectionReader(f, pos, end-pos)
		reader := diskio.NewMeteredReader(section, readCB)
		n, rerr := io.ReadFull(reader, out[pos:end])
		if rerr != nil && rerr != io.EOF && rerr != io.ErrUnexpectedEOF {
			f.Close()
			return segwin.Window{}, errFileMapping(rerr, name)
		}
		if n == 0 {
			break
		}
		pos += int64(n)
	}

	m.files = append(m.files, f)
	return segwin.New(out), nil
}

func (m *PagedMapper) Close() error {
	var firstErr error
	for _, f := range m.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "close paged file")
		}
	}
	m.files = nil
	return firstErr
}
