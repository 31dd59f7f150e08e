// Package writer serializes a generated operation log to disk: a sorted
// text header of properties followed by a binary section holding the
// final vertex list, the temporary vertex list, and the edge operation
// stream, each independently raw-deflate compressed.
//
// The edge stream is written by a bounded multi-producer/single-consumer
// pipeline: P compressor goroutines deflate blocks concurrently while one
// writer goroutine serializes the compressed bytes to the file strictly
// in block-submission order, using a small reorder buffer to put
// out-of-order completions back in sequence.
package writer

import (
	"bufio"
	"bytes"
	"compress/flate"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/graphlog-ggu/internal/glerr"
	"github.com/gilchrisn/graphlog-ggu/pkg/outputbuffer"
)

const (
	placeholderWidth  = 19
	bytesPerOperation = 3 * 8 // source + destination (uint64) + weight (float64)

	keyVtxBeginFinal    = "internal.vertices.final.begin"
	keyVtxBeginTemp     = "internal.vertices.temporary.begin"
	keyEdgesBegin       = "internal.edges.begin"
	keyEdgesCardinality = "internal.edges.cardinality"
	keyEdgesBlockSize   = "internal.edges.block_size"
)

// Writer writes one operation log file.
type Writer struct {
	path       string
	props      map[string]string
	numWorkers int
	queueDepth int
	level      int

	f  *os.File
	bw *bufio.Writer

	placeholderOffset map[string]int64

	pipelineOpen bool
	jobs         chan compressJob
	group        *errgroup.Group
	groupCtx     context.Context
	cancel       context.CancelFunc
}

type compressJob struct {
	index   int
	payload []byte
}

type compressResult struct {
	index int
	data  []byte
}

// New returns a Writer ready to accept properties. It does not touch the
// filesystem until Create is called. level is a compress/flate level
// (flate.HuffmanOnly..flate.BestCompression, or flate.DefaultCompression).
func New(numWorkers, queueDepth, level int) (*Writer, error) {
	if numWorkers < 1 {
		return nil, glerr.Wrap(glerr.ErrInvalidArgument, "numWorkers must be >= 1, got %d", numWorkers)
	}
	if queueDepth < 1 {
		return nil, glerr.Wrap(glerr.ErrInvalidArgument, "queueDepth must be >= 1, got %d", queueDepth)
	}
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		return nil, glerr.Wrap(glerr.ErrInvalidArgument, "compression level %d out of range [%d, %d]", level, flate.HuffmanOnly, flate.BestCompression)
	}

	w := &Writer{
		numWorkers: numWorkers,
		queueDepth: queueDepth,
		level:      level,
		props:      make(map[string]string),
	}
	w.props[keyVtxBeginFinal] = strings.Repeat(" ", placeholderWidth)
	w.props[keyVtxBeginTemp] = strings.Repeat(" ", placeholderWidth)
	w.props[keyEdgesBegin] = strings.Repeat(" ", placeholderWidth)
	w.props[keyEdgesCardinality] = strings.Repeat(" ", placeholderWidth)
	w.props[keyEdgesBlockSize] = strings.Repeat(" ", placeholderWidth)
	return w, nil
}

// SetProperty records a property to be stored in the file header. Keys
// prefixed "internal." are reserved for the writer's own bookkeeping.
func (w *Writer) SetProperty(name, value string) error {
	if strings.HasPrefix(name, "internal.") {
		return glerr.Wrap(glerr.ErrInvalidArgument, "reserved property key: %s", name)
	}
	w.props[name] = value
	return nil
}

// SetInternalProperty records a reserved "internal."-prefixed property.
// Only the generator's own bookkeeping (edge/vertex cardinalities, block
// layout) should call this.
func (w *Writer) SetInternalProperty(name string, value any) {
	w.props[name] = fmt.Sprint(value)
}

// Create opens path, writes the sorted property header and the
// binary-section banner, and records the vertices-final placeholder's
// position for later rewriting.
func (w *Writer) Create(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return glerr.Wrap(glerr.ErrIO, "create %q: %v", path, err)
	}
	w.path = path
	w.f = f
	w.bw = bufio.NewWriterSize(f, 1<<20)
	w.placeholderOffset = make(map[string]int64, 3)

	var offset int64
	write := func(s string) error {
		n, err := w.bw.WriteString(s)
		offset += int64(n)
		if err != nil {
			return glerr.Wrap(glerr.ErrIO, "write header: %v", err)
		}
		return nil
	}

	if err := write("# GRAPHLOG\n"); err != nil {
		return err
	}
	if err := write(fmt.Sprintf("# File created by `graphlog-ggu' on %s\n\n", time.Now().Format("02/01/2006 15:04:05"))); err != nil {
		return err
	}

	keys := make([]string, 0, len(w.props))
	for k := range w.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := write(k + " = "); err != nil {
			return err
		}
		if _, reserved := w.placeholderOffset0(k); reserved {
			w.placeholderOffset[k] = offset
		}
		if err := write(w.props[k] + "\n"); err != nil {
			return err
		}
	}

	if err := write("\n__BINARY_SECTION_FOLLOWS\n"); err != nil {
		return err
	}

	return w.setMarker(keyVtxBeginFinal)
}

func (w *Writer) placeholderOffset0(key string) (int64, bool) {
	switch key {
	case keyVtxBeginFinal, keyVtxBeginTemp, keyEdgesBegin, keyEdgesCardinality, keyEdgesBlockSize:
		return 0, true
	default:
		return 0, false
	}
}

// writeAtPlaceholder overwrites the given reserved placeholder's bytes with
// text, which must fit within placeholderWidth.
func (w *Writer) writeAtPlaceholder(key, text string) error {
	placeholder, ok := w.placeholderOffset[key]
	if !ok {
		return glerr.Wrap(glerr.ErrInvariant, "no placeholder recorded for %s", key)
	}
	if len(text) > placeholderWidth {
		return glerr.Wrap(glerr.ErrInvariant, "value %q does not fit in %d-byte placeholder", text, placeholderWidth)
	}
	if _, err := w.f.WriteAt([]byte(text), placeholder); err != nil {
		return glerr.Wrap(glerr.ErrIO, "write marker %s: %v", key, err)
	}
	return nil
}

// setMarker overwrites the given placeholder with the writer's current
// byte offset, preserving the stream position afterward.
func (w *Writer) setMarker(key string) error {
	if err := w.bw.Flush(); err != nil {
		return glerr.Wrap(glerr.ErrIO, "flush before marker: %v", err)
	}
	current, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return glerr.Wrap(glerr.ErrIO, "tell: %v", err)
	}
	if err := w.writeAtPlaceholder(key, strconv.FormatInt(current, 10)); err != nil {
		return err
	}
	if _, err := w.f.Seek(current, io.SeekStart); err != nil {
		return glerr.Wrap(glerr.ErrIO, "seek back after marker: %v", err)
	}
	return nil
}

// writeCountPlaceholder overwrites the given placeholder with an arbitrary
// count (as opposed to the writer's own stream offset), preserving the
// stream position afterward. Used for internal.edges.block_size (known at
// Create time) and internal.edges.cardinality (known only once the edge
// stream has closed).
func (w *Writer) writeCountPlaceholder(key string, value uint64) error {
	if err := w.bw.Flush(); err != nil {
		return glerr.Wrap(glerr.ErrIO, "flush before marker: %v", err)
	}
	current, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return glerr.Wrap(glerr.ErrIO, "tell: %v", err)
	}
	if err := w.writeAtPlaceholder(key, strconv.FormatUint(value, 10)); err != nil {
		return err
	}
	if _, err := w.f.Seek(current, io.SeekStart); err != nil {
		return glerr.Wrap(glerr.ErrIO, "seek back after marker: %v", err)
	}
	return nil
}

// SetEdgesBlockSize records the output buffer's block size K (the cap on
// operations per columnar block) into the internal.edges.block_size
// placeholder. Call any time after Create.
func (w *Writer) SetEdgesBlockSize(k uint64) error {
	return w.writeCountPlaceholder(keyEdgesBlockSize, k)
}

// SetEdgesCardinality records the total number of emitted edge operations
// into the internal.edges.cardinality placeholder. Call after
// CloseEdgeStream, once the final count is known.
func (w *Writer) SetEdgesCardinality(count uint64) error {
	return w.writeCountPlaceholder(keyEdgesCardinality, count)
}

// WriteVerticesFinal compresses and writes the final vertex list, then
// records the start of the temporary-vertex section.
func (w *Writer) WriteVerticesFinal(vertices []uint64) error {
	if err := w.writeVertexList(vertices); err != nil {
		return err
	}
	return w.setMarker(keyVtxBeginTemp)
}

// WriteVerticesTemporary compresses and writes the temporary vertex list
// (if any), then records the start of the edge-operation section.
func (w *Writer) WriteVerticesTemporary(vertices []uint64) error {
	if len(vertices) > 0 {
		if err := w.writeVertexList(vertices); err != nil {
			return err
		}
	}
	return w.setMarker(keyEdgesBegin)
}

func (w *Writer) writeVertexList(vertices []uint64) error {
	raw := make([]byte, 8*len(vertices))
	for i, v := range vertices {
		binary.LittleEndian.PutUint64(raw[i*8:], v)
	}

	compressed, err := deflate(raw, w.level)
	if err != nil {
		return err
	}
	if _, err := w.bw.Write(compressed); err != nil {
		return glerr.Wrap(glerr.ErrIO, "write vertex list: %v", err)
	}
	return nil
}

// OpenEdgeStream starts the compression pipeline. Must be called before
// any WriteBlock and matched by a later CloseEdgeStream.
func (w *Writer) OpenEdgeStream(ctx context.Context) error {
	if w.pipelineOpen {
		return glerr.Wrap(glerr.ErrInvariant, "edge stream already open")
	}

	groupCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(groupCtx)

	jobs := make(chan compressJob, w.queueDepth)
	results := make(chan compressResult, w.queueDepth)

	var workers sync.WaitGroup
	workers.Add(w.numWorkers)
	for i := 0; i < w.numWorkers; i++ {
		group.Go(func() error {
			defer workers.Done()
			for {
				select {
				case <-groupCtx.Done():
					return groupCtx.Err()
				case job, ok := <-jobs:
					if !ok {
						return nil
					}
					data, err := deflate(job.payload, w.level)
					if err != nil {
						return err
					}
					select {
					case results <- compressResult{index: job.index, data: data}:
					case <-groupCtx.Done():
						return groupCtx.Err()
					}
				}
			}
		})
	}

	group.Go(func() error {
		workers.Wait()
		close(results)
		return nil
	})

	group.Go(func() error {
		pending := make(map[int][]byte)
		next := 0
		for res := range results {
			pending[res.index] = res.data
			for {
				data, ok := pending[next]
				if !ok {
					break
				}
				if _, err := w.bw.Write(data); err != nil {
					return glerr.Wrap(glerr.ErrIO, "write edge block %d: %v", next, err)
				}
				delete(pending, next)
				next++
			}
		}
		return nil
	})

	w.jobs = jobs
	w.group = group
	w.groupCtx = groupCtx
	w.cancel = cancel
	w.pipelineOpen = true
	return nil
}

// WriteBlock implements outputbuffer.Sink. It encodes the block's columns
// and submits the raw bytes for asynchronous compression.
func (w *Writer) WriteBlock(block outputbuffer.Block) error {
	if !w.pipelineOpen {
		return glerr.Wrap(glerr.ErrInvariant, "WriteBlock called before OpenEdgeStream")
	}

	payload := make([]byte, bytesPerOperation*block.Count)
	n := block.Count
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(payload[i*8:], block.Sources[i])
	}
	base := n * 8
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(payload[base+i*8:], block.Destinations[i])
	}
	base += n * 8
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(payload[base+i*8:], math.Float64bits(block.Weights[i]))
	}

	select {
	case w.jobs <- compressJob{index: block.Index, payload: payload}:
		return nil
	case <-w.groupCtx.Done():
		return w.group.Wait()
	}
}

// CloseEdgeStream closes the pipeline, waiting for every in-flight block
// to compress and land in the file in submission order.
func (w *Writer) CloseEdgeStream() error {
	if !w.pipelineOpen {
		return glerr.Wrap(glerr.ErrInvariant, "edge stream is not open")
	}
	close(w.jobs)
	err := w.group.Wait()
	w.cancel()
	w.pipelineOpen = false
	if err != nil {
		return glerr.Wrap(glerr.ErrCompression, "edge compression pipeline: %v", err)
	}
	return nil
}

// Close flushes and closes the underlying file. Call after CloseEdgeStream.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		return glerr.Wrap(glerr.ErrIO, "final flush: %v", err)
	}
	if err := w.f.Close(); err != nil {
		return glerr.Wrap(glerr.ErrIO, "close %q: %v", w.path, err)
	}
	return nil
}

func deflate(payload []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, glerr.Wrap(glerr.ErrCompression, "init deflate: %v", err)
	}
	if _, err := fw.Write(payload); err != nil {
		return nil, glerr.Wrap(glerr.ErrCompression, "deflate write: %v", err)
	}
	if err := fw.Close(); err != nil {
		return nil, glerr.Wrap(glerr.ErrCompression, "deflate finish: %v", err)
	}
	return buf.Bytes(), nil
}
