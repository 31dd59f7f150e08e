// Package outputbuffer batches individual edge operations emitted by the
// generator into fixed-size columnar blocks and hands each full block off
// to a sink (the writer's compression pipeline) as soon as it fills.
package outputbuffer

import "github.com/gilchrisn/graphlog-ggu/internal/glerr"

// Block is one columnar batch of operations: parallel arrays of sources,
// destinations and weights, all truncated to Count entries. A weight of
// 0.0 marks a temporary-edge insertion, -1.0 marks a removal (final or
// temporary); any other value is a final edge's weight.
type Block struct {
	Sources      []uint64
	Destinations []uint64
	Weights      []float64
	Count        int
	Index        int // sequence number among all blocks emitted, starting at 0
}

// Sink receives filled blocks in emission order. Each Block carries its own
// copies of the columns, so implementations (the writer's pipeline) may
// keep its slices after the call returns.
type Sink interface {
	WriteBlock(block Block) error
}

// Buffer accumulates operations into Block-sized columnar batches.
type Buffer struct {
	sink      Sink
	blockSize int
	nextIndex int

	sources      []uint64
	destinations []uint64
	weights      []float64
	pos          int
}

// New returns a Buffer that forwards full blocks of blockSize operations
// to sink.
func New(blockSize int, sink Sink) (*Buffer, error) {
	if blockSize <= 0 {
		return nil, glerr.Wrap(glerr.ErrInvalidArgument, "block size must be positive, got %d", blockSize)
	}
	return &Buffer{
		sink:         sink,
		blockSize:    blockSize,
		sources:      make([]uint64, blockSize),
		destinations: make([]uint64, blockSize),
		weights:      make([]float64, blockSize),
	}, nil
}

// Emit records one operation. Source and destination are always stored
// with source <= destination. The buffer flushes automatically once full.
func (b *Buffer) Emit(source, destination uint64, weight float64) error {
	if source > destination {
		source, destination = destination, source
	}

	b.sources[b.pos] = source
	b.destinations[b.pos] = destination
	b.weights[b.pos] = weight
	b.pos++

	if b.pos == b.blockSize {
		return b.flush()
	}
	return nil
}

// Close flushes any partially-filled trailing block. Safe to call when
// nothing is pending.
func (b *Buffer) Close() error {
	if b.pos == 0 {
		return nil
	}
	return b.flush()
}

func (b *Buffer) flush() error {
	block := Block{
		Sources:      append([]uint64(nil), b.sources[:b.pos]...),
		Destinations: append([]uint64(nil), b.destinations[:b.pos]...),
		Weights:      append([]float64(nil), b.weights[:b.pos]...),
		Count:        b.pos,
		Index:        b.nextIndex,
	}
	b.nextIndex++
	b.pos = 0

	return b.sink.WriteBlock(block)
}
