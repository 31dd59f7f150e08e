// Package generator drives the randomized decision process that "ages" a
// static input graph into a time-ordered log of edge insertions and
// deletions: it interleaves final-edge insertions (those belonging to the
// input graph) with short-lived temporary-edge insertions and removals,
// subject to the cardinality invariants described in Config.
package generator

import (
	"math"

	"github.com/gilchrisn/graphlog-ggu/internal/glerr"
)

// Config holds the generation parameters. EdgeExpansion, VertexExpansion
// and Aging must each be at least 1.0; SampleFactor must be positive.
type Config struct {
	// SampleFactor scales each final vertex's initial sampling frequency
	// (degree in the input graph). Typically 1.
	SampleFactor float64
	// EdgeExpansion bounds the number of edges concurrently present in the
	// logical graph at max_edges = ceil(EdgeExpansion * |E|).
	EdgeExpansion float64
	// VertexExpansion controls how many synthetic temporary vertices are
	// added beyond the input graph's |V|.
	VertexExpansion float64
	// Aging fixes the total operation count at target_ops = ceil(Aging * |E|).
	Aging float64
	// Seed drives every random draw the generator makes (sampling,
	// key generation, the final-edge permutation).
	Seed uint64
	// Fanout is the counting tree's node fanout (must be >= 2).
	Fanout uint64
	// FinalEdgesPerBlock is the segment size for the permuted final-edge
	// array, matching the original's 8M default so spent segments can be
	// released incrementally during generation.
	FinalEdgesPerBlock uint64
}

// DefaultConfig returns the reference parameter values from the original
// tool: aging 10.0, edge expansion 1.0, vertex expansion 1.2, sample
// factor 1.0, fanout 64, 1<<23 final edges per segment.
func DefaultConfig() Config {
	return Config{
		SampleFactor:       1.0,
		EdgeExpansion:      1.0,
		VertexExpansion:    1.2,
		Aging:              10.0,
		Fanout:             64,
		FinalEdgesPerBlock: 1 << 23,
	}
}

func (c Config) validate(numFinalEdges uint64) error {
	if c.SampleFactor <= 0 {
		return glerr.Wrap(glerr.ErrInvalidArgument, "sample factor must be positive, got %f", c.SampleFactor)
	}
	if c.EdgeExpansion < 1.0 {
		return glerr.Wrap(glerr.ErrInvalidArgument, "edge expansion must be >= 1, got %f", c.EdgeExpansion)
	}
	if c.VertexExpansion < 1.0 {
		return glerr.Wrap(glerr.ErrInvalidArgument, "vertex expansion must be >= 1, got %f", c.VertexExpansion)
	}
	if c.Aging < 1.0 {
		return glerr.Wrap(glerr.ErrInvalidArgument, "aging coefficient must be >= 1, got %f", c.Aging)
	}
	if c.Fanout < 2 {
		return glerr.Wrap(glerr.ErrInvalidArgument, "fanout must be >= 2, got %d", c.Fanout)
	}
	if c.FinalEdgesPerBlock == 0 {
		return glerr.Wrap(glerr.ErrInvalidArgument, "final edges per block must be positive")
	}

	maxEdges := uint64(math.Ceil(c.EdgeExpansion * float64(numFinalEdges)))
	targetOps := uint64(math.Ceil(c.Aging * float64(numFinalEdges)))

	// Every final edge must be inserted at least once, and the graph must
	// be able to hold all |E| of them concurrently by the time generation
	// ends: both bounds must be reachable before the decision loop starts,
	// rather than discovered as a stuck loop mid-run.
	if numFinalEdges > 0 && maxEdges < numFinalEdges {
		return glerr.Wrap(glerr.ErrInvalidArgument, "max concurrent edges %d cannot hold all %d final edges", maxEdges, numFinalEdges)
	}
	if targetOps < numFinalEdges {
		return glerr.Wrap(glerr.ErrInvalidArgument, "target op count %d is less than the %d final edges that must be inserted", targetOps, numFinalEdges)
	}
	return nil
}
