package generator

import (
	"context"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/graphlog-ggu/internal/glerr"
	"github.com/gilchrisn/graphlog-ggu/pkg/countingtree"
	"github.com/gilchrisn/graphlog-ggu/pkg/edgekey"
	"github.com/gilchrisn/graphlog-ggu/pkg/graphio"
	"github.com/gilchrisn/graphlog-ggu/pkg/tempedges"
)

// OpSink receives the emitted operation stream as (external source,
// external destination, weight) triples: weight > 0 is a final-edge
// insert, 0 a temporary-edge insert, -1 a deletion. Satisfied in
// production by pkg/outputbuffer.Buffer.
type OpSink interface {
	Emit(source, destination uint64, weight float64) error
}

// Stats summarizes a completed generation run.
type Stats struct {
	OpsEmitted    uint64
	FinalEdges    uint64
	FinalVertices uint64
	TempVertices  uint64
}

// Generator drives the aging decision loop over one input graph. It owns
// the counting tree, the final-edge segments, and the vertex universe;
// none of its state is safe for concurrent use.
type Generator struct {
	cfg    Config
	logger zerolog.Logger

	vertices         []uint64 // external IDs, final vertices first then temporary
	numFinalVertices uint64
	numTempVertices  uint64

	finalEdgeBlocks [][]edgekey.WeightedEdge
	numFinalEdges   uint64

	freq *countingtree.Tree

	maxEdges  uint64
	targetOps uint64

	rng *rand.Rand
}

// New initializes a Generator from an already-loaded input graph: it
// builds the combined vertex universe (final vertices plus interpolated
// temporary vertices), seeds the counting tree with sampling frequencies,
// and permutes the final edges into freeable segments.
func New(cfg Config, graph *graphio.Graph, logger zerolog.Logger) (*Generator, error) {
	numFinalEdges := uint64(len(graph.Edges))
	if err := cfg.validate(numFinalEdges); err != nil {
		return nil, err
	}

	vertices, frequencies, numFinalVertices, numTempVertices, err := buildVertexUniverse(cfg, graph)
	if err != nil {
		return nil, err
	}

	tree, err := countingtree.New(uint64(len(vertices)), cfg.Fanout)
	if err != nil {
		return nil, err
	}
	for i, f := range frequencies {
		if err := tree.Set(uint64(i), f); err != nil {
			return nil, glerr.Wrap(glerr.ErrInvariant, "seeding counting tree at offset %d: %v", i, err)
		}
	}

	blocks := permuteFinalEdges(cfg, graph.Edges)

	maxEdges := uint64(math.Ceil(cfg.EdgeExpansion * float64(numFinalEdges)))
	targetOps := uint64(math.Ceil(cfg.Aging * float64(numFinalEdges)))

	logger.Info().
		Uint64("final_vertices", numFinalVertices).
		Uint64("temporary_vertices", numTempVertices).
		Uint64("final_edges", numFinalEdges).
		Uint64("max_edges", maxEdges).
		Uint64("target_ops", targetOps).
		Msg("generator initialized")

	return &Generator{
		cfg:              cfg,
		logger:           logger,
		vertices:         vertices,
		numFinalVertices: numFinalVertices,
		numTempVertices:  numTempVertices,
		finalEdgeBlocks:  blocks,
		numFinalEdges:    numFinalEdges,
		freq:             tree,
		maxEdges:         maxEdges,
		targetOps:        targetOps,
		rng:              rand.New(rand.NewSource(int64(cfg.Seed))),
	}, nil
}

// NumFinalVertices returns the number of vertices present in the input graph.
func (g *Generator) NumFinalVertices() uint64 { return g.numFinalVertices }

// NumTemporaryVertices returns the number of synthesized temporary vertices.
func (g *Generator) NumTemporaryVertices() uint64 { return g.numTempVertices }

// Vertices returns the combined external vertex ID array, final vertices
// first followed by temporary vertices. Callers must not modify it.
func (g *Generator) Vertices() []uint64 { return g.vertices }

// TargetOps returns the exact number of operations this run will emit.
func (g *Generator) TargetOps() uint64 { return g.targetOps }

// Generate runs the decision loop to completion, emitting every operation
// through sink in order. It returns InvariantViolation if the end-of-run
// postconditions (no live temporary edges, every final edge inserted
// exactly once, exact target operation count) do not hold.
func (g *Generator) Generate(ctx context.Context, sink OpSink) (Stats, error) {
	stored := make(map[edgekey.Edge]uint64, g.numFinalEdges)
	tmp := tempedges.New()

	blockIdx, blockOffset := 0, 0
	var finalCursor uint64
	var opsEmitted uint64
	lastProgress := -1

	for opsEmitted < g.targetOps {
		select {
		case <-ctx.Done():
			return Stats{}, ctx.Err()
		default:
		}

		remainingFinal := g.numFinalEdges - finalCursor
		liveTemp := uint64(tmp.Len())
		liveEdges := uint64(len(stored))

		if g.targetOps > 0 {
			if percent := int(100 * opsEmitted / g.targetOps); percent > lastProgress {
				lastProgress = percent
				g.logger.Info().
					Uint64("ops_emitted", opsEmitted).
					Uint64("target_ops", g.targetOps).
					Int("percent", percent).
					Uint64("final_cursor", finalCursor).
					Uint64("final_total", g.numFinalEdges).
					Uint64("live_temp", liveTemp).
					Uint64("live_edges", liveEdges).
					Msg("generation progress")
			}
		}

		insertBranch := tmp.Empty() || (liveEdges < g.maxEdges && remainingFinal > 0 &&
			opsEmitted+remainingFinal+liveTemp <= g.targetOps)

		var extraOps uint64
		var err error
		if insertBranch {
			insertFinalNow := opsEmitted+remainingFinal+liveTemp == g.targetOps ||
				float64(finalCursor) < (float64(opsEmitted)/float64(g.targetOps))*float64(g.numFinalEdges)

			if insertFinalNow {
				var edge edgekey.WeightedEdge
				edge, err = g.nextFinalEdge(&blockIdx, &blockOffset)
				if err == nil {
					finalCursor++
					extraOps, err = g.insertFinal(edge, stored, tmp, sink)
				}
			} else {
				err = g.insertTemp(stored, tmp, sink)
			}
		} else {
			err = g.removeTemp(stored, tmp, sink)
		}
		if err != nil {
			return Stats{}, err
		}

		opsEmitted += extraOps + 1
	}

	if err := g.checkPostconditions(tmp, stored, finalCursor, opsEmitted); err != nil {
		return Stats{}, err
	}

	g.logger.Info().Uint64("ops_emitted", opsEmitted).Msg("generation completed")

	return Stats{
		OpsEmitted:    opsEmitted,
		FinalEdges:    g.numFinalEdges,
		FinalVertices: g.numFinalVertices,
		TempVertices:  g.numTempVertices,
	}, nil
}

func (g *Generator) checkPostconditions(tmp *tempedges.Map, stored map[edgekey.Edge]uint64, finalCursor, opsEmitted uint64) error {
	if !tmp.Empty() {
		return glerr.Wrap(glerr.ErrInvariant, "%d temporary edges remain at end of generation", tmp.Len())
	}
	if finalCursor != g.numFinalEdges {
		return glerr.Wrap(glerr.ErrInvariant, "not all final edges were inserted: %d/%d", finalCursor, g.numFinalEdges)
	}
	if uint64(len(stored)) != g.numFinalEdges {
		return glerr.Wrap(glerr.ErrInvariant, "stored edge count %d does not match final edge count %d", len(stored), g.numFinalEdges)
	}
	if opsEmitted != g.targetOps {
		return glerr.Wrap(glerr.ErrInvariant, "emitted %d operations, expected %d", opsEmitted, g.targetOps)
	}
	return nil
}

// nextFinalEdge pops the next permuted final edge, freeing each block as
// soon as it is exhausted so memory is released incrementally during a
// long run.
func (g *Generator) nextFinalEdge(blockIdx, blockOffset *int) (edgekey.WeightedEdge, error) {
	for *blockIdx < len(g.finalEdgeBlocks) && *blockOffset >= len(g.finalEdgeBlocks[*blockIdx]) {
		g.finalEdgeBlocks[*blockIdx] = nil
		*blockIdx++
		*blockOffset = 0
	}
	if *blockIdx >= len(g.finalEdgeBlocks) {
		return edgekey.WeightedEdge{}, glerr.Wrap(glerr.ErrInvariant, "ran out of final edges to insert")
	}
	edge := g.finalEdgeBlocks[*blockIdx][*blockOffset]
	*blockOffset++
	return edge, nil
}

// insertFinal inserts the next final edge, first retiring it as a
// temporary edge if one already occupies the same pair (the input graph's
// edge collided with a synthesized temporary edge). Returns the number of
// *additional* operations emitted beyond the final insert itself (0 or 1,
// for the matching deletion).
func (g *Generator) insertFinal(edge edgekey.WeightedEdge, stored map[edgekey.Edge]uint64, tmp *tempedges.Map, sink OpSink) (uint64, error) {
	var extraOps uint64

	if key, present := stored[edge.Edge]; present {
		if key == 0 {
			return 0, glerr.Wrap(glerr.ErrInvariant, "input graph contains duplicate edge %+v", edge.Edge)
		}
		if err := g.removeExact(tmp, stored, key, edge.Edge); err != nil {
			return 0, err
		}
		u, v := g.vertices[edge.Src], g.vertices[edge.Dst]
		if err := sink.Emit(u, v, -1); err != nil {
			return 0, glerr.Wrap(glerr.ErrIO, "emit deletion: %v", err)
		}
		extraOps = 1
	}

	u, v := g.vertices[edge.Src], g.vertices[edge.Dst]
	if err := sink.Emit(u, v, edge.Weight); err != nil {
		return 0, glerr.Wrap(glerr.ErrIO, "emit final insert: %v", err)
	}
	stored[edge.Edge] = 0
	return extraOps, nil
}

// insertTemp samples a pair of endpoints by weighted-random draws from the
// frequency distribution, rejecting collisions with edges already present,
// and emits a temporary-edge insertion.
func (g *Generator) insertTemp(stored map[edgekey.Edge]uint64, tmp *tempedges.Map, sink OpSink) error {
	var edge edgekey.Edge
	for {
		r1, err := g.randRank()
		if err != nil {
			return err
		}
		src, err := g.freq.Search(r1)
		if err != nil {
			return err
		}
		oldFreq, err := g.freq.UnsetGet(src)
		if err != nil {
			return err
		}

		r2, err := g.randRank()
		if err != nil {
			return err
		}
		dst, err := g.freq.Search(r2)
		if err != nil {
			return err
		}

		if err := g.freq.Set(src, oldFreq); err != nil {
			return err
		}

		edge = edgekey.New(uint32(src), uint32(dst))
		if _, present := stored[edge]; !present {
			break
		}
	}

	key := g.randKey()
	stored[edge] = key
	tmp.Insert(key, edge)

	u, v := g.vertices[edge.Src], g.vertices[edge.Dst]
	return sink.Emit(u, v, 0.0)
}

// removeTemp retires a pseudo-random live temporary edge: it probes the
// temporary-edge map at a random key, taking the first entry at or after
// it (wrapping to the minimum key), then applies the duplicate-key
// removal protocol and emits a deletion.
func (g *Generator) removeTemp(stored map[edgekey.Edge]uint64, tmp *tempedges.Map, sink OpSink) error {
	probe := g.randKey()
	key, edge, err := tmp.FindFrom(probe)
	if err != nil {
		return err
	}

	if err := g.removeExact(tmp, stored, key, edge); err != nil {
		return err
	}
	delete(stored, edge)

	u, v := g.vertices[edge.Src], g.vertices[edge.Dst]
	return sink.Emit(u, v, -1.0)
}

// removeExact implements the duplicate-key removal protocol: the map may
// hold more than one edge under the same random key, so entries removed
// under key that are not target are reinserted under a freshly drawn key
// and stored's authoritative edge->key index is updated to match.
func (g *Generator) removeExact(tmp *tempedges.Map, stored map[edgekey.Edge]uint64, key uint64, target edgekey.Edge) error {
	for {
		removed, ok := tmp.Remove(key)
		if !ok {
			return glerr.Wrap(glerr.ErrInvariant, "key %d has no temporary edge to remove", key)
		}
		if removed == target {
			return nil
		}
		newKey := g.randKey()
		tmp.Insert(newKey, removed)
		stored[removed] = newKey
	}
}

func (g *Generator) randKey() uint64 {
	for {
		k := g.rng.Uint64()
		if k != 0 {
			return k
		}
	}
}

func (g *Generator) randRank() (int64, error) {
	total := g.freq.TotalCount()
	if total <= 0 {
		return 0, glerr.Wrap(glerr.ErrInvariant, "counting tree is empty, cannot sample a temporary edge")
	}
	return g.rng.Int63n(total), nil
}
