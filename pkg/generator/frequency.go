package generator

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/gilchrisn/graphlog-ggu/internal/glerr"
	"github.com/gilchrisn/graphlog-ggu/pkg/graphio"
)

// freqRecord pairs a sampling frequency with the vertex offset it applies
// to, kept separate from the vertex's position in a rank-sorted scratch
// array while the temporary-vertex interpolation below reshuffles ranks.
type freqRecord struct {
	offset    uint32
	frequency int64
}

// buildVertexUniverse lays out the combined final+temporary vertex array
// and the per-vertex initial sampling frequency, interpolating temporary
// vertex frequencies along the final vertices' rank-sorted distribution so
// temporary vertices are spread evenly across the degree spectrum.
//
// Ported from generator.cpp's init_temporary_vertices: final vertices keep
// their original offset and (scaled) degree; temporary vertices are
// inserted at ranks chosen by a Bresenham-style even spread over
// [0, totalVertices), each taking the average of the next final
// frequency in rank order and its already-placed right neighbour (the
// last slot has no right neighbour and takes the final frequency as is).
func buildVertexUniverse(cfg Config, graph *graphio.Graph) (vertices []uint64, frequencies []int64, numFinal, numTemp uint64, err error) {
	numFinal = uint64(len(graph.Vertices))

	degree := make([]float64, numFinal)
	for _, e := range graph.Edges {
		degree[e.Src]++
		degree[e.Dst]++
	}
	floats.Scale(cfg.SampleFactor, degree)

	finalFreq := make([]int64, numFinal)
	for i, f := range degree {
		finalFreq[i] = int64(f)
	}

	numTemp = uint64(math.Ceil((cfg.VertexExpansion - 1.0) * float64(numFinal)))
	total := numFinal + numTemp
	if total > math.MaxUint32 {
		return nil, nil, 0, 0, glerr.Wrap(glerr.ErrInvalidArgument, "too many vertices: %d (expansion factor %f)", total, cfg.VertexExpansion)
	}

	vertices = make([]uint64, total)
	copy(vertices, graph.Vertices)
	frequencies = make([]int64, total)

	if numTemp == 0 {
		copy(frequencies, finalFreq)
		return vertices, frequencies, numFinal, numTemp, nil
	}

	finalIDs := make(map[uint64]bool, numFinal)
	for _, id := range graph.Vertices {
		finalIDs[id] = true
	}

	sortedFinal := make([]freqRecord, numFinal)
	for i := range sortedFinal {
		sortedFinal[i] = freqRecord{offset: uint32(i), frequency: finalFreq[i]}
	}
	sort.Slice(sortedFinal, func(i, j int) bool { return sortedFinal[i].frequency > sortedFinal[j].frequency })

	combined := make([]freqRecord, total)

	nextExternalID := uint64(1)
	nextTempOffset := uint32(numFinal)

	posTail := int64(total) - 1
	posHead := int64(numFinal) - 1
	remaining := int64(numTemp)

	for remaining > 0 && posTail > 0 {
		if remaining*int64(total) >= int64(numTemp)*posTail {
			freq := sortedFinal[posHead].frequency
			if posTail < int64(total)-1 {
				freq = (freq + combined[posTail+1].frequency) / 2
			}
			combined[posTail] = freqRecord{offset: nextTempOffset, frequency: freq}
			remaining--

			for finalIDs[nextExternalID] {
				nextExternalID++
			}
			vertices[nextTempOffset] = nextExternalID

			nextTempOffset++
			nextExternalID++
		} else {
			combined[posTail] = sortedFinal[posHead]
			posHead--
		}
		posTail--
	}
	// Index 0 (and any lower-ranked final entries the loop above never
	// had to touch) keep their original sorted-descending slot, since the
	// loop only ever writes indices [1, total-1].
	for idx := int64(0); idx <= posHead; idx++ {
		combined[idx] = sortedFinal[idx]
	}

	for _, rec := range combined {
		frequencies[rec.offset] = rec.frequency
	}
	return vertices, frequencies, numFinal, numTemp, nil
}
