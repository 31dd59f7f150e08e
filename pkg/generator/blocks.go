package generator

import (
	"math/rand"

	"github.com/gilchrisn/graphlog-ggu/pkg/edgekey"
	"github.com/gilchrisn/graphlog-ggu/pkg/graphio"
)

// permuteFinalEdges randomly permutes the input graph's edges and
// segments the result into fixed-size blocks so the generator can release
// each block's memory once it has been fully consumed. The permutation
// uses its own PRNG stream (seed+57) so that it is independent of the
// operation-mix sampling, matching init_permute_edges_final's
// m_seed + 57 offset.
func permuteFinalEdges(cfg Config, edges []graphio.WeightedEdge) [][]edgekey.WeightedEdge {
	n := len(edges)
	permRNG := rand.New(rand.NewSource(int64(cfg.Seed + 57)))

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	permRNG.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

	blockSize := int(cfg.FinalEdgesPerBlock)
	numBlocks := (n + blockSize - 1) / blockSize
	if numBlocks == 0 {
		return nil
	}

	blocks := make([][]edgekey.WeightedEdge, numBlocks)
	for b := 0; b < numBlocks; b++ {
		start := b * blockSize
		end := start + blockSize
		if end > n {
			end = n
		}
		block := make([]edgekey.WeightedEdge, end-start)
		for j := range block {
			src := edges[order[start+j]]
			block[j] = edgekey.NewWeighted(src.Src, src.Dst, src.Weight)
		}
		blocks[b] = block
	}
	return blocks
}
