// Package edgekey defines the canonical identity of an undirected edge and
// a stable hash over that identity. Edge is comparable, so callers use it
// directly as a map key; Hash is an explicit digest for callers that want one.
package edgekey

import "encoding/binary"

// Edge is an undirected edge between two vertex identifiers, always stored
// with Src <= Dst so that (u,v) and (v,u) compare and hash identically.
type Edge struct {
	Src uint32
	Dst uint32
}

// New canonicalizes a pair of endpoints into an Edge.
func New(a, b uint32) Edge {
	if a <= b {
		return Edge{Src: a, Dst: b}
	}
	return Edge{Src: b, Dst: a}
}

// Less gives Edge a total order: by source, then by destination.
func (e Edge) Less(other Edge) bool {
	if e.Src != other.Src {
		return e.Src < other.Src
	}
	return e.Dst < other.Dst
}

// WeightedEdge is an Edge carrying a non-negative weight.
type WeightedEdge struct {
	Edge
	Weight float64
}

// NewWeighted canonicalizes endpoints and attaches a weight.
func NewWeighted(a, b uint32, weight float64) WeightedEdge {
	return WeightedEdge{Edge: New(a, b), Weight: weight}
}

// Hash returns a stable mixing of the edge's canonical identity as a
// uint64. It is a direct port of the Arash Partow APHash function applied
// to the 8 little-endian bytes of (src<<32 | dst), matching the hash the
// reference generator uses to seed temporary-edge keys; APHash is natively
// 32-bit, so the result is zero-extended to satisfy callers that want a
// single 64-bit digest type alongside the rest of the edge-identity API.
func (e Edge) Hash() uint64 {
	packed := uint64(e.Src)<<32 | uint64(e.Dst)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], packed)

	hash := uint32(0xAAAAAAAA)
	for i, b := range buf {
		if i&1 == 0 {
			hash ^= (hash << 7) ^ uint32(b)*(hash>>3)
		} else {
			hash ^= ^((hash << 11) + (uint32(b) ^ (hash >> 5)))
		}
	}
	return uint64(hash)
}
