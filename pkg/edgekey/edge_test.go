package edgekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCanonicalizesOrder(t *testing.T) {
	a := New(5, 2)
	b := New(2, 5)
	assert.Equal(t, a, b)
	assert.Equal(t, uint32(2), a.Src)
	assert.Equal(t, uint32(5), a.Dst)
}

func TestNewSelfLoop(t *testing.T) {
	e := New(3, 3)
	assert.Equal(t, Edge{Src: 3, Dst: 3}, e)
}

func TestLessTotalOrder(t *testing.T) {
	assert.True(t, New(1, 2).Less(New(1, 3)))
	assert.True(t, New(1, 9).Less(New(2, 0)))
	assert.False(t, New(1, 2).Less(New(1, 2)))
}

func TestHashStableAndOrderIndependent(t *testing.T) {
	h1 := New(2, 5).Hash()
	h2 := New(5, 2).Hash()
	assert.Equal(t, h1, h2, "canonicalization makes hash independent of insertion order")

	// same inputs, same output
	assert.Equal(t, h1, New(2, 5).Hash())
}

func TestHashDistinguishesDifferentEdges(t *testing.T) {
	seen := make(map[uint64]Edge)
	collisions := 0
	for src := uint32(0); src < 40; src++ {
		for dst := src; dst < 40; dst++ {
			e := New(src, dst)
			h := e.Hash()
			if prev, ok := seen[h]; ok && prev != e {
				collisions++
			}
			seen[h] = e
		}
	}
	assert.Zero(t, collisions, "APHash should not collide across this small dense range")
}

func TestNewWeighted(t *testing.T) {
	we := NewWeighted(7, 1, 2.5)
	assert.Equal(t, uint32(1), we.Src)
	assert.Equal(t, uint32(7), we.Dst)
	assert.Equal(t, 2.5, we.Weight)
}
