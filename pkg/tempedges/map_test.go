package tempedges

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/graphlog-ggu/pkg/edgekey"
)

func TestInsertRemoveRoundTrip(t *testing.T) {
	m := New()
	assert.True(t, m.Empty())

	e1 := edgekey.New(1, 2)
	m.Insert(10, e1)
	assert.Equal(t, 1, m.Len())
	assert.False(t, m.Empty())

	got, ok := m.Remove(10)
	require.True(t, ok)
	assert.Equal(t, e1, got)
	assert.True(t, m.Empty())
}

func TestRemoveMissingKey(t *testing.T) {
	m := New()
	_, ok := m.Remove(42)
	assert.False(t, ok)
}

func TestDuplicateKeysKeepBothEdges(t *testing.T) {
	m := New()
	e1 := edgekey.New(1, 2)
	e2 := edgekey.New(3, 4)
	m.Insert(5, e1)
	m.Insert(5, e2)
	assert.Equal(t, 2, m.Len())

	first, ok := m.Remove(5)
	require.True(t, ok)
	second, ok := m.Remove(5)
	require.True(t, ok)

	assert.ElementsMatch(t, []edgekey.Edge{e1, e2}, []edgekey.Edge{first, second})
	assert.True(t, m.Empty())
}

func TestFindFromWrapsAround(t *testing.T) {
	m := New()
	e1 := edgekey.New(1, 2)
	e2 := edgekey.New(3, 4)
	m.Insert(100, e1)
	m.Insert(200, e2)

	key, edge, err := m.FindFrom(150)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), key)
	assert.Equal(t, e2, edge)

	// probing past every key wraps to the minimum
	key, edge, err = m.FindFrom(1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), key)
	assert.Equal(t, e1, edge)
}

func TestFindFromEmptyMapFails(t *testing.T) {
	m := New()
	_, _, err := m.FindFrom(1)
	assert.Error(t, err)
}

func TestKeyMin(t *testing.T) {
	m := New()
	m.Insert(50, edgekey.New(1, 2))
	m.Insert(10, edgekey.New(3, 4))
	m.Insert(30, edgekey.New(5, 6))

	k, err := m.KeyMin()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), k)
}

func TestPeekDoesNotRemove(t *testing.T) {
	m := New()
	e := edgekey.New(7, 8)
	m.Insert(20, e)

	got, ok := m.Peek(20)
	require.True(t, ok)
	assert.Equal(t, e, got)
	assert.Equal(t, 1, m.Len())
}
