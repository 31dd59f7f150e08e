package outputbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	blocks []Block
}

func (s *recordingSink) WriteBlock(b Block) error {
	s.blocks = append(s.blocks, b)
	return nil
}

func TestEmitFlushesOnFullBlock(t *testing.T) {
	sink := &recordingSink{}
	buf, err := New(2, sink)
	require.NoError(t, err)

	require.NoError(t, buf.Emit(1, 2, 1.5))
	assert.Empty(t, sink.blocks, "block not full yet")

	require.NoError(t, buf.Emit(3, 4, 2.5))
	require.Len(t, sink.blocks, 1)
	assert.Equal(t, 2, sink.blocks[0].Count)
	assert.Equal(t, []uint64{1, 3}, sink.blocks[0].Sources)
	assert.Equal(t, []uint64{2, 4}, sink.blocks[0].Destinations)
	assert.Equal(t, []float64{1.5, 2.5}, sink.blocks[0].Weights)
	assert.Equal(t, 0, sink.blocks[0].Index)
}

func TestEmitCanonicalizesEndpointOrder(t *testing.T) {
	sink := &recordingSink{}
	buf, err := New(1, sink)
	require.NoError(t, err)

	require.NoError(t, buf.Emit(9, 3, 1.0))
	require.Len(t, sink.blocks, 1)
	assert.Equal(t, uint64(3), sink.blocks[0].Sources[0])
	assert.Equal(t, uint64(9), sink.blocks[0].Destinations[0])
}

func TestCloseFlushesPartialBlock(t *testing.T) {
	sink := &recordingSink{}
	buf, err := New(4, sink)
	require.NoError(t, err)

	require.NoError(t, buf.Emit(1, 2, 0.0))
	require.NoError(t, buf.Emit(3, 4, -1.0))
	assert.Empty(t, sink.blocks)

	require.NoError(t, buf.Close())
	require.Len(t, sink.blocks, 1)
	assert.Equal(t, 2, sink.blocks[0].Count)
}

func TestCloseWithNothingPendingIsNoop(t *testing.T) {
	sink := &recordingSink{}
	buf, err := New(4, sink)
	require.NoError(t, err)
	require.NoError(t, buf.Close())
	assert.Empty(t, sink.blocks)
}

func TestBlockIndexesIncreaseInOrder(t *testing.T) {
	sink := &recordingSink{}
	buf, err := New(1, sink)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, buf.Emit(uint64(i), uint64(i+1), float64(i)))
	}
	require.Len(t, sink.blocks, 3)
	for i, b := range sink.blocks {
		assert.Equal(t, i, b.Index)
	}
}

func TestNewRejectsNonPositiveBlockSize(t *testing.T) {
	_, err := New(0, &recordingSink{})
	assert.Error(t, err)
}
