package graphio

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeGzipFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestReadPlainTextGraph(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "graph.v", "1\n2\n3\n")
	writeFile(t, dir, "graph.e", "1 2 1.5\n2 3 2.5\n")
	propsPath := writeFile(t, dir, "graph.properties", ""+
		"graph.directed = false\n"+
		"graph.weights = true\n"+
		"graph.vertex-file = graph.v\n"+
		"graph.edge-file = graph.e\n")

	g, err := Read(propsPath)
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 2, 3}, g.Vertices)
	require.Len(t, g.Edges, 2)
	assert.Equal(t, WeightedEdge{Src: 0, Dst: 1, Weight: 1.5}, g.Edges[0])
	assert.Equal(t, WeightedEdge{Src: 1, Dst: 2, Weight: 2.5}, g.Edges[1])
}

func TestReadRejectsDirectedGraph(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "graph.v", "1\n2\n")
	writeFile(t, dir, "graph.e", "1 2\n")
	propsPath := writeFile(t, dir, "graph.properties", ""+
		"graph.directed = true\n"+
		"graph.vertex-file = graph.v\n"+
		"graph.edge-file = graph.e\n")

	_, err := Read(propsPath)
	assert.Error(t, err)
}

func TestReadRejectsSelfLoop(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "graph.v", "1\n2\n")
	writeFile(t, dir, "graph.e", "1 1\n")
	propsPath := writeFile(t, dir, "graph.properties", ""+
		"graph.directed = false\n"+
		"graph.vertex-file = graph.v\n"+
		"graph.edge-file = graph.e\n")

	_, err := Read(propsPath)
	assert.Error(t, err)
}

func TestReadRejectsEdgeWithUnknownVertex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "graph.v", "1\n2\n")
	writeFile(t, dir, "graph.e", "1 99\n")
	propsPath := writeFile(t, dir, "graph.properties", ""+
		"graph.directed = false\n"+
		"graph.vertex-file = graph.v\n"+
		"graph.edge-file = graph.e\n")

	_, err := Read(propsPath)
	assert.Error(t, err)
}

func TestReadGzipCompressedGraph(t *testing.T) {
	dir := t.TempDir()
	writeGzipFile(t, dir, "graph.v.gz", "10\n20\n")
	writeGzipFile(t, dir, "graph.e.gz", "10 20\n")
	propsPath := writeFile(t, dir, "graph.properties", ""+
		"graph.directed = false\n"+
		"graph.vertex-file = graph.v.gz\n"+
		"graph.edge-file = graph.e.gz\n")

	g, err := Read(propsPath)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 20}, g.Vertices)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, float64(1), g.Edges[0].Weight, "unweighted edges default to weight 1")
}

func TestReadNormalizesEdgeEndpointOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "graph.v", "5\n1\n9\n")
	writeFile(t, dir, "graph.e", "9 1\n")
	propsPath := writeFile(t, dir, "graph.properties", ""+
		"graph.directed = false\n"+
		"graph.vertex-file = graph.v\n"+
		"graph.edge-file = graph.e\n")

	g, err := Read(propsPath)
	require.NoError(t, err)
	require.Len(t, g.Edges, 1)
	// vertex 1 is offset 1, vertex 9 is offset 2; src offset must be smaller
	assert.Equal(t, uint32(1), g.Edges[0].Src)
	assert.Equal(t, uint32(2), g.Edges[0].Dst)
}

func TestSummarizeComputesDegreeStats(t *testing.T) {
	g := &Graph{
		Vertices: []uint64{1, 2, 3},
		Edges: []WeightedEdge{
			{Src: 0, Dst: 1, Weight: 1},
			{Src: 1, Dst: 2, Weight: 1},
		},
	}
	summary := Summarize(g)
	assert.Equal(t, float64(1), summary.Min)
	assert.Equal(t, float64(2), summary.Max)
	assert.InDelta(t, 4.0/3.0, summary.Mean, 1e-9)
}

func TestSummarizeEmptyGraph(t *testing.T) {
	g := &Graph{}
	summary := Summarize(g)
	assert.Zero(t, summary)
}
