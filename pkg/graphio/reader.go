// Package graphio reads graphs in the Graphalytics benchmark format: a
// .properties file naming a vertex list and an edge list, each either
// plain text or gzip-compressed.
package graphio

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/graphlog-ggu/internal/glerr"
)

// Properties is the parsed key=value content of a .properties file.
type Properties map[string]string

// Graph is a fully materialized undirected, unweighted-or-weighted graph
// read from a Graphalytics dataset: the vertex identifiers in file order
// and the edge list with canonical (src < dst) endpoints remapped to
// dense 0-based offsets into Vertices.
type Graph struct {
	Properties Properties
	Vertices   []uint64 // external vertex IDs, in file order
	Edges      []WeightedEdge
}

// WeightedEdge is one parsed edge, with endpoints already remapped to
// 0-based offsets into Graph.Vertices.
type WeightedEdge struct {
	Src, Dst uint32
	Weight   float64
}

// Read loads the dataset described by the given .properties file.
func Read(pathProperties string) (*Graph, error) {
	props, err := readProperties(pathProperties)
	if err != nil {
		return nil, err
	}

	if v := props["graph.directed"]; v == "true" {
		return nil, glerr.Wrap(glerr.ErrReader, "only undirected graphs are supported, %q is directed", pathProperties)
	}

	dir := filepath.Dir(pathProperties)
	vertexPath := resolveDatasetPath(dir, props, "vertex-file")
	edgePath := resolveDatasetPath(dir, props, "edge-file")

	vertices, offsetOf, err := readVertices(vertexPath)
	if err != nil {
		return nil, err
	}

	isWeighted := props["graph.weights"] != "" && props["graph.weights"] != "false"
	edges, err := readEdges(edgePath, offsetOf, isWeighted)
	if err != nil {
		return nil, err
	}

	return &Graph{Properties: props, Vertices: vertices, Edges: edges}, nil
}

func readProperties(path string) (Properties, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, glerr.Wrap(glerr.ErrIO, "open properties file %q: %v", path, err)
	}
	defer f.Close()

	props := make(Properties)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		props[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, glerr.Wrap(glerr.ErrReader, "reading properties file %q: %v", path, err)
	}
	return props, nil
}

// resolveDatasetPath finds the configured path for a Graphalytics file
// suffix ("vertex-file"/"edge-file") among the dataset's properties,
// trying every "<prefix>.<suffix>" key since the prefix varies per
// dataset (e.g. "graph.<name>.vertex-file").
func resolveDatasetPath(dir string, props Properties, suffix string) string {
	for key, value := range props {
		if strings.HasSuffix(key, "."+suffix) {
			if filepath.IsAbs(value) {
				return value
			}
			return filepath.Join(dir, value)
		}
	}
	return filepath.Join(dir, suffix)
}

func openMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, glerr.Wrap(glerr.ErrIO, "open %q: %v", path, err)
	}
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, glerr.Wrap(glerr.ErrReader, "gzip header in %q: %v", path, err)
		}
		return &gzipFile{gz: gz, f: f}, nil
	}
	return f, nil
}

type gzipFile struct {
	gz *gzip.Reader
	f  *os.File
}

func (g *gzipFile) Read(p []byte) (int, error) { return g.gz.Read(p) }
func (g *gzipFile) Close() error {
	g.gz.Close()
	return g.f.Close()
}

func readVertices(path string) ([]uint64, map[uint64]uint32, error) {
	f, err := openMaybeCompressed(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var vertices []uint64
	offsetOf := make(map[uint64]uint32)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := strconv.ParseUint(line, 10, 64)
		if err != nil {
			return nil, nil, glerr.Wrap(glerr.ErrReader, "malformed vertex id %q in %q: %v", line, path, err)
		}
		offsetOf[id] = uint32(len(vertices))
		vertices = append(vertices, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, glerr.Wrap(glerr.ErrReader, "reading vertex file %q: %v", path, err)
	}
	return vertices, offsetOf, nil
}

func readEdges(path string, offsetOf map[uint64]uint32, weighted bool) ([]WeightedEdge, error) {
	f, err := openMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var edges []WeightedEdge
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, glerr.Wrap(glerr.ErrReader, "%q line %d: expected at least 2 fields, got %d", path, lineNum, len(fields))
		}

		srcID, err1 := strconv.ParseUint(fields[0], 10, 64)
		dstID, err2 := strconv.ParseUint(fields[1], 10, 64)
		if err1 != nil || err2 != nil {
			return nil, glerr.Wrap(glerr.ErrReader, "%q line %d: malformed endpoint ids", path, lineNum)
		}
		if srcID == dstID {
			return nil, glerr.Wrap(glerr.ErrReader, "%q line %d: self-loop %d -> %d is not supported", path, lineNum, srcID, dstID)
		}

		weight := 1.0
		if weighted && len(fields) >= 3 {
			weight, err = strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, glerr.Wrap(glerr.ErrReader, "%q line %d: malformed weight: %v", path, lineNum, err)
			}
		}

		srcOff, ok := offsetOf[srcID]
		if !ok {
			return nil, glerr.Wrap(glerr.ErrReader, "%q line %d: source %d not present in vertex list", path, lineNum, srcID)
		}
		dstOff, ok := offsetOf[dstID]
		if !ok {
			return nil, glerr.Wrap(glerr.ErrReader, "%q line %d: destination %d not present in vertex list", path, lineNum, dstID)
		}
		if dstOff < srcOff {
			srcOff, dstOff = dstOff, srcOff
		}

		edges = append(edges, WeightedEdge{Src: srcOff, Dst: dstOff, Weight: weight})
	}
	if err := scanner.Err(); err != nil {
		return nil, glerr.Wrap(glerr.ErrReader, "reading edge file %q: %v", path, err)
	}
	return edges, nil
}

// DegreeSummary reports basic statistics over the graph's per-vertex
// degree distribution, used for progress reporting and sanity checks
// before generation starts.
type DegreeSummary struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize computes degree statistics for the graph.
func Summarize(g *Graph) DegreeSummary {
	degrees := make([]float64, len(g.Vertices))
	for _, e := range g.Edges {
		degrees[e.Src]++
		degrees[e.Dst]++
	}
	if len(degrees) == 0 {
		return DegreeSummary{}
	}

	sorted := append([]float64(nil), degrees...)
	sort.Float64s(sorted)
	mean, stddev := stat.MeanStdDev(degrees, nil)

	return DegreeSummary{
		Mean:   mean,
		StdDev: stddev,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}
