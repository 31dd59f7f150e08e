// Command graphlog ages a static input graph into a time-ordered log of
// edge insertions and deletions, written to a graphlog file.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/graphlog-ggu/internal/config"
	"github.com/gilchrisn/graphlog-ggu/internal/glerr"
	"github.com/gilchrisn/graphlog-ggu/internal/glog"
	"github.com/gilchrisn/graphlog-ggu/pkg/generator"
	"github.com/gilchrisn/graphlog-ggu/pkg/graphio"
	"github.com/gilchrisn/graphlog-ggu/pkg/outputbuffer"
	"github.com/gilchrisn/graphlog-ggu/pkg/writer"
)

var (
	flagAging           float64
	flagEfE             float64
	flagEfV             float64
	flagSeed            uint64
	flagWorkers         int
	flagBlockSize       uint64
	flagOutputBlockSize uint64
	flagLogLevel        string
	flagLogFormat       string
	flagConfigFile      string
	rootCmd             = &cobra.Command{
		Use:   "graphlog <input.properties> <output.graphlog>",
		Short: "Generate a synthetic aging log from a static graph",
		Args:  cobra.ExactArgs(2),
		RunE:  run,
	}
)

func init() {
	defaults := config.New()

	rootCmd.Flags().Float64VarP(&flagAging, "aging", "a", defaults.Aging(), "operation count multiplier (target_ops = ceil(aging * |E|))")
	rootCmd.Flags().Float64VarP(&flagEfE, "efe", "e", defaults.EdgeExpansion(), "max concurrent edge multiplier over |E|")
	rootCmd.Flags().Float64VarP(&flagEfV, "efv", "v", defaults.VertexExpansion(), "vertex expansion multiplier over |V|")
	rootCmd.Flags().Uint64Var(&flagSeed, "seed", defaults.Seed(), "PRNG seed (0 picks a random seed)")
	rootCmd.Flags().IntVar(&flagWorkers, "workers", defaults.CompressionWorkers(), "number of concurrent block-compressor goroutines")
	rootCmd.Flags().Uint64Var(&flagBlockSize, "block-size", defaults.BlockSize(), "final edges per freeable permutation segment")
	rootCmd.Flags().Uint64Var(&flagOutputBlockSize, "output-block-size", defaults.OutputBlockSize(), "max operations per output buffer block (K)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", defaults.LogLevel(), "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&flagLogFormat, "log-format", defaults.LogFormat(), "log format (console, json)")
	rootCmd.Flags().StringVar(&flagConfigFile, "config", "", "optional config file (TOML/YAML/JSON)")
}

func main() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "graphlog: %v\n", err)
		fmt.Fprintln(os.Stderr, "Type `graphlog --help' for usage.")
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	inputPath, outputPath := args[0], args[1]

	cfg := config.New()
	if flagConfigFile != "" {
		if err := cfg.LoadFromFile(flagConfigFile); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("aging") {
		cfg.Set("aging", flagAging)
	}
	if cmd.Flags().Changed("efe") {
		cfg.Set("efe", flagEfE)
	}
	if cmd.Flags().Changed("efv") {
		cfg.Set("efv", flagEfV)
	}
	if cmd.Flags().Changed("seed") {
		cfg.Set("seed", flagSeed)
	}
	if cmd.Flags().Changed("block-size") {
		cfg.Set("block_size", flagBlockSize)
	}
	if cmd.Flags().Changed("output-block-size") {
		cfg.Set("output.block_size", flagOutputBlockSize)
	}
	if cmd.Flags().Changed("workers") {
		cfg.Set("compression.workers", flagWorkers)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Set("log.level", flagLogLevel)
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Set("log.format", flagLogFormat)
	}

	logger := glog.New(glog.Options{Level: cfg.LogLevel(), Format: cfg.LogFormat()})

	seed := cfg.Seed()
	if seed == 0 {
		seed = rand.Uint64()
		logger.Info().Uint64("seed", seed).Msg("no seed given, derived one")
	}

	logger.Info().Str("input", inputPath).Msg("reading input graph")
	graph, err := graphio.Read(inputPath)
	if err != nil {
		return err
	}
	summary := graphio.Summarize(graph)
	logger.Info().
		Int("vertices", len(graph.Vertices)).
		Int("edges", len(graph.Edges)).
		Float64("mean_degree", summary.Mean).
		Msg("input graph loaded")

	genCfg := generator.Config{
		SampleFactor:       1.0,
		EdgeExpansion:      cfg.EdgeExpansion(),
		VertexExpansion:    cfg.VertexExpansion(),
		Aging:              cfg.Aging(),
		Seed:               seed,
		Fanout:             64,
		FinalEdgesPerBlock: cfg.BlockSize(),
	}

	gen, err := generator.New(genCfg, graph, logger)
	if err != nil {
		return err
	}

	w, err := writer.New(cfg.CompressionWorkers(), cfg.CompressionWorkers()*2, cfg.CompressionLevel())
	if err != nil {
		return err
	}

	for k, v := range graph.Properties {
		if err := w.SetProperty(k, v); err != nil {
			return err
		}
	}
	if err := w.SetProperty("generator.aging", fmt.Sprintf("%g", genCfg.Aging)); err != nil {
		return err
	}
	if err := w.SetProperty("generator.efe", fmt.Sprintf("%g", genCfg.EdgeExpansion)); err != nil {
		return err
	}
	if err := w.SetProperty("generator.efv", fmt.Sprintf("%g", genCfg.VertexExpansion)); err != nil {
		return err
	}
	if err := w.SetProperty("generator.seed", fmt.Sprintf("%d", genCfg.Seed)); err != nil {
		return err
	}
	if err := w.SetProperty("input.path", inputPath); err != nil {
		return err
	}
	if hostname, herr := os.Hostname(); herr == nil {
		if err := w.SetProperty("run.hostname", hostname); err != nil {
			return err
		}
	} else {
		logger.Debug().Err(herr).Msg("hostname unavailable")
	}
	if commit := gitCommitHash(logger); commit != "" {
		if err := w.SetProperty("run.git_commit", commit); err != nil {
			return err
		}
	}
	w.SetInternalProperty("internal.run_id", uuid.NewString())

	if err := w.Create(outputPath); err != nil {
		return err
	}
	outputBlockSize := cfg.OutputBlockSize()
	if err := w.SetEdgesBlockSize(outputBlockSize); err != nil {
		return err
	}
	if err := w.WriteVerticesFinal(gen.Vertices()[:gen.NumFinalVertices()]); err != nil {
		return err
	}
	if err := w.WriteVerticesTemporary(gen.Vertices()[gen.NumFinalVertices():]); err != nil {
		return err
	}

	ctx := context.Background()
	if err := w.OpenEdgeStream(ctx); err != nil {
		return err
	}

	buf, err := outputbuffer.New(int(outputBlockSize), w)
	if err != nil {
		return err
	}

	stats, err := gen.Generate(ctx, buf)
	if err != nil {
		_ = w.CloseEdgeStream()
		_ = w.Close()
		return err
	}
	if err := buf.Close(); err != nil {
		return glerr.Wrap(glerr.ErrIO, "flushing final output block: %v", err)
	}
	if err := w.CloseEdgeStream(); err != nil {
		return err
	}
	if err := w.SetEdgesCardinality(stats.OpsEmitted); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	logger.Info().
		Uint64("ops_emitted", stats.OpsEmitted).
		Uint64("final_edges", stats.FinalEdges).
		Uint64("final_vertices", stats.FinalVertices).
		Uint64("temp_vertices", stats.TempVertices).
		Str("output", outputPath).
		Msg("generation complete")

	return nil
}

// gitCommitHash returns the current git commit hash, or "" if the working
// directory isn't inside a git repository or the git binary is unavailable.
// Best-effort: failures are logged at debug level, never fatal.
func gitCommitHash(logger zerolog.Logger) string {
	out, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		logger.Debug().Err(err).Msg("git commit hash unavailable")
		return ""
	}
	return strings.TrimSpace(string(out))
}
