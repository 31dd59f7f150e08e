// Package config wraps github.com/spf13/viper with graphlog's defaults,
// mirroring the teacher's Config{v *viper.Viper} pattern: typed getters
// over a Viper instance, an optional config file, and CLI-flag overrides
// applied afterward so flags always win.
package config

import (
	"runtime"

	"github.com/spf13/viper"

	"github.com/gilchrisn/graphlog-ggu/internal/glerr"
)

// Config holds every tunable graphlog exposes, backed by Viper so values
// can come from a config file, environment, or explicit Set overrides.
type Config struct {
	v *viper.Viper
}

// New returns a Config seeded with graphlog's reference defaults: aging
// 10.0, edge expansion 1.0, vertex expansion 1.2, a random seed of 0
// (meaning "derive one", left to the caller), 1<<23 final edges per
// permutation segment, 1<<24 operations per output buffer block (the
// spec's K), deflate level 9 with max(1, NumCPU-2) compressor workers, and
// info-level console logging.
func New() *Config {
	v := viper.New()

	v.SetDefault("aging", 10.0)
	v.SetDefault("efe", 1.0)
	v.SetDefault("efv", 1.2)
	v.SetDefault("seed", uint64(0))
	v.SetDefault("block_size", uint64(1<<23))
	v.SetDefault("output.block_size", uint64(1<<24))

	v.SetDefault("compression.level", 9)
	v.SetDefault("compression.workers", max(1, runtime.NumCPU()-2))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	return &Config{v: v}
}

// LoadFromFile merges in a config file (TOML/YAML/JSON, detected by
// Viper from the extension). Values already set via Set take precedence
// over anything the file defines, since Viper always ranks Set overrides
// above config-file values.
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return glerr.Wrap(glerr.ErrInvalidArgument, "reading config file %q: %v", path, err)
	}
	return nil
}

// Set overrides a key, used to apply CLI flags on top of file/defaults.
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

func (c *Config) Aging() float64           { return c.v.GetFloat64("aging") }
func (c *Config) EdgeExpansion() float64   { return c.v.GetFloat64("efe") }
func (c *Config) VertexExpansion() float64 { return c.v.GetFloat64("efv") }
func (c *Config) Seed() uint64             { return uint64(c.v.GetInt64("seed")) }
func (c *Config) BlockSize() uint64        { return uint64(c.v.GetInt64("block_size")) }
func (c *Config) OutputBlockSize() uint64  { return uint64(c.v.GetInt64("output.block_size")) }

func (c *Config) CompressionLevel() int   { return c.v.GetInt("compression.level") }
func (c *Config) CompressionWorkers() int { return c.v.GetInt("compression.workers") }

func (c *Config) LogLevel() string  { return c.v.GetString("log.level") }
func (c *Config) LogFormat() string { return c.v.GetString("log.format") }
