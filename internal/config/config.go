// Package config loads ropekit configuration.
//
// Configuration is layered: built-in defaults, then an optional TOML file,
// then ROPEKIT_* environment variables. Command-line flags are applied on
// top by the binaries.
package config

import (
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/dshills/ropekit/internal/rope"
)

// Workload names understood by the benchmark harness.
const (
	WorkloadRandom  = "random"
	WorkloadAppend  = "append"
	WorkloadPrepend = "prepend"
	WorkloadScript  = "script"
)

// Workloads lists every valid workload name.
var Workloads = []string{WorkloadRandom, WorkloadAppend, WorkloadPrepend, WorkloadScript}

// Config is the complete ropekit configuration.
type Config struct {
	Log    LogConfig    `toml:"log"`
	Bench  BenchConfig  `toml:"bench"`
	Editor EditorConfig `toml:"editor"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	// File, when set, receives log output instead of stderr.
	File string `toml:"file"`
}

// BenchConfig configures the rope vs flat buffer benchmark.
type BenchConfig struct {
	Workload  string `toml:"workload"`
	Script    string `toml:"script"`
	Size      int    `toml:"size"`
	Edits     int    `toml:"edits"`
	Seed      int64  `toml:"seed"`
	MaxInsert int    `toml:"max_insert"`
	Rebalance string `toml:"rebalance"`
	// RebalanceEvery rebalances a manual-policy rope every N edits; 0 means
	// once at the end.
	RebalanceEvery int `toml:"rebalance_every"`
	SlabSize       int `toml:"slab_size"`
}

// EditorConfig configures the interactive editor.
type EditorConfig struct {
	Rebalance string `toml:"rebalance"`
	TabWidth  int    `toml:"tab_width"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Bench: BenchConfig{
			Workload:  WorkloadRandom,
			Size:      1 << 20,
			Edits:     10000,
			Seed:      1,
			MaxInsert: 16,
			Rebalance: rope.RebalanceEager.String(),
			SlabSize:  rope.DefaultSlabSize,
		},
		Editor: EditorConfig{
			Rebalance: rope.RebalanceEager.String(),
			TabWidth:  4,
		},
	}
}

// Validate checks enum values and ranges.
func (c Config) Validate() error {
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		return errors.Newf("log.format: invalid value %q", c.Log.Format)
	}
	if !slices.Contains(Workloads, c.Bench.Workload) {
		return errors.Newf("bench.workload: invalid value %q (must be one of %v)", c.Bench.Workload, Workloads)
	}
	if c.Bench.Workload == WorkloadScript && c.Bench.Script == "" {
		return errors.New("bench.script: required for the script workload")
	}
	if c.Bench.Size < 0 {
		return errors.Newf("bench.size: must not be negative, got %d", c.Bench.Size)
	}
	if c.Bench.Edits < 0 {
		return errors.Newf("bench.edits: must not be negative, got %d", c.Bench.Edits)
	}
	if c.Bench.MaxInsert < 1 {
		return errors.Newf("bench.max_insert: must be at least 1, got %d", c.Bench.MaxInsert)
	}
	if c.Bench.RebalanceEvery < 0 {
		return errors.Newf("bench.rebalance_every: must not be negative, got %d", c.Bench.RebalanceEvery)
	}
	if _, ok := rope.ParseRebalancePolicy(c.Bench.Rebalance); !ok {
		return errors.Newf("bench.rebalance: invalid value %q", c.Bench.Rebalance)
	}
	if _, ok := rope.ParseRebalancePolicy(c.Editor.Rebalance); !ok {
		return errors.Newf("editor.rebalance: invalid value %q", c.Editor.Rebalance)
	}
	if c.Editor.TabWidth < 1 {
		return errors.Newf("editor.tab_width: must be at least 1, got %d", c.Editor.TabWidth)
	}
	return nil
}

// BenchPolicy returns the parsed bench rebalance policy.
func (c Config) BenchPolicy() rope.RebalancePolicy {
	p, _ := rope.ParseRebalancePolicy(c.Bench.Rebalance)
	return p
}

// EditorPolicy returns the parsed editor rebalance policy.
func (c Config) EditorPolicy() rope.RebalancePolicy {
	p, _ := rope.ParseRebalancePolicy(c.Editor.Rebalance)
	return p
}
