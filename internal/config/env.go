package config

import (
	"strconv"

	"github.com/cockroachdb/errors"
)

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "ROPEKIT_"

// envBinding maps one environment variable onto a config field.
type envBinding struct {
	name string
	set  func(c *Config, v string) error
}

func stringField(f func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*f(c) = v
		return nil
	}
}

func intField(f func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*f(c) = n
		return nil
	}
}

var envBindings = []envBinding{
	{"LOG_LEVEL", stringField(func(c *Config) *string { return &c.Log.Level })},
	{"LOG_FORMAT", stringField(func(c *Config) *string { return &c.Log.Format })},
	{"LOG_FILE", stringField(func(c *Config) *string { return &c.Log.File })},
	{"BENCH_WORKLOAD", stringField(func(c *Config) *string { return &c.Bench.Workload })},
	{"BENCH_SCRIPT", stringField(func(c *Config) *string { return &c.Bench.Script })},
	{"BENCH_SIZE", intField(func(c *Config) *int { return &c.Bench.Size })},
	{"BENCH_EDITS", intField(func(c *Config) *int { return &c.Bench.Edits })},
	{"BENCH_MAX_INSERT", intField(func(c *Config) *int { return &c.Bench.MaxInsert })},
	{"BENCH_REBALANCE", stringField(func(c *Config) *string { return &c.Bench.Rebalance })},
	{"BENCH_REBALANCE_EVERY", intField(func(c *Config) *int { return &c.Bench.RebalanceEvery })},
	{"BENCH_SLAB_SIZE", intField(func(c *Config) *int { return &c.Bench.SlabSize })},
	{"BENCH_SEED", func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		c.Bench.Seed = n
		return nil
	}},
	{"EDITOR_REBALANCE", stringField(func(c *Config) *string { return &c.Editor.Rebalance })},
	{"EDITOR_TAB_WIDTH", intField(func(c *Config) *int { return &c.Editor.TabWidth })},
}

// applyEnv overlays ROPEKIT_* variables onto cfg. Empty values are treated
// as set.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	for _, b := range envBindings {
		name := EnvPrefix + b.name
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := b.set(cfg, v); err != nil {
			return errors.Wrapf(err, "parsing %s", name)
		}
	}
	return nil
}
