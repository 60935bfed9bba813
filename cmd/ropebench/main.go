// Package main is the entry point for ropebench, which times the rope
// against a flat byte buffer on a shared edit workload.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/ropekit/internal/bench"
	"github.com/dshills/ropekit/internal/config"
	"github.com/dshills/ropekit/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	workload   string
	script     string
	size       int
	edits      int
	seed       int64
	jsonOut    bool
	logLevel   string
	filter     string
	version    bool
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ropebench", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.workload, "workload", "", "Workload: random, append, prepend or script")
	fs.StringVar(&opts.script, "script", "", "Lua script for the script workload")
	fs.IntVar(&opts.size, "size", 0, "Initial document size in bytes")
	fs.IntVar(&opts.edits, "edits", 0, "Number of generated edits")
	fs.Int64Var(&opts.seed, "seed", 0, "Random seed")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print the report as JSON")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.filter, "only", "", "Only print results whose name matches this glob")
	fs.BoolVar(&opts.version, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "ropebench - compare rope and flat buffer edit performance\n\n")
		fmt.Fprintf(stderr, "Usage: ropebench [options]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "ropebench %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	applyFlags(fs, opts, &cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logOut := stderr
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "Error: opening log file: %v\n", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: logOut})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := bench.NewRunner(logger).Run(ctx, cfg.Bench)
	if err != nil {
		logger.WithError(err).Error("benchmark failed")
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	report.Results = report.Filter(opts.filter)

	if opts.jsonOut {
		out, err := report.PrettyJSON()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		stdout.Write(out)
		return 0
	}
	if err := report.WriteText(stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(fs *flag.FlagSet, opts options, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workload":
			cfg.Bench.Workload = opts.workload
		case "script":
			cfg.Bench.Script = opts.script
			if !isSet(fs, "workload") {
				cfg.Bench.Workload = config.WorkloadScript
			}
		case "size":
			cfg.Bench.Size = opts.size
		case "edits":
			cfg.Bench.Edits = opts.edits
		case "seed":
			cfg.Bench.Seed = opts.seed
		case "log-level":
			cfg.Log.Level = opts.logLevel
		}
	})
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
