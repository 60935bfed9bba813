// Package main is the entry point for ropedit, a small terminal editor
// backed by a rope.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"

	"github.com/dshills/ropekit/internal/config"
	"github.com/dshills/ropekit/internal/logging"
	"github.com/dshills/ropekit/internal/rope"
	"github.com/dshills/ropekit/internal/view"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&configPath, "c", "", "Path to configuration file (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "ropedit - rope-backed terminal editor\n\n")
		fmt.Fprintf(os.Stderr, "Usage: ropedit [options] [file]\n\n")
		fmt.Fprintf(os.Stderr, "Keys: Ctrl-S save, Ctrl-Q or Esc quit\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("ropedit %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return 0
	}
	if flag.NArg() > 1 {
		flag.Usage()
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()

	path := flag.Arg(0)
	doc, err := load(path, rope.WithRebalancePolicy(cfg.EditorPolicy()), rope.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer doc.Release()

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
		return 1
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize terminal: %v\n", err)
		return 1
	}
	defer screen.Fini()

	opts := []view.Option{view.WithTabWidth(cfg.Editor.TabWidth), view.WithLogger(logger)}
	if path != "" {
		opts = append(opts, view.WithSaveFunc(func(r *rope.Rope) error { return save(path, r) }))
	}
	editor := view.New(screen, doc, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithField("path", path).WithField("bytes", doc.Len()).Info("editor started")
	if err := editor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// newLogger logs to the configured file, or nowhere: the terminal belongs
// to the editor.
func newLogger(cfg config.LogConfig) (logrus.FieldLogger, func(), error) {
	if cfg.File == "" {
		return logging.Discard(), func() {}, nil
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening log file")
	}
	l, err := logging.New(logging.Config{Level: cfg.Level, Format: cfg.Format, Output: f})
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return l, func() { f.Close() }, nil
}

// load reads path into a rope. A missing file starts an empty document.
func load(path string, opts ...rope.Option) (*rope.Rope, error) {
	if path == "" {
		return rope.New(opts...), nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return rope.New(opts...), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	return rope.FromReader(f, opts...)
}

// save writes r to path through a temporary file in the same directory.
func save(path string, r *rope.Rope) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	if err := writeAndClose(tmp, r); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "replacing %s", path)
	}
	return nil
}

func writeAndClose(f *os.File, r io.WriterTo) error {
	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		return errors.Wrap(err, "writing document")
	}
	return errors.Wrap(f.Close(), "closing document")
}
