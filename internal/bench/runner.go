package bench

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/dshills/ropekit/internal/config"
	"github.com/dshills/ropekit/internal/flatbuf"
	"github.com/dshills/ropekit/internal/logging"
	"github.com/dshills/ropekit/internal/rope"
	"github.com/dshills/ropekit/internal/script"
)

// Implementation names used in reports.
const (
	ImplFlat = "flatbuf"
	ImplRope = "rope"
)

// ErrMismatch is returned when the implementations disagree on the final
// text.
var ErrMismatch = errors.New("rope and flat buffer diverged")

// Runner executes benchmark workloads.
type Runner struct {
	// FS resolves script paths. Defaults to the OS file system.
	FS config.FileSystem
	// Logger receives progress records. Defaults to a discarding logger.
	Logger logrus.FieldLogger
}

// NewRunner creates a runner logging to logger.
func NewRunner(logger logrus.FieldLogger) *Runner {
	return &Runner{FS: config.OSFS{}, Logger: logger}
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Logger == nil {
		return logging.Discard()
	}
	return r.Logger
}

// workload replays one prepared edit sequence onto a document.
type workload func(ctx context.Context, doc document) error

// Run executes cfg's workload against both implementations and returns
// the timings. The two final texts must match.
func (r *Runner) Run(ctx context.Context, cfg config.BenchConfig) (*Report, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	log := r.logger().WithFields(logrus.Fields{
		"workload": cfg.Workload,
		"size":     cfg.Size,
		"edits":    cfg.Edits,
		"seed":     cfg.Seed,
	})

	run, err := r.prepare(cfg)
	if err != nil {
		return nil, err
	}
	text := initialText(cfg.Seed, cfg.Size)
	policy, _ := rope.ParseRebalancePolicy(cfg.Rebalance)

	report := &Report{
		Workload:  cfg.Workload,
		Size:      cfg.Size,
		Seed:      cfg.Seed,
		Rebalance: policy.String(),
	}

	flat := flatbuf.New(text)
	flatRes, err := measure(ctx, ImplFlat, run, &counted{document: flat})
	if err != nil {
		return nil, errors.Wrap(err, ImplFlat)
	}
	report.Results = append(report.Results, flatRes)
	log.WithField("impl", ImplFlat).WithField("elapsed", flatRes.Elapsed).Debug("run finished")

	rp, err := rope.FromReader(strings.NewReader(text),
		rope.WithRebalancePolicy(policy),
		rope.WithSlabSize(cfg.SlabSize),
		rope.WithLogger(log),
	)
	if err != nil {
		return nil, errors.Wrap(err, "building rope")
	}
	defer rp.Release()

	doc := &counted{document: rp}
	if policy == rope.RebalanceManual {
		doc.period, doc.every = cfg.RebalanceEvery, rp.Rebalance
	}
	ropeRes, err := measure(ctx, ImplRope, run, doc)
	if err != nil {
		return nil, errors.Wrap(err, ImplRope)
	}
	if policy == rope.RebalanceManual && cfg.RebalanceEvery == 0 {
		start := time.Now()
		rp.Rebalance()
		ropeRes.Elapsed += time.Since(start)
		ropeRes.Rebalances++
	}
	ropeRes.Height = rp.Height()
	ropeRes.Leaves = rp.LeafCount()
	ropeRes.Balanced = rp.IsBalanced()
	report.Results = append(report.Results, ropeRes)
	log.WithFields(logrus.Fields{
		"impl":    ImplRope,
		"elapsed": ropeRes.Elapsed,
		"height":  ropeRes.Height,
		"leaves":  ropeRes.Leaves,
	}).Debug("run finished")

	if flat.String() != rp.String() {
		return report, errors.Wrapf(ErrMismatch, "final lengths %d and %d", flat.Len(), rp.Len())
	}
	report.Edits = ropeRes.Edits

	log.WithField("speedup", report.Speedup()).Info("benchmark complete")
	return report, nil
}

// prepare resolves cfg into a replayable workload.
func (r *Runner) prepare(cfg config.BenchConfig) (workload, error) {
	if cfg.Workload != config.WorkloadScript {
		ops, err := generate(cfg)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, doc document) error {
			return replay(ctx, ops, doc)
		}, nil
	}

	fsys := r.FS
	if fsys == nil {
		fsys = config.OSFS{}
	}
	src, err := fsys.ReadFile(cfg.Script)
	if err != nil {
		return nil, errors.Wrapf(err, "reading script %s", cfg.Script)
	}
	return func(ctx context.Context, doc document) error {
		st := script.NewState(script.WithLogger(r.logger()))
		defer st.Close()
		_, err := st.Run(ctx, string(src), doc)
		return err
	}, nil
}

func measure(ctx context.Context, name string, run workload, doc *counted) (Result, error) {
	start := time.Now()
	if err := run(ctx, doc); err != nil {
		return Result{}, err
	}
	return Result{
		Name:       name,
		Elapsed:    time.Since(start),
		Edits:      doc.edits,
		Rebalances: doc.calls,
		FinalLen:   doc.Len(),
	}, nil
}

func validate(cfg config.BenchConfig) error {
	switch {
	case cfg.Size < 0:
		return errors.Newf("size must not be negative, got %d", cfg.Size)
	case cfg.Edits < 0:
		return errors.Newf("edits must not be negative, got %d", cfg.Edits)
	case cfg.MaxInsert < 1 && cfg.Workload != config.WorkloadScript:
		return errors.Newf("max insert must be at least 1, got %d", cfg.MaxInsert)
	case cfg.RebalanceEvery < 0:
		return errors.Newf("rebalance every must not be negative, got %d", cfg.RebalanceEvery)
	}
	if _, ok := rope.ParseRebalancePolicy(cfg.Rebalance); !ok {
		return errors.Newf("unknown rebalance policy %q", cfg.Rebalance)
	}
	return nil
}
