package rope

import (
	"io"

	"github.com/sirupsen/logrus"
)

// RebalancePolicy controls when a rope restores its balance predicate.
type RebalancePolicy int

const (
	// RebalanceEager rebalances after every Insert, Erase and Split.
	RebalanceEager RebalancePolicy = iota

	// RebalanceManual only rebalances when Rebalance is called.
	// Use it to batch many edits before a single rebuild.
	RebalanceManual
)

// String returns the policy name as used in configuration files.
func (p RebalancePolicy) String() string {
	switch p {
	case RebalanceEager:
		return "eager"
	case RebalanceManual:
		return "manual"
	default:
		return "unknown"
	}
}

// ParseRebalancePolicy parses a policy name. Unknown names report false.
func ParseRebalancePolicy(s string) (RebalancePolicy, bool) {
	switch s {
	case "eager", "":
		return RebalanceEager, true
	case "manual":
		return RebalanceManual, true
	default:
		return RebalanceEager, false
	}
}

// Option configures a Rope during creation.
type Option func(*options)

type options struct {
	policy   RebalancePolicy
	logger   logrus.FieldLogger
	slabSize int
}

var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}()

func defaultOptions() options {
	return options{
		policy:   RebalanceEager,
		logger:   discardLogger,
		slabSize: DefaultSlabSize,
	}
}

// WithRebalancePolicy sets when the rope rebalances itself.
func WithRebalancePolicy(p RebalancePolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithLogger sets the logger used to trace tree rebuilds at debug level.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSlabSize sets the arena slab size for small inserts.
func WithSlabSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.slabSize = n
		}
	}
}

// debugEnabled reports whether l would emit a debug record. Loggers whose
// level cannot be queried are assumed to want it.
func debugEnabled(l logrus.FieldLogger) bool {
	switch l := l.(type) {
	case nil:
		return false
	case *logrus.Logger:
		return l.IsLevelEnabled(logrus.DebugLevel)
	case *logrus.Entry:
		return l.Logger.IsLevelEnabled(logrus.DebugLevel)
	}
	return true
}
