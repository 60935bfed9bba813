// Package bench compares the rope against a flat byte buffer on a shared
// edit workload.
package bench

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/dshills/ropekit/internal/config"
	"github.com/dshills/ropekit/internal/script"
)

// opKind is the kind of a generated edit.
type opKind uint8

const (
	opInsert opKind = iota
	opErase
)

// op is one generated edit. Generated workloads are materialised up front
// so that every implementation replays exactly the same sequence.
type op struct {
	kind opKind
	idx  int
	n    int
	text string
}

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

func randomString(rng *rand.Rand, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for range n {
		sb.WriteByte(alphabet[rng.IntN(len(alphabet))])
	}
	return sb.String()
}

// initialText returns size bytes of seeded text broken into 64-byte lines.
func initialText(seed int64, size int) string {
	rng := newRand(seed)
	b := []byte(randomString(rng, size))
	for i := 63; i < len(b); i += 64 {
		b[i] = '\n'
	}
	return string(b)
}

// generate builds the edit sequence for a generated workload over a
// document of length size.
func generate(cfg config.BenchConfig) ([]op, error) {
	rng := newRand(cfg.Seed + 1)
	length := cfg.Size
	ops := make([]op, 0, cfg.Edits)

	for range cfg.Edits {
		text := randomString(rng, 1+rng.IntN(cfg.MaxInsert))
		switch cfg.Workload {
		case config.WorkloadAppend:
			ops = append(ops, op{kind: opInsert, idx: length, text: text})
		case config.WorkloadPrepend:
			ops = append(ops, op{kind: opInsert, idx: 0, text: text})
		case config.WorkloadRandom:
			if length > 0 && rng.IntN(10) < 4 {
				idx := rng.IntN(length)
				n := rng.IntN(min(cfg.MaxInsert, length-idx) + 1)
				ops = append(ops, op{kind: opErase, idx: idx, n: n})
				length -= n
				continue
			}
			ops = append(ops, op{kind: opInsert, idx: rng.IntN(length + 1), text: text})
		default:
			return nil, errors.Newf("workload %q has no generator", cfg.Workload)
		}
		length += len(text)
	}
	return ops, nil
}

// document is the editing surface shared by both implementations.
type document = script.Document

// counted wraps a document, counting edits and calling every after each
// period-th edit.
type counted struct {
	document
	edits  int
	period int
	every  func()
	calls  int
}

func (c *counted) edited() {
	c.edits++
	if c.every != nil && c.period > 0 && c.edits%c.period == 0 {
		c.every()
		c.calls++
	}
}

func (c *counted) Insert(idx int, s string) error {
	if err := c.document.Insert(idx, s); err != nil {
		return err
	}
	c.edited()
	return nil
}

func (c *counted) Erase(idx, n int) error {
	if err := c.document.Erase(idx, n); err != nil {
		return err
	}
	c.edited()
	return nil
}

// replay applies ops to doc, checking ctx between edits.
func replay(ctx context.Context, ops []op, doc document) error {
	for i, o := range ops {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		var err error
		switch o.kind {
		case opInsert:
			err = doc.Insert(o.idx, o.text)
		case opErase:
			err = doc.Erase(o.idx, o.n)
		}
		if err != nil {
			return errors.Wrapf(err, "edit %d", i)
		}
	}
	return nil
}
