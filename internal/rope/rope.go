package rope

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// readBlockSize is the leaf size used by FromReader.
const readBlockSize = 64 * 1024

// Rope is a mutable binary rope over bytes.
//
// A Rope owns its tree and an Arena holding the bytes behind every leaf.
// Operations validate their arguments before touching the tree, so a call
// that returns an error leaves the rope unchanged.
type Rope struct {
	root  *Node
	arena *Arena
	opts  options
}

// New creates an empty rope.
func New(opts ...Option) *Rope {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Rope{arena: NewArena(o.slabSize), opts: o}
}

// FromString creates a rope holding a copy of s in a single leaf.
func FromString(s string, opts ...Option) *Rope {
	r := New(opts...)
	if len(s) > 0 {
		r.root = newLeaf(r.arena.Alloc(s))
	}
	return r
}

// FromReader creates a rope from an io.Reader, one leaf per read block.
func FromReader(rd io.Reader, opts ...Option) (*Rope, error) {
	r := New(opts...)
	buf := make([]byte, readBlockSize)
	var leaves []*Node

	for {
		n, err := io.ReadFull(rd, buf)
		if n > 0 {
			leaves = append(leaves, newLeaf(r.arena.AllocBytes(buf[:n])))
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading rope content")
		}
	}

	r.root = merge(leaves)
	return r, nil
}

// ensure lets a zero Rope be used like one made by New.
func (r *Rope) ensure() {
	if r.opts.logger == nil {
		r.opts = defaultOptions()
	}
	if r.arena == nil {
		r.arena = NewArena(r.opts.slabSize)
	}
}

// Len returns the total byte length.
func (r *Rope) Len() int {
	return lengthOf(r.root)
}

// IsEmpty returns true if the rope contains no bytes.
func (r *Rope) IsEmpty() bool {
	return r.root == nil
}

// Height returns the height of the tree, 0 for an empty rope.
func (r *Rope) Height() int {
	return heightOf(r.root)
}

// LeafCount returns the number of leaves.
func (r *Rope) LeafCount() int {
	return countLeaves(r.root)
}

// IsBalanced reports whether the balance predicate holds for every node.
func (r *Rope) IsBalanced() bool {
	return isBalanced(r.root)
}

// Root returns the root node for inspection, nil for an empty rope.
// Callers must not modify the tree through it.
func (r *Rope) Root() *Node {
	return r.root
}

// Arena returns the arena backing the rope's leaves.
func (r *Rope) Arena() *Arena {
	r.ensure()
	return r.arena
}

// Policy returns the rope's rebalance policy.
func (r *Rope) Policy() RebalancePolicy {
	return r.opts.policy
}

// Index returns the byte at offset idx.
func (r *Rope) Index(idx int) (byte, error) {
	if idx < 0 || idx >= r.Len() {
		return 0, indexError(idx, r.Len())
	}
	n := r.root
	for !n.leaf {
		if idx < n.weight {
			n = n.left
		} else {
			idx -= n.weight
			n = n.right
		}
	}
	return n.data[idx], nil
}

// Insert inserts text at byte offset idx, 0 <= idx <= Len().
// The text is copied once into the arena; no existing leaf is copied.
func (r *Rope) Insert(idx int, text string) error {
	length := r.Len()
	if idx < 0 || idx > length {
		return indexError(idx, length)
	}
	if len(text) == 0 {
		return nil
	}
	r.ensure()

	leaf := newLeaf(r.arena.Alloc(text))
	switch {
	case r.root == nil:
		r.root = leaf
	case idx == 0:
		r.root = newInternal(leaf, r.root)
	case idx == length:
		r.root = newInternal(r.root, leaf)
	default:
		tail := r.cut(idx)
		r.root = join(newInternal(r.root, leaf), tail)
	}
	r.autoRebalance()
	return nil
}

// Erase removes n bytes starting at idx. idx must be inside the rope and
// the range must not extend past its end. Erasing zero bytes is a no-op.
func (r *Rope) Erase(idx, n int) error {
	length := r.Len()
	if idx < 0 || idx >= length {
		return indexError(idx, length)
	}
	if n < 0 || n > length-idx {
		return rangeError(idx, n, length)
	}
	if n == 0 {
		return nil
	}

	tail := r.cut(idx + n)
	r.cut(idx)
	r.root = join(r.root, tail)
	r.autoRebalance()
	return nil
}

// Replace replaces the n bytes at idx with text.
func (r *Rope) Replace(idx, n int, text string) error {
	length := r.Len()
	if idx < 0 || idx > length {
		return indexError(idx, length)
	}
	if n < 0 || n > length-idx {
		return rangeError(idx, n, length)
	}
	if n > 0 {
		if err := r.Erase(idx, n); err != nil {
			return err
		}
	}
	return r.Insert(idx, text)
}

// Concat appends other to r and returns r. other is consumed: its tree and
// arena move into r and it is left empty. Concat does not rebalance, so
// several concatenations can share one later Rebalance.
//
// Concatenating a rope with itself is a programmer error and panics; use
// ConcatChecked to get an error instead.
func (r *Rope) Concat(other *Rope) *Rope {
	if err := r.ConcatChecked(other); err != nil {
		panic(err)
	}
	return r
}

// ConcatChecked is Concat reporting ErrSelfConcat instead of panicking.
func (r *Rope) ConcatChecked(other *Rope) error {
	if other == nil {
		return nil
	}
	if other == r {
		return errors.WithStack(ErrSelfConcat)
	}
	r.ensure()
	other.ensure()

	r.root = join(r.root, other.root)
	r.arena.absorb(other.arena)
	other.root = nil
	other.arena = NewArena(other.opts.slabSize)
	return nil
}

// Split truncates r to [0, idx) and returns a new rope holding
// [idx, Len()). The new rope shares r's arena and options.
func (r *Rope) Split(idx int) (*Rope, error) {
	length := r.Len()
	if idx < 0 || idx > length {
		return nil, indexError(idx, length)
	}
	r.ensure()

	tail := &Rope{root: r.cut(idx), arena: r.arena.retain(), opts: r.opts}
	r.autoRebalance()
	tail.autoRebalance()
	return tail, nil
}

// cut detaches [idx, Len()) from the tree and returns it as one subtree.
// Offsets at either end bypass splitNode, whose leaf case needs an
// interior offset.
func (r *Rope) cut(idx int) *Node {
	switch {
	case r.root == nil || idx >= r.root.length:
		return nil
	case idx <= 0:
		tail := r.root
		r.root = nil
		return tail
	}
	return merge(splitNode(r.root, idx))
}

// Rebalance rebuilds the tree from its leaves if the balance predicate
// fails anywhere. It is a no-op on a balanced tree.
//
// The check and the rebuild both walk the whole tree, so the cost is linear
// in the number of leaves. Batch edits under RebalanceManual and call this
// once when that matters.
func (r *Rope) Rebalance() {
	if isBalanced(r.root) {
		return
	}
	before := r.root.height
	leaves := collectLeaves(r.root)
	r.root = merge(leaves)

	if debugEnabled(r.opts.logger) {
		r.opts.logger.WithFields(logrus.Fields{
			"leaves":        len(leaves),
			"length":        r.root.length,
			"height_before": before,
			"height_after":  r.root.height,
		}).Debug("rope rebuilt")
	}
}

func (r *Rope) autoRebalance() {
	if r.opts.policy == RebalanceEager {
		r.Rebalance()
	}
}

// String returns the full text. Use sparingly for large ropes.
func (r *Rope) String() string {
	var sb strings.Builder
	sb.Grow(r.Len())
	it := r.Leaves()
	for it.Next() {
		sb.Write(it.Leaf())
	}
	return sb.String()
}

// Bytes returns a copy of the full text.
func (r *Rope) Bytes() []byte {
	out := make([]byte, 0, r.Len())
	it := r.Leaves()
	for it.Next() {
		out = append(out, it.Leaf()...)
	}
	return out
}

// WriteTo writes the text leaf by leaf to w.
func (r *Rope) WriteTo(w io.Writer) (int64, error) {
	var total int64
	it := r.Leaves()
	for it.Next() {
		n, err := w.Write(it.Leaf())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Slice returns the text in the byte range [start, end).
func (r *Rope) Slice(start, end int) (string, error) {
	length := r.Len()
	if start < 0 || start > length {
		return "", indexError(start, length)
	}
	if end < start || end > length {
		return "", rangeError(start, end-start, length)
	}

	var sb strings.Builder
	sb.Grow(end - start)
	offset := 0
	it := r.Leaves()
	for offset < end && it.Next() {
		leaf := it.Leaf()
		leafEnd := offset + len(leaf)
		if leafEnd > start {
			lo := max(start-offset, 0)
			hi := min(end-offset, len(leaf))
			sb.Write(leaf[lo:hi])
		}
		offset = leafEnd
	}
	return sb.String(), nil
}

// Release empties the rope and drops its arena reference. The rope can be
// reused afterwards with a fresh arena.
func (r *Rope) Release() {
	r.root = nil
	if r.arena != nil {
		r.arena.Release()
	}
	r.arena = NewArena(r.opts.slabSize)
}
