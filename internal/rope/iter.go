package rope

import "iter"

// LeafIterator yields the leaves of a tree in document order.
//
// It keeps an explicit stack of pending nodes instead of recursing, so it
// can be suspended between leaves and its depth is not bound to the call
// stack. An iterator is finite and cannot be restarted; ask the rope for a
// new one. Mutating the rope invalidates outstanding iterators.
type LeafIterator struct {
	stack []*Node
	cur   *Node
}

func newLeafIterator(root *Node) *LeafIterator {
	it := &LeafIterator{stack: make([]*Node, 0, heightOf(root))}
	it.pushLeftSpine(root)
	return it
}

// pushLeftSpine pushes n and every node on its leftmost path.
func (it *LeafIterator) pushLeftSpine(n *Node) {
	for n != nil {
		it.stack = append(it.stack, n)
		n = n.left
	}
}

// Next advances to the next leaf.
// Returns true if there is a leaf, false if iteration is complete.
func (it *LeafIterator) Next() bool {
	for len(it.stack) > 0 {
		n := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]
		if n.leaf {
			it.cur = n
			return true
		}
		// The left subtree of n is exhausted; a nil right child simply
		// pushes nothing and the loop pops the next ancestor.
		it.pushLeftSpine(n.right)
	}
	it.cur = nil
	return false
}

// Leaf returns the current leaf's bytes. The slice aliases rope memory and
// must not be modified.
func (it *LeafIterator) Leaf() []byte {
	if it.cur == nil {
		return nil
	}
	return it.cur.data
}

// Len returns the length of the current leaf.
func (it *LeafIterator) Len() int {
	if it.cur == nil {
		return 0
	}
	return it.cur.length
}

// Node returns the current leaf node.
func (it *LeafIterator) Node() *Node {
	return it.cur
}

// Leaves returns a fresh iterator over the rope's leaves.
func (r *Rope) Leaves() *LeafIterator {
	return newLeafIterator(r.root)
}

// All returns the leaf views in document order as a range-over-func sequence.
func (r *Rope) All() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		it := r.Leaves()
		for it.Next() {
			if !yield(it.Leaf()) {
				return
			}
		}
	}
}

// collectLeaves returns every leaf of root in document order.
func collectLeaves(root *Node) []*Node {
	var leaves []*Node
	it := newLeafIterator(root)
	for it.Next() {
		leaves = append(leaves, it.cur)
	}
	return leaves
}
