package rope

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// splitNode destructively partitions the subtree rooted at n at offset idx.
// Afterwards n spans [0, idx) and the returned orphans span [idx, length)
// in document order. idx must satisfy 0 < idx < n.Len().
//
// The descent keeps an explicit path so that tree height never translates
// into call depth. Orphans are discovered right to left (each detached right
// child lies after everything found deeper in the descent) and are reversed
// before returning.
func splitNode(n *Node, idx int) []*Node {
	if idx <= 0 || idx >= n.length {
		panic(errors.AssertionFailedf("split offset %d outside (0, %d)", idx, n.length))
	}

	var path, orphans []*Node
descend:
	for {
		if n.leaf {
			if idx <= 0 || idx >= n.length {
				panic(errors.AssertionFailedf("leaf split offset %d outside (0, %d)", idx, n.length))
			}
			orphans = append(orphans, newLeaf(n.data[idx:n.length:n.length]))
			n.data = n.data[:idx:idx]
			n.length = idx
			n.weight = idx
			break
		}

		path = append(path, n)
		switch {
		case idx < n.weight:
			if n.right != nil {
				orphans = append(orphans, n.right)
				n.right = nil
			}
			n = n.left
		case idx == n.weight:
			if n.right == nil {
				panic(errors.AssertionFailedf("split at weight %d of node without right child", idx))
			}
			orphans = append(orphans, n.right)
			n.right = nil
			break descend
		default:
			idx -= n.weight
			n = n.right
		}
	}

	for i := len(path) - 1; i >= 0; i-- {
		path[i].update()
	}
	slices.Reverse(orphans)
	return orphans
}

// merge builds a tree over nodes (in document order) by midpoint division.
// Over leaves the result satisfies the balance predicate.
func merge(nodes []*Node) *Node {
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	case 2:
		return newInternal(nodes[0], nodes[1])
	}
	mid := len(nodes) / 2
	return newInternal(merge(nodes[:mid]), merge(nodes[mid:]))
}

// isBalanced reports whether every internal node under root has children
// whose heights differ by at most one. A missing right child counts as
// height 0.
func isBalanced(root *Node) bool {
	if root == nil {
		return true
	}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.leaf {
			continue
		}
		d := n.left.height - heightOf(n.right)
		if d > 1 || d < -1 {
			return false
		}
		stack = append(stack, n.left)
		if n.right != nil {
			stack = append(stack, n.right)
		}
	}
	return true
}

// countLeaves counts leaves without allocating a slice.
func countLeaves(root *Node) int {
	count := 0
	it := newLeafIterator(root)
	for it.Next() {
		count++
	}
	return count
}
