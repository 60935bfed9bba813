package rope

import "github.com/cockroachdb/errors"

// Node is a node in the rope's binary tree.
//
// A leaf holds a view into an arena buffer. An internal node always has a
// left child and may lack a right child; its weight is the byte length of
// its left subtree.
type Node struct {
	height int // 1 for leaves
	length int // bytes spanned by this subtree
	weight int // length(left) for internal nodes, length for leaves

	leaf bool
	data []byte // leaf view, never copied

	left, right *Node
}

func newLeaf(view []byte) *Node {
	return &Node{
		height: 1,
		length: len(view),
		weight: len(view),
		leaf:   true,
		data:   view,
	}
}

// newInternal joins left and right under a new node. right may be nil.
func newInternal(left, right *Node) *Node {
	if left == nil {
		panic(errors.AssertionFailedf("internal node requires a left child"))
	}
	n := &Node{left: left, right: right}
	n.update()
	return n
}

// update recomputes the derived fields of an internal node from its children.
func (n *Node) update() {
	if n.leaf {
		return
	}
	n.weight = n.left.length
	n.length = n.weight
	rh := 0
	if n.right != nil {
		n.length += n.right.length
		rh = n.right.height
	}
	n.height = 1 + max(n.left.height, rh)
}

// IsLeaf reports whether n is a leaf.
func (n *Node) IsLeaf() bool {
	return n.leaf
}

// Len returns the byte length of the subtree.
func (n *Node) Len() int {
	return n.length
}

// Weight returns the byte length of the left subtree, or of the leaf itself.
func (n *Node) Weight() int {
	return n.weight
}

// Height returns the height of the subtree. Leaves have height 1.
func (n *Node) Height() int {
	return n.height
}

// Left returns the left child, nil for leaves.
func (n *Node) Left() *Node {
	return n.left
}

// Right returns the right child, which may be nil.
func (n *Node) Right() *Node {
	return n.right
}

// Bytes returns the leaf's view. The slice aliases arena memory and must
// not be modified. Internal nodes return nil.
func (n *Node) Bytes() []byte {
	return n.data
}

// heightOf returns n's height, treating a missing node as height 0.
func heightOf(n *Node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func lengthOf(n *Node) int {
	if n == nil {
		return 0
	}
	return n.length
}

// join concatenates two possibly-empty subtrees.
func join(left, right *Node) *Node {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	default:
		return newInternal(left, right)
	}
}
