// Package rope provides a binary rope for storing and editing large text.
//
// A rope is a binary tree where leaf nodes hold views into byte buffers and
// internal nodes record the weight (byte length of their left subtree), the
// total length, and the height of the subtree below them. Index and split
// descend by weight, so both cost O(height).
//
// Key properties:
//   - Inserted text is copied exactly once, into the rope's Arena
//   - Split never copies leaf bytes; a leaf's view is shrunk in place
//   - Rebuilds (Rebalance) rewire internal nodes and reuse every leaf
//   - Balance is checked, not maintained; Rebalance restores it on demand
//
// Indices are byte offsets. A Rope is not safe for concurrent mutation.
//
// Basic usage:
//
//	r := rope.FromString("Hello world")
//	_ = r.Insert(5, ",")  // "Hello, world"
//	_ = r.Erase(5, 1)     // "Hello world"
//	tail, _ := r.Split(6) // r = "Hello ", tail = "world"
//	r.Concat(tail)        // "Hello world", tail is now empty
package rope
