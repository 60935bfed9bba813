package rope

// DefaultSlabSize is the arena slab size used when no WithSlabSize option is given.
const DefaultSlabSize = 4096

// Arena owns the byte buffers that back every leaf of a rope.
//
// Each inserted string is copied into the arena exactly once. Strings up to
// a quarter of the slab size are packed into shared slabs; larger strings
// get a dedicated buffer. Leaves hold views into these buffers and never
// own them.
//
// Arenas are reference counted in ownership groups. A rope produced by
// Split shares its parent's arena, and Concat merges the donor's group into
// the receiver's. The group root holds one reference per rope that views
// any member. Buffers of every member are dropped when the last reference
// is released, and are never reused while a view may still point at them.
type Arena struct {
	slabSize int
	buffers  [][]byte
	free     []byte // unused tail of the current slab
	used     int

	// owner is the group root, nil when this arena is the root. Only the
	// root's refs and members are meaningful.
	owner   *Arena
	refs    int
	members []*Arena
}

// NewArena creates an arena with one reference held by the caller.
func NewArena(slabSize int) *Arena {
	if slabSize <= 0 {
		slabSize = DefaultSlabSize
	}
	return &Arena{slabSize: slabSize, refs: 1}
}

// Alloc copies s into arena memory and returns a view of exactly len(s)
// bytes. The view's capacity equals its length, so appending to it can
// never write into a neighbouring allocation.
func (a *Arena) Alloc(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	view := a.grab(len(s))
	copy(view, s)
	return view
}

// AllocBytes is Alloc for a byte slice.
func (a *Arena) AllocBytes(p []byte) []byte {
	if len(p) == 0 {
		return nil
	}
	view := a.grab(len(p))
	copy(view, p)
	return view
}

func (a *Arena) grab(n int) []byte {
	a.used += n
	if n > a.slabSize/4 {
		buf := make([]byte, n)
		a.buffers = append(a.buffers, buf)
		return buf[:n:n]
	}
	if len(a.free) < n {
		slab := make([]byte, a.slabSize)
		a.buffers = append(a.buffers, slab)
		a.free = slab
	}
	view := a.free[:n:n]
	a.free = a.free[n:]
	return view
}

// Buffers returns the number of buffers (slabs and dedicated) owned by the arena.
func (a *Arena) Buffers() int {
	return len(a.buffers)
}

// Bytes returns the number of bytes handed out by Alloc.
func (a *Arena) Bytes() int {
	return a.used
}

// Reserved returns the total capacity of the owned buffers.
func (a *Arena) Reserved() int {
	total := 0
	for _, b := range a.buffers {
		total += cap(b)
	}
	return total
}

// Refs returns the number of ropes holding this arena's ownership group.
func (a *Arena) Refs() int {
	return a.root().refs
}

func (a *Arena) root() *Arena {
	r := a
	for r.owner != nil {
		r = r.owner
	}
	// Path compression.
	for a != r {
		next := a.owner
		a.owner = r
		a = next
	}
	return r
}

func (a *Arena) retain() *Arena {
	a.root().refs++
	return a
}

// absorb takes over the reference a concatenated rope held on other. The
// donor's group joins this arena's group, so arenas that absorb each other
// through split ropes never form a cycle.
func (a *Arena) absorb(other *Arena) {
	if other == nil {
		return
	}
	ra, rb := a.root(), other.root()
	if ra == rb {
		ra.refs--
		return
	}
	rb.owner = ra
	ra.refs += rb.refs - 1
	ra.members = append(ra.members, rb)
	ra.members = append(ra.members, rb.members...)
	rb.members = nil
	rb.refs = 0
}

// Release drops one reference on the group. When the last reference goes,
// every arena in the group forgets its buffers.
func (a *Arena) Release() {
	r := a.root()
	if r.refs <= 0 {
		return
	}
	r.refs--
	if r.refs > 0 {
		return
	}
	r.drop()
	for _, m := range r.members {
		m.drop()
	}
	r.members = nil
}

func (a *Arena) drop() {
	a.buffers = nil
	a.free = nil
	a.used = 0
}
