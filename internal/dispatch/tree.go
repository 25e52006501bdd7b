package dispatch

import (
	"sync"

	"github.com/roach88/ripple/internal/path"
)

// nilNode marks an absent child reference.
const nilNode int32 = -1

// compactionFloor is the slot count below which tombstones are left in
// place; small nodes are cheaper to scan than to rebuild.
const compactionFloor = 8

// node is one trie level. Literal children are keyed by segment text;
// the two wildcard edges get dedicated fields. Listener slots are
// append-only between compactions: removal writes a nil tombstone so
// registration order survives arbitrary add/remove interleaving.
type node struct {
	parent   int32
	key      string // edge label from parent: segment text, "*", or "**"
	children map[string]int32
	wild     int32 // "*" edge
	tail     int32 // "**" edge
	slots    []*Listener
	live     int // non-tombstone slots
}

// Tree indexes the listeners of a single event type by pattern.
//
// Nodes live in a flat arena addressed by index, and freed nodes go on
// a free list for reuse, so handles can hold indices without chasing
// pointers through the trie. Match returns a snapshot and callbacks
// never run under the tree lock, which lets listeners add and remove
// registrations, their own included, while a dispatch is iterating.
type Tree struct {
	mu    sync.Mutex
	nodes []node
	free  []int32
	count int // live listeners across all nodes
}

// NewTree returns an empty tree with its root allocated at index 0.
func NewTree() *Tree {
	t := &Tree{nodes: make([]node, 1, 16)}
	t.nodes[0] = node{parent: nilNode, wild: nilNode, tail: nilNode}
	return t
}

// Len returns the number of live listeners in the tree.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Add registers a listener under its pattern and returns its handle.
func (t *Tree) Add(l *Listener) *Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := int32(0)
	for _, seg := range l.Pattern {
		switch seg.Kind {
		case path.Single:
			if t.nodes[cur].wild == nilNode {
				child := t.alloc(cur, "*")
				t.nodes[cur].wild = child
			}
			cur = t.nodes[cur].wild
		case path.Tail:
			if t.nodes[cur].tail == nilNode {
				child := t.alloc(cur, "**")
				t.nodes[cur].tail = child
			}
			cur = t.nodes[cur].tail
		default:
			child, ok := t.nodes[cur].children[seg.Text]
			if !ok {
				child = t.alloc(cur, seg.Text)
				if t.nodes[cur].children == nil {
					t.nodes[cur].children = make(map[string]int32)
				}
				t.nodes[cur].children[seg.Text] = child
			}
			cur = child
		}
	}

	n := &t.nodes[cur]
	n.slots = append(n.slots, l)
	n.live++
	t.count++
	return &Handle{tree: t, node: cur, slot: len(n.slots) - 1, l: l}
}

// Match collects the listeners whose patterns match the path.
//
// Order is deterministic: at each depth, listeners under a "**" edge
// fire first, then listeners terminating exactly at the consumed path,
// then matches through the literal child, then through the "*" child.
// Within one node, listeners fire in registration order. The result is
// a snapshot taken under the lock; invoke callbacks after it returns.
func (t *Tree) Match(p path.Path) []*Listener {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count == 0 {
		return nil
	}
	var out []*Listener
	t.match(0, p, &out)
	return out
}

func (t *Tree) match(idx int32, rest path.Path, out *[]*Listener) {
	n := &t.nodes[idx]
	if n.tail != nilNode {
		t.appendLive(n.tail, out)
	}
	if len(rest) == 0 {
		t.appendLive(idx, out)
		return
	}
	if child, ok := n.children[rest[0]]; ok {
		t.match(child, rest[1:], out)
	}
	if n.wild != nilNode {
		t.match(n.wild, rest[1:], out)
	}
}

func (t *Tree) appendLive(idx int32, out *[]*Listener) {
	for _, s := range t.nodes[idx].slots {
		if s != nil {
			*out = append(*out, s)
		}
	}
}

// RemoveBranch removes every listener whose pattern lies at or below
// the given literal prefix. An empty prefix clears the whole tree.
// Wildcard pattern segments are their own edges, so "*.b" does not
// fall under the prefix "a" even though it matches the path "a.b".
func (t *Tree) RemoveBranch(prefix path.Path) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := int32(0)
	for _, seg := range prefix {
		child, ok := t.nodes[cur].children[seg]
		if !ok {
			return
		}
		cur = child
	}
	t.clearSubtree(cur)
	t.prune(cur)
}

// RemoveContext tombstones every listener registered under the given
// event-context tag, across the whole tree.
func (t *Tree) RemoveContext(ctx string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for idx := range t.nodes {
		n := &t.nodes[idx]
		if n.live == 0 {
			continue
		}
		for i, s := range n.slots {
			if s != nil && s.Context == ctx {
				n.slots[i] = nil
				n.live--
				t.count--
			}
		}
		t.compactNode(int32(idx))
	}
	for idx := 1; idx < len(t.nodes); idx++ {
		t.prune(int32(idx))
	}
}

// remove tombstones a single registration. The handle's slot index is a
// hint: compaction may have shifted the listener, so fall back to a
// scan by identity.
func (t *Tree) remove(h *Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := &t.nodes[h.node]
	idx := -1
	if h.slot < len(n.slots) && n.slots[h.slot] == h.l {
		idx = h.slot
	} else {
		for i, s := range n.slots {
			if s == h.l {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return
	}

	n.slots[idx] = nil
	n.live--
	t.count--
	t.compactNode(h.node)
	t.prune(h.node)
}

func (t *Tree) alloc(parent int32, key string) int32 {
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		t.nodes[idx] = node{parent: parent, key: key, wild: nilNode, tail: nilNode}
		return idx
	}
	t.nodes = append(t.nodes, node{parent: parent, key: key, wild: nilNode, tail: nilNode})
	return int32(len(t.nodes) - 1)
}

// compactNode rebuilds a node's slot list in place once tombstones
// outnumber live listeners, preserving relative order. Trailing slots
// are nilled out so the backing array does not retain listener
// pointers.
func (t *Tree) compactNode(idx int32) {
	n := &t.nodes[idx]
	if len(n.slots) < compactionFloor || n.live*2 > len(n.slots) {
		return
	}
	kept := n.slots[:0]
	for _, s := range n.slots {
		if s != nil {
			kept = append(kept, s)
		}
	}
	for i := len(kept); i < len(n.slots); i++ {
		n.slots[i] = nil
	}
	n.slots = kept
}

// prune frees empty leaves, walking toward the root. The root and any
// already-freed node are left alone.
func (t *Tree) prune(idx int32) {
	for idx != 0 {
		n := &t.nodes[idx]
		if n.parent == nilNode {
			return
		}
		if n.live > 0 || len(n.children) > 0 || n.wild != nilNode || n.tail != nilNode {
			return
		}
		parent := n.parent
		p := &t.nodes[parent]
		switch n.key {
		case "*":
			p.wild = nilNode
		case "**":
			p.tail = nilNode
		default:
			delete(p.children, n.key)
		}
		t.release(idx)
		idx = parent
	}
}

// clearSubtree drops all listeners and descendants of a node, leaving
// the node itself allocated but empty.
func (t *Tree) clearSubtree(idx int32) {
	n := &t.nodes[idx]
	for _, child := range n.children {
		t.clearSubtree(child)
		t.release(child)
	}
	n.children = nil
	if n.wild != nilNode {
		t.clearSubtree(n.wild)
		t.release(n.wild)
		n.wild = nilNode
	}
	if n.tail != nilNode {
		t.clearSubtree(n.tail)
		t.release(n.tail)
		n.tail = nilNode
	}
	t.count -= n.live
	n.live = 0
	n.slots = nil
}

func (t *Tree) release(idx int32) {
	t.nodes[idx] = node{parent: nilNode, wild: nilNode, tail: nilNode}
	t.free = append(t.free, idx)
}
