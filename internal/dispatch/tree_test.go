package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ripple/internal/path"
)

func listenerAt(pattern string) *Listener {
	return &Listener{Pattern: path.MustParsePattern(pattern)}
}

func matchNames(t *Tree, p string, byListener map[*Listener]string) []string {
	var names []string
	for _, l := range t.Match(path.MustSplit(p)) {
		names = append(names, byListener[l])
	}
	return names
}

func TestTree_AddAndMatch_Exact(t *testing.T) {
	tree := NewTree()
	l := listenerAt("a.b")
	tree.Add(l)

	matched := tree.Match(path.MustSplit("a.b"))
	require.Len(t, matched, 1)
	assert.Same(t, l, matched[0])

	assert.Empty(t, tree.Match(path.MustSplit("a.c")))
	assert.Empty(t, tree.Match(path.MustSplit("a.b.c")))
	assert.Empty(t, tree.Match(path.MustSplit("a")))
}

func TestTree_Match_DepthOrder(t *testing.T) {
	tree := NewTree()
	exact := listenerAt("a.b")
	single := listenerAt("a.*")
	tail := listenerAt("a.**")
	rootTail := listenerAt("**")

	names := map[*Listener]string{exact: "a.b", single: "a.*", tail: "a.**", rootTail: "**"}
	for _, l := range []*Listener{exact, single, tail, rootTail} {
		tree.Add(l)
	}

	// Tail listeners fire first at each depth, then the exact terminal,
	// then matches reached through the single wildcard.
	assert.Equal(t, []string{"**", "a.**", "a.b", "a.*"}, matchNames(tree, "a.b", names))

	// At the shorter path only the tails match, "a.**" with its empty
	// suffix included.
	assert.Equal(t, []string{"**", "a.**"}, matchNames(tree, "a", names))
}

func TestTree_Match_RegistrationOrderWithinNode(t *testing.T) {
	tree := NewTree()
	first := listenerAt("x.y")
	second := listenerAt("x.y")
	third := listenerAt("x.y")
	names := map[*Listener]string{first: "first", second: "second", third: "third"}
	for _, l := range []*Listener{first, second, third} {
		tree.Add(l)
	}

	assert.Equal(t, []string{"first", "second", "third"}, matchNames(tree, "x.y", names))
}

func TestTree_Remove_PreservesOrder(t *testing.T) {
	tree := NewTree()
	a := listenerAt("p.q")
	b := listenerAt("p.q")
	c := listenerAt("p.q")
	names := map[*Listener]string{a: "a", b: "b", c: "c"}

	tree.Add(a)
	hb := tree.Add(b)
	tree.Add(c)

	hb.Remove()
	assert.Equal(t, []string{"a", "c"}, matchNames(tree, "p.q", names))
	assert.Equal(t, 2, tree.Len())
}

func TestTree_Remove_Idempotent(t *testing.T) {
	tree := NewTree()
	h := tree.Add(listenerAt("a.b"))

	h.Remove()
	h.Remove()

	assert.Equal(t, 0, tree.Len())
	assert.Empty(t, tree.Match(path.MustSplit("a.b")))
}

func TestTree_Remove_PrunesAndReusesNodes(t *testing.T) {
	tree := NewTree()
	h := tree.Add(listenerAt("a.b.c"))
	allocated := len(tree.nodes)

	h.Remove()
	assert.Equal(t, 0, tree.Len())
	assert.Len(t, tree.free, allocated-1, "all non-root nodes should be freed")

	// A fresh registration must pull nodes off the free list instead of
	// growing the arena.
	tree.Add(listenerAt("x.y.z"))
	assert.Equal(t, allocated, len(tree.nodes))
	assert.Len(t, tree.Match(path.MustSplit("x.y.z")), 1)
}

func TestTree_Remove_AfterCompaction(t *testing.T) {
	tree := NewTree()

	var handles []*Handle
	listeners := make([]*Listener, 10)
	for i := range listeners {
		listeners[i] = listenerAt("n.v")
		handles = append(handles, tree.Add(listeners[i]))
	}

	// Removing the front six forces a slot compaction, which shifts the
	// surviving listeners and invalidates recorded slot hints.
	for i := 0; i < 6; i++ {
		handles[i].Remove()
	}
	require.Equal(t, 4, tree.Len())

	handles[8].Remove()
	assert.Equal(t, 3, tree.Len())

	matched := tree.Match(path.MustSplit("n.v"))
	require.Len(t, matched, 3)
	assert.Same(t, listeners[6], matched[0])
	assert.Same(t, listeners[7], matched[1])
	assert.Same(t, listeners[9], matched[2])
}

func TestTree_RemoveBranch(t *testing.T) {
	tree := NewTree()
	ab := listenerAt("a.b")
	abc := listenerAt("a.b.c")
	aw := listenerAt("a.*")
	a := listenerAt("a")

	for _, l := range []*Listener{ab, abc, aw, a} {
		tree.Add(l)
	}

	tree.RemoveBranch(path.MustSplit("a.b"))

	assert.Empty(t, tree.Match(path.MustSplit("a.b.c")))
	// "a.*" hangs off the wildcard edge, not the literal "b" child, so
	// it still matches the path a.b.
	matched := tree.Match(path.MustSplit("a.b"))
	require.Len(t, matched, 1)
	assert.Same(t, aw, matched[0])

	matched = tree.Match(path.MustSplit("a"))
	require.Len(t, matched, 1)
	assert.Same(t, a, matched[0])
}

func TestTree_RemoveBranch_EmptyPrefixClearsTree(t *testing.T) {
	tree := NewTree()
	tree.Add(listenerAt("a.b"))
	tree.Add(listenerAt("**"))
	tree.Add(listenerAt("x.*.z"))

	tree.RemoveBranch(nil)

	assert.Equal(t, 0, tree.Len())
	assert.Empty(t, tree.Match(path.MustSplit("a.b")))
}

func TestTree_RemoveBranch_MissingPrefixIsNoOp(t *testing.T) {
	tree := NewTree()
	tree.Add(listenerAt("a.b"))

	tree.RemoveBranch(path.MustSplit("z.q"))
	assert.Equal(t, 1, tree.Len())
}

func TestTree_RemoveContext(t *testing.T) {
	tree := NewTree()
	keep := &Listener{Pattern: path.MustParsePattern("a.b"), Context: "page"}
	drop1 := &Listener{Pattern: path.MustParsePattern("a.b"), Context: "modal"}
	drop2 := &Listener{Pattern: path.MustParsePattern("c.**"), Context: "modal"}

	tree.Add(keep)
	tree.Add(drop1)
	tree.Add(drop2)

	tree.RemoveContext("modal")

	assert.Equal(t, 1, tree.Len())
	matched := tree.Match(path.MustSplit("a.b"))
	require.Len(t, matched, 1)
	assert.Same(t, keep, matched[0])
	assert.Empty(t, tree.Match(path.MustSplit("c.d")))
}

func TestTree_StaleHandleAfterBranchRemoval(t *testing.T) {
	tree := NewTree()
	h := tree.Add(listenerAt("a.b.c"))
	tree.RemoveBranch(path.MustSplit("a"))
	require.Equal(t, 0, tree.Len())

	// The branch sweep freed the node this handle points into; a later
	// registration may recycle it. Removal through the stale handle
	// must not disturb the new occupant.
	fresh := listenerAt("q.r.s")
	tree.Add(fresh)
	h.Remove()

	assert.Equal(t, 1, tree.Len())
	matched := tree.Match(path.MustSplit("q.r.s"))
	require.Len(t, matched, 1)
	assert.Same(t, fresh, matched[0])
}
