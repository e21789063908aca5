package catalog

import (
	"iter"
	"maps"
	"slices"
)

// Node is one entry of the option tree.
//
// Interior nodes use Children; leaf nodes (Level == Language) use Outcome and
// keep Children nil. The label is stored apart from the children, so iterating
// Children never yields metadata.
type Node struct {
	Level    Level
	Name     string
	Children map[string]*Node
	Outcome  Outcome
}

// Tree is the six-level option tree.
type Tree struct {
	Roots map[string]*Node
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{Roots: make(map[string]*Node)}
}

// IsEmpty reports whether the tree has no product types.
func (t *Tree) IsEmpty() bool {
	return t == nil || len(t.Roots) == 0
}

// Options returns the {id: label} mapping visible at level for the given
// ancestor ids. parent must hold exactly the ids of the levels above level.
func (t *Tree) Options(level Level, parent ...string) (map[string]string, error) {
	if !level.Valid() {
		return nil, pathError("options", parent, "unknown level %d", int(level))
	}
	if err := checkPath("options", parent, int(level)); err != nil {
		return nil, err
	}
	children, err := t.childrenAt("options", parent)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(children))
	for id, n := range children {
		out[id] = n.Name
	}
	return out, nil
}

// SetNode inserts or relabels the node addressed by path. Missing ancestors
// are created with an empty label. The outcome of an existing leaf and the
// children of an existing interior node are kept.
func (t *Tree) SetNode(path []string, name string) error {
	if len(path) == 0 || len(path) > Depth {
		return pathError("set node", path, "expected 1 to %d ids, got %d", Depth, len(path))
	}
	if err := checkPath("set node", path, len(path)); err != nil {
		return err
	}
	if t.Roots == nil {
		t.Roots = make(map[string]*Node)
	}

	children := t.Roots
	var node *Node
	for i, id := range path {
		level := Level(i)
		node = children[id]
		if node == nil {
			node = newNode(level, "")
			children[id] = node
		}
		if !level.IsLeaf() && node.Children == nil {
			node.Children = make(map[string]*Node)
		}
		children = node.Children
	}
	node.Name = name
	return nil
}

// SetLeafOutcome replaces the outcome of the leaf addressed by key.
// The leaf must already exist; writing to a path discovery never created
// fails with ErrInvalidPath instead of growing a sparse branch.
func (t *Tree) SetLeafOutcome(key LookupKey, outcome Outcome) error {
	leaf, err := t.leaf("set outcome", key)
	if err != nil {
		return err
	}
	leaf.Outcome = outcome
	return nil
}

// Leaf returns the leaf addressed by key.
func (t *Tree) Leaf(key LookupKey) (Node, error) {
	leaf, err := t.leaf("leaf", key)
	if err != nil {
		return Node{}, err
	}
	return *leaf, nil
}

func (t *Tree) leaf(op string, key LookupKey) (*Node, error) {
	path := key.Path()
	if err := checkPath(op, path, Depth); err != nil {
		return nil, err
	}
	children, err := t.childrenAt(op, path[:Depth-1])
	if err != nil {
		return nil, err
	}
	leaf, ok := children[key.Language]
	if !ok {
		return nil, pathError(op, path, "leaf was never created")
	}
	return leaf, nil
}

// childrenAt walks the ancestors in parent and returns the children map of
// the last one (or the roots when parent is empty).
func (t *Tree) childrenAt(op string, parent []string) (map[string]*Node, error) {
	if t == nil {
		return nil, pathError(op, parent, "nil tree")
	}
	children := t.Roots
	for i, id := range parent {
		node, ok := children[id]
		if !ok {
			return nil, pathError(op, parent, "no node %q at level %s", id, Level(i))
		}
		children = node.Children
	}
	return children, nil
}

// Leaves returns every leaf with its key in depth-first order. Siblings are
// visited in ascending id order, so two traversals of an unchanged tree yield
// the same sequence. The sequence can be ranged over any number of times.
func (t *Tree) Leaves() iter.Seq2[LookupKey, Outcome] {
	return func(yield func(LookupKey, Outcome) bool) {
		if t == nil {
			return
		}
		path := make([]string, 0, Depth)
		walkLeaves(t.Roots, path, yield)
	}
}

func walkLeaves(children map[string]*Node, path []string, yield func(LookupKey, Outcome) bool) bool {
	for _, id := range slices.Sorted(maps.Keys(children)) {
		node := children[id]
		next := append(path, id)
		if len(next) == Depth {
			key, err := KeyFromPath(next)
			if err != nil {
				continue
			}
			if !yield(key, node.Outcome) {
				return false
			}
			continue
		}
		if !walkLeaves(node.Children, next, yield) {
			return false
		}
	}
	return true
}

// Keys collects the keys of every leaf.
func (t *Tree) Keys() []LookupKey {
	var keys []LookupKey
	for key := range t.Leaves() {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	n := 0
	for range t.Leaves() {
		n++
	}
	return n
}

// Recoverable collects the keys a reconciliation pass should retry:
// AccessDenied and TransientError leaves, plus Unresolved leaves when
// includeUnresolved is set. NotFound and Resolved leaves are never returned.
func (t *Tree) Recoverable(includeUnresolved bool) []LookupKey {
	var keys []LookupKey
	for key, outcome := range t.Leaves() {
		if outcome.Recoverable() || (includeUnresolved && outcome.Kind == Unresolved) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Tally counts leaves per outcome kind.
func (t *Tree) Tally() map[OutcomeKind]int {
	counts := make(map[OutcomeKind]int, len(OutcomeKinds))
	for _, outcome := range t.Leaves() {
		counts[outcome.Kind]++
	}
	return counts
}

// Prune removes interior nodes that ended up without any leaf below them and
// returns how many nodes were removed.
func (t *Tree) Prune() int {
	if t == nil {
		return 0
	}
	return pruneChildren(t.Roots, 0)
}

func pruneChildren(children map[string]*Node, depth int) int {
	removed := 0
	for id, node := range children {
		if Level(depth).IsLeaf() {
			continue
		}
		removed += pruneChildren(node.Children, depth+1)
		if len(node.Children) == 0 {
			delete(children, id)
			removed++
		}
	}
	return removed
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	return &Tree{Roots: cloneChildren(t.Roots)}
}

func cloneChildren(children map[string]*Node) map[string]*Node {
	if children == nil {
		return nil
	}
	out := make(map[string]*Node, len(children))
	for id, node := range children {
		cp := *node
		cp.Children = cloneChildren(node.Children)
		out[id] = &cp
	}
	return out
}

func newNode(level Level, name string) *Node {
	n := &Node{Level: level, Name: name}
	if !level.IsLeaf() {
		n.Children = make(map[string]*Node)
	}
	return n
}
