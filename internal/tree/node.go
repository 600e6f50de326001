// Package tree owns the render-time node arena: lazy expand/collapse state,
// the expand-all fixed point, tree-local layout, and the collected-items
// cascade. Nodes are ephemeral; the whole tree is rebuilt on every
// structural change.
package tree

import (
	"crafttree/internal/graph"
	"crafttree/pkg/craft"
)

// NodeKind classifies a mounted tree node.
type NodeKind int

const (
	// NodeItem is backed by a catalog record.
	NodeItem NodeKind = iota
	// NodeGroup is a single any-of-N visual carrying the member list.
	NodeGroup
	// NodePlaceholder is an unresolvable ingredient: name and amount only.
	NodePlaceholder
	// NodeDiscoverRoot is the discover-box root of a discover-mode tree.
	NodeDiscoverRoot
	// NodeUnknown is the degraded root when the requested item id is not
	// in the database.
	NodeUnknown
)

// ToggleTarget requests a specific end state from Toggle.
type ToggleTarget int

const (
	// ToggleFlip flips the current state.
	ToggleFlip ToggleTarget = iota
	// ToggleOpen expands; no-op when already expanded.
	ToggleOpen
	// ToggleClose collapses; no-op when already collapsed.
	ToggleClose
)

// Node is one mounted node. Created when its parent expands, destroyed with
// its subtree when the parent collapses or the view reloads.
type Node struct {
	ID     int
	Parent int // -1 for the root
	Kind   NodeKind

	ItemID   string
	Name     string
	Amount   int
	ViaGroup string
	Members  []string
	// ContextRecipe is the consuming recipe in usage/discover mode, kept
	// for tooltip context on the rendered card.
	ContextRecipe *craft.Recipe

	Expanded   bool
	Expandable bool
	// DeepExpanded marks discover-mode descendants opened by a deep
	// expand, which auto-recurses the whole path on a single click.
	DeepExpanded bool

	Children []int
}

// Tree is the mounted node arena for one view.
type Tree struct {
	resolver *graph.Resolver

	Mode        craft.Mode
	RootItemID  string
	DiscoverBox []string

	// Expanded is the persisted expanded-id set shared with the session.
	Expanded map[string]bool
	// Selected is the per-item selected recipe index ("1/N" pill state).
	Selected map[string]int

	nodes  map[int]*Node
	rootID int
	nextID int
}

// New mounts a tree for an item (recipe/usage mode) or for the discover box
// (discover mode, rootItemID ignored for resolution but kept for identity).
// The root is expanded immediately; deeper nodes expand lazily, except ids
// already in the expanded set, which re-open as their parents materialize.
func New(resolver *graph.Resolver, rootItemID string, mode craft.Mode, discoverBox []string, expanded map[string]bool, selected map[string]int) *Tree {
	if expanded == nil {
		expanded = make(map[string]bool)
	}
	if selected == nil {
		selected = make(map[string]int)
	}
	t := &Tree{
		resolver:    resolver,
		Mode:        mode,
		RootItemID:  rootItemID,
		DiscoverBox: discoverBox,
		Expanded:    expanded,
		Selected:    selected,
		nodes:       make(map[int]*Node),
		rootID:      -1,
	}
	t.mountRoot()
	return t
}

func (t *Tree) mountRoot() {
	root := &Node{Parent: -1}

	if t.Mode == craft.ModeDiscover {
		root.Kind = NodeDiscoverRoot
		root.Name = "Discover Box"
	} else if item, ok := t.resolver.Catalog().Item(t.RootItemID); ok {
		root.Kind = NodeItem
		root.ItemID = item.ID
		root.Name = item.DisplayName
	} else {
		// Data-absent: degrade to a labeled unknown leaf, never fail.
		root.Kind = NodeUnknown
		root.ItemID = t.RootItemID
		root.Name = "Unknown Item"
	}

	t.rootID = t.insert(root)
	root.Expandable = len(t.fetchChildren(root)) > 0
	if root.Expandable {
		t.Toggle(root.ID, ToggleOpen)
	}
}

func (t *Tree) insert(n *Node) int {
	n.ID = t.nextID
	t.nextID++
	t.nodes[n.ID] = n
	return n.ID
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.nodes[t.rootID] }

// Node returns a mounted node by id.
func (t *Tree) Node(id int) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Len returns the number of mounted nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// NodeIDs returns a snapshot of all mounted node ids. Safe to iterate while
// toggling, since toggles mutate the arena.
func (t *Tree) NodeIDs() []int {
	ids := make([]int, 0, len(t.nodes))
	for id := range t.nodes {
		ids = append(ids, id)
	}
	return ids
}

// Walk visits every mounted node top-down starting at the root.
func (t *Tree) Walk(visit func(*Node)) {
	var rec func(int)
	rec = func(id int) {
		n, ok := t.nodes[id]
		if !ok {
			return
		}
		visit(n)
		for _, child := range n.Children {
			rec(child)
		}
	}
	rec(t.rootID)
}

// pathVisited collects the item ids of a node's strict ancestors. This is
// the per-path cycle guard: an id on its own ancestor chain is a leaf for
// that branch, while the same id may appear in sibling branches freely.
func (t *Tree) pathVisited(n *Node) map[string]bool {
	visited := make(map[string]bool)
	for parent := n.Parent; parent >= 0; {
		p, ok := t.nodes[parent]
		if !ok {
			break
		}
		if p.Kind == NodeItem {
			visited[p.ItemID] = true
		}
		parent = p.Parent
	}
	return visited
}

// fetchChildren asks the resolver for a node's children. Always fresh:
// stale children for an outdated recipe selection must never be shown.
func (t *Tree) fetchChildren(n *Node) []graph.Child {
	switch n.Kind {
	case NodeDiscoverRoot:
		discoverable := t.resolver.DiscoverableItems(t.DiscoverBox)
		children := make([]graph.Child, 0, len(discoverable))
		for _, d := range discoverable {
			item, ok := t.resolver.Catalog().Item(d.ID)
			if !ok {
				continue
			}
			children = append(children, graph.Child{
				Kind:   graph.ChildItem,
				ItemID: d.ID,
				Name:   item.DisplayName,
				Amount: 1,
				Recipe: &item.Recipes[d.Recipe],
			})
		}
		return children
	case NodeItem:
		return t.resolver.ChildrenOf(n.ItemID, t.Mode, t.pathVisited(n), t.Selected)
	default:
		return nil
	}
}

// Toggle drives the two-state expand/collapse machine. Returns false when
// the node is already in the requested state (the no-op signal the
// expand-all fixed point relies on).
//
// Expanding re-fetches children from the resolver and materializes them one
// level deep; grandchildren mount only when the child itself expands, except
// that children whose ids are in the persisted expanded set re-open
// immediately, and discover-mode deep expansion recurses the full path.
func (t *Tree) Toggle(nodeID int, target ToggleTarget) bool {
	return t.toggle(nodeID, target, false)
}

// DeepExpand opens a node and its entire reachable subtree, bounded by the
// per-path cycle guard. Discover trees are shallow by construction, so a
// single click expands the whole path.
func (t *Tree) DeepExpand(nodeID int) bool {
	return t.toggle(nodeID, ToggleOpen, true)
}

func (t *Tree) toggle(nodeID int, target ToggleTarget, deep bool) bool {
	n, ok := t.nodes[nodeID]
	if !ok || !n.Expandable {
		return false
	}

	if target == ToggleOpen && n.Expanded {
		return false
	}
	if target == ToggleClose && !n.Expanded {
		return false
	}

	if n.Expanded {
		t.collapse(n)
		return true
	}
	t.expand(n, deep)
	return true
}

func (t *Tree) expand(n *Node, deep bool) {
	n.Expanded = true
	n.DeepExpanded = deep
	if n.Kind == NodeItem {
		t.Expanded[n.ItemID] = true
	}

	children := t.fetchChildren(n)
	n.Children = n.Children[:0]

	for _, c := range children {
		child := &Node{
			Parent:        n.ID,
			ItemID:        c.ItemID,
			Name:          c.Name,
			Amount:        c.Amount,
			ViaGroup:      c.ViaGroup,
			Members:       c.Members,
			ContextRecipe: c.Recipe,
		}
		switch c.Kind {
		case graph.ChildItem:
			child.Kind = NodeItem
		case graph.ChildGroup:
			child.Kind = NodeGroup
		case graph.ChildPlaceholder:
			child.Kind = NodePlaceholder
		}
		t.insert(child)
		n.Children = append(n.Children, child.ID)

		if child.Kind == NodeItem {
			child.Expandable = len(t.fetchChildren(child)) > 0
			if child.Expandable && (deep || t.Expanded[child.ItemID]) {
				t.toggle(child.ID, ToggleOpen, deep)
			}
		}
	}
}

func (t *Tree) collapse(n *Node) {
	n.Expanded = false
	n.DeepExpanded = false
	if n.Kind == NodeItem {
		delete(t.Expanded, n.ItemID)
	}
	for _, child := range n.Children {
		t.unmount(child)
	}
	n.Children = n.Children[:0]
}

func (t *Tree) unmount(nodeID int) {
	n, ok := t.nodes[nodeID]
	if !ok {
		return
	}
	for _, child := range n.Children {
		t.unmount(child)
	}
	delete(t.nodes, nodeID)
}
