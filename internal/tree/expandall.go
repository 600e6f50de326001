package tree

import "crafttree/internal/graph"

const (
	// maxExpandAllPasses bounds the expand-all fixed point. Each pass can
	// only mount nodes one level deeper, so 20 passes covers any tree a
	// player would wait for.
	maxExpandAllPasses = 20

	// maxSizeEstimate caps the pre-flight size walk. Past this the tree is
	// "huge" regardless of the exact count.
	maxSizeEstimate = 5000
)

// ExpandAll drives every expandable node open by repeated passes until a
// full pass produces no state change. Passes are needed because expanding a
// node mounts children that themselves need expanding; the no-op signal from
// Toggle is what detects the fixed point. Returns the number of passes that
// changed something.
//
// yield, when non-nil, runs between passes so a caller can keep a UI
// responsive during large expansions.
func (t *Tree) ExpandAll(yield func()) int {
	passes := 0
	for passes < maxExpandAllPasses {
		changed := false
		for _, id := range t.NodeIDs() {
			n, ok := t.nodes[id]
			if !ok || !n.Expandable {
				continue
			}
			if n.Kind != NodeItem && n.Kind != NodeDiscoverRoot {
				continue
			}
			if t.Toggle(id, ToggleOpen) {
				changed = true
			}
		}
		if !changed {
			break
		}
		passes++
		if yield != nil {
			yield()
		}
	}
	return passes
}

// CollapseAll collapses every expanded node except the root and clears the
// persisted expanded-id set. It never expands anything first: collapsing is
// pure teardown even when parts of the tree were still unmounted.
func (t *Tree) CollapseAll() {
	for _, id := range t.NodeIDs() {
		if id == t.rootID {
			continue
		}
		n, ok := t.nodes[id]
		if !ok {
			continue
		}
		if n.Expanded {
			t.Toggle(id, ToggleClose)
		}
	}
	clear(t.Expanded)
	if root := t.Root(); root != nil && root.Kind == NodeItem && root.Expanded {
		t.Expanded[root.ItemID] = true
	}
}

// EstimateExpandedSize walks the graph the way a full expansion would,
// without mounting anything, and returns the node count. The walk stops at
// maxSizeEstimate; truncated reports whether it did. Callers use this to
// warn before an expand-all that would mount a huge tree.
func (t *Tree) EstimateExpandedSize() (count int, truncated bool) {
	root := t.Root()
	if root == nil {
		return 0, false
	}

	type frame struct {
		node    *Node
		itemID  string
		visited map[string]bool
	}

	queue := []frame{{node: root, itemID: root.ItemID, visited: map[string]bool{}}}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		count++
		if count >= maxSizeEstimate {
			return count, true
		}

		var children []frame
		switch {
		case f.node != nil && f.node.Kind == NodeDiscoverRoot:
			for _, d := range t.resolver.DiscoverableItems(t.DiscoverBox) {
				children = append(children, frame{itemID: d.ID, visited: map[string]bool{}})
			}
		case f.itemID != "":
			mode := t.Mode
			for _, c := range t.resolver.ChildrenOf(f.itemID, mode, f.visited, t.Selected) {
				next := frame{visited: f.visited}
				if c.Kind == graph.ChildItem {
					next.itemID = c.ItemID
					next.visited = withVisited(f.visited, f.itemID)
				}
				children = append(children, next)
			}
		}
		queue = append(queue, children...)
	}
	return count, false
}

func withVisited(visited map[string]bool, id string) map[string]bool {
	out := make(map[string]bool, len(visited)+1)
	for k := range visited {
		out[k] = true
	}
	if id != "" {
		out[id] = true
	}
	return out
}
