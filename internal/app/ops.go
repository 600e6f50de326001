package app

import (
	"context"
	"fmt"

	"crafttree/internal/catalog"
	"crafttree/internal/nav"
	"crafttree/internal/store"
	"crafttree/internal/tree"
	"crafttree/pkg/craft"
)

// requireTree guards operations that only make sense inside a tree view.
func (s *Session) requireTree() error {
	if s.tr == nil {
		return fmt.Errorf("no tree mounted")
	}
	return nil
}

// ToggleNode flips one node's expansion and relays out. Returns whether
// anything changed.
func (s *Session) ToggleNode(ctx context.Context, nodeID int, target tree.ToggleTarget) (bool, error) {
	if err := s.requireTree(); err != nil {
		return false, err
	}
	changed := s.tr.Toggle(nodeID, target)
	if !changed {
		return false, nil
	}
	s.layout = s.tr.ComputeLayout()
	s.nudgeNodeIntoView(nodeID)
	return true, s.persist(ctx)
}

// DeepExpandNode opens a node and its whole reachable subtree.
func (s *Session) DeepExpandNode(ctx context.Context, nodeID int) (bool, error) {
	if err := s.requireTree(); err != nil {
		return false, err
	}
	changed := s.tr.DeepExpand(nodeID)
	if !changed {
		return false, nil
	}
	s.layout = s.tr.ComputeLayout()
	s.nudgeNodeIntoView(nodeID)
	return true, s.persist(ctx)
}

// nudgeNodeIntoView pans just enough that a freshly expanded node and its
// new children stay on screen. Collapses and off-arena ids do nothing.
func (s *Session) nudgeNodeIntoView(nodeID int) {
	n, ok := s.tr.Node(nodeID)
	if !ok || !n.Expanded {
		return
	}
	var minX, minY, maxX, maxY float64
	any := false
	for _, id := range append([]int{n.ID}, n.Children...) {
		loc, ok := s.layout.Nodes[id]
		if !ok {
			continue
		}
		half := loc.W / 2
		if !any {
			minX, minY, maxX, maxY = loc.X-half, loc.Y-half, loc.X+half, loc.Y+half
			any = true
			continue
		}
		minX, minY = min(minX, loc.X-half), min(minY, loc.Y-half)
		maxX, maxY = max(maxX, loc.X+half), max(maxY, loc.Y+half)
	}
	if any {
		s.cam.NudgeIntoView(minX, minY, maxX, maxY)
	}
}

// ExpandAllResult reports what an expand-all did, or why it stopped short.
type ExpandAllResult struct {
	Passes    int
	Nodes     int
	Estimated int
	Truncated bool
}

// warnThreshold is the estimated node count above which ExpandAll refuses
// unless forced. The caller shows a confirmation prompt.
const warnThreshold = 400

// ExpandAll expands the whole tree to its fixed point. Without force, a
// pre-flight size estimate over the threshold aborts so the caller can
// confirm with the player first.
func (s *Session) ExpandAll(ctx context.Context, force bool) (ExpandAllResult, error) {
	if err := s.requireTree(); err != nil {
		return ExpandAllResult{}, err
	}

	est, truncated := s.tr.EstimateExpandedSize()
	if !force && (truncated || est > warnThreshold) {
		return ExpandAllResult{Estimated: est, Truncated: truncated}, nil
	}

	passes := s.tr.ExpandAll(nil)
	s.layout = s.tr.ComputeLayout()
	res := ExpandAllResult{Passes: passes, Nodes: s.tr.Len(), Estimated: est, Truncated: truncated}
	return res, s.persist(ctx)
}

// CollapseAll collapses back to the root's first level and clears the
// persisted expanded set.
func (s *Session) CollapseAll(ctx context.Context) error {
	if err := s.requireTree(); err != nil {
		return err
	}
	s.tr.CollapseAll()
	s.layout = s.tr.ComputeLayout()
	return s.persist(ctx)
}

// SelectRecipe sets an item's selected recipe index and remounts the tree
// so every instance of that item shows the new recipe's ingredients.
func (s *Session) SelectRecipe(ctx context.Context, itemID string, index int) error {
	if err := s.requireTree(); err != nil {
		return err
	}
	item, ok := s.app.Catalog().Item(itemID)
	if !ok {
		return fmt.Errorf("unknown item %q", itemID)
	}
	valid := s.resolver().ValidRecipes(item)
	if index < 0 || index >= len(valid) {
		return fmt.Errorf("recipe index %d out of range for %s", index, itemID)
	}
	s.selected[itemID] = index
	return s.remount(ctx)
}

// CycleRecipe advances an item's recipe selection by delta, wrapping.
func (s *Session) CycleRecipe(ctx context.Context, itemID string, delta int) error {
	if err := s.requireTree(); err != nil {
		return err
	}
	item, ok := s.app.Catalog().Item(itemID)
	if !ok {
		return fmt.Errorf("unknown item %q", itemID)
	}
	valid := s.resolver().ValidRecipes(item)
	if len(valid) < 2 {
		return nil
	}
	_, cur := s.resolver().SelectedRecipe(item, s.selected)
	next := ((cur+delta)%len(valid) + len(valid)) % len(valid)
	s.selected[itemID] = next
	return s.remount(ctx)
}

// UseSmartRecipe resets an item's selection to the heuristic default pick
// and remounts when that differs from the current selection.
func (s *Session) UseSmartRecipe(ctx context.Context, itemID string) error {
	if err := s.requireTree(); err != nil {
		return err
	}
	item, ok := s.app.Catalog().Item(itemID)
	if !ok {
		return fmt.Errorf("unknown item %q", itemID)
	}
	idx := s.resolver().SmartRecipeIndex(item)
	if idx < 0 {
		return nil
	}
	if _, cur := s.resolver().SelectedRecipe(item, s.selected); cur == idx {
		return nil
	}
	s.selected[itemID] = idx
	return s.remount(ctx)
}

// SetShowTransmutations toggles transmutation recipes in traversal. Recipe
// selections are re-clamped on remount because the valid recipe lists
// change size under the filter.
func (s *Session) SetShowTransmutations(ctx context.Context, show bool) error {
	if s.showTransmutations == show {
		return nil
	}
	s.showTransmutations = show
	if s.tr == nil {
		return nil
	}
	return s.remount(ctx)
}

// remount rebuilds the current tree in place, preserving expansion state
// and the camera.
func (s *Session) remount(ctx context.Context) error {
	if err := s.build(s.view.Clone()); err != nil {
		return err
	}
	return s.persist(ctx)
}

// ─────────────────────────────────────────────────────────────────────────
// Collected items
// ─────────────────────────────────────────────────────────────────────────

// SetCollected marks or unmarks a node's item, cascading through the
// recipe graph per the session's upward-cascade setting.
func (s *Session) SetCollected(ctx context.Context, nodeID int, value bool) error {
	if err := s.requireTree(); err != nil {
		return err
	}
	s.tr.SetCollected(s.collected, nodeID, value, s.app.cfg.UpwardCascade)
	return s.persist(ctx)
}

// IsCollected reports whether an item is collected.
func (s *Session) IsCollected(itemID string) bool { return s.collected[itemID] }

// ClearCollected empties the collected set.
func (s *Session) ClearCollected(ctx context.Context) error {
	clear(s.collected)
	return s.persist(ctx)
}

// ─────────────────────────────────────────────────────────────────────────
// Discover box
// ─────────────────────────────────────────────────────────────────────────

// AddToDiscoverBox appends an item to the box, ignoring duplicates, and
// remounts when the discover tree is showing.
func (s *Session) AddToDiscoverBox(ctx context.Context, itemID string) error {
	if _, ok := s.app.Catalog().Item(itemID); !ok {
		return fmt.Errorf("unknown item %q", itemID)
	}
	for _, id := range s.discoverBox {
		if id == itemID {
			return nil
		}
	}
	s.discoverBox = append(s.discoverBox, itemID)
	return s.afterBoxChange(ctx)
}

// RemoveFromDiscoverBox removes an item from the box.
func (s *Session) RemoveFromDiscoverBox(ctx context.Context, itemID string) error {
	for i, id := range s.discoverBox {
		if id == itemID {
			s.discoverBox = append(s.discoverBox[:i], s.discoverBox[i+1:]...)
			return s.afterBoxChange(ctx)
		}
	}
	return nil
}

// ClearDiscoverBox empties the box.
func (s *Session) ClearDiscoverBox(ctx context.Context) error {
	if len(s.discoverBox) == 0 {
		return nil
	}
	s.discoverBox = nil
	return s.afterBoxChange(ctx)
}

func (s *Session) afterBoxChange(ctx context.Context) error {
	if s.view.Kind == nav.ViewTree && s.view.Mode == craft.ModeDiscover {
		next := s.view.Clone()
		next.DiscoverBox = append([]string(nil), s.discoverBox...)
		if err := s.build(next); err != nil {
			return err
		}
	}
	return s.persist(ctx)
}

// ─────────────────────────────────────────────────────────────────────────
// Camera actions
// ─────────────────────────────────────────────────────────────────────────

// ResetView retargets the camera to frame the whole tree.
func (s *Session) ResetView() error {
	if err := s.requireTree(); err != nil {
		return err
	}
	s.cam.SetTarget(s.cam.FitBounds(s.layout.Width, s.layout.Height))
	return nil
}

// FocusNode frames a node's subtree. Usage trees pin the region's bottom
// edge since consumers stack away from the root.
func (s *Session) FocusNode(nodeID int) error {
	if err := s.requireTree(); err != nil {
		return err
	}
	n, ok := s.tr.Node(nodeID)
	if !ok {
		return fmt.Errorf("unknown node %d", nodeID)
	}
	minX, minY, maxX, maxY, any := s.subtreeExtent(n)
	if !any {
		return nil
	}
	pinBottom := s.view.Mode == craft.ModeUsage
	s.cam.SetTarget(s.cam.FocusBounds(minX, minY, maxX-minX, maxY-minY, pinBottom))
	return nil
}

func (s *Session) subtreeExtent(n *tree.Node) (minX, minY, maxX, maxY float64, any bool) {
	var walk func(id int)
	walk = func(id int) {
		node, ok := s.tr.Node(id)
		if !ok {
			return
		}
		loc, ok := s.layout.Nodes[node.ID]
		if ok {
			halfW := loc.W / 2
			x0, y0 := loc.X-halfW, loc.Y-halfW
			x1, y1 := loc.X+halfW, loc.Y+halfW
			if !any {
				minX, minY, maxX, maxY = x0, y0, x1, y1
				any = true
			} else {
				minX, minY = min(minX, x0), min(minY, y0)
				maxX, maxY = max(maxX, x1), max(maxY, y1)
			}
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(n.ID)
	return
}

// ─────────────────────────────────────────────────────────────────────────
// Queries and persistence
// ─────────────────────────────────────────────────────────────────────────

// Search proxies catalog search for this session's client.
func (s *Session) Search(query string, limit int) []catalog.SearchHit {
	return s.app.Search(query, limit)
}

// Categories lists the catalog's categories.
func (s *Session) Categories() []string { return s.app.Catalog().Categories() }

// CategoryItems lists a category's items in grid order.
func (s *Session) CategoryItems(category string) []*craft.ItemRecord {
	return s.app.Catalog().ItemsInCategory(category)
}

// persist writes the session's durable state through the store in one
// transaction.
func (s *Session) persist(ctx context.Context) error {
	expanded := make([]string, 0, len(s.expanded))
	for id := range s.expanded {
		expanded = append(expanded, id)
	}
	return s.app.store.SaveState(ctx, s.ID, store.SessionState{
		Collected:     s.collected.IDs(),
		Expanded:      expanded,
		DiscoverBox:   s.discoverBox,
		RecipeIndices: s.selected,
	})
}
