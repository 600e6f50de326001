package tree

import "crafttree/pkg/craft"

// CollectedSet is the session's collected-item ids.
type CollectedSet map[string]bool

// IDs returns the set as a slice, for persistence.
func (s CollectedSet) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// SetCollected marks or unmarks a node's item and cascades the change
// through the recipe graph.
//
// Collecting in a recipe tree cascades downward: every ingredient of the
// item's currently selected recipe that resolves to a concrete id is
// collected too, recursively, with a per-call visited set bounding cycles.
// Usage and discover trees mark only the item itself; their nodes descend
// toward consumers, not inputs, so a downward walk would collect items the
// player never touched. Uncollecting never cascades downward; having
// crafted the parent says nothing about whether the ingredients are still
// on hand.
//
// Upward, ancestors along the mounted path are recomputed: an ancestor
// whose selected recipe now has every resolvable ingredient collected is
// collected itself, and one that no longer does is uncollected. The walk
// stops at the first ancestor whose state did not change.
func (t *Tree) SetCollected(set CollectedSet, nodeID int, value bool, upward bool) {
	n, ok := t.nodes[nodeID]
	if !ok || n.Kind != NodeItem {
		return
	}

	switch {
	case value && t.Mode == craft.ModeRecipe:
		t.cascadeDown(set, n.ItemID, make(map[string]bool))
	case value:
		set[n.ItemID] = true
	default:
		delete(set, n.ItemID)
	}

	if upward {
		t.cascadeUp(set, n)
	}
}

func (t *Tree) cascadeDown(set CollectedSet, itemID string, visited map[string]bool) {
	if visited[itemID] {
		return
	}
	visited[itemID] = true
	set[itemID] = true

	item, ok := t.resolver.Catalog().Item(itemID)
	if !ok {
		return
	}
	recipe, _ := t.resolver.SelectedRecipe(item, t.Selected)
	if recipe == nil {
		return
	}
	for _, ing := range recipe.Ingredients {
		if t.resolver.Groups().IsGroupLabel(ing.Name) {
			continue
		}
		if id, ok := t.resolver.Catalog().ResolveIngredient(ing); ok {
			t.cascadeDown(set, id, visited)
		}
	}
}

func (t *Tree) cascadeUp(set CollectedSet, n *Node) {
	for parent := n.Parent; parent >= 0; {
		p, ok := t.nodes[parent]
		if !ok {
			return
		}
		if p.Kind != NodeItem {
			return
		}
		want, decidable := t.ingredientsCollected(set, p.ItemID)
		if !decidable || set[p.ItemID] == want {
			return
		}
		if want {
			set[p.ItemID] = true
		} else {
			delete(set, p.ItemID)
		}
		parent = p.Parent
	}
}

// ingredientsCollected reports whether every resolvable ingredient of the
// item's selected recipe is collected. Group labels don't name a concrete
// item and are skipped. decidable is false when the item has no usable
// recipe, in which case callers must not infer anything.
func (t *Tree) ingredientsCollected(set CollectedSet, itemID string) (all bool, decidable bool) {
	item, ok := t.resolver.Catalog().Item(itemID)
	if !ok {
		return false, false
	}
	recipe, _ := t.resolver.SelectedRecipe(item, t.Selected)
	if recipe == nil {
		return false, false
	}

	checked := 0
	for _, ing := range recipe.Ingredients {
		if t.resolver.Groups().IsGroupLabel(ing.Name) {
			continue
		}
		id, ok := t.resolver.Catalog().ResolveIngredient(ing)
		if !ok {
			continue
		}
		checked++
		if !set[id] {
			return false, true
		}
	}
	if checked == 0 {
		return false, false
	}
	return true, true
}
