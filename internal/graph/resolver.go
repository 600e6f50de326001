package graph

import (
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"crafttree/internal/catalog"
	"crafttree/pkg/craft"
)

// ChildKind distinguishes the visual node a resolved child produces.
type ChildKind int

const (
	// ChildItem is a concrete item backed by a catalog record.
	ChildItem ChildKind = iota
	// ChildGroup is an any-of-N ingredient group, rendered as a single
	// node carrying the full member list.
	ChildGroup
	// ChildPlaceholder is an ingredient that resolved to nothing: rendered
	// unlinked with only name and amount.
	ChildPlaceholder
)

// Child is one immediate child of a tree node as decided by the resolver.
type Child struct {
	Kind     ChildKind
	ItemID   string // set for ChildItem
	Name     string // display name, group label, or placeholder name
	Amount   int
	ViaGroup string        // usage mode: group label the consumer used
	Members  []string      // ChildGroup: concrete member names
	Recipe   *craft.Recipe // usage/discover: the consuming recipe, for context
}

// Resolver answers "children of item X in mode M" over an immutable catalog
// snapshot. All methods are pure and reentrant-safe; the only mutable state
// is the discover-result cache, which is safe for single-threaded use and
// flushed when a new Resolver is built.
type Resolver struct {
	cat    *catalog.Catalog
	usage  UsageIndex
	groups craft.GroupTable

	// ShowTransmutations includes transmutation-flagged recipes in
	// traversal when set. Off by default.
	ShowTransmutations bool

	discoverCache *gocache.Cache
}

// NewResolver builds a Resolver for a catalog snapshot. The usage index is
// built fresh here so it can never be stale relative to the catalog.
func NewResolver(cat *catalog.Catalog, groups craft.GroupTable) *Resolver {
	return &Resolver{
		cat:           cat,
		usage:         BuildUsageIndex(cat, groups),
		groups:        groups,
		discoverCache: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// WithTransmutations returns a resolver view with the transmutation filter
// set. The catalog, usage index, and group table are shared; the discover
// cache is fresh because cached results depend on the flag.
func (r *Resolver) WithTransmutations(show bool) *Resolver {
	if show == r.ShowTransmutations {
		return r
	}
	return &Resolver{
		cat:                r.cat,
		usage:              r.usage,
		groups:             r.groups,
		ShowTransmutations: show,
		discoverCache:      gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// Catalog returns the underlying catalog snapshot.
func (r *Resolver) Catalog() *catalog.Catalog { return r.cat }

// Groups returns the ingredient group table.
func (r *Resolver) Groups() craft.GroupTable { return r.groups }

// Usage returns the inverted ingredient index.
func (r *Resolver) Usage() UsageIndex { return r.usage }

// ValidRecipes returns the item's recipes surviving the transmutation
// filter, preserving order.
func (r *Resolver) ValidRecipes(item *craft.ItemRecord) []*craft.Recipe {
	var out []*craft.Recipe
	for i := range item.Recipes {
		if item.Recipes[i].IsTransmutation && !r.ShowTransmutations {
			continue
		}
		out = append(out, &item.Recipes[i])
	}
	return out
}

// SelectedRecipe picks the recipe at the session-selected index for an item,
// clamping to the valid range. The clamp matters whenever the transmutation
// filter changes the candidate count under a stale selection.
func (r *Resolver) SelectedRecipe(item *craft.ItemRecord, selected map[string]int) (*craft.Recipe, int) {
	valid := r.ValidRecipes(item)
	if len(valid) == 0 {
		return nil, 0
	}
	idx := 0
	if selected != nil {
		idx = selected[item.ID]
	}
	if idx < 0 || idx >= len(valid) {
		idx = 0
	}
	return valid[idx], idx
}

// SmartRecipeIndex picks a sensible default recipe for an item when the
// session has no explicit selection: prefer non-transmutation recipes, then
// non-legacy ones, then the recipe with the most ingredients, ties broken by
// the lowest total ingredient amount. Returns -1 when nothing qualifies.
func (r *Resolver) SmartRecipeIndex(item *craft.ItemRecord) int {
	valid := r.ValidRecipes(item)
	if len(valid) == 0 {
		return -1
	}

	pool := valid
	if modern := filterRecipes(pool, func(rc *craft.Recipe) bool { return rc.Version != "Legacy" }); len(modern) > 0 {
		pool = modern
	}
	if normal := filterRecipes(pool, func(rc *craft.Recipe) bool { return !rc.IsTransmutation }); len(normal) > 0 {
		pool = normal
	}

	best := pool[0]
	for _, cand := range pool[1:] {
		switch {
		case len(cand.Ingredients) > len(best.Ingredients):
			best = cand
		case len(cand.Ingredients) == len(best.Ingredients) && totalAmount(cand) < totalAmount(best):
			best = cand
		}
	}
	for i, rc := range valid {
		if rc == best {
			return i
		}
	}
	return 0
}

func filterRecipes(in []*craft.Recipe, keep func(*craft.Recipe) bool) []*craft.Recipe {
	var out []*craft.Recipe
	for _, rc := range in {
		if keep(rc) {
			out = append(out, rc)
		}
	}
	return out
}

func totalAmount(rc *craft.Recipe) int {
	total := 0
	for _, ing := range rc.Ingredients {
		total += ing.Amount
	}
	return total
}

// ChildrenOf returns the immediate children of an item in the given mode.
// The visited set is the id chain from the tree root to (and excluding) this
// item; an id already on its own ancestor path is a leaf for that branch.
// Visited sets are per-path, never global: the same id may appear in two
// sibling branches.
func (r *Resolver) ChildrenOf(itemID string, mode craft.Mode, visited map[string]bool, selected map[string]int) []Child {
	item, ok := r.cat.Item(itemID)
	if !ok {
		return nil
	}
	if visited[itemID] {
		return nil
	}

	switch mode {
	case craft.ModeRecipe:
		return r.recipeChildren(item, selected)
	case craft.ModeUsage, craft.ModeDiscover:
		return r.usageChildren(item)
	default:
		return nil
	}
}

// recipeChildren returns the selected recipe's ingredients in recipe order.
// Order is meaningful to the player and must not be re-sorted.
func (r *Resolver) recipeChildren(item *craft.ItemRecord, selected map[string]int) []Child {
	recipe, _ := r.SelectedRecipe(item, selected)
	if recipe == nil {
		return nil
	}

	children := make([]Child, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		if ing.Name == "" {
			continue
		}
		if r.groups.IsGroupLabel(ing.Name) {
			children = append(children, Child{
				Kind:    ChildGroup,
				Name:    ing.Name,
				Amount:  ing.Amount,
				Members: r.groups.Members(ing.Name),
			})
			continue
		}
		if id, ok := r.cat.ResolveIngredient(ing); ok {
			children = append(children, Child{
				Kind:   ChildItem,
				ItemID: id,
				Name:   r.cat.DisplayName(id),
				Amount: ing.Amount,
			})
			continue
		}
		children = append(children, Child{
			Kind:   ChildPlaceholder,
			Name:   ing.Name,
			Amount: ing.Amount,
		})
	}
	return children
}

// usageChildren returns the consumers of an item, deduplicated by consumer
// id (first occurrence wins) and sorted by consumer display name.
func (r *Resolver) usageChildren(item *craft.ItemRecord) []Child {
	entries := r.usage[strings.ToLower(item.DisplayName)]

	seen := make(map[string]bool)
	var children []Child
	for _, e := range entries {
		if e.Recipe.IsTransmutation && !r.ShowTransmutations {
			continue
		}
		if seen[e.ConsumerID] {
			continue
		}
		seen[e.ConsumerID] = true
		children = append(children, Child{
			Kind:     ChildItem,
			ItemID:   e.ConsumerID,
			Name:     r.cat.DisplayName(e.ConsumerID),
			Amount:   e.Amount,
			ViaGroup: e.ViaGroup,
			Recipe:   e.Recipe,
		})
	}

	sort.SliceStable(children, func(i, j int) bool {
		return strings.ToLower(children[i].Name) < strings.ToLower(children[j].Name)
	})
	return children
}
