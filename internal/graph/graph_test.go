package graph

import (
	"testing"

	"crafttree/internal/catalog"
	"crafttree/pkg/craft"
)

func fixtureResolver() *Resolver {
	items := map[string]*craft.ItemRecord{
		"sword": {
			ID: "sword", DisplayName: "Copper Sword", Category: "Melee Weapons",
			Recipes: []craft.Recipe{{
				Stations: []string{"Anvil"},
				Ingredients: []craft.Ingredient{
					{RefID: "bar", Name: "Copper Bar", Amount: 8},
					{Name: "Any Wood", Amount: 1},
				},
			}},
		},
		"torch": {
			ID: "torch", DisplayName: "Torch", Category: "Furniture",
			Recipes: []craft.Recipe{{
				Ingredients: []craft.Ingredient{
					{RefID: "gel", Name: "Gel", Amount: 1},
					{RefID: "wood", Name: "Wood", Amount: 1},
				},
			}},
		},
		"campfire": {
			ID: "campfire", DisplayName: "Campfire", Category: "Furniture",
			Recipes: []craft.Recipe{
				{
					Ingredients: []craft.Ingredient{
						{Name: "Any Wood", Amount: 10},
						{RefID: "torch", Name: "Torch", Amount: 5},
					},
				},
				{
					Ingredients:     []craft.Ingredient{{RefID: "gel", Name: "Gel", Amount: 20}},
					IsTransmutation: true,
				},
			},
		},
		"bar": {
			ID: "bar", DisplayName: "Copper Bar", Category: "Materials",
			Recipes: []craft.Recipe{{
				Ingredients: []craft.Ingredient{{RefID: "ore", Name: "Copper Ore", Amount: 3}},
			}},
		},
		"ore":    {ID: "ore", DisplayName: "Copper Ore", Category: "Materials"},
		"gel":    {ID: "gel", DisplayName: "Gel", Category: "Materials"},
		"wood":   {ID: "wood", DisplayName: "Wood", Category: "Materials"},
		"boreal": {ID: "boreal", DisplayName: "Boreal Wood", Category: "Materials"},
	}
	return NewResolver(catalog.New(items), craft.DefaultGroups())
}

func TestUsageIndexCrossesGroups(t *testing.T) {
	r := fixtureResolver()

	// Boreal Wood is never a direct ingredient, but Any Wood slots reach it.
	entries := r.Usage()["boreal wood"]
	if len(entries) == 0 {
		t.Fatal("group members should be indexed")
	}
	for _, e := range entries {
		if e.ViaGroup != "Any Wood" {
			t.Errorf("via group = %q, want Any Wood", e.ViaGroup)
		}
	}

	// Wood gets both the direct torch use and group-mediated uses.
	var direct, viaGroup int
	for _, e := range r.Usage()["wood"] {
		if e.ViaGroup == "" {
			direct++
		} else {
			viaGroup++
		}
	}
	if direct == 0 || viaGroup == 0 {
		t.Errorf("wood entries: direct %d, via group %d, want both", direct, viaGroup)
	}
}

func TestUsageChildrenSortedAndDeduplicated(t *testing.T) {
	r := fixtureResolver()

	children := r.ChildrenOf("wood", craft.ModeUsage, nil, nil)
	if len(children) == 0 {
		t.Fatal("wood has consumers")
	}
	seen := map[string]bool{}
	for i, c := range children {
		if seen[c.ItemID] {
			t.Errorf("consumer %s appears twice", c.ItemID)
		}
		seen[c.ItemID] = true
		if i > 0 && children[i-1].Name > c.Name {
			t.Errorf("consumers out of order: %s before %s", children[i-1].Name, c.Name)
		}
	}

	// Campfire consumes wood only through Any Wood; the transmutation
	// recipe does not surface with the filter off.
	var campfire *Child
	for i := range children {
		if children[i].ItemID == "campfire" {
			campfire = &children[i]
		}
	}
	if campfire == nil {
		t.Fatal("campfire should appear as a wood consumer")
	}
	if campfire.ViaGroup != "Any Wood" || campfire.Amount != 10 {
		t.Errorf("campfire entry = %+v", campfire)
	}
}

func TestRecipeChildrenPreserveOrderAndKinds(t *testing.T) {
	r := fixtureResolver()

	children := r.ChildrenOf("sword", craft.ModeRecipe, nil, nil)
	if len(children) != 2 {
		t.Fatalf("children = %d, want 2", len(children))
	}
	if children[0].Kind != ChildItem || children[0].ItemID != "bar" || children[0].Amount != 8 {
		t.Errorf("first child = %+v, want the bar in recipe order", children[0])
	}
	if children[1].Kind != ChildGroup || children[1].Name != "Any Wood" {
		t.Errorf("second child = %+v, want the group slot", children[1])
	}
	if len(children[1].Members) == 0 {
		t.Error("group child should carry members")
	}
}

func TestChildrenOfRespectsVisited(t *testing.T) {
	r := fixtureResolver()

	if got := r.ChildrenOf("sword", craft.ModeRecipe, map[string]bool{"sword": true}, nil); got != nil {
		t.Error("an id on its own path is a leaf")
	}
	if got := r.ChildrenOf("no-such", craft.ModeRecipe, nil, nil); got != nil {
		t.Error("unknown ids resolve to nothing")
	}
}

func TestTransmutationFilter(t *testing.T) {
	r := fixtureResolver()
	campfire, _ := r.Catalog().Item("campfire")

	if got := len(r.ValidRecipes(campfire)); got != 1 {
		t.Errorf("valid recipes = %d, want the transmutation hidden", got)
	}

	show := r.WithTransmutations(true)
	if got := len(show.ValidRecipes(campfire)); got != 2 {
		t.Errorf("valid recipes = %d, want both with the filter open", got)
	}

	// Gel's consumers include the transmutation only when shown.
	hidden := r.ChildrenOf("gel", craft.ModeUsage, nil, nil)
	shown := show.ChildrenOf("gel", craft.ModeUsage, nil, nil)
	if len(shown) <= len(hidden) {
		t.Errorf("consumers hidden %d, shown %d, want more when transmutations show", len(hidden), len(shown))
	}
}

func TestSelectedRecipeClamps(t *testing.T) {
	r := fixtureResolver()
	campfire, _ := r.Catalog().Item("campfire")

	// Index 1 was valid while transmutations showed; with the filter on it
	// clamps back to 0.
	recipe, idx := r.SelectedRecipe(campfire, map[string]int{"campfire": 1})
	if idx != 0 || recipe == nil || recipe.IsTransmutation {
		t.Errorf("selection = %d (%+v), want clamp to the surviving recipe", idx, recipe)
	}
}

func TestSmartRecipeIndex(t *testing.T) {
	items := map[string]*craft.ItemRecord{
		"thing": {
			ID: "thing", DisplayName: "Thing", Category: "Misc",
			Recipes: []craft.Recipe{
				{Ingredients: []craft.Ingredient{{Name: "A", Amount: 1}}, Version: "Legacy"},
				{Ingredients: []craft.Ingredient{{Name: "A", Amount: 5}}},
				{Ingredients: []craft.Ingredient{{Name: "A", Amount: 1}, {Name: "B", Amount: 1}}},
			},
		},
		"empty": {ID: "empty", DisplayName: "Empty", Category: "Misc"},
	}
	r := NewResolver(catalog.New(items), craft.DefaultGroups())

	thing, _ := r.Catalog().Item("thing")
	// Non-legacy recipes win; among them the one with more ingredients.
	if got := r.SmartRecipeIndex(thing); got != 2 {
		t.Errorf("smart index = %d, want 2", got)
	}

	empty, _ := r.Catalog().Item("empty")
	if got := r.SmartRecipeIndex(empty); got != -1 {
		t.Errorf("smart index for recipeless item = %d, want -1", got)
	}
}

func TestDiscoverableItems(t *testing.T) {
	r := fixtureResolver()

	// Gel and Wood together cover the torch recipe exactly.
	got := r.DiscoverableItems([]string{"gel", "wood"})
	if len(got) != 1 || got[0].ID != "torch" {
		t.Fatalf("discoverable = %+v, want just the torch", got)
	}

	// Boreal Wood never appears as a direct ingredient, but the campfire's
	// Any Wood slot accepts it. The torch's Wood slot names the concrete
	// item, so the torch stays out.
	got = r.DiscoverableItems([]string{"boreal"})
	if len(got) != 1 || got[0].ID != "campfire" {
		t.Errorf("discoverable = %+v, want the campfire via the group slot", got)
	}

	// Every box item must be used: gel plus boreal fits nothing, since no
	// single recipe uses both.
	if got := r.DiscoverableItems([]string{"gel", "boreal"}); len(got) != 0 {
		t.Errorf("discoverable = %+v, want none", got)
	}

	if got := r.DiscoverableItems(nil); got != nil {
		t.Error("empty box discovers nothing")
	}
}

func TestDiscoverableItemsCached(t *testing.T) {
	r := fixtureResolver()

	first := r.DiscoverableItems([]string{"gel", "wood"})
	second := r.DiscoverableItems([]string{"gel", "wood"})
	if len(first) != len(second) {
		t.Fatalf("cached result differs: %v vs %v", first, second)
	}
	// Same box under the transmutation flag is a different cache key.
	show := r.WithTransmutations(true)
	if got := show.DiscoverableItems([]string{"gel", "wood"}); len(got) == 0 {
		t.Error("flag-scoped lookup should still discover the torch")
	}
}
