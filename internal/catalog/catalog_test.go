package catalog

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"crafttree/pkg/craft"
)

const currentExport = `{
	"CopperSword": {
		"ID": "CopperSword",
		"DisplayName": "Copper Sword",
		"ModSource": "Vanilla",
		"Category": "Melee Weapons",
		"Hardmode": false,
		"Stats": {"Damage": 8, "DamageClass": "Melee", "UseTime": 23, "Rarity": "White"},
		"Recipes": [{
			"Stations": ["Anvil"],
			"Ingredients": [
				{"ID": "CopperBar", "Name": "Copper Bar", "Amount": 8},
				{"Name": "Any Wood", "Amount": 1}
			]
		}],
		"ObtainedFromDrops": [{"SourceNPC_Name": "Supply Crate", "DropChance": "2%"}]
	},
	"CopperBar": {
		"ID": "CopperBar",
		"DisplayName": "Copper Bar",
		"Category": "Materials",
		"Recipes": [{
			"Stations": ["Furnace"],
			"Ingredients": [{"ID": "CopperOre", "Name": "Copper Ore", "Amount": 3}]
		}]
	}
}`

const legacyExport = `{
	"copper_shortsword": {
		"id": "copper_shortsword",
		"name": "Copper Shortsword",
		"specific_type": "Melee Weapons",
		"description": "N/A",
		"stats": {"damage": 5, "usetime": 20},
		"crafting": {
			"recipes": [{
				"station": "Anvil",
				"ingredients": [{"id": "copper_bar", "name": "Copper Bar", "amount": 7}]
			}]
		},
		"acquisition": [{"source": "Crafting", "rate": ""}]
	}
}`

func TestNormalizeCurrentSchema(t *testing.T) {
	items, err := Normalize([]byte(currentExport))
	if err != nil {
		t.Fatalf("normalizing: %v", err)
	}
	sword, ok := items["CopperSword"]
	if !ok {
		t.Fatal("sword missing")
	}
	if sword.DisplayName != "Copper Sword" || sword.Category != "Melee Weapons" {
		t.Errorf("sword = %+v", sword)
	}
	if sword.Stats == nil || sword.Stats.Damage != 8 {
		t.Errorf("stats = %+v, want damage 8", sword.Stats)
	}
	if len(sword.Recipes) != 1 {
		t.Fatalf("recipes = %d, want 1", len(sword.Recipes))
	}
	recipe := sword.Recipes[0]
	if len(recipe.Ingredients) != 2 || recipe.Ingredients[0].RefID != "CopperBar" || recipe.Ingredients[0].Amount != 8 {
		t.Errorf("ingredients = %+v", recipe.Ingredients)
	}
	if recipe.Ingredients[1].Name != "Any Wood" {
		t.Errorf("group slot = %+v", recipe.Ingredients[1])
	}
	if len(sword.Drops) != 1 || sword.Drops[0].Source != "Supply Crate" {
		t.Errorf("drops = %+v", sword.Drops)
	}
}

func TestNormalizeLegacySchema(t *testing.T) {
	items, err := Normalize([]byte(legacyExport))
	if err != nil {
		t.Fatalf("normalizing: %v", err)
	}
	sword, ok := items["copper_shortsword"]
	if !ok {
		t.Fatal("shortsword missing")
	}
	if sword.DisplayName != "Copper Shortsword" || sword.Category != "Melee Weapons" {
		t.Errorf("item = %+v", sword)
	}
	if sword.Tooltip != "" {
		t.Errorf("tooltip = %q, N/A should normalize to empty", sword.Tooltip)
	}
	if sword.Stats == nil || sword.Stats.Damage != 5 || sword.Stats.UseTime != 20 {
		t.Errorf("stats = %+v", sword.Stats)
	}
	if len(sword.Recipes) != 1 || len(sword.Recipes[0].Ingredients) != 1 {
		t.Fatalf("recipes = %+v", sword.Recipes)
	}
	if got := sword.Recipes[0].Ingredients[0]; got.RefID != "copper_bar" || got.Amount != 7 {
		t.Errorf("ingredient = %+v", got)
	}
	if len(sword.Recipes[0].Stations) != 1 || sword.Recipes[0].Stations[0] != "Anvil" {
		t.Errorf("stations = %v", sword.Recipes[0].Stations)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	if _, err := Normalize([]byte("not json at all")); err == nil {
		t.Error("garbage input should error")
	}
	if _, err := Normalize([]byte(`[1,2,3]`)); err == nil {
		t.Error("non-object input should error")
	}
}

func TestLoadAnyFallbackChain(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "items.json")
	if err := os.WriteFile(good, []byte(currentExport), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(bad, []byte("{{{"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	c, source, err := LoadAny(context.Background(), logger, filepath.Join(dir, "missing.json"), bad, good)
	if err != nil {
		t.Fatalf("chain with one good source should load: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("items = %d, want 2", c.Len())
	}
	if source != good {
		t.Errorf("source = %q, want the path that loaded", source)
	}

	_, _, err = LoadAny(context.Background(), logger, filepath.Join(dir, "missing.json"), bad)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("error = %v, want ErrNoData when every source fails", err)
	}
}

func TestResolveIngredient(t *testing.T) {
	c, err := Load([]byte(currentExport))
	if err != nil {
		t.Fatal(err)
	}

	// Ref id wins when it exists.
	if id, ok := c.ResolveIngredient(craft.Ingredient{RefID: "CopperBar", Name: "wrong"}); !ok || id != "CopperBar" {
		t.Errorf("by ref = %q, %v", id, ok)
	}
	// Stale ref falls back to the name.
	if id, ok := c.ResolveIngredient(craft.Ingredient{RefID: "Gone", Name: "copper bar"}); !ok || id != "CopperBar" {
		t.Errorf("by name = %q, %v", id, ok)
	}
	if _, ok := c.ResolveIngredient(craft.Ingredient{Name: "Any Wood"}); ok {
		t.Error("unresolvable names must report false")
	}
}

func TestCategoryOrdering(t *testing.T) {
	items := map[string]*craft.ItemRecord{
		"a": {ID: "a", DisplayName: "Axe", Category: "Tools", Stats: &craft.ItemStats{Damage: 9}},
		"b": {ID: "b", DisplayName: "Bow", Category: "Tools", Stats: &craft.ItemStats{Damage: 20}},
		"c": {ID: "c", DisplayName: "Chisel", Category: "Tools"},
		"d": {ID: "d", DisplayName: "Brush", Category: "Tools"},
	}
	c := New(items)

	got := c.ItemsInCategory("Tools")
	want := []string{"Bow", "Axe", "Brush", "Chisel"}
	if len(got) != len(want) {
		t.Fatalf("items = %d, want %d", len(got), len(want))
	}
	for i, rec := range got {
		if rec.DisplayName != want[i] {
			t.Errorf("position %d = %s, want %s", i, rec.DisplayName, want[i])
		}
	}
}

func TestSearchScoring(t *testing.T) {
	items := map[string]*craft.ItemRecord{
		"wood":       {ID: "wood", DisplayName: "Wood", Category: "Materials"},
		"wood-sword": {ID: "wood-sword", DisplayName: "Wooden Sword", Category: "Melee Weapons"},
		"boreal":     {ID: "boreal", DisplayName: "Boreal Wood", Category: "Materials"},
	}
	c := New(items)

	hits := c.Search("wood", 0)
	if len(hits) != 3 {
		t.Fatalf("hits = %d, want 3", len(hits))
	}
	if hits[0].ID != "wood" {
		t.Errorf("top hit = %s, exact match should rank first", hits[0].ID)
	}
	if hits[1].ID != "wood-sword" {
		t.Errorf("second hit = %s, prefix should outrank substring", hits[1].ID)
	}

	if got := c.Search("w", 0); got != nil {
		t.Error("single-character queries return nothing")
	}

	// Multi-token queries require every token to match.
	hits = c.Search("wood melee", 0)
	if len(hits) != 1 || hits[0].ID != "wood-sword" {
		t.Errorf("token-and query = %+v", hits)
	}
}

func TestSearchFuzzyFallback(t *testing.T) {
	items := map[string]*craft.ItemRecord{
		"wood": {ID: "wood", DisplayName: "Wood", Category: "Materials"},
	}
	c := New(items)

	hits := c.Search("wodo", 0)
	if len(hits) != 1 || hits[0].ID != "wood" {
		t.Errorf("fuzzy hits = %+v, want the near-miss", hits)
	}
}

func TestSearchLimit(t *testing.T) {
	items := make(map[string]*craft.ItemRecord)
	for _, name := range []string{
		"Wood", "Wooden Sword", "Wooden Bow", "Wooden Hammer", "Wood Wall",
		"Wood Platform", "Wooden Door", "Wooden Chair", "Wooden Table",
		"Wooden Fence", "Wood Helmet", "Wood Breastplate", "Wood Greaves",
		"Woodlands Banner", "Wooden Boomerang", "Wooden Yoyo", "Wooden Arrow",
	} {
		id := name
		items[id] = &craft.ItemRecord{ID: id, DisplayName: name, Category: "Misc"}
	}
	c := New(items)

	if got := len(c.Search("wood", 0)); got != defaultSearchLimit {
		t.Errorf("hits = %d, want the default cap %d", got, defaultSearchLimit)
	}
	if got := len(c.Search("wood", 5)); got != 5 {
		t.Errorf("hits = %d, want the explicit cap 5", got)
	}
}
