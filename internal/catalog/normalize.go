package catalog

import (
	"fmt"

	"github.com/tidwall/gjson"

	"crafttree/pkg/craft"
)

// Two export schemas coexist in the wild: the legacy scraper output with flat
// lowercase fields and nested crafting/acquisition objects, and the current
// exporter output with capitalised fields and a nested Stats object. Both are
// normalized into craft.ItemRecord here; nothing downstream branches on field
// presence.

// Normalize parses a raw JSON document (either a list of item records or an
// object keyed by id) and returns the canonical item map.
func Normalize(data []byte) (map[string]*craft.ItemRecord, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parsing item database: not valid JSON")
	}

	root := gjson.ParseBytes(data)
	items := make(map[string]*craft.ItemRecord)

	add := func(_, v gjson.Result) bool {
		if rec := normalizeItem(v); rec != nil && rec.ID != "" {
			items[rec.ID] = rec
		}
		return true
	}

	if root.IsArray() || root.IsObject() {
		root.ForEach(add)
	} else {
		return nil, fmt.Errorf("parsing item database: expected array or object, got %s", root.Type)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("parsing item database: no usable item records")
	}

	return items, nil
}

func normalizeItem(v gjson.Result) *craft.ItemRecord {
	if !v.IsObject() {
		return nil
	}
	if !v.Get("ID").Exists() && v.Get("id").Exists() {
		return normalizeLegacyItem(v)
	}
	return normalizeCurrentItem(v)
}

// normalizeCurrentItem handles the exporter schema (capitalised fields,
// nested Stats).
func normalizeCurrentItem(v gjson.Result) *craft.ItemRecord {
	rec := &craft.ItemRecord{
		ID:           v.Get("ID").String(),
		InternalName: v.Get("InternalName").String(),
		DisplayName:  stringOr(v.Get("DisplayName"), "Unknown"),
		ModSource:    stringOr(v.Get("ModSource"), "Vanilla"),
		Category:     stringOr(v.Get("Category"), "Unknown"),
		Tooltip:      v.Get("Tooltip").String(),
		WikiURL:      v.Get("WikiUrl").String(),
		IconURL:      v.Get("IconUrl").String(),
		Hardmode:     v.Get("IsHardmode").Bool(),
	}

	if stats := v.Get("Stats"); stats.IsObject() {
		rec.Stats = &craft.ItemStats{
			Damage:      intOr(stats.Get("Damage"), -1),
			DamageClass: stats.Get("DamageClass").String(),
			Knockback:   stats.Get("Knockback").Float(),
			CritChance:  int(stats.Get("CritChance").Int()),
			UseTime:     int(stats.Get("UseTime").Int()),
			Velocity:    stats.Get("Velocity").Float(),
			Defense:     int(stats.Get("Defense").Int()),
			Rarity:      int(stats.Get("Rarity").Int()),
			SellValue:   int(stats.Get("Value.Raw").Int()),
		}
	}

	v.Get("Recipes").ForEach(func(_, r gjson.Result) bool {
		recipe := craft.Recipe{
			IsTransmutation: r.Get("IsTransmutation").Bool(),
			Version:         r.Get("Version").String(),
		}
		r.Get("Stations").ForEach(func(_, s gjson.Result) bool {
			recipe.Stations = append(recipe.Stations, s.String())
			return true
		})
		r.Get("Conditions").ForEach(func(_, c gjson.Result) bool {
			recipe.Conditions = append(recipe.Conditions, c.String())
			return true
		})
		r.Get("Ingredients").ForEach(func(_, ing gjson.Result) bool {
			if name := ing.Get("Name").String(); name != "" {
				recipe.Ingredients = append(recipe.Ingredients, craft.Ingredient{
					RefID:  ing.Get("ID").String(),
					Name:   name,
					Amount: amountOr(ing.Get("Amount"), 1),
				})
			}
			return true
		})
		rec.Recipes = append(rec.Recipes, recipe)
		return true
	})

	v.Get("ObtainedFromDrops").ForEach(func(_, d gjson.Result) bool {
		rec.Drops = append(rec.Drops, craft.DropSource{
			Source:     d.Get("SourceNPC_Name").String(),
			DropChance: d.Get("DropChance").String(),
		})
		return true
	})

	return rec
}

// normalizeLegacyItem handles the scraper schema (flat lowercase fields,
// nested crafting/acquisition objects).
func normalizeLegacyItem(v gjson.Result) *craft.ItemRecord {
	name := stringOr(v.Get("name"), "Unknown")

	tooltip := v.Get("description").String()
	if tooltip == "N/A" {
		tooltip = ""
	}

	rec := &craft.ItemRecord{
		ID:          v.Get("id").String(),
		DisplayName: name,
		ModSource:   "Vanilla",
		Category:    stringOr(v.Get("specific_type"), "Unknown"),
		Tooltip:     tooltip,
		WikiURL:     v.Get("url").String(),
		IconURL:     v.Get("image_url").String(),
		Hardmode:    v.Get("hardmode").Bool(),
	}

	if stats := v.Get("stats"); stats.IsObject() {
		rec.Stats = &craft.ItemStats{
			Damage:      intOr(stats.Get("damage"), -1),
			DamageClass: stringOr(v.Get("damage_class"), "Unknown"),
			Knockback:   stats.Get("knockback").Float(),
			UseTime:     intOr(stats.Get("usetime"), 100),
			Velocity:    stats.Get("velocity").Float(),
			Defense:     int(stats.Get("defense").Int()),
			Rarity:      int(stats.Get("rarity").Int()),
			SellValue:   int(stats.Get("sell").Int()),
		}
	}

	v.Get("crafting.recipes").ForEach(func(_, r gjson.Result) bool {
		recipe := craft.Recipe{
			IsTransmutation: r.Get("transmutation").Bool(),
			Version:         r.Get("version").String(),
		}
		if station := r.Get("station").String(); station != "" {
			recipe.Stations = []string{station}
		}
		r.Get("ingredients").ForEach(func(_, ing gjson.Result) bool {
			if ingName := ing.Get("name").String(); ingName != "" {
				recipe.Ingredients = append(recipe.Ingredients, craft.Ingredient{
					RefID:  ing.Get("id").String(),
					Name:   ingName,
					Amount: amountOr(ing.Get("amount"), 1),
				})
			}
			return true
		})
		rec.Recipes = append(rec.Recipes, recipe)
		return true
	})

	v.Get("acquisition").ForEach(func(_, a gjson.Result) bool {
		rec.Drops = append(rec.Drops, craft.DropSource{
			Source:     a.Get("source").String(),
			DropChance: a.Get("rate").String(),
		})
		return true
	})

	return rec
}

func stringOr(r gjson.Result, fallback string) string {
	if s := r.String(); s != "" {
		return s
	}
	return fallback
}

func intOr(r gjson.Result, fallback int) int {
	if !r.Exists() {
		return fallback
	}
	return int(r.Int())
}

func amountOr(r gjson.Result, fallback int) int {
	if n := int(r.Int()); n > 0 {
		return n
	}
	return fallback
}
