package graph

import (
	"sort"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"crafttree/pkg/craft"
)

// Discoverable is an item craftable using everything in the discover box.
type Discoverable struct {
	ID     string
	Recipe int // recipe index within the item; first qualifying wins
}

// DiscoverableItems returns every item with at least one recipe whose
// ingredient set, after expanding group labels into member names, is a
// superset of the discover box's item display names. Results are sorted by
// display name. The scan walks the whole catalog, so results are cached by
// box signature until the resolver is rebuilt or the entry expires.
func (r *Resolver) DiscoverableItems(box []string) []Discoverable {
	if len(box) == 0 {
		return nil
	}

	boxNames := make([]string, 0, len(box))
	for _, id := range box {
		if name := r.cat.DisplayName(id); name != "" {
			boxNames = append(boxNames, strings.ToLower(name))
		}
	}
	if len(boxNames) == 0 {
		return nil
	}

	key := r.discoverKey(box)
	if cached, ok := r.discoverCache.Get(key); ok {
		return cached.([]Discoverable)
	}

	var out []Discoverable
	for _, itemID := range r.cat.IDs() {
		item, _ := r.cat.Item(itemID)
		for ri := range item.Recipes {
			recipe := &item.Recipes[ri]
			if recipe.IsTransmutation && !r.ShowTransmutations {
				continue
			}
			if r.recipeCovers(recipe.Ingredients, boxNames) {
				out = append(out, Discoverable{ID: itemID, Recipe: ri})
				break
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(r.cat.DisplayName(out[i].ID)) < strings.ToLower(r.cat.DisplayName(out[j].ID))
	})

	r.discoverCache.Set(key, out, gocache.DefaultExpiration)
	return out
}

// recipeCovers reports whether every box name is satisfied by some
// ingredient, either directly or as a member of an ingredient group.
func (r *Resolver) recipeCovers(ingredients []craft.Ingredient, boxNames []string) bool {
	for _, boxName := range boxNames {
		found := false
		for _, ing := range ingredients {
			ingLower := strings.ToLower(ing.Name)
			if ingLower == boxName {
				found = true
				break
			}
			if strings.HasPrefix(ingLower, "any ") {
				if _, members, ok := r.groups.Lookup(ing.Name); ok {
					for _, m := range members {
						if strings.ToLower(m) == boxName {
							found = true
							break
						}
					}
				}
			}
			if found {
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *Resolver) discoverKey(box []string) string {
	key := strings.Join(box, "\x00")
	if r.ShowTransmutations {
		key += "\x00+transmute"
	}
	return key
}
