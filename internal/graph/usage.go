// Package graph resolves crafting-graph edges: the usage index, the
// per-mode child resolver, and the discover combinator.
package graph

import (
	"strings"

	"crafttree/internal/catalog"
	"crafttree/pkg/craft"
)

// UsageEntry records one consumer of an ingredient name.
type UsageEntry struct {
	ConsumerID string
	Amount     int
	Recipe     *craft.Recipe
	// ViaGroup is the group label when the consumer's recipe listed a group
	// rather than this concrete member. Empty for direct use.
	ViaGroup string
}

// UsageIndex is the inverted ingredient index: lower-cased ingredient or
// group-member name -> consumers. It is mode-agnostic and includes
// transmutation recipes; filtering happens at query time.
type UsageIndex map[string][]UsageEntry

// BuildUsageIndex builds the index fresh from the full catalog. It replaces
// any previous index wholesale; there is no incremental update path.
//
// Each ingredient produces one entry under its own name. When the name is a
// known group label, one additional entry is produced under every member
// name, tagged with the group. Malformed ingredients are skipped silently.
func BuildUsageIndex(cat *catalog.Catalog, groups craft.GroupTable) UsageIndex {
	index := make(UsageIndex)

	add := func(targetName, consumerID string, amount int, recipe *craft.Recipe, viaGroup string) {
		if targetName == "" {
			return
		}
		key := strings.ToLower(targetName)
		index[key] = append(index[key], UsageEntry{
			ConsumerID: consumerID,
			Amount:     amount,
			Recipe:     recipe,
			ViaGroup:   viaGroup,
		})
	}

	for _, id := range cat.IDs() {
		rec, _ := cat.Item(id)
		for ri := range rec.Recipes {
			recipe := &rec.Recipes[ri]
			for _, ing := range recipe.Ingredients {
				add(ing.Name, id, ing.Amount, recipe, "")
				if label, members, ok := groups.Lookup(ing.Name); ok {
					for _, member := range members {
						add(member, id, ing.Amount, recipe, label)
					}
				}
			}
		}
	}

	return index
}
