// Package craft contains the core types for the crafting tree explorer.
package craft

import "strings"

// ============================================
// ITEM TYPES
// ============================================

// ItemRecord is one entry in the item database.
//
// IDs are opaque strings. Built-in content uses numeric-string ids while
// extension content uses "{source}_{name}" composites, so they must never be
// parsed or ordered numerically.
type ItemRecord struct {
	ID           string       `json:"id"`
	InternalName string       `json:"internal_name,omitempty"`
	DisplayName  string       `json:"display_name"`
	ModSource    string       `json:"mod_source,omitempty"`
	Category     string       `json:"category,omitempty"`
	Tooltip      string       `json:"tooltip,omitempty"`
	WikiURL      string       `json:"wiki_url,omitempty"`
	IconURL      string       `json:"icon_url,omitempty"`
	Hardmode     bool         `json:"hardmode,omitempty"`
	Stats        *ItemStats   `json:"stats,omitempty"`
	Recipes      []Recipe     `json:"recipes,omitempty"`
	Drops        []DropSource `json:"obtained_from_drops,omitempty"`
}

// ItemStats is display-only payload carried through from the export.
// The graph logic never reads anything here except Damage, which orders
// category views.
type ItemStats struct {
	Damage      int     `json:"damage,omitempty"`
	DamageClass string  `json:"damage_class,omitempty"`
	Knockback   float64 `json:"knockback,omitempty"`
	CritChance  int     `json:"crit_chance,omitempty"`
	UseTime     int     `json:"use_time,omitempty"`
	Velocity    float64 `json:"velocity,omitempty"`
	Defense     int     `json:"defense,omitempty"`
	Rarity      int     `json:"rarity,omitempty"`
	SellValue   int     `json:"sell_value,omitempty"`
}

// Recipe is one way to craft its owning item. Order within
// ItemRecord.Recipes is significant: the selectable "1/N" alternative index
// is session state keyed by item id.
type Recipe struct {
	Stations        []string     `json:"stations,omitempty"`
	Conditions      []string     `json:"conditions,omitempty"`
	Ingredients     []Ingredient `json:"ingredients"`
	IsTransmutation bool         `json:"is_transmutation,omitempty"`
	Version         string       `json:"version,omitempty"`
}

// Ingredient is a quantity requirement within a Recipe. RefID may be absent
// or stale; resolution falls back to a case-insensitive name lookup. Name may
// be an ingredient-group label rather than a concrete item.
type Ingredient struct {
	RefID  string `json:"ref_id,omitempty"`
	Name   string `json:"name"`
	Amount int    `json:"amount"`
}

// DropSource records a non-crafting acquisition path. Informational only;
// never traversed by the graph resolver.
type DropSource struct {
	Source     string   `json:"source"`
	DropChance string   `json:"drop_chance,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
}

// ============================================
// TRAVERSAL MODES
// ============================================

// Mode selects the traversal direction of a tree view.
type Mode string

const (
	// ModeRecipe shows an item's ingredients (dependencies downward).
	ModeRecipe Mode = "recipe"
	// ModeUsage shows what consumes an item (dependents upward).
	ModeUsage Mode = "usage"
	// ModeDiscover roots the tree at a user-curated discover box.
	ModeDiscover Mode = "discover"
)

// ValidModes returns all valid traversal modes.
func ValidModes() []Mode {
	return []Mode{ModeRecipe, ModeUsage, ModeDiscover}
}

// IsValid checks if the mode is a known traversal mode.
func (m Mode) IsValid() bool {
	for _, valid := range ValidModes() {
		if m == valid {
			return true
		}
	}
	return false
}

// ============================================
// INGREDIENT GROUPS
// ============================================

// GroupTable maps an ingredient-group label (e.g. "Any Wood") to its
// interchangeable member item names. Static data, not derived from the
// item database.
type GroupTable map[string][]string

// Lookup finds a group by label, case-insensitively. Returns the canonical
// label and its members.
func (g GroupTable) Lookup(label string) (string, []string, bool) {
	lower := strings.ToLower(label)
	for key, members := range g {
		if strings.ToLower(key) == lower {
			return key, members, true
		}
	}
	return "", nil, false
}

// IsGroupLabel reports whether an ingredient name refers to a group rather
// than a concrete item. Names starting with "any " are treated as group
// labels even when the table has no entry for them, matching the exported
// recipe data.
func (g GroupTable) IsGroupLabel(name string) bool {
	if _, _, ok := g.Lookup(name); ok {
		return true
	}
	return strings.HasPrefix(strings.ToLower(name), "any ")
}

// Members returns the member names for a group label. Unknown "Any X" labels
// degrade to the single name with the prefix stripped so the caller always
// has something to show.
func (g GroupTable) Members(label string) []string {
	if _, members, ok := g.Lookup(label); ok {
		return members
	}
	trimmed := strings.TrimSpace(label)
	if len(trimmed) > 4 && strings.EqualFold(trimmed[:4], "any ") {
		return []string{trimmed[4:]}
	}
	return []string{trimmed}
}

// DefaultGroups returns the built-in ingredient group table.
func DefaultGroups() GroupTable {
	return GroupTable{
		"Any Wood":           {"Wood", "Boreal Wood", "Rich Mahogany", "Ebonwood", "Shadewood", "Pearlwood", "Ash Wood"},
		"Any Iron Bar":       {"Iron Bar", "Lead Bar"},
		"Any Copper Bar":     {"Copper Bar", "Tin Bar"},
		"Any Silver Bar":     {"Silver Bar", "Tungsten Bar"},
		"Any Gold Bar":       {"Gold Bar", "Platinum Bar"},
		"Any Cobalt Bar":     {"Cobalt Bar", "Palladium Bar"},
		"Any Mythril Bar":    {"Mythril Bar", "Orichalcum Bar"},
		"Any Adamantite Bar": {"Adamantite Bar", "Titanium Bar"},
		"Any Demonite Bar":   {"Demonite Bar", "Crimtane Bar"},
		"Any Sand":           {"Sand Block", "Ebonsand Block", "Crimsand Block", "Pearlsand Block"},
		"Any Bird":           {"Bird", "Blue Jay", "Cardinal", "Goldfinch"},
		"Any Pressure Plate": {"Red Pressure Plate", "Green Pressure Plate", "Gray Pressure Plate", "Brown Pressure Plate"},
	}
}
