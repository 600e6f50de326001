// Package catalog holds the in-memory item database and its lookup indices.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"crafttree/pkg/craft"
)

// ErrNoData is returned when every source in a load chain failed. Callers
// surface a manual-load prompt rather than an empty view.
var ErrNoData = errors.New("no item database could be loaded")

// Catalog is an immutable snapshot of the item database plus derived lookup
// indices. Rebuilt wholesale on every (re)load, never patched in place.
type Catalog struct {
	items  map[string]*craft.ItemRecord
	byName map[string]string // lower-cased display name -> id
	ids    []string          // deterministic iteration order
}

// New builds a Catalog from normalized item records.
func New(items map[string]*craft.ItemRecord) *Catalog {
	c := &Catalog{
		items:  items,
		byName: make(map[string]string, len(items)),
		ids:    make([]string, 0, len(items)),
	}
	for id, rec := range items {
		c.ids = append(c.ids, id)
		key := strings.ToLower(rec.DisplayName)
		// First writer wins so lookups stay stable across reloads.
		if _, exists := c.byName[key]; !exists {
			c.byName[key] = id
		}
	}
	sort.Strings(c.ids)
	return c
}

// Load parses a raw JSON export and builds a Catalog.
func Load(data []byte) (*Catalog, error) {
	items, err := Normalize(data)
	if err != nil {
		return nil, err
	}
	return New(items), nil
}

// LoadFile reads and parses a JSON export from disk.
func LoadFile(ctx context.Context, path string) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	c, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return c, nil
}

// LoadAny tries each source path in order and returns the first catalog that
// loads, along with the path it came from. When all sources fail the returned
// error wraps ErrNoData so the caller can fall back to a manual upload.
func LoadAny(ctx context.Context, logger *slog.Logger, paths ...string) (*Catalog, string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var errs []error
	for _, path := range paths {
		c, err := LoadFile(ctx, path)
		if err == nil {
			logger.Info("item database loaded", "source", path, "items", c.Len())
			return c, path, nil
		}
		logger.Warn("item database source failed", "source", path, "error", err)
		errs = append(errs, err)
	}
	return nil, "", fmt.Errorf("%w: %w", ErrNoData, errors.Join(errs...))
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// IDs returns all item ids in sorted order.
func (c *Catalog) IDs() []string { return c.ids }

// Item returns the record for an id.
func (c *Catalog) Item(id string) (*craft.ItemRecord, bool) {
	rec, ok := c.items[id]
	return rec, ok
}

// DisplayName returns the item's display name, or "" when the id is unknown.
func (c *Catalog) DisplayName(id string) string {
	if rec, ok := c.items[id]; ok {
		return rec.DisplayName
	}
	return ""
}

// IDByName resolves a display name case-insensitively.
func (c *Catalog) IDByName(name string) (string, bool) {
	id, ok := c.byName[strings.ToLower(name)]
	return id, ok
}

// ResolveIngredient maps an ingredient to a concrete item id. The ref id is
// preferred; when absent or stale the display name is used instead. Returns
// false when neither resolves, in which case the caller renders an unlinked
// placeholder carrying only name and amount.
func (c *Catalog) ResolveIngredient(ing craft.Ingredient) (string, bool) {
	if ing.RefID != "" {
		if _, ok := c.items[ing.RefID]; ok {
			return ing.RefID, true
		}
	}
	return c.IDByName(ing.Name)
}

// Categories returns the distinct category names, sorted.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range c.ids {
		cat := c.items[id].Category
		if cat != "" && !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	sort.Strings(out)
	return out
}

// ItemsInCategory returns the items of a category ordered for the category
// grid: damage descending (items without a damage stat last), then display
// name ascending.
func (c *Catalog) ItemsInCategory(category string) []*craft.ItemRecord {
	var out []*craft.ItemRecord
	for _, id := range c.ids {
		if c.items[id].Category == category {
			out = append(out, c.items[id])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := -1, -1
		if out[i].Stats != nil {
			di = out[i].Stats.Damage
		}
		if out[j].Stats != nil {
			dj = out[j].Stats.Damage
		}
		if di != dj {
			return di > dj
		}
		return strings.ToLower(out[i].DisplayName) < strings.ToLower(out[j].DisplayName)
	})
	return out
}
