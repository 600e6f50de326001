package nav

import (
	"net/url"
	"strings"
)

// EncodeURL renders a view as its canonical query string: trees carry
// ?id=, category grids carry ?category=, home is bare. The mapping is
// bidirectional with ParseURL.
func EncodeURL(v *ViewState) string {
	switch v.Kind {
	case ViewTree:
		if v.ItemID == "" {
			return "?"
		}
		return "?id=" + url.QueryEscape(v.ItemID)
	case ViewCategory:
		return "?category=" + url.QueryEscape(v.Category)
	default:
		return "?"
	}
}

// ParseURL recovers a view skeleton from a query string. Only identity
// fields are recoverable; expansion state and camera come from session
// storage or defaults. Unknown parameters are ignored, and a query carrying
// both id and category resolves to the tree, since an item link is the more
// specific intent.
func ParseURL(raw string) *ViewState {
	raw = strings.TrimPrefix(raw, "?")
	values, err := url.ParseQuery(raw)
	if err != nil {
		return &ViewState{Kind: ViewHome}
	}
	if id := values.Get("id"); id != "" {
		return &ViewState{Kind: ViewTree, ItemID: id}
	}
	if cat := values.Get("category"); cat != "" {
		return &ViewState{Kind: ViewCategory, Category: cat}
	}
	return &ViewState{Kind: ViewHome}
}
