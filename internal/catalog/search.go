package catalog

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// SearchHit is a ranked match from Search.
type SearchHit struct {
	ID       string
	Name     string
	Category string
	Score    int
}

const defaultSearchLimit = 15

// Search ranks items against a free-text query. Every whitespace token must
// match the display name or category as a substring. Exact name matches rank
// highest, then prefix, then substring; an exact category match adds a bonus.
// When nothing matches by substring, near-miss names within a small edit
// distance are offered instead.
func (c *Catalog) Search(query string, limit int) []SearchHit {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if len(q) < 2 {
		return nil
	}
	tokens := strings.Fields(q)

	var hits []SearchHit
	for _, id := range c.ids {
		rec := c.items[id]
		name := strings.ToLower(rec.DisplayName)
		category := strings.ToLower(rec.Category)

		matched := true
		for _, tok := range tokens {
			if !strings.Contains(name, tok) && !strings.Contains(category, tok) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}

		score := 0
		switch {
		case name == q:
			score += 100
		case strings.HasPrefix(name, q):
			score += 50
		case strings.Contains(name, q):
			score += 10
		}
		if category == q {
			score += 20
		}
		hits = append(hits, SearchHit{ID: id, Name: rec.DisplayName, Category: rec.Category, Score: score})
	}

	if len(hits) == 0 {
		hits = c.fuzzySearch(q)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return strings.ToLower(hits[i].Name) < strings.ToLower(hits[j].Name)
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// fuzzySearch offers near-miss names when substring matching found nothing.
// The allowed edit distance grows with the query length.
func (c *Catalog) fuzzySearch(q string) []SearchHit {
	maxDist := 1
	if len(q) >= 5 {
		maxDist = 2
	}
	if len(q) >= 9 {
		maxDist = 3
	}

	var hits []SearchHit
	for _, id := range c.ids {
		rec := c.items[id]
		dist := levenshtein.ComputeDistance(q, strings.ToLower(rec.DisplayName))
		if dist <= maxDist {
			hits = append(hits, SearchHit{ID: id, Name: rec.DisplayName, Category: rec.Category, Score: -dist})
		}
	}
	return hits
}
