// Package expression picks reactions and memes and applies speech patterns.
package expression

import (
	"math/rand"
	"strings"
)

// Weighted is a candidate asset with its weight and context tags.
type Weighted struct {
	Asset    string
	Weight   float64
	Contexts []string
}

// Select filters candidates whose contexts intersect current, falls back to
// the full list when nothing matches, and draws one by weight. It reports
// false only when candidates is empty or every weight is non-positive.
func Select(rng *rand.Rand, candidates []Weighted, current []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	pool := filterByContext(candidates, current)
	if len(pool) == 0 {
		pool = candidates
	}
	if asset, ok := drawWeighted(rng, pool); ok {
		return asset, true
	}
	if len(pool) < len(candidates) {
		return drawWeighted(rng, candidates)
	}
	return "", false
}

func filterByContext(candidates []Weighted, current []string) []Weighted {
	if len(current) == 0 {
		return nil
	}
	tags := make(map[string]struct{}, len(current))
	for _, c := range current {
		tags[strings.ToLower(c)] = struct{}{}
	}
	var out []Weighted
	for _, cand := range candidates {
		for _, c := range cand.Contexts {
			if _, ok := tags[strings.ToLower(c)]; ok {
				out = append(out, cand)
				break
			}
		}
	}
	return out
}

// drawWeighted draws uniform in [0,total) and walks the cumulative weights.
// Non-positive weights never win.
func drawWeighted(rng *rand.Rand, pool []Weighted) (string, bool) {
	var total float64
	for _, c := range pool {
		if c.Weight > 0 {
			total += c.Weight
		}
	}
	if total <= 0 {
		return "", false
	}
	x := rng.Float64() * total
	var cum float64
	last := ""
	for _, c := range pool {
		if c.Weight <= 0 {
			continue
		}
		cum += c.Weight
		last = c.Asset
		if x < cum {
			return c.Asset, true
		}
	}
	// Rounding can leave x == total; the last positive entry owns that edge.
	return last, true
}
