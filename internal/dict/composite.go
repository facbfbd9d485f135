package dict

import (
	"sort"
)

// CompositeDictionary merges results from multiple layers. Layers are queried
// in order; duplicate entries (same surface under one reading) keep the
// lowest cost, so a user layer with strictly lower costs always wins ties.
type CompositeDictionary struct {
	layers []Dictionary
}

// NewCompositeDictionary stacks the given layers.
func NewCompositeDictionary(layers ...Dictionary) *CompositeDictionary {
	return &CompositeDictionary{layers: layers}
}

// dedupEntries deduplicates by surface, keeping the lowest cost, and sorts
// the result by ascending cost.
func dedupEntries(entries []Entry) []Entry {
	best := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if cur, ok := best[e.Surface]; !ok || e.Cost < cur.Cost {
			best[e.Surface] = e
		}
	}
	out := make([]Entry, 0, len(best))
	for _, e := range best {
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Cost != out[j].Cost {
			return out[i].Cost < out[j].Cost
		}
		return out[i].Surface < out[j].Surface
	})
	return out
}

// mergeResults merges search results by reading, deduplicating entries
// within each reading, sorted by reading.
func mergeResults(results []SearchResult) []SearchResult {
	byReading := make(map[string][]Entry)
	for _, sr := range results {
		byReading[sr.Reading] = append(byReading[sr.Reading], sr.Entries...)
	}
	merged := make([]SearchResult, 0, len(byReading))
	for reading, es := range byReading {
		merged = append(merged, SearchResult{Reading: reading, Entries: dedupEntries(es)})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Reading < merged[j].Reading })
	return merged
}

// Lookup implements Dictionary. The result is the union of every layer's
// entries; ErrNotFound only when no layer knows the reading.
func (c *CompositeDictionary) Lookup(reading string) ([]Entry, error) {
	var all []Entry
	found := false
	for _, layer := range c.layers {
		if es, err := layer.Lookup(reading); err == nil {
			all = append(all, es...)
			found = true
		}
	}
	if !found {
		return nil, ErrNotFound
	}
	return dedupEntries(all), nil
}

// CommonPrefixSearch implements Dictionary.
func (c *CompositeDictionary) CommonPrefixSearch(query string) []SearchResult {
	var all []SearchResult
	for _, layer := range c.layers {
		all = append(all, layer.CommonPrefixSearch(query)...)
	}
	return mergeResults(all)
}

// PredictiveSearch implements Dictionary.
func (c *CompositeDictionary) PredictiveSearch(prefix string, max int) []SearchResult {
	var all []SearchResult
	for _, layer := range c.layers {
		all = append(all, layer.PredictiveSearch(prefix, max)...)
	}
	merged := mergeResults(all)
	if max > 0 && len(merged) > max {
		merged = merged[:max]
	}
	return merged
}
