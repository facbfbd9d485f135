package candidates

import (
	"strings"

	"lexime/internal/config"
	"lexime/internal/converter"
	"lexime/internal/dict"
	"lexime/internal/history"
)

// Generate produces Standard-mode candidates for a reading: Viterbi N-best
// (history-aware), learned surfaces, the raw kana, prefix predictions, and
// exact lookups, concatenated and stable-deduplicated.
func Generate(d dict.Dictionary, conn *dict.ConnectionMatrix, h *history.UserHistory, s *config.Settings, reading string, maxResults int) Response {
	if reading == "" {
		return Response{}
	}
	if IsPunctuation(reading) {
		return generatePunctuation(d, h, reading, maxResults)
	}
	return generateNormal(d, conn, h, s, reading, maxResults)
}

func joinSurfaces(path []converter.Segment) string {
	var b strings.Builder
	for _, seg := range path {
		b.WriteString(seg.Surface)
	}
	return b.String()
}

func generateNormal(d dict.Dictionary, conn *dict.ConnectionMatrix, h *history.UserHistory, s *config.Settings, reading string, maxResults int) Response {
	var surfaces []string
	seen := make(map[string]struct{})
	push := func(sf string) bool {
		if sf == "" {
			return false
		}
		if _, dup := seen[sf]; dup {
			return false
		}
		seen[sf] = struct{}{}
		surfaces = append(surfaces, sf)
		return true
	}

	// 1. N-best Viterbi conversion. History reranking runs post-Viterbi on
	//    complete paths, so learning cannot fragment the lattice search.
	var paths [][]converter.Segment
	if h != nil {
		paths = converter.ConvertNBestWithHistory(d, conn, h, s, reading, s.Candidates.NBest)
	} else {
		paths = converter.ConvertNBest(d, conn, s, reading, s.Candidates.NBest)
	}
	for _, path := range paths {
		push(joinSurfaces(path))
	}

	now := history.NowEpoch()

	// 2. Learned surfaces for this reading that Viterbi did not produce.
	if h != nil {
		for _, ls := range h.LearnedSurfaces(reading, now) {
			push(ls.Surface)
		}
	}

	// 3. The raw hiragana leads the list, so the first Space reaches the
	//    first conversion. When the current #1 carries a history boost the
	//    kana did not earn, the learned form keeps the top slot and the
	//    kana interleaves in right below it.
	kanaBoost := int64(0)
	if h != nil {
		kanaBoost = h.UnigramBoost(reading, reading, now)
	}
	kanaTarget := 0
	if h != nil && len(surfaces) > 0 && surfaces[0] != reading {
		if h.UnigramBoost(reading, surfaces[0], now) > kanaBoost {
			kanaTarget = 1
		}
	}
	existing := -1
	for i, sf := range surfaces {
		if sf == reading {
			existing = i
			break
		}
	}
	if existing != kanaTarget {
		if existing >= 0 {
			surfaces = append(surfaces[:existing], surfaces[existing+1:]...)
		} else {
			seen[reading] = struct{}{}
		}
		at := kanaTarget
		if at > len(surfaces) {
			at = len(surfaces)
		}
		surfaces = append(surfaces, "")
		copy(surfaces[at+1:], surfaces[at:])
		surfaces[at] = reading
	}

	// 4. Predictive prefix search, history-ranked when learning is on.
	fetch := maxResults
	if h != nil && fetch < 200 {
		fetch = 200
	}
	ranked := dict.PredictRanked(d, reading, fetch, 1000)
	if h != nil {
		sortRankedByBoost(ranked, h, now)
		if len(ranked) > maxResults {
			ranked = ranked[:maxResults]
		}
	}
	for _, re := range ranked {
		push(re.Entry.Surface)
	}

	// 5. Exact dictionary lookup, reordered by learning.
	lookup := dict.LookupAll(d, reading)
	if h != nil && len(lookup) > 0 {
		lookup = h.ReorderEntries(reading, lookup, now)
	}
	for _, e := range lookup {
		push(e.Surface)
	}

	if len(surfaces) > maxResults {
		surfaces = surfaces[:maxResults]
	}
	return Response{Surfaces: surfaces, Paths: paths}
}
