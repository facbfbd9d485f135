package converter

import (
	"lexime/internal/config"
	"lexime/internal/dict"
	"lexime/internal/history"
	"lexime/internal/kana"
)

// nonIndependentKanjiPenalty penalizes non-independent morphemes (形式名詞,
// 補助動詞) rendered in kanji, e.g. 事 for こと.
func nonIndependentKanjiPenalty(s *config.Settings, seg *richSegment, conn *dict.ConnectionMatrix) int64 {
	if conn.IsNonIndependent(seg.LeftID) && kana.ContainsKanji(seg.Surface) {
		return s.Reranker.NonIndependentKanjiPenalty
	}
	return 0
}

// pronounBonus returns the cost reduction for pronoun segments.
func pronounBonus(s *config.Settings, seg *richSegment, conn *dict.ConnectionMatrix) int64 {
	if conn.IsPronoun(seg.LeftID) {
		return s.Reranker.PronounCostBonus
	}
	return 0
}

// teFormKanjiPenalty penalizes kanji surfaces immediately after て/で.
func teFormKanjiPenalty(s *config.Settings, prev, curr *richSegment, conn *dict.ConnectionMatrix) int64 {
	if prev == nil {
		return 0
	}
	if conn.IsFunctionWord(prev.LeftID) &&
		(prev.Surface == "て" || prev.Surface == "で") &&
		kana.ContainsKanji(curr.Surface) {
		return s.Reranker.TeFormKanjiPenalty
	}
	return 0
}

// singleCharKanjiPenalty penalizes single-char kanji content words unless the
// dictionary knows a compound joining them with a neighbor.
func singleCharKanjiPenalty(s *config.Settings, seg *richSegment, idx int, segments []richSegment, conn *dict.ConnectionMatrix, d dict.Dictionary) int64 {
	if len([]rune(seg.Reading)) != 1 ||
		!kana.ContainsKanji(seg.Surface) ||
		conn.Role(seg.LeftID) != dict.RoleContent {
		return 0
	}
	if d != nil {
		if idx > 0 {
			combined := segments[idx-1].Reading + seg.Reading
			if dict.ContainsReading(d, combined) {
				return 0
			}
		}
		if idx+1 < len(segments) {
			combined := seg.Reading + segments[idx+1].Reading
			if dict.ContainsReading(d, combined) {
				return 0
			}
		}
	}
	return s.Reranker.SingleCharKanjiPenalty
}

// rerank applies post-hoc ranking features to N-best Viterbi paths.
//
// The Viterbi core handles dictionary cost + connection cost + segment
// penalty. The reranker adds ranking preferences: structure cost (sum of
// internal transition costs, Mozc-style), length variance (penalizes uneven
// segment splits), script cost, and the per-segment POS features.
func rerank(paths []scoredPath, conn *dict.ConnectionMatrix, d dict.Dictionary, s *config.Settings) []scoredPath {
	if len(paths) <= 1 {
		return paths
	}

	structureCosts := make([]int64, len(paths))
	for i := range paths {
		var sc int64
		for j := 1; j < len(paths[i].segments); j++ {
			sc += dict.ConnCost(conn, paths[i].segments[j-1].RightID, paths[i].segments[j].LeftID)
		}
		structureCosts[i] = sc
	}

	// Hard filter: drop paths whose structure cost exceeds min + threshold.
	// If every path exceeds it, keep them all rather than dropping everything.
	minSC := structureCosts[0]
	for _, sc := range structureCosts[1:] {
		if sc < minSC {
			minSC = sc
		}
	}
	threshold := minSC + s.Reranker.StructureCostFilter
	anyKept := false
	for _, sc := range structureCosts {
		if sc <= threshold {
			anyKept = true
			break
		}
	}
	if anyKept {
		kept := paths[:0]
		keptCosts := structureCosts[:0]
		for i := range paths {
			if structureCosts[i] <= threshold {
				kept = append(kept, paths[i])
				keptCosts = append(keptCosts, structureCosts[i])
			}
		}
		paths = kept
		structureCosts = keptCosts
	}

	for i := range paths {
		path := &paths[i]

		// 25% of the structure cost differentiates fragmented paths without
		// dominating the Viterbi cost.
		path.cost += structureCosts[i] / 4

		// Length variance for 3+ segment paths. 2-segment paths are exempt:
		// "long content word + short particle" is natural Japanese. Function
		// words and single-char readings are excluded from the calculation —
		// they are naturally short (particles, verb inflection pieces) and
		// should not penalize an otherwise uniform segmentation.
		if len(path.segments) >= 3 {
			var lengths []int64
			for _, seg := range path.segments {
				l := int64(len([]rune(seg.Reading)))
				if l > 1 && !(conn != nil && conn.IsFunctionWord(seg.LeftID)) {
					lengths = append(lengths, l)
				}
			}
			if n := int64(len(lengths)); n >= 2 {
				var sum, sumSq int64
				for _, l := range lengths {
					sum += l
					sumSq += l * l
				}
				// N × Σl² - (Σl)² = N² × variance, kept in integers.
				sumSqDev := n*sumSq - sum*sum
				path.cost += sumSqDev * s.Reranker.LengthVarianceWeight / (n * n)
			}
		}

		for _, seg := range path.segments {
			path.cost += scriptCost(s, seg.Surface, len([]rune(seg.Reading)))
		}

		if conn != nil {
			for j := range path.segments {
				seg := &path.segments[j]
				var prev *richSegment
				if j > 0 {
					prev = &path.segments[j-1]
				}
				path.cost += nonIndependentKanjiPenalty(s, seg, conn)
				path.cost -= pronounBonus(s, seg, conn)
				path.cost += teFormKanjiPenalty(s, prev, seg, conn)
				path.cost += singleCharKanjiPenalty(s, seg, j, path.segments, conn, d)
			}
		}
	}

	sortPathsByCost(paths)
	return paths
}

// historyRerank subtracts user-history boosts from each path's cost so
// learned candidates float to the top, then re-sorts.
//
// Per-segment boosts are normalized by segment count: fragmented paths
// accumulate boosts from common particles across all prior conversions,
// which would give them a structural advantage over compound paths. The
// whole-path boost is not normalized and is weighted ×5 — an explicitly
// selected full conversion is the strongest learning signal.
func historyRerank(paths []scoredPath, h *history.UserHistory) {
	if len(paths) == 0 {
		return
	}
	now := history.NowEpoch()
	for i := range paths {
		path := &paths[i]
		segCount := int64(len(path.segments))
		if segCount == 0 {
			segCount = 1
		}
		var segBoost int64
		for _, seg := range path.segments {
			segBoost += h.UnigramBoost(seg.Reading, seg.Surface, now)
		}
		for j := 1; j < len(path.segments); j++ {
			segBoost += h.BigramBoost(
				path.segments[j-1].Surface,
				path.segments[j].Reading,
				path.segments[j].Surface,
				now,
			)
		}
		boost := segBoost / segCount

		var fullReading, fullSurface string
		for _, seg := range path.segments {
			fullReading += seg.Reading
			fullSurface += seg.Surface
		}
		boost += h.UnigramBoost(fullReading, fullSurface, now) * 5
		path.cost -= boost
	}
	sortPathsByCost(paths)
}

// sortPathsByCost is a stable insertion sort: N-best lists are small and the
// stability preserves Viterbi tie order.
func sortPathsByCost(paths []scoredPath) {
	for i := 1; i < len(paths); i++ {
		for j := i; j > 0 && paths[j].cost < paths[j-1].cost; j-- {
			paths[j], paths[j-1] = paths[j-1], paths[j]
		}
	}
}
