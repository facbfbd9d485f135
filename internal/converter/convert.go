package converter

import (
	"lexime/internal/config"
	"lexime/internal/dict"
	"lexime/internal/history"
)

// overgenerateFactor sizes the per-node best-K lists relative to the
// requested N, so reranking has enough distinct paths to reorder.
const overgenerateFactor = 10

// ConvertNBest returns the top-n conversion paths for a kana reading,
// reranked and grouped into phrases. A nil matrix degrades to the unigram
// fallback.
func ConvertNBest(d dict.Dictionary, conn *dict.ConnectionMatrix, s *config.Settings, kanaStr string, n int) [][]Segment {
	return convertNBest(d, conn, nil, s, kanaStr, n)
}

// ConvertNBestWithHistory additionally applies user-history reranking to the
// over-generated paths before the top-n cut.
func ConvertNBestWithHistory(d dict.Dictionary, conn *dict.ConnectionMatrix, h *history.UserHistory, s *config.Settings, kanaStr string, n int) [][]Segment {
	return convertNBest(d, conn, h, s, kanaStr, n)
}

func convertNBest(d dict.Dictionary, conn *dict.ConnectionMatrix, h *history.UserHistory, s *config.Settings, kanaStr string, n int) [][]Segment {
	if kanaStr == "" || n <= 0 {
		return nil
	}

	lat := BuildLattice(d, kanaStr, s.Cost.UnknownWordCost)
	costFn := &DefaultCostFunction{Conn: conn, Settings: s}
	paths := viterbiNBest(lat, costFn, n*overgenerateFactor)

	paths = rerank(paths, conn, d, s)

	// Hiragana variants go in before history reranking so a previously
	// selected hiragana form can pick up its whole-path boost.
	paths = runRewriters([]rewriter{hiraganaVariantRewriter{}}, paths, kanaStr)

	// Remember the pure-Viterbi best before history boosts reshuffle: per-
	// segment boosts from common particles can push fragmented paths above
	// the statistically correct compound, and the Viterbi #1 must stay
	// available as a candidate.
	viterbiBestKey := ""
	if h != nil && len(paths) > 0 {
		viterbiBestKey = paths[0].surfaceKey()
	}

	if h != nil {
		historyRerank(paths, h)
	}

	cut := n
	if cut > len(paths) {
		cut = len(paths)
	}
	top := make([]scoredPath, cut, cut+1)
	copy(top, paths[:cut])
	rest := paths[cut:]

	// If the Viterbi #1 was pushed out of the top-n by history boosts, pull
	// it back in right after the history-preferred #1.
	if viterbiBestKey != "" && !hasSurface(top, viterbiBestKey) {
		for i := range rest {
			if rest[i].surfaceKey() == viterbiBestKey {
				insertAt := 1
				if insertAt > len(top) {
					insertAt = len(top)
				}
				top = append(top, scoredPath{})
				copy(top[insertAt+1:], top[insertAt:])
				top[insertAt] = rest[i]
				if len(top) > n {
					top = top[:n]
				}
				break
			}
		}
	}

	// Numeric and katakana candidates are added after the top-n cut so they
	// are not immediately pruned.
	top = runRewriters([]rewriter{numericRewriter{}, katakanaRewriter{}}, top, kanaStr)

	out := make([][]Segment, 0, len(top))
	for i := range top {
		if conn != nil {
			top[i].segments = groupSegments(top[i].segments, conn)
		}
		out = append(out, top[i].toSegments())
	}
	return out
}
