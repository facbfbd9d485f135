package converter

import (
	"lexime/internal/config"
	"lexime/internal/dict"
	"lexime/internal/kana"
)

// CostFunction scores lattice nodes and transitions during Viterbi search.
// All values are int64 so accumulation cannot overflow the int16 inputs.
type CostFunction interface {
	WordCost(node *LatticeNode) int64
	TransitionCost(prev, next *LatticeNode) int64
	BosCost(node *LatticeNode) int64
	EosCost(node *LatticeNode) int64
}

// DefaultCostFunction returns dictionary word costs plus connection matrix
// cells verbatim. A nil matrix degrades to the unigram fallback where every
// transition costs 0.
type DefaultCostFunction struct {
	Conn     *dict.ConnectionMatrix
	Settings *config.Settings
}

// WordCost adds the segment penalty to the dictionary cost; function words
// pay half so particles are not discouraged from splitting off.
func (f *DefaultCostFunction) WordCost(node *LatticeNode) int64 {
	penalty := f.Settings.Cost.SegmentPenalty
	if f.Conn != nil && f.Conn.IsFunctionWord(node.LeftID) {
		penalty /= 2
	}
	return int64(node.Cost) + penalty
}

func (f *DefaultCostFunction) TransitionCost(prev, next *LatticeNode) int64 {
	return dict.ConnCost(f.Conn, prev.RightID, next.LeftID)
}

func (f *DefaultCostFunction) BosCost(node *LatticeNode) int64 {
	return dict.ConnCost(f.Conn, 0, node.LeftID)
}

func (f *DefaultCostFunction) EosCost(node *LatticeNode) int64 {
	return dict.ConnCost(f.Conn, node.RightID, 0)
}

// scriptCost adjusts by the surface script: mixed kanji+kana and pure-kanji
// surfaces get a bonus (scaled by reading length, capped at 3), katakana and
// latin surfaces get penalties.
func scriptCost(s *config.Settings, surface string, readingChars int) int64 {
	hasKanji := false
	hasKana := false
	allKatakana := surface != ""
	for _, r := range surface {
		if kana.IsLatin(r) {
			return s.Cost.LatinPenalty
		}
		if kana.IsKanji(r) {
			hasKanji = true
		}
		if kana.IsHiragana(r) || kana.IsKatakana(r) {
			hasKana = true
		}
		if !kana.IsKatakana(r) {
			allKatakana = false
		}
	}
	scale := int64(readingChars)
	if scale > 3 {
		scale = 3
	}
	switch {
	case hasKanji && hasKana:
		return -s.Cost.MixedScriptBonus * scale / 3
	case hasKanji:
		return -s.Cost.PureKanjiBonus * scale / 3
	case allKatakana:
		return s.Cost.KatakanaPenalty
	default:
		return 0
	}
}
