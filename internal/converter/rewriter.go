package converter

import (
	"lexime/internal/kana"
	"lexime/internal/numeric"
)

// rewriter adds or modifies candidates in the N-best path list after
// reranking. The set is closed (katakana, hiragana variant, numeric);
// runRewriters calls each one through this interface, in list order.
type rewriter interface {
	rewrite(paths []scoredPath, reading string) []scoredPath
}

func runRewriters(rewriters []rewriter, paths []scoredPath, reading string) []scoredPath {
	for _, rw := range rewriters {
		paths = rw.rewrite(paths, reading)
	}
	return paths
}

func worstCost(paths []scoredPath) int64 {
	var worst int64
	for _, p := range paths {
		if p.cost > worst {
			worst = p.cost
		}
	}
	return worst
}

func hasSurface(paths []scoredPath, surface string) bool {
	for i := range paths {
		if paths[i].surfaceKey() == surface {
			return true
		}
	}
	return false
}

// katakanaRewriter appends a katakana conversion of the reading as a
// low-priority fallback (worst cost + 10000).
type katakanaRewriter struct{}

func (katakanaRewriter) rewrite(paths []scoredPath, reading string) []scoredPath {
	kk := kana.HiraganaToKatakana(reading)
	if hasSurface(paths, kk) {
		return paths
	}
	return append(paths, singlePath(reading, kk, worstCost(paths)+10000))
}

// hiraganaVariantRewriter substitutes kanji segment surfaces with their
// readings, producing the all-hiragana rendition of each path. Running it
// before history reranking lets a previously selected hiragana variant pick
// up its whole-path boost.
type hiraganaVariantRewriter struct{}

func (hiraganaVariantRewriter) rewrite(paths []scoredPath, reading string) []scoredPath {
	out := paths
	for i := range paths {
		changed := false
		variant := make([]richSegment, len(paths[i].segments))
		for j, seg := range paths[i].segments {
			variant[j] = seg
			if kana.ContainsKanji(seg.Surface) {
				variant[j].Surface = seg.Reading
				changed = true
			}
		}
		if !changed {
			continue
		}
		p := scoredPath{segments: variant, cost: paths[i].cost + 8000}
		if !hasSurface(out, p.surfaceKey()) {
			out = append(out, p)
		}
	}
	return out
}

// numericRewriter emits half-width and full-width digit candidates when the
// reading parses as a Japanese number expression.
type numericRewriter struct{}

func (numericRewriter) rewrite(paths []scoredPath, reading string) []scoredPath {
	n, ok := numeric.Parse(reading)
	if !ok {
		return paths
	}
	base := worstCost(paths) + 5000

	if hw := numeric.ToHalfwidth(n); !hasSurface(paths, hw) {
		paths = append(paths, singlePath(reading, hw, base))
	}
	if fw := numeric.ToFullwidth(n); !hasSurface(paths, fw) {
		paths = append(paths, singlePath(reading, fw, base+1))
	}
	return paths
}
