// Package candidates merges Viterbi paths, learned surfaces, the raw
// reading, prefix predictions, and exact dictionary lookups into the ranked,
// deduplicated list a candidate panel displays.
//
// Two modes exist: Standard (conversion of what was typed) and Predictive
// (Standard plus bigram-chained completions learned from history).
package candidates

import (
	"lexime/internal/converter"
	"lexime/internal/dict"
	"lexime/internal/history"
)

// Response is the result of candidate generation. Surfaces are for display;
// Paths carry the segment structure for sub-phrase history recording.
type Response struct {
	Surfaces []string
	Paths    [][]converter.Segment
}

// punctuationAlternatives lists substitute forms shown when the reading is
// exactly one recognized punctuation token: the fullwidth form first, then
// halfwidth alternatives.
var punctuationAlternatives = []struct {
	reading string
	alts    []string
}{
	{"。", []string{"．", "."}},
	{"、", []string{"，", ","}},
	{"？", []string{"?"}},
	{"！", []string{"!"}},
	{"「", []string{"｢", "["}},
	{"」", []string{"｣", "]"}},
	{"・", []string{"／", "/"}},
	{"〜", []string{"~"}},
}

func punctuationAlts(reading string) ([]string, bool) {
	for _, p := range punctuationAlternatives {
		if p.reading == reading {
			return p.alts, true
		}
	}
	return nil, false
}

// IsPunctuation reports whether the reading is a recognized punctuation
// token.
func IsPunctuation(reading string) bool {
	_, ok := punctuationAlts(reading)
	return ok
}

// generatePunctuation synthesizes punctuation candidates: learned
// predictions first, then the token itself, then its alternatives.
func generatePunctuation(d dict.Dictionary, h *history.UserHistory, reading string, maxResults int) Response {
	var surfaces []string
	seen := make(map[string]struct{})
	push := func(s string) {
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		surfaces = append(surfaces, s)
	}

	if h != nil {
		now := history.NowEpoch()
		fetch := maxResults
		if fetch < 200 {
			fetch = 200
		}
		ranked := dict.PredictRanked(d, reading, fetch, 1000)
		sortRankedByBoost(ranked, h, now)
		if len(ranked) > maxResults {
			ranked = ranked[:maxResults]
		}
		for _, re := range ranked {
			push(re.Entry.Surface)
		}
	}

	push(reading)
	if alts, ok := punctuationAlts(reading); ok {
		for _, alt := range alts {
			push(alt)
		}
	}

	return Response{Surfaces: surfaces}
}

// sortRankedByBoost stable-sorts prediction results by descending history
// boost, then ascending cost.
func sortRankedByBoost(ranked []dict.RankedEntry, h *history.UserHistory, now uint64) {
	// Insertion sort keeps this dependency-free and stable; prediction lists
	// are already cost-sorted and small.
	boost := func(re dict.RankedEntry) int64 {
		return h.UnigramBoost(re.Reading, re.Entry.Surface, now)
	}
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0; j-- {
			bi, bj := boost(ranked[j]), boost(ranked[j-1])
			if bi > bj || (bi == bj && ranked[j].Entry.Cost < ranked[j-1].Entry.Cost) {
				ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
			} else {
				break
			}
		}
	}
}
