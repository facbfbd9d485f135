package candidates

import (
	"sort"

	"lexime/internal/config"
	"lexime/internal/dict"
	"lexime/internal/history"
)

// maxChain bounds how many bigram successors a predictive completion may
// append.
const maxChain = 5

// chainBigramPhrase extends startSurface with its best bigram successors,
// one hop at a time. The visited set breaks cycles over the surface graph
// (A→B→A) and self-loops (は→は). Returns "" when no successor extends the
// start at all.
func chainBigramPhrase(h *history.UserHistory, startSurface string, maxHops int) string {
	result := startSurface
	current := startSurface
	visited := map[string]struct{}{current: {}}
	extended := false

	for hop := 0; hop < maxHops; hop++ {
		succ := h.BigramSuccessors(current)
		if len(succ) == 0 {
			break
		}
		next := succ[0].Surface
		if _, cyc := visited[next]; cyc {
			break
		}
		visited[next] = struct{}{}
		result += next
		current = next
		extended = true
	}

	if !extended {
		return ""
	}
	return result
}

// GeneratePredictive produces Predictive-mode candidates: the Standard set
// plus bigram-chained completions, longest first.
func GeneratePredictive(d dict.Dictionary, conn *dict.ConnectionMatrix, h *history.UserHistory, s *config.Settings, reading string, maxResults int) Response {
	if reading == "" {
		return Response{}
	}
	if IsPunctuation(reading) {
		return generatePunctuation(d, h, reading, maxResults)
	}

	base := generateNormal(d, conn, h, s, reading, maxResults)
	if h == nil {
		return base
	}

	type chained struct {
		phrase string
		length int
	}
	var phrases []chained
	chainedStarts := make(map[string]struct{})

	// Chain from the last segment of each N-best path, splicing the chain
	// onto the path's full surface.
	for _, path := range base.Paths {
		if len(path) == 0 {
			continue
		}
		last := path[len(path)-1].Surface
		joined := joinSurfaces(path)
		chainedStarts[joined] = struct{}{}

		if ch := chainBigramPhrase(h, last, maxChain); ch != "" {
			full := joined + ch[len(last):]
			if full != joined {
				phrases = append(phrases, chained{phrase: full, length: len([]rune(full))})
			}
		}
	}

	// Also chain from base surfaces not covered by a path.
	for _, sf := range base.Surfaces {
		if _, done := chainedStarts[sf]; done {
			continue
		}
		if ch := chainBigramPhrase(h, sf, maxChain); ch != "" {
			phrases = append(phrases, chained{phrase: ch, length: len([]rune(ch))})
		}
	}

	// Longest completions first.
	sort.SliceStable(phrases, func(i, j int) bool { return phrases[i].length > phrases[j].length })

	var surfaces []string
	seen := make(map[string]struct{})
	push := func(sf string) {
		if sf == "" {
			return
		}
		if _, dup := seen[sf]; dup {
			return
		}
		seen[sf] = struct{}{}
		surfaces = append(surfaces, sf)
	}
	for _, c := range phrases {
		push(c.phrase)
	}
	for _, sf := range base.Surfaces {
		push(sf)
	}
	if len(surfaces) > maxResults {
		surfaces = surfaces[:maxResults]
	}

	return Response{Surfaces: surfaces, Paths: base.Paths}
}
