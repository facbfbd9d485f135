package session

import (
	"strings"

	"lexime/internal/history"
	"lexime/internal/kana"
)

// Auto-commit thresholds: the top path's first phrase must keep the same
// reading for stabilityThreshold consecutive recomputations, on a path of
// at least segmentThreshold phrases.
const (
	stabilityThreshold = 3
	segmentThreshold   = 4
)

// tryAutoCommit commits the stable leading phrase of a long composition so
// the user is not left carrying a whole sentence in the pre-edit. Only
// Standard mode auto-commits.
func (s *Session) tryAutoCommit() (KeyResponse, bool) {
	if s.mode != ModeStandard {
		return KeyResponse{}, false
	}
	c := s.comp
	if c == nil || c.stability.count < stabilityThreshold {
		return KeyResponse{}, false
	}
	if len(c.paths) == 0 || len(c.paths[0]) < segmentThreshold {
		return KeyResponse{}, false
	}
	if c.selected != 0 || c.pending != "" {
		return KeyResponse{}, false
	}

	best := c.paths[0]

	// Coalesce a leading run of ASCII segments so latin words commit as one
	// unit rather than character by character.
	commitCount := 1
	if kana.IsASCII(best[0].Surface) {
		for commitCount < len(best)-1 && kana.IsASCII(best[commitCount].Surface) {
			commitCount++
		}
	}

	var readings, surfaces []string
	for _, seg := range best[:commitCount] {
		readings = append(readings, seg.Reading)
		surfaces = append(surfaces, seg.Surface)
	}
	committedReading := joinPairs(readings)
	committedSurface := joinPairs(surfaces)

	if !strings.HasPrefix(c.kana, committedReading) {
		return KeyResponse{}, false
	}

	if committedSurface != committedReading {
		s.recordHistory(committedReading, committedSurface, nil)
	}
	if commitCount > 1 {
		pairs := make([]history.Pair, commitCount)
		for i, seg := range best[:commitCount] {
			pairs[i] = history.Pair{Reading: seg.Reading, Surface: seg.Surface}
		}
		s.recordHistory(committedReading, committedSurface, pairs)
	}

	// Trim the committed reading prefix from the composition.
	c.kana = strings.TrimPrefix(c.kana, committedReading)
	c.stability.reset()

	resp := consumed()
	resp.commit(committedSurface)

	if c.kana == "" {
		c.clearCandidates()
		s.comp = nil
		resp.hideCandidates()
		resp.marked("")
		return resp, true
	}

	if s.deferCandidates {
		// Provisional candidates: the remainder of each N-best path keeps
		// the panel visible while the worker recomputes.
		var provisional []string
		seen := make(map[string]struct{})
		for _, path := range c.paths {
			if len(path) <= commitCount {
				continue
			}
			var b strings.Builder
			for _, seg := range path[commitCount:] {
				b.WriteString(seg.Surface)
			}
			rem := b.String()
			if rem == "" {
				continue
			}
			if _, dup := seen[rem]; dup {
				continue
			}
			seen[rem] = struct{}{}
			provisional = append(provisional, rem)
		}
		if _, dup := seen[c.kana]; !dup {
			provisional = append(provisional, c.kana)
		}
		c.surfaces = provisional
		c.selected = 0
		c.paths = nil
		resp.marked(provisional[0])
		resp.showCandidates(provisional, 0)
		s.worker.submit(c.kana, s.mode)
		resp.schedulePoll()
		return resp, true
	}

	c.clearCandidates()
	s.updateCandidates()
	s.buildDisplay(&resp)
	return resp, true
}
