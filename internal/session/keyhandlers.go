package session

import (
	"strings"

	"lexime/internal/romaji"
)

func (s *Session) handleIdle(keyCode uint16, text string, shift bool) KeyResponse {
	switch keyCode {
	case KeyEnter, KeyTab, KeySpace, KeyBackspace, KeyEscape, KeyUp, KeyDown:
		return notConsumed()
	}

	// Shift+letter starts a case-preserving composition: the text is kept
	// verbatim and never collapsed through the romaji table.
	if shift && isRomajiInput(text) {
		s.comp = newComposition()
		s.comp.preserveCase = true
		s.comp.kana = text
		resp := consumed()
		resp.marked(s.comp.display())
		return resp
	}

	if isRomajiInput(text) {
		s.comp = newComposition()
		return s.appendAndConvert(strings.ToLower(text))
	}

	// Punctuation and symbols the romaji table recognizes directly (e.g.
	// "." → 。) also start a composition.
	res := s.res.Romaji.Lookup(text)
	if res.Kind == romaji.LookupExact || res.Kind == romaji.LookupExactAndPrefix {
		s.comp = newComposition()
		return s.appendAndConvert(text)
	}

	return notConsumed()
}

func (s *Session) handleComposing(keyCode uint16, text string) KeyResponse {
	c := s.comp
	switch keyCode {
	case KeyEnter, KeyTab:
		if c.preserveCase {
			return s.commitComposed()
		}
		s.resolvePending()
		s.ensureCandidates()
		return s.commitCurrentState()

	case KeySpace:
		if c.preserveCase {
			c.kana += " "
			resp := consumed()
			resp.marked(c.display())
			return resp
		}
		s.resolvePending()
		s.ensureCandidates()
		if len(c.surfaces) == 0 {
			return consumed()
		}
		// The first Space moves 0→1 so the initial press reaches the first
		// conversion instead of cycling past it.
		if c.selected == 0 && len(c.surfaces) > 1 {
			c.selected = 1
		} else {
			c.selected = cyclicIndex(c.selected, 1, len(c.surfaces))
		}
		return s.buildSelection()

	case KeyDown:
		s.resolvePending()
		s.ensureCandidates()
		if len(c.surfaces) == 0 {
			return consumed()
		}
		c.selected = cyclicIndex(c.selected, 1, len(c.surfaces))
		return s.buildSelection()

	case KeyUp:
		s.resolvePending()
		s.ensureCandidates()
		if len(c.surfaces) == 0 {
			return consumed()
		}
		c.selected = cyclicIndex(c.selected, -1, len(c.surfaces))
		return s.buildSelection()

	case KeyBackspace:
		return s.handleBackspace()

	case KeyEscape:
		return s.handleEscape()
	}

	return s.handleComposingText(text)
}

// resolvePending force-drains trailing romaji (a lone "n" becomes ん) before
// a selection or commit key acts, invalidating candidates computed for the
// shorter kana.
func (s *Session) resolvePending() {
	c := s.comp
	if c == nil || c.pending == "" {
		return
	}
	s.drainPending(true)
	c.clearCandidates()
}

// ensureCandidates lazily generates candidates when deferred mode left the
// list empty but a key needs one (Space cycling, Enter commit).
func (s *Session) ensureCandidates() {
	c := s.comp
	if c != nil && len(c.surfaces) == 0 && c.kana != "" {
		s.updateCandidates()
	}
}

func (s *Session) buildSelection() KeyResponse {
	c := s.comp
	resp := consumed()
	resp.marked(c.display())
	resp.showCandidates(c.surfaces, c.selected)
	return resp
}

func (s *Session) handleBackspace() KeyResponse {
	c := s.comp
	switch {
	case c.pending != "":
		c.pending = trimLastRune(c.pending)
	case c.kana != "":
		c.kana = trimLastRune(c.kana)
	}

	if c.empty() {
		s.comp = nil
		resp := consumed()
		resp.marked("")
		resp.hideCandidates()
		return resp
	}

	if c.preserveCase {
		resp := consumed()
		resp.marked(c.display())
		return resp
	}

	if s.deferCandidates {
		return s.deferredCandidatesResponse()
	}
	c.clearCandidates()
	if c.kana != "" {
		s.updateCandidates()
	}
	resp := consumed()
	display := s.buildDisplay(&resp)
	return s.maybeAutoCommit(display)
}

// handleEscape force-drains pending romaji, records the reading as its own
// surface, and commits the hiragana.
func (s *Session) handleEscape() KeyResponse {
	c := s.comp
	result := s.res.Romaji.Convert(c.kana, c.pending, true)
	c.kana = result.ComposedKana
	c.pending = ""

	resp := consumed()
	resp.hideCandidates()
	if c.kana != "" {
		if !c.preserveCase {
			s.recordHistory(c.kana, c.kana, nil)
		}
		resp.commit(c.kana)
	}
	resp.marked("")
	s.comp = nil
	return resp
}

func trimLastRune(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	return string(runes[:len(runes)-1])
}
