package session

import (
	"strings"

	"lexime/internal/romaji"
)

// handleComposingText dispatches printable input while composing.
func (s *Session) handleComposingText(text string) KeyResponse {
	if text == "" {
		return consumed()
	}
	c := s.comp

	if c.preserveCase {
		c.kana += text
		resp := consumed()
		resp.marked(c.display())
		return resp
	}

	// z-sequences and other multi-key symbols: when pending + text is on a
	// trie path (e.g. "z" + "h" → ←), keep feeding the transducer.
	if c.pending != "" {
		candidate := c.pending + text
		switch s.res.Romaji.Lookup(candidate).Kind {
		case romaji.LookupExact, romaji.LookupExactAndPrefix, romaji.LookupPrefix:
			return s.appendAndConvert(text)
		}
	}

	// Uppercase letters flush pending romaji and join the kana verbatim.
	// Stability resets so consecutive uppercase stays grouped as one word
	// instead of auto-committing piecemeal.
	if text[0] >= 'A' && text[0] <= 'Z' {
		result := s.res.Romaji.Convert(c.kana, c.pending, true)
		c.kana = result.ComposedKana + text
		c.pending = ""
		c.stability.reset()
		if s.deferCandidates {
			return s.deferredCandidatesResponse()
		}
		s.updateCandidates()
		resp := consumed()
		return s.buildDisplay(&resp)
	}

	if isRomajiInput(text) {
		// A non-default selection means the user picked a candidate; commit
		// it before starting on the next word.
		if c.selected > 0 && c.selected < len(c.surfaces) {
			commitResp := s.commitCurrentState()
			s.comp = newComposition()
			appendResp := s.appendAndConvert(strings.ToLower(text))
			commitResp.Events = append(commitResp.Events, appendResp.Events...)
			return commitResp
		}
		return s.appendAndConvert(strings.ToLower(text))
	}

	// Recognized punctuation commits the current selection, then the
	// punctuation itself.
	res := s.res.Romaji.Lookup(text)
	if res.Kind == romaji.LookupExact || res.Kind == romaji.LookupExactAndPrefix {
		resp := s.commitCurrentState()
		converted := s.res.Romaji.Convert("", text, true)
		if converted.ComposedKana != "" {
			resp.commit(converted.ComposedKana)
		}
		return resp
	}

	// Any other printable character joins the kana as-is.
	c.kana += text
	if s.deferCandidates {
		return s.deferredCandidatesResponse()
	}
	s.updateCandidates()
	resp := consumed()
	display := s.buildDisplay(&resp)
	return s.maybeAutoCommit(display)
}

// appendAndConvert feeds input into pending romaji and drains it.
func (s *Session) appendAndConvert(input string) KeyResponse {
	c := s.comp

	// Overflow: commit what we have and restart with the new input.
	if len(c.kana) >= maxComposedKanaLength {
		resp := s.commitCurrentState()
		s.comp = newComposition()
		c = s.comp
		c.pending = input
		s.drainPending(false)
		var sub KeyResponse
		if s.deferCandidates {
			sub = s.deferredCandidatesResponse()
		} else {
			if c.pending == "" {
				s.updateCandidates()
			}
			d := consumed()
			sub = s.maybeAutoCommit(s.buildDisplay(&d))
		}
		resp.Events = append(resp.Events, sub.Events...)
		return resp
	}

	c.pending += input
	s.drainPending(false)

	if s.deferCandidates {
		if c.pending == "" {
			return s.deferredCandidatesResponse()
		}
		// Pending romaji: show kana + pending, no candidates yet.
		resp := consumed()
		resp.marked(c.display())
		return resp
	}

	if c.pending == "" {
		s.updateCandidates()
	}
	resp := consumed()
	display := s.buildDisplay(&resp)
	return s.maybeAutoCommit(display)
}

func (s *Session) drainPending(force bool) {
	c := s.comp
	result := s.res.Romaji.Convert(c.kana, c.pending, force)
	c.kana = result.ComposedKana
	c.pending = result.PendingRomaji
}

// deferredCandidatesResponse submits async candidate generation and tells
// the host to poll for the result.
func (s *Session) deferredCandidatesResponse() KeyResponse {
	c := s.comp
	resp := consumed()
	resp.marked(c.display())
	if c.kana != "" {
		s.worker.submit(c.kana, s.mode)
		resp.schedulePoll()
	}
	return resp
}

// maybeAutoCommit runs the auto-commit check in sync mode, returning either
// its response or the provided display response.
func (s *Session) maybeAutoCommit(display KeyResponse) KeyResponse {
	if s.deferCandidates {
		return display
	}
	if auto, ok := s.tryAutoCommit(); ok {
		return auto
	}
	return display
}

// joinPairs concatenates segment surfaces of a path slice.
func joinPairs(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p)
	}
	return b.String()
}
