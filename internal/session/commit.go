package session

// commitComposed commits the raw composition text (case-preserving submode).
func (s *Session) commitComposed() KeyResponse {
	c := s.comp
	resp := consumed()
	resp.hideCandidates()
	if c.kana+c.pending != "" {
		resp.commit(c.kana + c.pending)
	}
	resp.marked("")
	s.comp = nil
	return resp
}

// commitCurrentState commits the currently displayed candidate and records
// it to history. With no candidate list, the kana itself is committed.
func (s *Session) commitCurrentState() KeyResponse {
	c := s.comp
	if c == nil {
		return consumed()
	}

	resp := consumed()
	resp.hideCandidates()
	s.drainPending(true)

	if c.selected < len(c.surfaces) && len(c.surfaces) > 0 {
		reading := c.kana
		surface := c.surfaces[c.selected]
		s.recordHistory(reading, surface, c.findMatchingPath(surface))
		resp.commit(surface)
	} else if c.kana != "" {
		resp.commit(c.kana)
	}

	resp.marked("")
	s.comp = nil
	return resp
}
