package session

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"lexime/internal/candidates"
	"lexime/internal/config"
	"lexime/internal/dict"
	"lexime/internal/history"
	"lexime/internal/romaji"
	"lexime/internal/snippets"
)

// Resources are the shared engine resources a session reads. Dictionary and
// matrix are immutable; history is internally locked; the romaji trie and
// settings load once and never change.
type Resources struct {
	Dict     dict.Dictionary
	Conn     *dict.ConnectionMatrix
	History  *history.UserHistory
	Romaji   *romaji.Trie
	Settings *config.Settings
	Snippets *snippets.Store
	Log      *slog.Logger
}

// Session owns one composition and the flags controlling keystroke
// semantics. All methods must be called from a single host thread; the only
// cross-thread interaction is the candidate worker, reached through
// generation-stamped channels.
type Session struct {
	id  string
	res Resources

	comp *Composition // nil while idle

	mode            ConversionMode
	deferCandidates bool
	abcPassthrough  bool

	worker *candidateWorker
}

// New creates a session over the shared resources.
func New(res Resources) *Session {
	if res.Log == nil {
		res.Log = slog.Default()
	}
	s := &Session{
		id:  uuid.NewString(),
		res: res,
	}
	s.worker = newCandidateWorker(res)
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// IsComposing reports whether a composition is in progress.
func (s *Session) IsComposing() bool { return s.comp != nil }

// SetConversionMode switches between Standard and Predictive candidates.
func (s *Session) SetConversionMode(mode ConversionMode) { s.mode = mode }

// SetDeferCandidates toggles asynchronous candidate generation.
func (s *Session) SetDeferCandidates(v bool) { s.deferCandidates = v }

// SetAbcPassthrough toggles direct-ASCII passthrough.
func (s *Session) SetAbcPassthrough(v bool) { s.abcPassthrough = v }

// Close stops the candidate worker.
func (s *Session) Close() {
	s.worker.stop()
}

// Commit commits the currently displayed candidate, as Enter would.
func (s *Session) Commit() KeyResponse {
	if s.comp == nil {
		return consumed()
	}
	return s.commitCurrentState()
}

// HandleKey processes one key event.
func (s *Session) HandleKey(keyCode uint16, text string, shift, hasModifier bool) KeyResponse {
	// Programmer-mode keymap substitution runs before dispatch. In ABC
	// passthrough the substituted literal is emitted directly.
	if mapped, ok := s.res.Settings.KeymapGet(keyCode, shift); ok {
		text = mapped
	}

	switch {
	case keyCode == KeyEisu:
		resp := consumed()
		if s.comp != nil {
			resp = s.commitCurrentState()
		}
		s.abcPassthrough = true
		resp.switchToAbc()
		return resp

	case keyCode == KeyKana:
		s.abcPassthrough = false
		return consumed()

	case s.abcPassthrough:
		// Printable characters commit directly; everything else passes
		// through untouched so the host can interpret it.
		if isPrintableASCII(text) {
			resp := consumed()
			resp.commit(text)
			return resp
		}
		return notConsumed()

	case hasModifier:
		// Modifier chords are the host's business; flush any composition
		// first so the client sees consistent text.
		if s.comp != nil {
			resp := s.commitCurrentState()
			resp.Consumed = false
			return resp
		}
		return notConsumed()
	}

	if s.comp == nil {
		return s.handleIdle(keyCode, text, shift)
	}
	return s.handleComposing(keyCode, text)
}

func isPrintableASCII(text string) bool {
	if text == "" {
		return false
	}
	r := rune(text[0])
	return r >= ' ' && r <= '~'
}

func isRomajiInput(text string) bool {
	if len(text) != 1 {
		return false
	}
	c := text[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// updateCandidates regenerates the candidate list synchronously for the
// current kana and resets the selection.
func (s *Session) updateCandidates() {
	c := s.comp
	if c == nil || c.kana == "" {
		return
	}
	maxResults := s.res.Settings.Candidates.MaxResults

	var resp candidates.Response
	if s.mode == ModePredictive {
		resp = candidates.GeneratePredictive(s.res.Dict, s.res.Conn, s.res.History, s.res.Settings, c.kana, maxResults)
	} else {
		resp = candidates.Generate(s.res.Dict, s.res.Conn, s.res.History, s.res.Settings, c.kana, maxResults)
	}
	s.applyCandidates(c, resp)
}

// applyCandidates installs a generation result, splicing in a snippet
// expansion when the kana exactly matches a snippet keyword.
func (s *Session) applyCandidates(c *Composition, resp candidates.Response) {
	surfaces := resp.Surfaces
	if s.res.Snippets != nil {
		if expansion, ok := s.res.Snippets.Expand(c.kana); ok {
			merged := make([]string, 0, len(surfaces)+1)
			merged = append(merged, expansion)
			for _, sf := range surfaces {
				if sf != expansion {
					merged = append(merged, sf)
				}
			}
			surfaces = merged
		}
	}
	c.surfaces = surfaces
	c.selected = 0
	c.paths = resp.Paths

	// Stability tracking feeds auto-commit in Standard mode.
	if s.mode == ModeStandard && len(c.paths) > 0 && len(c.paths[0]) > 0 {
		c.stability.observe(c.paths[0][0].Reading)
	} else {
		c.stability.reset()
	}
}

// buildDisplay appends marked text and candidate events for the current
// composition state.
func (s *Session) buildDisplay(resp *KeyResponse) KeyResponse {
	c := s.comp
	resp.marked(c.display())
	if len(c.surfaces) > 0 {
		resp.showCandidates(c.surfaces, c.selected)
	}
	return *resp
}

// findMatchingPath returns the winning path's phrase pairs when its joined
// surface equals the committed surface, for bigram recording.
func (c *Composition) findMatchingPath(surface string) []history.Pair {
	for _, path := range c.paths {
		var joined strings.Builder
		for _, seg := range path {
			joined.WriteString(seg.Surface)
		}
		if joined.String() != surface {
			continue
		}
		if len(path) < 2 {
			return nil
		}
		pairs := make([]history.Pair, len(path))
		for i, seg := range path {
			pairs[i] = history.Pair{Reading: seg.Reading, Surface: seg.Surface}
		}
		return pairs
	}
	return nil
}

// recordHistory records a committed conversion: the whole (reading, surface)
// unigram plus phrase-boundary bigrams when the winning path matches.
func (s *Session) recordHistory(reading, surface string, segments []history.Pair) {
	if s.res.History == nil || reading == "" {
		return
	}
	s.res.History.Record(reading, surface, segments, history.NowEpoch())
}
