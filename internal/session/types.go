// Package session implements the per-client input session: the composition
// buffer, keystroke semantics, candidate selection, auto-commit stability
// tracking, and the async candidate worker.
//
// A session's public operations run on the host event thread; candidate
// generation runs on one background goroutine and results are applied
// through Poll with generation-based staleness filtering.
package session

import (
	"lexime/internal/converter"
)

// Key codes delivered by the host (macOS virtual key codes).
const (
	KeyEnter     uint16 = 36
	KeyTab       uint16 = 48
	KeySpace     uint16 = 49
	KeyBackspace uint16 = 51
	KeyEscape    uint16 = 53
	KeyYen       uint16 = 93
	KeyEisu      uint16 = 102
	KeyKana      uint16 = 104
	KeyDown      uint16 = 125
	KeyUp        uint16 = 126
)

// maxComposedKanaLength bounds the composition buffer; overflowing commits
// the current state and starts over with the new keystroke.
const maxComposedKanaLength = 100

// ConversionMode selects the candidate generation strategy.
type ConversionMode uint8

const (
	// ModeStandard converts what was typed; auto-commit is enabled.
	ModeStandard ConversionMode = iota
	// ModePredictive extends conversions with bigram-chained completions.
	ModePredictive
)

// EventKind discriminates host events.
type EventKind uint8

const (
	// EventCommit inserts text into the client and clears the composition
	// display.
	EventCommit EventKind = iota + 1
	// EventSetMarkedText replaces the pre-edit display; empty text clears.
	EventSetMarkedText
	// EventShowCandidates shows or updates the candidate panel.
	EventShowCandidates
	// EventHideCandidates hides the panel.
	EventHideCandidates
	// EventSwitchToAbc asks the host to switch to direct-ASCII input.
	EventSwitchToAbc
	// EventSchedulePoll asks the host to start a periodic poll timer.
	EventSchedulePoll
)

// Event is one instruction to the host. The kind determines which fields
// are meaningful.
type Event struct {
	Kind     EventKind
	Text     string
	Surfaces []string
	Selected int
}

// KeyResponse is the outcome of one keystroke: whether it was consumed and
// the events the host should apply, in order.
type KeyResponse struct {
	Consumed bool
	Events   []Event
}

func consumed() KeyResponse    { return KeyResponse{Consumed: true} }
func notConsumed() KeyResponse { return KeyResponse{} }

func (r *KeyResponse) commit(text string) *KeyResponse {
	r.Events = append(r.Events, Event{Kind: EventCommit, Text: text})
	return r
}

func (r *KeyResponse) marked(text string) *KeyResponse {
	r.Events = append(r.Events, Event{Kind: EventSetMarkedText, Text: text})
	return r
}

func (r *KeyResponse) showCandidates(surfaces []string, selected int) *KeyResponse {
	r.Events = append(r.Events, Event{
		Kind:     EventShowCandidates,
		Surfaces: append([]string(nil), surfaces...),
		Selected: selected,
	})
	return r
}

func (r *KeyResponse) hideCandidates() *KeyResponse {
	r.Events = append(r.Events, Event{Kind: EventHideCandidates})
	return r
}

func (r *KeyResponse) switchToAbc() *KeyResponse {
	r.Events = append(r.Events, Event{Kind: EventSwitchToAbc})
	return r
}

func (r *KeyResponse) schedulePoll() *KeyResponse {
	r.Events = append(r.Events, Event{Kind: EventSchedulePoll})
	return r
}

// CommittedText returns the concatenated text of every Commit event.
func (r *KeyResponse) CommittedText() string {
	var out string
	for _, e := range r.Events {
		if e.Kind == EventCommit {
			out += e.Text
		}
	}
	return out
}

// MarkedText returns the text of the last SetMarkedText event and whether
// one was present.
func (r *KeyResponse) MarkedText() (string, bool) {
	for i := len(r.Events) - 1; i >= 0; i-- {
		if r.Events[i].Kind == EventSetMarkedText {
			return r.Events[i].Text, true
		}
	}
	return "", false
}

// stabilityTracker watches the top Viterbi path's first phrase across
// candidate recomputations. A reading that stays identical for consecutive
// updates is considered stable enough to auto-commit.
type stabilityTracker struct {
	reading string
	count   int
}

func (t *stabilityTracker) observe(reading string) {
	if reading != "" && reading == t.reading {
		t.count++
	} else {
		t.reading = reading
		t.count = 1
	}
}

func (t *stabilityTracker) reset() {
	t.reading = ""
	t.count = 0
}

// Composition is the in-progress input: committed-to-kana text plus raw
// roman letters awaiting transduction, and the current candidate list.
type Composition struct {
	kana    string
	pending string

	// preserveCase marks a composition started with shift+letter; text is
	// kept verbatim and romaji collapse is suppressed.
	preserveCase bool

	surfaces []string
	selected int
	paths    [][]converter.Segment

	stability stabilityTracker
}

func newComposition() *Composition {
	return &Composition{}
}

// display returns the marked text: the selected candidate when the panel is
// showing, otherwise kana + pending.
func (c *Composition) display() string {
	if c.selected < len(c.surfaces) && len(c.surfaces) > 0 && c.pending == "" {
		return c.surfaces[c.selected]
	}
	return c.kana + c.pending
}

func (c *Composition) empty() bool {
	return c.kana == "" && c.pending == ""
}

func (c *Composition) clearCandidates() {
	c.surfaces = nil
	c.selected = 0
	c.paths = nil
}

// cyclicIndex advances an index with wraparound.
func cyclicIndex(current, delta, n int) int {
	if n == 0 {
		return 0
	}
	return ((current+delta)%n + n) % n
}
