package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexime/internal/config"
	"lexime/internal/dict"
	"lexime/internal/history"
	"lexime/internal/romaji"
)

const (
	idCW = 1
	idFW = 2
)

func testConn() *dict.ConnectionMatrix {
	roles := []dict.Role{dict.RoleContent, dict.RoleContent, dict.RoleFunction}
	return dict.NewConnectionMatrix(3, 3, roles, make([]int16, 9))
}

func testDict() *dict.TrieDictionary {
	e := func(surface string, cost int16, id uint16) dict.Entry {
		return dict.Entry{Surface: surface, Cost: cost, LeftID: id, RightID: id}
	}
	return dict.NewTrieDictionary(map[string][]dict.Entry{
		"か":    {e("蚊", 5000, idCW)},
		"にほん":  {e("日本", 2500, idCW)},
		"ほん":   {e("本", 3000, idCW)},
		"きょう":  {e("今日", 3000, idCW)},
		"いこう":  {e("行こう", 3000, idCW)},
		"ほんじつ": {e("本日", 3000, idCW)},
		"は":    {e("は", 2000, idFW)},
		"とても":  {e("とても", 2800, idCW)},
		"よい":   {e("良い", 3200, idCW)},
		"てんき":  {e("天気", 3000, idCW)},
		"です":   {e("です", 2200, idFW)},
	})
}

func newTestSession(t *testing.T, h *history.UserHistory) *Session {
	t.Helper()
	s := New(Resources{
		Dict:     dict.NewCompositeDictionary(testDict(), dict.NewUserDictionary()),
		Conn:     testConn(),
		History:  h,
		Romaji:   romaji.MustDefault(),
		Settings: config.Default(),
	})
	t.Cleanup(s.Close)
	return s
}

func typeText(s *Session, text string) []KeyResponse {
	var out []KeyResponse
	for _, r := range text {
		out = append(out, s.HandleKey(0, string(r), false, false))
	}
	return out
}

func lastShownCandidates(resps []KeyResponse) ([]string, bool) {
	for i := len(resps) - 1; i >= 0; i-- {
		for j := len(resps[i].Events) - 1; j >= 0; j-- {
			if resps[i].Events[j].Kind == EventShowCandidates {
				return resps[i].Events[j].Surfaces, true
			}
		}
	}
	return nil, false
}

// Scenario 1: "k", "a" in idle → composing; marked text becomes か;
// candidates show か then dictionary candidates; Enter commits か.
func TestScenarioKa(t *testing.T) {
	s := newTestSession(t, nil)

	resps := typeText(s, "ka")
	require.True(t, s.IsComposing())

	marked, ok := resps[1].MarkedText()
	require.True(t, ok)
	assert.Equal(t, "か", marked)

	surfaces, ok := lastShownCandidates(resps)
	require.True(t, ok)
	require.NotEmpty(t, surfaces)
	assert.Equal(t, "か", surfaces[0])
	assert.Contains(t, surfaces, "蚊")

	resp := s.HandleKey(KeyEnter, "\r", false, false)
	assert.Equal(t, "か", resp.CommittedText())
	assert.False(t, s.IsComposing())
}

// Scenario 2: "nihon" leaves the final n pending; Space resolves it and
// moves to the top conversion 日本; Enter commits and records the unigram.
func TestScenarioNihon(t *testing.T) {
	hist := history.New(config.Default().History)
	s := newTestSession(t, hist)

	typeText(s, "ni")
	assert.Equal(t, "に", s.comp.kana)
	typeText(s, "ho")
	assert.Equal(t, "にほ", s.comp.kana)
	typeText(s, "n")
	assert.Equal(t, "にほ", s.comp.kana, "trailing n stays pending without force")
	assert.Equal(t, "n", s.comp.pending)

	resp := s.HandleKey(KeySpace, " ", false, false)
	assert.Equal(t, "にほん", s.comp.kana)
	marked, ok := resp.MarkedText()
	require.True(t, ok)
	assert.Equal(t, "日本", marked, "first Space selects the top conversion")

	resp = s.HandleKey(KeyEnter, "\r", false, false)
	assert.Equal(t, "日本", resp.CommittedText())

	boost := hist.UnigramBoost("にほん", "日本", history.NowEpoch())
	assert.Positive(t, boost, "commit records the unigram")
}

// Scenario 3: "kka" produces っか with empty pending.
func TestScenarioSokuon(t *testing.T) {
	s := newTestSession(t, nil)
	typeText(s, "kka")
	assert.Equal(t, "っか", s.comp.kana)
	assert.Empty(t, s.comp.pending)
}

// Scenario 4: "chi" resolves to ち; Escape commits the hiragana and clears
// the marked text.
func TestScenarioChiEscape(t *testing.T) {
	hist := history.New(config.Default().History)
	s := newTestSession(t, hist)

	typeText(s, "chi")
	assert.Equal(t, "ち", s.comp.kana)

	resp := s.HandleKey(KeyEscape, "\x1b", false, false)
	assert.Equal(t, "ち", resp.CommittedText())
	marked, ok := resp.MarkedText()
	require.True(t, ok)
	assert.Empty(t, marked)
	assert.False(t, s.IsComposing())

	assert.Positive(t, hist.UnigramBoost("ち", "ち", history.NowEpoch()),
		"escape records the reading as its own surface")
}

// Scenario 6: a long composition whose first phrase stabilizes auto-commits
// that phrase and trims it from the composition.
func TestScenarioStabilityAutoCommit(t *testing.T) {
	hist := history.New(config.Default().History)
	s := newTestSession(t, hist)

	var committed []string
	var kanaAtCommit string
	for _, r := range "honjitsuhatotemoyoitenkidesu" {
		resp := s.HandleKey(0, string(r), false, false)
		for _, ev := range resp.Events {
			if ev.Kind == EventCommit {
				committed = append(committed, ev.Text)
				if ev.Text == "本日は" && s.comp != nil {
					kanaAtCommit = s.comp.kana
				}
			}
		}
	}

	require.Contains(t, committed, "本日は", "stable first phrase auto-commits")
	assert.True(t, strings.HasPrefix(kanaAtCommit, "とても"),
		"committed reading is trimmed from the composition, got %q", kanaAtCommit)
	assert.NotContains(t, kanaAtCommit, "ほんじつ")

	assert.Positive(t, hist.UnigramBoost("ほんじつは", "本日は", history.NowEpoch()),
		"auto-commit records history")
}

func TestIdleIgnoresControlKeys(t *testing.T) {
	s := newTestSession(t, nil)
	for _, code := range []uint16{KeyEnter, KeySpace, KeyBackspace, KeyEscape, KeyUp, KeyDown, KeyTab} {
		resp := s.HandleKey(code, "", false, false)
		assert.False(t, resp.Consumed, "key %d should pass through in idle", code)
	}
	assert.False(t, s.IsComposing())
}

func TestIdlePunctuationStartsComposition(t *testing.T) {
	s := newTestSession(t, nil)
	resp := s.HandleKey(0, ".", false, false)
	assert.True(t, resp.Consumed)
	require.True(t, s.IsComposing())
	assert.Equal(t, "。", s.comp.kana)
}

func TestShiftLetterPreservesCase(t *testing.T) {
	s := newTestSession(t, nil)

	resp := s.HandleKey(0, "G", true, false)
	assert.True(t, resp.Consumed)
	require.True(t, s.IsComposing())
	assert.True(t, s.comp.preserveCase)

	typeText(s, "oLang")
	marked, ok := typeText(s, "!")[0].MarkedText()
	require.True(t, ok)
	assert.Equal(t, "GoLang!", marked, "case preserved, no romaji collapse")

	commit := s.HandleKey(KeyEnter, "\r", false, false)
	assert.Equal(t, "GoLang!", commit.CommittedText())
}

func TestBackspace(t *testing.T) {
	s := newTestSession(t, nil)

	typeText(s, "nih")
	assert.Equal(t, "に", s.comp.kana)
	assert.Equal(t, "h", s.comp.pending)

	// First backspace eats the pending letter.
	s.HandleKey(KeyBackspace, "", false, false)
	assert.Equal(t, "に", s.comp.kana)
	assert.Empty(t, s.comp.pending)

	// Next backspace eats the kana; the composition is empty so the session
	// goes idle and the marked text clears.
	resp := s.HandleKey(KeyBackspace, "", false, false)
	assert.False(t, s.IsComposing())
	marked, ok := resp.MarkedText()
	require.True(t, ok)
	assert.Empty(t, marked)
}

func TestSelectionCycling(t *testing.T) {
	s := newTestSession(t, nil)
	typeText(s, "ka")
	n := len(s.comp.surfaces)
	require.GreaterOrEqual(t, n, 2)

	s.HandleKey(KeySpace, " ", false, false)
	assert.Equal(t, 1, s.comp.selected, "first Space moves 0→1")
	s.HandleKey(KeyDown, "", false, false)
	assert.Equal(t, 2%n, s.comp.selected)
	s.HandleKey(KeyUp, "", false, false)
	assert.Equal(t, 1, s.comp.selected)
	s.HandleKey(KeyUp, "", false, false)
	assert.Equal(t, 0, s.comp.selected)
	s.HandleKey(KeyUp, "", false, false)
	assert.Equal(t, n-1, s.comp.selected, "Up wraps around")
}

func TestPunctuationCommitsSelection(t *testing.T) {
	s := newTestSession(t, nil)
	typeText(s, "ka")
	resp := s.HandleKey(0, ".", false, false)
	assert.Equal(t, "か。", resp.CommittedText())
	assert.False(t, s.IsComposing())
}

func TestZSequenceInsertsSymbol(t *testing.T) {
	s := newTestSession(t, nil)
	typeText(s, "z")
	require.True(t, s.IsComposing())
	assert.Equal(t, "z", s.comp.pending)

	typeText(s, "h")
	assert.Equal(t, "←", s.comp.kana)
	assert.Empty(t, s.comp.pending)
}

func TestEisuSwitchesToAbc(t *testing.T) {
	s := newTestSession(t, nil)
	typeText(s, "ka")

	resp := s.HandleKey(KeyEisu, "", false, false)
	assert.Equal(t, "か", resp.CommittedText(), "composition commits before switching")
	hasSwitch := false
	for _, ev := range resp.Events {
		if ev.Kind == EventSwitchToAbc {
			hasSwitch = true
		}
	}
	assert.True(t, hasSwitch)

	// Passthrough: printable characters commit directly.
	resp = s.HandleKey(0, "a", false, false)
	assert.True(t, resp.Consumed)
	assert.Equal(t, "a", resp.CommittedText())
	assert.False(t, s.IsComposing())

	// Kana key leaves passthrough.
	s.HandleKey(KeyKana, "", false, false)
	s.HandleKey(0, "a", false, false)
	assert.True(t, s.IsComposing())
}

func TestModifierCommitsAndPassesThrough(t *testing.T) {
	s := newTestSession(t, nil)
	typeText(s, "ka")
	resp := s.HandleKey(8, "c", false, true)
	assert.False(t, resp.Consumed)
	assert.Equal(t, "か", resp.CommittedText())
	assert.False(t, s.IsComposing())
}

func TestProgrammerKeymap(t *testing.T) {
	s := newTestSession(t, nil)

	// Key code 10 maps to "]" which the romaji table turns into 」.
	resp := s.HandleKey(10, "^", false, false)
	require.True(t, s.IsComposing())
	assert.Equal(t, "」", s.comp.kana)
	_ = resp

	// In ABC passthrough the literal is emitted directly.
	s2 := newTestSession(t, nil)
	s2.SetAbcPassthrough(true)
	resp = s2.HandleKey(10, "^", false, false)
	assert.Equal(t, "]", resp.CommittedText())
	resp = s2.HandleKey(10, "^", true, false)
	assert.Equal(t, "}", resp.CommittedText())
}

func TestCommitMethod(t *testing.T) {
	s := newTestSession(t, nil)
	assert.True(t, s.Commit().Consumed, "commit while idle is a no-op")

	typeText(s, "nihonn")
	resp := s.Commit()
	assert.NotEmpty(t, resp.CommittedText())
	assert.False(t, s.IsComposing())
}

func TestDeferredCandidatesAndPoll(t *testing.T) {
	s := newTestSession(t, nil)
	s.SetDeferCandidates(true)

	resps := typeText(s, "ka")
	hasPoll := false
	for _, r := range resps {
		for _, ev := range r.Events {
			hasPoll = hasPoll || ev.Kind == EventSchedulePoll
		}
	}
	assert.True(t, hasPoll, "deferred mode schedules polling")
	_, shown := lastShownCandidates(resps)
	assert.False(t, shown, "candidates are not computed on the keystroke path")

	var polled *KeyResponse
	for i := 0; i < 200 && polled == nil; i++ {
		polled = s.Poll()
		time.Sleep(5 * time.Millisecond)
	}
	require.NotNil(t, polled, "poll eventually delivers the async result")
	surfaces, ok := lastShownCandidates([]KeyResponse{*polled})
	require.True(t, ok)
	assert.Equal(t, "か", surfaces[0])
}

func TestPollDropsStaleGenerations(t *testing.T) {
	s := newTestSession(t, nil)
	s.SetDeferCandidates(true)

	typeText(s, "ka") // generation 1
	typeText(s, "ki") // generation 2, kana かき

	deadline := time.Now().Add(2 * time.Second)
	var sawStale bool
	for time.Now().Before(deadline) {
		if resp := s.Poll(); resp != nil {
			surfaces, ok := lastShownCandidates([]KeyResponse{*resp})
			require.True(t, ok)
			assert.Contains(t, surfaces, "かき", "only the latest generation is applied")
			if surfaces[0] == "か" {
				sawStale = true
			}
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, sawStale)
}

func TestCompositionOverflowCommits(t *testing.T) {
	s := newTestSession(t, nil)
	// 45 × あ is 135 bytes of kana, past the 100-byte bound.
	var total string
	for i := 0; i < 45; i++ {
		for _, r := range typeText(s, "a") {
			total += r.CommittedText()
		}
	}
	assert.NotEmpty(t, total, "overflow commits the oversized composition")
	require.True(t, s.IsComposing())
	assert.Less(t, len(s.comp.kana), maxComposedKanaLength)
}

func TestUppercaseGroupsAsOneWord(t *testing.T) {
	s := newTestSession(t, nil)
	typeText(s, "ka")
	resp := s.HandleKey(0, "A", false, false)
	require.True(t, s.IsComposing())
	assert.Equal(t, "かA", s.comp.kana)
	assert.Empty(t, resp.CommittedText(), "uppercase input never auto-commits")
}
