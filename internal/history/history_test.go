package history

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexime/internal/config"
	"lexime/internal/dict"
)

func testCfg() config.HistorySettings {
	return config.HistorySettings{
		BoostPerUse:   3000,
		MaxBoost:      15000,
		HalfLifeHours: 168.0,
		MaxUnigrams:   10000,
		MaxBigrams:    10000,
	}
}

func TestRecordAndBoost(t *testing.T) {
	h := New(testCfg())
	now := uint64(1_700_000_000)

	before := h.UnigramBoost("にほん", "日本", now)
	h.Record("にほん", "日本", nil, now)
	after := h.UnigramBoost("にほん", "日本", now)
	assert.Greater(t, after, before, "boost strictly increases on record")
	assert.Equal(t, int64(3000), after)

	h.Record("にほん", "日本", nil, now)
	assert.Equal(t, int64(6000), h.UnigramBoost("にほん", "日本", now))

	// Cap at max_boost.
	for i := 0; i < 10; i++ {
		h.Record("にほん", "日本", nil, now)
	}
	assert.Equal(t, int64(15000), h.UnigramBoost("にほん", "日本", now))
}

func TestDecay(t *testing.T) {
	h := New(testCfg())
	now := uint64(1_700_000_000)
	h.Record("きょう", "今日", nil, now)

	fresh := h.UnigramBoost("きょう", "今日", now)
	oneWeek := h.UnigramBoost("きょう", "今日", now+168*3600)
	assert.Equal(t, fresh/2, oneWeek, "one half-life halves the boost")

	twoWeeks := h.UnigramBoost("きょう", "今日", now+2*168*3600)
	assert.InDelta(t, fresh/3, twoWeeks, 1)
}

func TestBigramsFromSegments(t *testing.T) {
	h := New(testCfg())
	now := uint64(1_700_000_000)

	segs := []Pair{
		{Reading: "きょう", Surface: "今日"},
		{Reading: "は", Surface: "は"},
	}
	h.Record("きょうは", "今日は", segs, now)

	assert.Positive(t, h.BigramBoost("今日", "は", "は", now))
	assert.Positive(t, h.UnigramBoost("きょう", "今日", now), "segment unigrams recorded")
	assert.Zero(t, h.BigramBoost("今日", "は", "葉", now))

	// Single-segment commits record no bigrams.
	h2 := New(testCfg())
	h2.Record("きょう", "今日", []Pair{{Reading: "きょう", Surface: "今日"}}, now)
	_, bigrams := h2.Counts()
	assert.Zero(t, bigrams)
}

func TestBigramSuccessors(t *testing.T) {
	h := New(testCfg())
	now := NowEpoch()

	h.Record("きょういこう", "今日行こう", []Pair{
		{Reading: "きょう", Surface: "今日"},
		{Reading: "いこう", Surface: "行こう"},
	}, now)
	for i := 0; i < 3; i++ {
		h.Record("きょうは", "今日は", []Pair{
			{Reading: "きょう", Surface: "今日"},
			{Reading: "は", Surface: "は"},
		}, now)
	}

	succ := h.BigramSuccessors("今日")
	require.Len(t, succ, 2)
	assert.Equal(t, "は", succ[0].Surface, "higher frequency sorts first")
	assert.Equal(t, "行こう", succ[1].Surface)
	assert.Greater(t, succ[0].Boost, succ[1].Boost)

	assert.Empty(t, h.BigramSuccessors("未知"))
}

func TestLearnedSurfaces(t *testing.T) {
	h := New(testCfg())
	now := uint64(1_700_000_000)
	h.Record("きかい", "機械", nil, now)
	h.Record("きかい", "機械", nil, now)
	h.Record("きかい", "機会", nil, now)

	learned := h.LearnedSurfaces("きかい", now)
	require.Len(t, learned, 2)
	assert.Equal(t, "機械", learned[0].Surface)
}

func TestReorderEntries(t *testing.T) {
	h := New(testCfg())
	now := uint64(1_700_000_000)
	h.Record("きかい", "機会", nil, now)

	entries := []dict.Entry{
		{Surface: "機械", Cost: 3000},
		{Surface: "機会", Cost: 3500},
		{Surface: "奇怪", Cost: 5000},
	}
	out := h.ReorderEntries("きかい", entries, now)
	require.Len(t, out, 3)
	assert.Equal(t, "機会", out[0].Surface, "boosted entry first")
	assert.Equal(t, "機械", out[1].Surface, "then original order")
	assert.Equal(t, "奇怪", out[2].Surface)
}

func TestEviction(t *testing.T) {
	cfg := testCfg()
	cfg.MaxUnigrams = 100
	h := New(cfg)
	now := uint64(1_700_000_000)

	// The entry recorded most often should survive eviction.
	for i := 0; i < 5; i++ {
		h.Record("まもる", "守る", nil, now)
	}
	for i := 0; i < 200; i++ {
		h.Record("よみ", string(rune('a'+i%26))+string(rune('0'+i/26)), nil, now)
	}

	unigrams, _ := h.Counts()
	assert.LessOrEqual(t, unigrams, 100)
	assert.Positive(t, h.UnigramBoost("まもる", "守る", now), "frequent entry survives")
}

func TestCheckpointRoundTrip(t *testing.T) {
	h := New(testCfg())
	now := uint64(1_700_000_000)
	h.Record("きょうは", "今日は", []Pair{
		{Reading: "きょう", Surface: "今日"},
		{Reading: "は", Surface: "は"},
	}, now)
	h.Record("にほん", "日本", nil, now+5)

	data, err := h.Bytes()
	require.NoError(t, err)
	h2, err := FromBytes(data, testCfg())
	require.NoError(t, err)

	assert.Equal(t, h.toData(), h2.toData())
}

func TestCheckpointErrors(t *testing.T) {
	_, err := FromBytes([]byte("LX"), testCfg())
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = FromBytes([]byte("XXXX\x01{}"), testCfg())
	assert.ErrorIs(t, err, ErrInvalidMagic)

	_, err = FromBytes([]byte("LXUD\x09{}"), testCfg())
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = FromBytes([]byte("LXUD\x01not json"), testCfg())
	assert.Error(t, err)
}

func TestOpenSaveReplay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user_history.lxud")
	now := uint64(1_700_000_000)

	h, err := Open(path, testCfg())
	require.NoError(t, err)
	h.Record("にほん", "日本", nil, now)
	h.Record("きょうは", "今日は", []Pair{
		{Reading: "きょう", Surface: "今日"},
		{Reading: "は", Surface: "は"},
	}, now)
	require.NoError(t, h.Close())

	// Reopen without a checkpoint: state comes purely from WAL replay.
	h2, err := Open(path, testCfg())
	require.NoError(t, err)
	assert.Equal(t, int64(3000), h2.UnigramBoost("にほん", "日本", now))
	assert.Positive(t, h2.BigramBoost("今日", "は", "は", now))

	// Save writes the checkpoint and truncates the WAL.
	require.NoError(t, h2.Save(path))
	stat, err := os.Stat(path + ".wal")
	require.NoError(t, err)
	assert.Zero(t, stat.Size())
	require.NoError(t, h2.Close())

	// Reopen from checkpoint alone.
	h3, err := Open(path, testCfg())
	require.NoError(t, err)
	assert.Equal(t, h2.toData(), h3.toData())
	require.NoError(t, h3.Close())
}

func TestWALTruncatesAtCorruptFrame(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user_history.lxud")
	now := uint64(1_700_000_000)

	h, err := Open(path, testCfg())
	require.NoError(t, err)
	h.Record("いち", "一", nil, now)
	h.Record("に", "二", nil, now)
	h.Record("さん", "三", nil, now)
	require.NoError(t, h.Close())

	// Corrupt the second frame's payload byte.
	walPath := path + ".wal"
	data, err := os.ReadFile(walPath)
	require.NoError(t, err)
	firstLen := int(binary.LittleEndian.Uint32(data))
	data[8+firstLen+8] ^= 0xFF
	require.NoError(t, os.WriteFile(walPath, data, 0o644))

	h2, err := Open(path, testCfg())
	require.NoError(t, err)
	assert.Positive(t, h2.UnigramBoost("いち", "一", now), "frame before corruption replays")
	assert.Zero(t, h2.UnigramBoost("に", "二", now), "corrupt frame dropped")
	assert.Zero(t, h2.UnigramBoost("さん", "三", now), "frames after corruption dropped")
	require.NoError(t, h2.Close())
}
