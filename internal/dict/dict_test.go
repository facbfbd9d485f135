package dict

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDict() *TrieDictionary {
	return NewTrieDictionary(map[string][]Entry{
		"きょう": {
			{Surface: "今日", Cost: 3000, LeftID: 100, RightID: 100},
			{Surface: "京", Cost: 5000, LeftID: 101, RightID: 101},
		},
		"きょうと": {
			{Surface: "京都", Cost: 3500, LeftID: 103, RightID: 103},
		},
		"は": {
			{Surface: "は", Cost: 2000, LeftID: 200, RightID: 200},
		},
		"き": {
			{Surface: "木", Cost: 4000, LeftID: 100, RightID: 100},
		},
	})
}

func TestLookup(t *testing.T) {
	d := testDict()

	es, err := d.Lookup("きょう")
	require.NoError(t, err)
	require.Len(t, es, 2)
	assert.Equal(t, "今日", es[0].Surface, "entries ordered by cost")
	assert.Equal(t, "京", es[1].Surface)

	_, err = d.Lookup("そんざい")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, LookupAll(d, "そんざい"))
}

func TestCommonPrefixSearch(t *testing.T) {
	d := testDict()

	results := d.CommonPrefixSearch("きょうはいい")
	readings := make([]string, 0, len(results))
	for _, r := range results {
		readings = append(readings, r.Reading)
	}
	assert.Equal(t, []string{"き", "きょう"}, readings, "shortest prefix first")

	results = d.CommonPrefixSearch("きょうと")
	readings = readings[:0]
	for _, r := range results {
		readings = append(readings, r.Reading)
	}
	assert.Equal(t, []string{"き", "きょう", "きょうと"}, readings)
}

func TestPredictiveSearch(t *testing.T) {
	d := testDict()

	results := d.PredictiveSearch("きょう", 0)
	require.Len(t, results, 2)
	assert.Equal(t, "きょう", results[0].Reading)
	assert.Equal(t, "きょうと", results[1].Reading)

	results = d.PredictiveSearch("きょう", 1)
	require.Len(t, results, 1)

	assert.Empty(t, d.PredictiveSearch("そん", 0))
}

func TestPredictRanked(t *testing.T) {
	d := testDict()

	ranked := PredictRanked(d, "きょう", 10, 100)
	require.NotEmpty(t, ranked)
	assert.Equal(t, "今日", ranked[0].Entry.Surface, "lowest cost first")
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i].Entry.Cost, ranked[i-1].Entry.Cost)
	}
}

func TestDictRoundTrip(t *testing.T) {
	d := testDict()
	d2, err := TrieDictionaryFromBytes(d.Bytes())
	require.NoError(t, err)

	assert.Equal(t, d.Readings(), d2.Readings())
	for _, reading := range d.Readings() {
		want, err := d.Lookup(reading)
		require.NoError(t, err)
		got, err := d2.Lookup(reading)
		require.NoError(t, err)
		assert.Equal(t, want, got, "entries for %q", reading)
	}
}

func TestDictFileRoundTrip(t *testing.T) {
	d := testDict()
	path := filepath.Join(t.TempDir(), "system.lxdx")
	require.NoError(t, SaveTrieDictionary(d, path))

	d2, err := LoadTrieDictionary(path)
	require.NoError(t, err)
	es, err := d2.Lookup("きょう")
	require.NoError(t, err)
	assert.Len(t, es, 2)
}

func TestDictFromBytesErrors(t *testing.T) {
	_, err := TrieDictionaryFromBytes([]byte("LX"))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	bad := testDict().Bytes()
	bad[0] = 'X'
	_, err = TrieDictionaryFromBytes(bad)
	assert.ErrorIs(t, err, ErrInvalidMagic)

	bad = testDict().Bytes()
	bad[4] = 99
	_, err = TrieDictionaryFromBytes(bad)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	bad = testDict().Bytes()
	_, err = TrieDictionaryFromBytes(bad[:len(bad)-10])
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestConnectionMatrix(t *testing.T) {
	costs := []int16{
		0, 10, 20,
		30, 40, 50,
		60, 70, 80,
	}
	roles := []Role{RoleContent, RoleFunction, RoleSuffix}
	m := NewConnectionMatrix(3, 3, roles, costs)

	assert.Equal(t, int16(40), m.Cost(1, 1))
	assert.Equal(t, int16(50), m.Cost(1, 2))
	assert.Equal(t, int16(0), m.Cost(100, 0), "out of range costs 0")

	assert.Equal(t, RoleFunction, m.Role(1))
	assert.True(t, m.IsFunctionWord(1))
	assert.True(t, m.IsSuffix(2))
	assert.Equal(t, RoleContent, m.Role(100))

	assert.Equal(t, int64(0), ConnCost(nil, 1, 1), "nil matrix is the unigram fallback")
	assert.Equal(t, int64(40), ConnCost(m, 1, 1))
}

func TestConnectionMatrixRoundTrip(t *testing.T) {
	costs := make([]int16, 4*4)
	for i := range costs {
		costs[i] = int16(i*7 - 20)
	}
	roles := []Role{RoleContent, RoleFunction, RolePrefix, RoleNonIndependent}
	m := NewConnectionMatrix(4, 4, roles, costs)

	m2, err := ConnectionMatrixFromBytes(m.Bytes())
	require.NoError(t, err)
	assert.Equal(t, m.Rows(), m2.Rows())
	assert.Equal(t, m.Cols(), m2.Cols())
	for l := uint16(0); l < 4; l++ {
		for r := uint16(0); r < 4; r++ {
			assert.Equal(t, m.Cost(l, r), m2.Cost(l, r))
		}
		assert.Equal(t, m.Role(l), m2.Role(l))
	}

	path := filepath.Join(t.TempDir(), "conn.lxcx")
	require.NoError(t, SaveConnectionMatrix(m, path))
	m3, err := LoadConnectionMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, m.Cost(2, 3), m3.Cost(2, 3))
}

func TestUserDictionary(t *testing.T) {
	u := NewUserDictionary()

	assert.True(t, u.Register("らーめん", "拉麺"))
	assert.False(t, u.Register("らーめん", "拉麺"), "duplicate rejected")
	assert.True(t, u.Register("らーめん", "ラーメン亭"))

	es, err := u.Lookup("らーめん")
	require.NoError(t, err)
	require.Len(t, es, 2)
	for _, e := range es {
		assert.Equal(t, UserPOSID, e.LeftID)
		assert.Equal(t, UserWordCost, e.Cost)
	}

	assert.True(t, u.Unregister("らーめん", "ラーメン亭"))
	assert.False(t, u.Unregister("らーめん", "ラーメン亭"))
	assert.Equal(t, 1, u.Len())
}

func TestUserDictionaryRoundTrip(t *testing.T) {
	u := NewUserDictionary()
	u.Register("らーめん", "拉麺")
	u.Register("ぎゅうどん", "牛丼")

	path := filepath.Join(t.TempDir(), "user.lxuw")
	require.NoError(t, u.Save(path))

	u2, err := LoadUserDictionary(path)
	require.NoError(t, err)
	assert.Equal(t, u.List(), u2.List())

	u3, err := LoadUserDictionary(filepath.Join(t.TempDir(), "missing.lxuw"))
	require.NoError(t, err)
	assert.Equal(t, 0, u3.Len())
}

func TestCompositeDictionary(t *testing.T) {
	system := testDict()
	user := NewUserDictionary()
	user.Register("きょう", "響")
	user.Register("らーめん", "拉麺")

	c := NewCompositeDictionary(system, user)

	es, err := c.Lookup("きょう")
	require.NoError(t, err)
	surfaces := make([]string, 0, len(es))
	for _, e := range es {
		surfaces = append(surfaces, e.Surface)
	}
	assert.Contains(t, surfaces, "今日")
	assert.Contains(t, surfaces, "京")
	assert.Contains(t, surfaces, "響")
	assert.Equal(t, "響", es[0].Surface, "user entry wins on cost")

	es, err = c.Lookup("らーめん")
	require.NoError(t, err)
	assert.Len(t, es, 1)

	_, err = c.Lookup("そんざい")
	assert.ErrorIs(t, err, ErrNotFound)

	results := c.CommonPrefixSearch("きょうは")
	found := false
	for _, sr := range results {
		if sr.Reading == "きょう" {
			found = true
			assert.Len(t, sr.Entries, 3)
		}
	}
	assert.True(t, found)
}

func TestCompositeDedupKeepsLowestCost(t *testing.T) {
	a := NewTrieDictionary(map[string][]Entry{
		"きょう": {{Surface: "今日", Cost: 5000, LeftID: 1, RightID: 1}},
	})
	b := NewTrieDictionary(map[string][]Entry{
		"きょう": {{Surface: "今日", Cost: 2000, LeftID: 2, RightID: 2}},
	})
	c := NewCompositeDictionary(a, b)

	es, err := c.Lookup("きょう")
	require.NoError(t, err)
	require.Len(t, es, 1)
	assert.Equal(t, int16(2000), es[0].Cost)
}
