package romaji

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrie(t *testing.T) *Trie {
	t.Helper()
	tr, err := Load(DefaultTOML())
	require.NoError(t, err)
	return tr
}

func TestConvert(t *testing.T) {
	tr := testTrie(t)

	tests := []struct {
		name        string
		kana        string
		pending     string
		force       bool
		wantKana    string
		wantPending string
	}{
		{"basic ka", "", "ka", false, "か", ""},
		{"sokuon kk", "", "kk", false, "っ", "k"},
		{"hatsuon nk", "", "nk", false, "ん", "k"},
		{"n force", "", "n", true, "ん", ""},
		{"n no force", "", "n", false, "", "n"},
		{"consecutive kakiku", "", "kakiku", false, "かきく", ""},
		{"q prefix stays pending", "", "q", false, "", "q"},
		{"shi", "", "shi", false, "し", ""},
		{"existing composed preserved", "あ", "ka", false, "あか", ""},
		{"youon sha", "", "sha", false, "しゃ", ""},
		{"mixed kyouha", "", "kyouha", false, "きょうは", ""},
		{"sokuon kka", "", "kka", false, "っか", ""},
		{"collapse k + a", "kあ", "", false, "か", ""},
		{"collapse mid", "あkい", "", false, "あき", ""},
		{"collapse multi latin", "shあ", "", false, "しゃ", ""},
		{"no collapse non vowel", "kが", "", false, "kが", ""},
		{"invalid chy no force", "", "chy", false, "", "chy"},
		{"invalid chy force", "", "chy", true, "chy", ""},
		{"chi", "", "chi", false, "ち", ""},
		{"tc no force", "", "tc", false, "", "tc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tr.Convert(tt.kana, tt.pending, tt.force)
			assert.Equal(t, tt.wantKana, r.ComposedKana)
			assert.Equal(t, tt.wantPending, r.PendingRomaji)
		})
	}
}

func TestConvertForceEmptiesPending(t *testing.T) {
	tr := testTrie(t)
	for _, pending := range []string{"n", "ky", "chy", "tc", "x", "kkk"} {
		r := tr.Convert("", pending, true)
		assert.Empty(t, r.PendingRomaji, "force must drain %q", pending)
	}
}

func TestConvertIdempotentWithoutExactMatch(t *testing.T) {
	tr := testTrie(t)
	r1 := tr.Convert("", "ky", false)
	r2 := tr.Convert(r1.ComposedKana, r1.PendingRomaji, false)
	assert.Equal(t, r1, r2)
}

func TestCollapseIdempotent(t *testing.T) {
	tr := testTrie(t)
	once := tr.collapseLatinKana("あkいshあ")
	twice := tr.collapseLatinKana(once)
	assert.Equal(t, once, twice)
}

func TestLookup(t *testing.T) {
	tr := testTrie(t)

	tests := []struct {
		query string
		kind  LookupKind
		kana  string
	}{
		{"a", LookupExact, "あ"},
		{"k", LookupPrefix, ""},
		{"q", LookupPrefix, ""},
		{"-", LookupExact, "ー"},
		{"sha", LookupExact, "しゃ"},
		{"ka", LookupExact, "か"},
		{"sh", LookupPrefix, ""},
		{"nn", LookupExact, "ん"},
		{"n", LookupPrefix, ""},
		{".", LookupExact, "。"},
		{",", LookupExact, "、"},
		{"?", LookupExact, "？"},
		{"zh", LookupExact, "←"},
		{"zj", LookupExact, "↓"},
		{"z.", LookupExact, "…"},
		{"xyz", LookupNone, ""},
	}
	for _, tt := range tests {
		res := tr.Lookup(tt.query)
		assert.Equal(t, tt.kind, res.Kind, "query %q", tt.query)
		if tt.kana != "" {
			assert.Equal(t, tt.kana, res.Kana, "query %q", tt.query)
		}
	}
}

func TestLookupChiExactOrPrefix(t *testing.T) {
	tr := testTrie(t)
	res := tr.Lookup("chi")
	require.Contains(t, []LookupKind{LookupExact, LookupExactAndPrefix}, res.Kind)
	assert.Equal(t, "ち", res.Kana)
}

func TestAllMappingsResolve(t *testing.T) {
	tr := testTrie(t)
	m, err := ParseTable(DefaultTOML())
	require.NoError(t, err)
	for romaji, kana := range m {
		res := tr.Lookup(romaji)
		require.Contains(t, []LookupKind{LookupExact, LookupExactAndPrefix}, res.Kind,
			"mapping %q missing", romaji)
		assert.Equal(t, kana, res.Kana, "mapping mismatch for %q", romaji)
	}
}

func TestParseTableErrors(t *testing.T) {
	_, err := ParseTable("[mappings]\n")
	assert.ErrorIs(t, err, ErrEmptyTable)

	_, err = ParseTable("[mappings]\n\"あ\" = \"a\"\n")
	assert.ErrorIs(t, err, ErrNonASCIIKey)

	_, err = ParseTable("[mappings]\na = \"\"\n")
	assert.ErrorIs(t, err, ErrEmptyValue)

	_, err = ParseTable("not valid toml {{{")
	assert.Error(t, err)

	m, err := ParseTable(DefaultTOML())
	require.NoError(t, err)
	assert.Equal(t, 198, len(m))
}
