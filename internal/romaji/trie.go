// Package romaji implements the roman-letter to kana transducer.
//
// The mapping table is loaded from TOML (embedded defaults or a user file)
// and compiled once into a prefix trie. Lookups distinguish exact matches,
// proper prefixes, and keys that are both, which drives the drain logic in
// Convert.
package romaji

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
	dptrie "github.com/derekparker/trie"
)

//go:embed default_romaji.toml
var defaultTOML string

// DefaultTOML returns the embedded default romaji table.
func DefaultTOML() string { return defaultTOML }

// LookupKind classifies a trie probe result.
type LookupKind uint8

const (
	// LookupNone means no key matches and no key extends the query.
	LookupNone LookupKind = iota
	// LookupPrefix means the query is a proper prefix of at least one key.
	LookupPrefix
	// LookupExact means the query is a key and no key extends it.
	LookupExact
	// LookupExactAndPrefix means the query is a key and also a proper prefix
	// of a longer key (e.g. "n" vs "na").
	LookupExactAndPrefix
)

// LookupResult carries the classification and, for exact matches, the kana.
type LookupResult struct {
	Kind LookupKind
	Kana string
}

var (
	ErrEmptyTable  = errors.New("romaji: [mappings] table is empty")
	ErrNonASCIIKey = errors.New("romaji: non-ASCII key")
	ErrEmptyValue  = errors.New("romaji: empty value")
)

type tableDoc struct {
	Mappings map[string]string `toml:"mappings"`
}

// ParseTable parses TOML text into a validated romaji → kana map.
func ParseTable(tomlStr string) (map[string]string, error) {
	var doc tableDoc
	if _, err := toml.Decode(tomlStr, &doc); err != nil {
		return nil, fmt.Errorf("romaji: parse table: %w", err)
	}
	if len(doc.Mappings) == 0 {
		return nil, ErrEmptyTable
	}
	for k, v := range doc.Mappings {
		for i := 0; i < len(k); i++ {
			if k[i] >= 0x80 {
				return nil, fmt.Errorf("%w: %q", ErrNonASCIIKey, k)
			}
		}
		if v == "" {
			return nil, fmt.Errorf("%w: key %q", ErrEmptyValue, k)
		}
	}
	return doc.Mappings, nil
}

// Trie is the compiled romaji table. Immutable after construction and safe
// for concurrent lookups.
type Trie struct {
	trie *dptrie.Trie
	keys []string // sorted, for prefix-continuation checks
}

// NewTrie builds a trie from a parsed table.
func NewTrie(mappings map[string]string) *Trie {
	t := dptrie.New()
	keys := make([]string, 0, len(mappings))
	for k, v := range mappings {
		t.Add(k, v)
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Trie{trie: t, keys: keys}
}

// Load parses TOML and builds the trie in one step.
func Load(tomlStr string) (*Trie, error) {
	m, err := ParseTable(tomlStr)
	if err != nil {
		return nil, err
	}
	return NewTrie(m), nil
}

// MustDefault builds the trie from the embedded default table.
func MustDefault() *Trie {
	t, err := Load(defaultTOML)
	if err != nil {
		panic(fmt.Sprintf("romaji: embedded default table invalid: %v", err))
	}
	return t
}

// Lookup classifies a query against the table.
func (t *Trie) Lookup(query string) LookupResult {
	node, exact := t.trie.Find(query)
	longer := t.hasLongerKey(query)
	switch {
	case exact && longer:
		return LookupResult{Kind: LookupExactAndPrefix, Kana: node.Meta().(string)}
	case exact:
		return LookupResult{Kind: LookupExact, Kana: node.Meta().(string)}
	case longer:
		return LookupResult{Kind: LookupPrefix}
	default:
		return LookupResult{Kind: LookupNone}
	}
}

// hasLongerKey reports whether any key strictly extends query. The sorted key
// slice makes this a binary search instead of a trie walk.
func (t *Trie) hasLongerKey(query string) bool {
	i := sort.SearchStrings(t.keys, query)
	for ; i < len(t.keys); i++ {
		k := t.keys[i]
		if len(k) <= len(query) {
			if k == query {
				continue
			}
			return false
		}
		if k[:len(query)] != query {
			return false
		}
		return true
	}
	return false
}

// Len returns the number of table entries.
func (t *Trie) Len() int { return len(t.keys) }
