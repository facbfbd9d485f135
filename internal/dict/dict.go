// Package dict implements the read-only system dictionary, the writable user
// dictionary, the composite layering of both, and the POS connection matrix.
//
// The system dictionary maps hiragana readings to candidate entries and is
// queried three ways: exact lookup, common-prefix search (every prefix of a
// query that is a reading), and predictive search (every reading extending a
// prefix). All structures are immutable after load except UserDictionary,
// which guards its map with a reader/writer lock.
package dict

import (
	"errors"
	"sort"
)

// Errors shared by the on-disk formats.
var (
	ErrNotFound           = errors.New("dict: reading not found")
	ErrInvalidHeader      = errors.New("dict: invalid header (too short)")
	ErrInvalidMagic       = errors.New("dict: invalid magic bytes")
	ErrUnsupportedVersion = errors.New("dict: unsupported version")
	ErrTruncated          = errors.New("dict: truncated data")
)

// Entry is a single dictionary item. Entries are created at build time and
// never mutated at runtime.
type Entry struct {
	Surface string
	Cost    int16
	LeftID  uint16
	RightID uint16
}

// SearchResult groups the entries found under one reading.
type SearchResult struct {
	Reading string
	Entries []Entry
}

// Dictionary is the lookup interface shared by the system, user, and
// composite dictionaries. Implementations must be safe for concurrent reads.
type Dictionary interface {
	// Lookup returns the entries for an exact reading, or ErrNotFound.
	Lookup(reading string) ([]Entry, error)

	// CommonPrefixSearch enumerates every prefix of query that is a reading,
	// shortest first.
	CommonPrefixSearch(query string) []SearchResult

	// PredictiveSearch enumerates readings that start with prefix, in byte
	// order, up to max results (max <= 0 means unlimited).
	PredictiveSearch(prefix string, max int) []SearchResult
}

// LookupAll is Lookup with ErrNotFound flattened to an empty slice, for the
// many call sites that treat an unknown reading as "no candidates".
func LookupAll(d Dictionary, reading string) []Entry {
	entries, err := d.Lookup(reading)
	if err != nil {
		return nil
	}
	return entries
}

// ContainsReading reports whether the reading exists in the dictionary.
func ContainsReading(d Dictionary, reading string) bool {
	_, err := d.Lookup(reading)
	return err == nil
}

// RankedEntry is a prediction result paired with its reading.
type RankedEntry struct {
	Reading string
	Entry   Entry
}

// PredictRanked scans up to scanLimit readings from predictive search,
// flattens the entries, sorts by cost, deduplicates by surface (keeping the
// lowest cost), and returns the top max results.
func PredictRanked(d Dictionary, prefix string, max, scanLimit int) []RankedEntry {
	var flat []RankedEntry
	for _, sr := range d.PredictiveSearch(prefix, scanLimit) {
		for _, e := range sr.Entries {
			flat = append(flat, RankedEntry{Reading: sr.Reading, Entry: e})
		}
	}

	sort.SliceStable(flat, func(i, j int) bool { return flat[i].Entry.Cost < flat[j].Entry.Cost })

	seen := make(map[string]struct{}, len(flat))
	out := flat[:0]
	for _, re := range flat {
		if _, dup := seen[re.Entry.Surface]; dup {
			continue
		}
		seen[re.Entry.Surface] = struct{}{}
		out = append(out, re)
	}

	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
