package dict

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	dptrie "github.com/derekparker/trie"
)

// LXDX on-disk layout:
//
//	[4B magic "LXDX"][1B version]
//	[trie_bytes_len:u32][entries_bytes_len:u32]
//	[trie_bytes][entries_bytes]
//
// trie_bytes is the reading index: a sorted sequence of
// (key_len:u16, key, entry_offset:u32, count:u16) records preceded by a
// reading count. entries_bytes is a flat record array of
// (surface_offset:u32, left_id:u16, right_id:u16, word_cost:i16) followed by
// a string table of length-prefixed surfaces; surface_offset indexes the
// table. All integers are little-endian.
const (
	dictMagic   = "LXDX"
	dictVersion = 1

	dictHeaderSize = 4 + 1 + 4 + 4
	entryRecSize   = 4 + 2 + 2 + 2
)

// TrieDictionary is the system dictionary: an in-memory prefix trie over
// byte-encoded readings, each mapping to a cost-ordered entry list.
// Immutable after construction; concurrent reads are safe.
type TrieDictionary struct {
	trie     *dptrie.Trie
	readings []string // sorted
	entries  map[string][]Entry
}

// NewTrieDictionary builds a dictionary from reading → entries pairs.
// Entries under each reading are ordered by ascending cost.
func NewTrieDictionary(pairs map[string][]Entry) *TrieDictionary {
	d := &TrieDictionary{
		trie:     dptrie.New(),
		readings: make([]string, 0, len(pairs)),
		entries:  make(map[string][]Entry, len(pairs)),
	}
	for reading, list := range pairs {
		es := make([]Entry, len(list))
		copy(es, list)
		sort.SliceStable(es, func(i, j int) bool { return es[i].Cost < es[j].Cost })
		d.entries[reading] = es
		d.readings = append(d.readings, reading)
		d.trie.Add(reading, es)
	}
	sort.Strings(d.readings)
	return d
}

// Lookup implements Dictionary.
func (d *TrieDictionary) Lookup(reading string) ([]Entry, error) {
	es, ok := d.entries[reading]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, reading)
	}
	return es, nil
}

// CommonPrefixSearch implements Dictionary. A single pass over the query's
// char prefixes probes the reading map once per position.
func (d *TrieDictionary) CommonPrefixSearch(query string) []SearchResult {
	var results []SearchResult
	for i := range query {
		if i == 0 {
			continue
		}
		if es, ok := d.entries[query[:i]]; ok {
			results = append(results, SearchResult{Reading: query[:i], Entries: es})
		}
	}
	if es, ok := d.entries[query]; ok {
		results = append(results, SearchResult{Reading: query, Entries: es})
	}
	return results
}

// PredictiveSearch implements Dictionary.
func (d *TrieDictionary) PredictiveSearch(prefix string, max int) []SearchResult {
	keys := d.trie.PrefixSearch(prefix)
	sort.Strings(keys)
	if max > 0 && len(keys) > max {
		keys = keys[:max]
	}
	results := make([]SearchResult, 0, len(keys))
	for _, k := range keys {
		results = append(results, SearchResult{Reading: k, Entries: d.entries[k]})
	}
	return results
}

// Stats returns (reading count, entry count).
func (d *TrieDictionary) Stats() (int, int) {
	n := 0
	for _, es := range d.entries {
		n += len(es)
	}
	return len(d.readings), n
}

// Readings returns the sorted reading list.
func (d *TrieDictionary) Readings() []string { return d.readings }

// Bytes serializes the dictionary to the LXDX format.
func (d *TrieDictionary) Bytes() []byte {
	// String table with global surface deduplication.
	var pool []byte
	poolOff := make(map[string]uint32)
	intern := func(s string) uint32 {
		if off, ok := poolOff[s]; ok {
			return off
		}
		off := uint32(len(pool))
		poolOff[s] = off
		pool = binary.LittleEndian.AppendUint16(pool, uint16(len(s)))
		pool = append(pool, s...)
		return off
	}

	var trieBytes []byte
	trieBytes = binary.LittleEndian.AppendUint32(trieBytes, uint32(len(d.readings)))

	var recs []byte
	recCount := uint32(0)
	for _, reading := range d.readings {
		es := d.entries[reading]
		trieBytes = binary.LittleEndian.AppendUint16(trieBytes, uint16(len(reading)))
		trieBytes = append(trieBytes, reading...)
		trieBytes = binary.LittleEndian.AppendUint32(trieBytes, recCount)
		trieBytes = binary.LittleEndian.AppendUint16(trieBytes, uint16(len(es)))
		for _, e := range es {
			recs = binary.LittleEndian.AppendUint32(recs, intern(e.Surface))
			recs = binary.LittleEndian.AppendUint16(recs, e.LeftID)
			recs = binary.LittleEndian.AppendUint16(recs, e.RightID)
			recs = binary.LittleEndian.AppendUint16(recs, uint16(e.Cost))
			recCount++
		}
	}

	var entriesBytes []byte
	entriesBytes = binary.LittleEndian.AppendUint32(entriesBytes, recCount)
	entriesBytes = append(entriesBytes, recs...)
	entriesBytes = binary.LittleEndian.AppendUint32(entriesBytes, uint32(len(pool)))
	entriesBytes = append(entriesBytes, pool...)

	buf := make([]byte, 0, dictHeaderSize+len(trieBytes)+len(entriesBytes))
	buf = append(buf, dictMagic...)
	buf = append(buf, dictVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(trieBytes)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(entriesBytes)))
	buf = append(buf, trieBytes...)
	buf = append(buf, entriesBytes...)
	return buf
}

// TrieDictionaryFromBytes parses an LXDX image.
func TrieDictionaryFromBytes(data []byte) (*TrieDictionary, error) {
	if len(data) < dictHeaderSize {
		return nil, ErrInvalidHeader
	}
	if string(data[:4]) != dictMagic {
		return nil, ErrInvalidMagic
	}
	if data[4] != dictVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[4])
	}
	trieLen := binary.LittleEndian.Uint32(data[5:9])
	entriesLen := binary.LittleEndian.Uint32(data[9:13])
	if uint64(dictHeaderSize)+uint64(trieLen)+uint64(entriesLen) > uint64(len(data)) {
		return nil, ErrTruncated
	}
	trieBytes := data[dictHeaderSize : dictHeaderSize+int(trieLen)]
	entriesBytes := data[dictHeaderSize+int(trieLen) : dictHeaderSize+int(trieLen)+int(entriesLen)]

	recs, pool, err := splitEntriesSection(entriesBytes)
	if err != nil {
		return nil, err
	}

	if len(trieBytes) < 4 {
		return nil, ErrTruncated
	}
	readingCount := binary.LittleEndian.Uint32(trieBytes)
	pos := 4

	pairs := make(map[string][]Entry, readingCount)
	for i := uint32(0); i < readingCount; i++ {
		if pos+2 > len(trieBytes) {
			return nil, ErrTruncated
		}
		keyLen := int(binary.LittleEndian.Uint16(trieBytes[pos:]))
		pos += 2
		if pos+keyLen+6 > len(trieBytes) {
			return nil, ErrTruncated
		}
		reading := string(trieBytes[pos : pos+keyLen])
		pos += keyLen
		offset := binary.LittleEndian.Uint32(trieBytes[pos:])
		pos += 4
		count := int(binary.LittleEndian.Uint16(trieBytes[pos:]))
		pos += 2

		es := make([]Entry, 0, count)
		for j := 0; j < count; j++ {
			e, err := decodeEntryRecord(recs, pool, int(offset)+j)
			if err != nil {
				return nil, err
			}
			es = append(es, e)
		}
		pairs[reading] = es
	}

	return NewTrieDictionary(pairs), nil
}

func splitEntriesSection(data []byte) (recs, pool []byte, err error) {
	if len(data) < 4 {
		return nil, nil, ErrTruncated
	}
	recCount := int(binary.LittleEndian.Uint32(data))
	recsEnd := 4 + recCount*entryRecSize
	if recsEnd+4 > len(data) {
		return nil, nil, ErrTruncated
	}
	recs = data[4:recsEnd]
	poolLen := int(binary.LittleEndian.Uint32(data[recsEnd:]))
	poolStart := recsEnd + 4
	if poolStart+poolLen > len(data) {
		return nil, nil, ErrTruncated
	}
	return recs, data[poolStart : poolStart+poolLen], nil
}

func decodeEntryRecord(recs, pool []byte, idx int) (Entry, error) {
	off := idx * entryRecSize
	if off+entryRecSize > len(recs) {
		return Entry{}, ErrTruncated
	}
	surfaceOff := int(binary.LittleEndian.Uint32(recs[off:]))
	leftID := binary.LittleEndian.Uint16(recs[off+4:])
	rightID := binary.LittleEndian.Uint16(recs[off+6:])
	cost := int16(binary.LittleEndian.Uint16(recs[off+8:]))

	if surfaceOff+2 > len(pool) {
		return Entry{}, ErrTruncated
	}
	sLen := int(binary.LittleEndian.Uint16(pool[surfaceOff:]))
	if surfaceOff+2+sLen > len(pool) {
		return Entry{}, ErrTruncated
	}
	surface := string(pool[surfaceOff+2 : surfaceOff+2+sLen])

	return Entry{Surface: surface, Cost: cost, LeftID: leftID, RightID: rightID}, nil
}

// LoadTrieDictionary reads an LXDX file fully into memory.
func LoadTrieDictionary(path string) (*TrieDictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dict: read %s: %w", path, err)
	}
	return TrieDictionaryFromBytes(data)
}

// SaveTrieDictionary writes the LXDX image atomically (tmp + rename).
func SaveTrieDictionary(d *TrieDictionary, path string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, d.Bytes(), 0o644); err != nil {
		return fmt.Errorf("dict: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("dict: rename %s: %w", tmp, err)
	}
	return nil
}
