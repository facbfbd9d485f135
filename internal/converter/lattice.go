// Package converter builds word lattices over kana readings and extracts
// N-best conversion paths with a Viterbi search, followed by reranking,
// rewriting, and phrase grouping.
package converter

import (
	"lexime/internal/dict"
)

// LatticeNode is one candidate dictionary entry occupying a character span
// of the reading.
type LatticeNode struct {
	// Start position (char index, inclusive).
	Start int
	// End position (char index, exclusive).
	End int
	// Kana substring covered by this node.
	Reading string
	// Surface form (kanji, kana, etc.).
	Surface string
	// Word cost; lower is preferred.
	Cost int16
	// POS boundary ids.
	LeftID  uint16
	RightID uint16
}

// Lattice holds every possible segmentation of a kana string, indexed by
// start and end character positions. Built once per candidate-generation
// call and discarded after.
type Lattice struct {
	Input     string
	Nodes     []LatticeNode
	ByEnd     [][]int // ByEnd[i] = indices of nodes ending at position i
	ByStart   [][]int // ByStart[i] = indices of nodes starting at position i
	CharCount int
}

// BuildLattice constructs the lattice via one common-prefix search per start
// position. Positions with no single-character dictionary match receive an
// unknown-word fallback node with unknownWordCost, which guarantees that
// every position stays reachable.
func BuildLattice(d dict.Dictionary, kana string, unknownWordCost int16) *Lattice {
	runes := []rune(kana)
	charCount := len(runes)

	byteOffsets := make([]int, 0, charCount+1)
	for i := range kana {
		byteOffsets = append(byteOffsets, i)
	}
	byteOffsets = append(byteOffsets, len(kana))

	lat := &Lattice{
		Input:     kana,
		ByEnd:     make([][]int, charCount+1),
		ByStart:   make([][]int, charCount),
		CharCount: charCount,
	}

	for start := 0; start < charCount; start++ {
		hasSingleCharMatch := false
		suffix := kana[byteOffsets[start]:]

		for _, sr := range d.CommonPrefixSearch(suffix) {
			readingChars := len([]rune(sr.Reading))
			end := start + readingChars
			for _, e := range sr.Entries {
				idx := len(lat.Nodes)
				lat.Nodes = append(lat.Nodes, LatticeNode{
					Start:   start,
					End:     end,
					Reading: sr.Reading,
					Surface: e.Surface,
					Cost:    e.Cost,
					LeftID:  e.LeftID,
					RightID: e.RightID,
				})
				lat.ByEnd[end] = append(lat.ByEnd[end], idx)
				lat.ByStart[start] = append(lat.ByStart[start], idx)
				if readingChars == 1 {
					hasSingleCharMatch = true
				}
			}
		}

		if !hasSingleCharMatch {
			ch := string(runes[start])
			idx := len(lat.Nodes)
			lat.Nodes = append(lat.Nodes, LatticeNode{
				Start:   start,
				End:     start + 1,
				Reading: ch,
				Surface: ch,
				Cost:    unknownWordCost,
			})
			lat.ByEnd[start+1] = append(lat.ByEnd[start+1], idx)
			lat.ByStart[start] = append(lat.ByStart[start], idx)
		}
	}

	return lat
}
