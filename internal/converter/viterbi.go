package converter

import (
	"sort"
	"strings"
)

// Segment is one phrase of a conversion result.
type Segment struct {
	// Kana reading of this segment.
	Reading string
	// Converted surface form.
	Surface string
}

// richSegment carries POS metadata through reranking and grouping.
type richSegment struct {
	Reading  string
	Surface  string
	LeftID   uint16
	RightID  uint16
	WordCost int16
}

// scoredPath is a complete path from N-best Viterbi with its running cost.
type scoredPath struct {
	segments []richSegment
	cost     int64
}

// singlePath builds a one-segment path with no POS metadata, used by
// rewriter-generated candidates.
func singlePath(reading, surface string, cost int64) scoredPath {
	return scoredPath{
		segments: []richSegment{{Reading: reading, Surface: surface}},
		cost:     cost,
	}
}

// surfaceKey joins the path's surfaces for deduplication.
func (p *scoredPath) surfaceKey() string {
	var b strings.Builder
	for _, s := range p.segments {
		b.WriteString(s.Surface)
	}
	return b.String()
}

func (p *scoredPath) toSegments() []Segment {
	out := make([]Segment, len(p.segments))
	for i, s := range p.segments {
		out[i] = Segment{Reading: s.Reading, Surface: s.Surface}
	}
	return out
}

// kEntry is one slot in a node's best-K list: accumulated cost plus a back
// pointer identifying which of the predecessor's K paths it continues.
type kEntry struct {
	cost     int64
	prevIdx  int // -1 for BOS
	prevRank int
}

// viterbiNBest keeps the top-K cost/backpointer pairs per node and returns
// up to k distinct paths sorted by cost. Paths with identical surface
// strings are deduplicated, keeping the best cost.
func viterbiNBest(lat *Lattice, costFn CostFunction, k int) []scoredPath {
	if lat.CharCount == 0 || k == 0 {
		return nil
	}

	topK := make([][]kEntry, len(lat.Nodes))

	for _, idx := range lat.ByStart[0] {
		node := &lat.Nodes[idx]
		cost := costFn.WordCost(node) + costFn.BosCost(node)
		topK[idx] = append(topK[idx], kEntry{cost: cost, prevIdx: -1})
	}

	// Forward pass. The next-node loop is outermost so WordCost is computed
	// once per node instead of once per (prev, next) pair.
	for pos := 1; pos < lat.CharCount; pos++ {
		for _, nextIdx := range lat.ByStart[pos] {
			nextNode := &lat.Nodes[nextIdx]
			word := costFn.WordCost(nextNode)

			for _, prevIdx := range lat.ByEnd[pos] {
				if len(topK[prevIdx]) == 0 {
					continue
				}
				prevNode := &lat.Nodes[prevIdx]
				transition := costFn.TransitionCost(prevNode, nextNode)

				for rank := 0; rank < len(topK[prevIdx]); rank++ {
					total := topK[prevIdx][rank].cost + transition + word
					insertTopK(&topK[nextIdx], k, kEntry{
						cost:     total,
						prevIdx:  prevIdx,
						prevRank: rank,
					})
				}
			}
		}
	}

	// Collect top-K at EOS with the eos adjustment.
	type eosEntry struct {
		cost int64
		idx  int
		rank int
	}
	var eosEntries []eosEntry
	for _, nodeIdx := range lat.ByEnd[lat.CharCount] {
		node := &lat.Nodes[nodeIdx]
		eos := costFn.EosCost(node)
		for rank, e := range topK[nodeIdx] {
			eosEntries = append(eosEntries, eosEntry{cost: e.cost + eos, idx: nodeIdx, rank: rank})
		}
	}
	// Stable sort keeps the node-index/rank discovery order as the tie break.
	sort.SliceStable(eosEntries, func(i, j int) bool { return eosEntries[i].cost < eosEntries[j].cost })

	var results []scoredPath
	seen := make(map[string]struct{})
	for _, ee := range eosEntries {
		if len(results) >= k {
			break
		}
		p := scoredPath{segments: backtrace(topK, ee.idx, ee.rank, lat), cost: ee.cost}
		key := p.surfaceKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		results = append(results, p)
	}
	return results
}

// insertTopK inserts an entry into an ascending-cost list of max size k.
// Equal costs insert after existing entries, so ties resolve by predecessor
// index and then rank (the discovery order of the forward pass). The list
// stays a slice rather than a heap because backtrace indexes finalized ranks.
func insertTopK(list *[]kEntry, k int, e kEntry) {
	l := *list
	pos := sort.Search(len(l), func(i int) bool { return l[i].cost > e.cost })
	if pos >= k {
		return
	}
	l = append(l, kEntry{})
	copy(l[pos+1:], l[pos:])
	l[pos] = e
	if len(l) > k {
		l = l[:k]
	}
	*list = l
}

// backtrace reconstructs a path from a specific (node, rank) at EOS.
func backtrace(topK [][]kEntry, endIdx, endRank int, lat *Lattice) []richSegment {
	var indices []int
	curIdx, curRank := endIdx, endRank
	for {
		indices = append(indices, curIdx)
		e := topK[curIdx][curRank]
		if e.prevIdx < 0 {
			break
		}
		curRank = e.prevRank
		curIdx = e.prevIdx
	}

	segs := make([]richSegment, 0, len(indices))
	for i := len(indices) - 1; i >= 0; i-- {
		node := &lat.Nodes[indices[i]]
		segs = append(segs, richSegment{
			Reading:  node.Reading,
			Surface:  node.Surface,
			LeftID:   node.LeftID,
			RightID:  node.RightID,
			WordCost: node.Cost,
		})
	}
	return segs
}
