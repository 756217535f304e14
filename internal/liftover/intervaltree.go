package liftover

import "sort"

// blockTree provides O(log n + k) overlap queries over aligned chain blocks
// using a sorted slice with a prefix-max of block ends. Built once, never
// modified.
type blockTree struct {
	blocks []block
	maxEnd []int64 // maxEnd[i] = max(end) for blocks[:i+1]
}

// block is one ungapped alignment: source [start, end) maps to
// target [tStart, tStart+end-start) on targetChrom.
type block struct {
	start, end  int64
	tStart      int64
	targetChrom string
	targetSize  int64
	reverse     bool
	score       int64
}

func buildBlockTree(blocks []block) *blockTree {
	if len(blocks) == 0 {
		return &blockTree{}
	}

	sorted := append([]block(nil), blocks...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].start < sorted[j].start
	})

	maxEnd := make([]int64, len(sorted))
	maxEnd[0] = sorted[0].end
	for i := 1; i < len(sorted); i++ {
		maxEnd[i] = sorted[i].end
		if maxEnd[i-1] > maxEnd[i] {
			maxEnd[i] = maxEnd[i-1]
		}
	}
	return &blockTree{blocks: sorted, maxEnd: maxEnd}
}

// find returns every block containing the 0-based position pos.
func (t *blockTree) find(pos int64) []block {
	if len(t.blocks) == 0 {
		return nil
	}

	hi := sort.Search(len(t.blocks), func(i int) bool {
		return t.blocks[i].start > pos
	})

	var result []block
	for i := hi - 1; i >= 0; i-- {
		// maxEnd is exclusive like end, so nothing left of i can contain pos.
		if t.maxEnd[i] <= pos {
			break
		}
		if t.blocks[i].end > pos {
			result = append(result, t.blocks[i])
		}
	}
	return result
}

// mapPos maps a 0-based source position inside b to its 0-based target.
func (b block) mapPos(pos int64) int64 {
	t := b.tStart + (pos - b.start)
	if b.reverse {
		return b.targetSize - 1 - t
	}
	return t
}
