// Package spatial provides the secondary ordering over an event log's
// blocks that answers "which block is at this (address, tick)" and
// "which blocks are visible in this window".
//
// The index is rebuilt from scratch after the log mutates; it keeps
// block positions sorted by start address plus a running prefix maximum
// of end addresses, which lets the accelerated point query prune its
// backward scan without a full interval tree.
//
// Two point-query implementations exist behind the same contract:
// BlockAtSlow is the authoritative linear scan and the oracle for
// randomized equivalence tests; BlockAt is the accelerated search. The
// two must agree on every input.
package spatial

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/heapview/coord"
	"github.com/hupe1980/heapview/eventlog"
)

// Index is an address-sorted view over one log's block arena.
//
// Rebuild must be called after every log mutation and before the next
// query; Stale reports whether that has happened. Queries on a stale
// index return results for the old generation.
type Index struct {
	log *eventlog.Log

	// byAddr holds all block positions sorted by (StartAddr, AllocTick,
	// position); prefixMaxEnd[i] is the largest EndAddr among
	// byAddr[0..i].
	byAddr       []eventlog.BlockPos
	prefixMaxEnd []uint64

	// heaps maps each heap id seen in the log to the bitmap of block
	// positions allocated from it.
	heaps map[uint8]*roaring.Bitmap

	generation uint64
	built      bool
}

// New returns an index over log. The index is stale until the first
// Rebuild.
func New(log *eventlog.Log) *Index {
	return &Index{log: log}
}

// Stale reports whether the log has mutated since the last Rebuild.
func (x *Index) Stale() bool {
	return !x.built || x.generation != x.log.Generation()
}

// Rebuild recomputes the sorted order, the prefix maxima and the
// per-heap bitmaps from the current log contents.
func (x *Index) Rebuild() {
	blocks := x.log.Blocks()
	n := len(blocks)

	x.byAddr = x.byAddr[:0]
	for pos := 0; pos < n; pos++ {
		x.byAddr = append(x.byAddr, eventlog.BlockPos(pos))
	}
	sort.Slice(x.byAddr, func(i, j int) bool {
		bi, bj := blocks[x.byAddr[i]], blocks[x.byAddr[j]]
		if bi.StartAddr != bj.StartAddr {
			return bi.StartAddr < bj.StartAddr
		}
		if bi.AllocTick != bj.AllocTick {
			return bi.AllocTick < bj.AllocTick
		}
		return x.byAddr[i] < x.byAddr[j]
	})

	x.prefixMaxEnd = x.prefixMaxEnd[:0]
	var maxEnd uint64
	for _, pos := range x.byAddr {
		if end := blocks[pos].EndAddr(); end > maxEnd {
			maxEnd = end
		}
		x.prefixMaxEnd = append(x.prefixMaxEnd, maxEnd)
	}

	x.heaps = make(map[uint8]*roaring.Bitmap)
	for pos := 0; pos < n; pos++ {
		bm, ok := x.heaps[blocks[pos].HeapID]
		if !ok {
			bm = roaring.New()
			x.heaps[blocks[pos].HeapID] = bm
		}
		bm.Add(uint32(pos))
	}

	x.generation = x.log.Generation()
	x.built = true
}

// BlockAtSlow is the reference point query: a linear scan over the
// whole arena. It returns the block whose address range contains addr
// and whose lifetime contains tick; when several qualify (possible
// after a double-alloc conflict) the one with the latest allocation
// tick wins, latest arena position breaking the remaining tie.
func (x *Index) BlockAtSlow(addr uint64, tick uint32) (eventlog.Block, eventlog.BlockPos, bool) {
	blocks := x.log.Blocks()
	var (
		bestPos eventlog.BlockPos
		found   bool
	)
	for pos := 0; pos < len(blocks); pos++ {
		b := blocks[pos]
		if !b.ContainsAddr(addr) || !b.LiveAt(tick) {
			continue
		}
		if !found || better(b, eventlog.BlockPos(pos), blocks[bestPos], bestPos) {
			bestPos = eventlog.BlockPos(pos)
			found = true
		}
	}
	if !found {
		return eventlog.Block{}, 0, false
	}
	return blocks[bestPos], bestPos, true
}

// BlockAt is the accelerated point query. It binary-searches the sorted
// order for the first block starting beyond addr, then walks backwards;
// the prefix maximum of end addresses bounds how far a containing block
// can sit to the left, so the walk stops as soon as no earlier block
// can still reach addr. Must agree with BlockAtSlow on every input.
func (x *Index) BlockAt(addr uint64, tick uint32) (eventlog.Block, eventlog.BlockPos, bool) {
	blocks := x.log.Blocks()
	hi := sort.Search(len(x.byAddr), func(i int) bool {
		return blocks[x.byAddr[i]].StartAddr > addr
	})

	var (
		best    eventlog.Block
		bestPos eventlog.BlockPos
		found   bool
	)
	for i := hi - 1; i >= 0; i-- {
		if x.prefixMaxEnd[i] <= addr {
			break
		}
		pos := x.byAddr[i]
		b := blocks[pos]
		if !b.ContainsAddr(addr) || !b.LiveAt(tick) {
			continue
		}
		if !found || better(b, pos, best, bestPos) {
			best, bestPos = b, pos
			found = true
		}
	}
	if !found {
		return eventlog.Block{}, 0, false
	}
	return best, bestPos, true
}

// better reports whether candidate (b, pos) beats the current best
// under the tie-break rule: latest allocation tick first, then latest
// arena position.
func better(b Block, pos eventlog.BlockPos, best Block, bestPos eventlog.BlockPos) bool {
	if b.AllocTick != best.AllocTick {
		return b.AllocTick > best.AllocTick
	}
	return pos > bestPos
}

// Block aliases the event log's block type for local signatures.
type Block = eventlog.Block

// ActiveBlocks returns the positions of every block whose address range
// intersects w's address span and whose lifetime intersects w's tick
// span, in ascending start-address order. This is the visibility
// predicate driving rendering.
func (x *Index) ActiveBlocks(w coord.Window) []eventlog.BlockPos {
	return x.activeBlocks(w, nil)
}

// ActiveBlocksFiltered is ActiveBlocks restricted to blocks allocated
// from the given heap ids. An empty heap list yields no blocks.
func (x *Index) ActiveBlocksFiltered(w coord.Window, heaps []uint8) []eventlog.BlockPos {
	filter := roaring.New()
	for _, id := range heaps {
		if bm, ok := x.heaps[id]; ok {
			filter.Or(bm)
		}
	}
	return x.activeBlocks(w, filter)
}

func (x *Index) activeBlocks(w coord.Window, filter *roaring.Bitmap) []eventlog.BlockPos {
	blocks := x.log.Blocks()
	// Everything from here on starts at or above w.MaxAddr and cannot
	// intersect the address span.
	hi := sort.Search(len(x.byAddr), func(i int) bool {
		return blocks[x.byAddr[i]].StartAddr >= w.MaxAddr
	})

	var active []eventlog.BlockPos
	for i := 0; i < hi; i++ {
		pos := x.byAddr[i]
		if filter != nil && !filter.Contains(uint32(pos)) {
			continue
		}
		if blockActive(blocks[pos], w) {
			active = append(active, pos)
		}
	}
	return active
}

// blockActive is the visibility predicate: the block's half-open
// address range and half-open lifetime must both intersect the window.
func blockActive(b Block, w coord.Window) bool {
	if b.StartAddr >= w.MaxAddr || b.EndAddr() <= w.MinAddr {
		return false
	}
	if b.AllocTick > w.MaxTick {
		return false
	}
	if !b.Open() && b.FreeTick <= w.MinTick {
		return false
	}
	return true
}

// HeapIDs returns the heap ids observed in the log at the last rebuild,
// in ascending order.
func (x *Index) HeapIDs() []uint8 {
	ids := make([]uint8, 0, len(x.heaps))
	for id := range x.heaps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
