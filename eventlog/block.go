// Package eventlog implements the allocation history: an append-only
// arena of heap blocks, the live index mapping (address, heap id) to the
// currently open block, the per-log tick counter, the global bounding
// area, and the conflict log for allocator-protocol violations.
//
// The log is the single owner of all Block values. Every other component
// refers to blocks by BlockPos, a stable position into the arena, never
// by pointer; the arena may reallocate as it grows.
package eventlog

import "math"

// BlockPos is a stable position of a Block within a Log's arena.
// It is strictly 32-bit so positions fit bitmap and index structures.
type BlockPos uint32

// TickOpen is the FreeTick sentinel of a block that has not been freed.
const TickOpen = uint32(math.MaxUint32)

// Block records the lifetime and address range of one allocation.
// The address range is [StartAddr, StartAddr+Size); the lifetime is
// [AllocTick, FreeTick), where FreeTick == TickOpen while the block is
// still live.
type Block struct {
	StartAddr uint64
	Size      uint64
	HeapID    uint8
	AllocTick uint32
	FreeTick  uint32
}

// EndAddr returns the exclusive end of the block's address range.
func (b Block) EndAddr() uint64 { return b.StartAddr + b.Size }

// Open reports whether the block has not been freed yet.
func (b Block) Open() bool { return b.FreeTick == TickOpen }

// ContainsAddr reports whether addr falls inside [StartAddr, EndAddr).
func (b Block) ContainsAddr(addr uint64) bool {
	return addr >= b.StartAddr && addr < b.EndAddr()
}

// LiveAt reports whether the block's lifetime interval contains tick.
func (b Block) LiveAt(tick uint32) bool {
	return tick >= b.AllocTick && (b.Open() || tick < b.FreeTick)
}
