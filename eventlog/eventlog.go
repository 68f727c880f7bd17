package eventlog

import (
	"errors"
	"math"

	"github.com/hupe1980/heapview/coord"
)

var (
	// ErrZeroSize is returned when a malloc event carries a zero size;
	// a block's end address must be strictly greater than its start.
	ErrZeroSize = errors.New("zero-size allocation")

	// ErrAddressOverflow is returned when start + size does not fit the
	// 64-bit address space.
	ErrAddressOverflow = errors.New("allocation end overflows address space")
)

// liveKey identifies the currently open block for one address within
// one heap. Up to 256 independent heaps share the address space.
type liveKey struct {
	addr uint64
	heap uint8
}

// Log is one allocation history. The tick counter and global bounding
// area are fields of the log, not process globals, so independent
// histories can coexist and be tested in isolation.
//
// Log is not safe for concurrent use; see the History facade for the
// locking discipline between ingestion and rendering.
type Log struct {
	blocks    []Block
	live      map[liveKey]BlockPos
	conflicts []Conflict

	tick      uint32
	global    coord.Window
	hasEvents bool

	// generation counts block mutations so secondary indexes can
	// detect staleness.
	generation uint64
}

// New returns an empty allocation history.
func New() *Log {
	return &Log{
		live: make(map[liveKey]BlockPos),
	}
}

// RecordMalloc opens a new block [addr, addr+size) on the given heap at
// the current tick and advances the tick counter.
//
// If the live index already holds an entry for (addr, heapID) the event
// is a double-alloc conflict: it is appended to the conflict log and the
// stale live entry is overwritten last-writer-wins. The stale block
// stays in the history as a never-closed record; history is never
// rewritten for display correctness.
func (l *Log) RecordMalloc(addr, size uint64, heapID uint8) error {
	if err := validateBlock(addr, size); err != nil {
		return err
	}

	tick := l.tick
	key := liveKey{addr: addr, heap: heapID}
	if _, ok := l.live[key]; ok {
		l.conflicts = append(l.conflicts, Conflict{Tick: tick, Addr: addr, Kind: ConflictAlloc})
	}

	pos := BlockPos(len(l.blocks))
	l.blocks = append(l.blocks, Block{
		StartAddr: addr,
		Size:      size,
		HeapID:    heapID,
		AllocTick: tick,
		FreeTick:  TickOpen,
	})
	l.live[key] = pos

	l.extendGlobal(addr, addr+size, tick)
	l.advanceTick()
	l.generation++
	return nil
}

// RecordFree closes the live block at (addr, heapID) at the current
// tick and advances the tick counter.
//
// If no live block exists for the pair the event is a free conflict: it
// is appended to the conflict log, the tick is still consumed (every
// event owns exactly one tick), and the block arena is left untouched.
func (l *Log) RecordFree(addr uint64, heapID uint8) {
	tick := l.tick
	key := liveKey{addr: addr, heap: heapID}

	pos, ok := l.live[key]
	if !ok {
		l.conflicts = append(l.conflicts, Conflict{Tick: tick, Addr: addr, Kind: ConflictFree})
		// The conflict marker must stay inside the global area so a
		// view reset to it can render the marker.
		if l.hasEvents {
			l.global.ExtendTick(tick)
		}
		l.advanceTick()
		return
	}

	l.blocks[pos].FreeTick = tick
	delete(l.live, key)

	l.global.ExtendTick(tick)
	l.advanceTick()
	l.generation++
}

// RecordRealloc records a free of oldAddr immediately followed by a
// malloc of newAddr with the given size, each consuming its own tick.
// If oldAddr is not live the free half raises the usual free conflict;
// the malloc half proceeds regardless.
//
// An invalid malloc half (zero size, address overflow) rejects the
// whole event before either half is applied, so a failed realloc never
// leaves a half-applied free behind or consumes any ticks.
func (l *Log) RecordRealloc(oldAddr, newAddr, size uint64, heapID uint8) error {
	if err := validateBlock(newAddr, size); err != nil {
		return err
	}
	l.RecordFree(oldAddr, heapID)
	return l.RecordMalloc(newAddr, size, heapID)
}

func validateBlock(addr, size uint64) error {
	if size == 0 {
		return ErrZeroSize
	}
	if size > math.MaxUint64-addr {
		return ErrAddressOverflow
	}
	return nil
}

func (l *Log) advanceTick() {
	// The tick counter saturates one below TickOpen so a block freed at
	// the last representable tick is still distinguishable from an open
	// one. A trace long enough to get here is beyond visualization.
	if l.tick < TickOpen-1 {
		l.tick++
	}
}

func (l *Log) extendGlobal(start, end uint64, tick uint32) {
	if !l.hasEvents {
		l.global = coord.NewWindow(start, end, tick, tick)
		l.hasEvents = true
		return
	}
	l.global.ExtendAddr(start, end)
	l.global.ExtendTick(tick)
}

// Len returns the number of blocks in the arena.
func (l *Log) Len() int { return len(l.blocks) }

// Block returns the block at pos. pos must come from this log.
func (l *Log) Block(pos BlockPos) Block { return l.blocks[pos] }

// Blocks returns the arena in allocation order. The slice is owned by
// the log; callers must not mutate it.
func (l *Log) Blocks() []Block { return l.blocks }

// Conflicts returns the conflict log in time order. The slice is owned
// by the log; callers must not mutate it.
func (l *Log) Conflicts() []Conflict { return l.conflicts }

// Live returns the position of the currently open block at
// (addr, heapID), if any.
func (l *Log) Live(addr uint64, heapID uint8) (BlockPos, bool) {
	pos, ok := l.live[liveKey{addr: addr, heap: heapID}]
	return pos, ok
}

// LiveCount returns the number of currently open blocks.
func (l *Log) LiveCount() int { return len(l.live) }

// CurrentTick returns the tick the next event will be stamped with.
func (l *Log) CurrentTick() uint32 { return l.tick }

// GlobalArea returns the bounding window over every event recorded so
// far. It grows monotonically; before the first event it is the zero
// window.
func (l *Log) GlobalArea() coord.Window { return l.global }

// Generation returns the block-mutation counter. A secondary index
// built at generation g is stale once Generation() != g.
func (l *Log) Generation() uint64 { return l.generation }
