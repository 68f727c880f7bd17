// Package heapview provides the data model and query engine behind a
// heap-allocation visualizer.
//
// Heapview ingests a chronological stream of allocation events and
// turns it into:
//
//   - A queryable history of memory blocks with allocator-protocol
//     conflict detection (double allocs, frees of unknown addresses)
//   - A pannable/zoomable 2-D window over (address, tick) space with
//     overflow-safe saturating coordinate arithmetic
//   - Renderable triangle geometry for the blocks visible in the
//     current window, plus conflict markers
//
// # Quick Start
//
// Record events and dump geometry for the full history:
//
//	h := heapview.New()
//	_ = h.RecordMalloc(0x1000, 16, heapview.DefaultHeapID)
//	h.RecordFree(0x1000, heapview.DefaultHeapID)
//
//	h.SetCurrentWindowToGlobal()
//
//	var vertices []geometry.Vertex
//	n := h.DumpVertices(&vertices)
//
// Pan and zoom the view:
//
//	h.Pan(10, 0)                      // ten ticks to the right
//	h.ZoomToPoint(0.5, 0.5, 0.5, 0.5) // zoom in 2x on the center
//
// Event streams produced by an instrumented allocator are loaded
// through the ingest package, which decodes JSON (optionally gzipped)
// and drives the record entry points in time order.
//
// # Concurrency
//
// All operations on a History are serialized by an internal lock, so a
// producer thread may ingest while a consumer thread queries and emits
// geometry; each query sees a fully rebuilt spatial index. Within one
// goroutine everything is ordinary synchronous calls.
package heapview

import (
	"sync"
	"time"

	"github.com/hupe1980/heapview/coord"
	"github.com/hupe1980/heapview/eventlog"
	"github.com/hupe1980/heapview/geometry"
	"github.com/hupe1980/heapview/spatial"
)

// DefaultHeapID is the heap identifier used when an event stream does
// not specify one.
const DefaultHeapID uint8 = 0

// History is the facade over one allocation history: the event log, its
// spatial index, and the current/grid view windows.
//
// A History is safe for concurrent use. The internal lock makes
// "mutate + rebuild" and "query + emit" atomic units, so the spatial
// index is never observed stale.
type History struct {
	mu      sync.Mutex
	log     *eventlog.Log
	index   *spatial.Index
	current coord.ContinuousWindow
	grid    coord.ContinuousWindow
	logger  *Logger
	metrics MetricsCollector
}

// New returns an empty History.
func New(opt ...Option) *History {
	opts := defaultOptions()
	for _, o := range opt {
		o(&opts)
	}

	log := eventlog.New()
	return &History{
		log:     log,
		index:   spatial.New(log),
		logger:  opts.logger,
		metrics: opts.metricsCollector,
	}
}

// RecordMalloc records an allocation of size bytes at addr on the given
// heap. A double alloc is logged as a conflict and the new block wins
// the live entry; see package eventlog for the exact policy.
func (h *History) RecordMalloc(addr, size uint64, heapID uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	err := h.log.RecordMalloc(addr, size, heapID)
	h.metrics.RecordEvent(OpMalloc, time.Since(start), err)
	h.logger.LogEvent(OpMalloc, addr, h.log.CurrentTick(), err)
	return translateError(err)
}

// RecordFree records a free of addr on the given heap. Freeing an
// address with no live block is logged as a conflict and otherwise
// ignored.
func (h *History) RecordFree(addr uint64, heapID uint8) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	h.log.RecordFree(addr, heapID)
	h.metrics.RecordEvent(OpFree, time.Since(start), nil)
	h.logger.LogEvent(OpFree, addr, h.log.CurrentTick(), nil)
}

// RecordRealloc records a free of oldAddr followed by a malloc of
// newAddr with the given size, consuming two ticks.
func (h *History) RecordRealloc(oldAddr, newAddr, size uint64, heapID uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	err := h.log.RecordRealloc(oldAddr, newAddr, size, heapID)
	h.metrics.RecordEvent(OpRealloc, time.Since(start), err)
	h.logger.LogEvent(OpRealloc, newAddr, h.log.CurrentTick(), err)
	return translateError(err)
}

// SetCurrentWindow replaces the current view window.
func (h *History) SetCurrentWindow(w coord.Window) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current.Reset(w)
}

// SetCurrentWindowToGlobal resets the current view to the global
// bounding area of all recorded events.
func (h *History) SetCurrentWindowToGlobal() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current.Reset(h.log.GlobalArea())
}

// CurrentWindow returns a copy of the current view window.
func (h *History) CurrentWindow() coord.ContinuousWindow {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// GlobalArea returns the bounding window over every recorded event.
func (h *History) GlobalArea() coord.Window {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.log.GlobalArea()
}

// GridWindow returns the rectangle for drawing the given number of grid
// lines over the current view; see coord.GridWindow for the snapping
// rule.
func (h *History) GridWindow(numberOfLines uint32) coord.ContinuousWindow {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.grid = coord.GridWindow(&h.current, numberOfLines)
	return h.grid
}

// Pan shifts the current window by dx ticks and dy address units,
// saturating at the edges of the representable space. It returns the
// saturation outcome per axis (tick, address) so UI code can stop
// accumulating input against an edge.
func (h *History) Pan(dx, dy float64) (coord.Outcome, coord.Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current.Pan(dx, dy)
}

// ZoomToPoint rescales the current window by the given factors while
// holding the point at relative position (dx, dy) of the old window
// fixed. Factors of 1.0 are a no-op.
func (h *History) ZoomToPoint(dx, dy, howMuchX, howMuchY float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current.ZoomToPoint(dx, dy, howMuchX, howMuchY)
}

// BlockAt returns the block covering (addr, tick), using the
// accelerated index search.
func (h *History) BlockAt(addr uint64, tick uint32) (eventlog.Block, eventlog.BlockPos, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensureIndex()
	return h.index.BlockAt(addr, tick)
}

// BlockAtSlow returns the block covering (addr, tick) via the reference
// linear scan. It exists as the oracle for the accelerated search and
// for callers that prefer the authoritative path.
func (h *History) BlockAtSlow(addr uint64, tick uint32) (eventlog.Block, eventlog.BlockPos, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensureIndex()
	return h.index.BlockAtSlow(addr, tick)
}

// ActiveBlocks returns the positions of the blocks visible in the
// current window, in ascending start-address order. Resolve positions
// to blocks with Block.
func (h *History) ActiveBlocks() []eventlog.BlockPos {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensureIndex()
	return h.index.ActiveBlocks(h.current.Window())
}

// ActiveBlocksForHeaps is ActiveBlocks restricted to the given heap
// ids.
func (h *History) ActiveBlocksForHeaps(heaps ...uint8) []eventlog.BlockPos {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensureIndex()
	return h.index.ActiveBlocksFiltered(h.current.Window(), heaps)
}

// Block resolves a position returned by ActiveBlocks or the point
// queries to its Block value.
func (h *History) Block(pos eventlog.BlockPos) eventlog.Block {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.log.Block(pos)
}

// Len returns the total number of blocks recorded, including leaked and
// conflict-orphaned ones.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.log.Len()
}

// LiveCount returns the number of blocks currently open.
func (h *History) LiveCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.log.LiveCount()
}

// Conflicts returns a copy of the conflict log in time order.
func (h *History) Conflicts() []eventlog.Conflict {
	h.mu.Lock()
	defer h.mu.Unlock()
	conflicts := h.log.Conflicts()
	out := make([]eventlog.Conflict, len(conflicts))
	copy(out, conflicts)
	return out
}

// DumpVertices appends the geometry for the current window to *dst and
// returns the number of vertices appended: six per visible block plus
// one marker per in-window conflict.
func (h *History) DumpVertices(dst *[]geometry.Vertex) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensureIndex()

	start := time.Now()
	w := h.current.Window()
	before := len(*dst)

	for _, pos := range h.index.ActiveBlocks(w) {
		*dst = geometry.AppendBlockVertices(*dst, h.log.Block(pos), w)
	}
	for _, c := range h.log.Conflicts() {
		if geometry.ConflictInWindow(c, w) {
			*dst = geometry.AppendConflictMarker(*dst, c, w)
		}
	}

	n := len(*dst) - before
	h.metrics.RecordDump(n, time.Since(start))
	h.logger.LogDump(n)
	return n
}

// ensureIndex rebuilds the spatial index if the log has mutated since
// the last rebuild. Callers must hold the lock.
func (h *History) ensureIndex() {
	if !h.index.Stale() {
		return
	}
	start := time.Now()
	h.index.Rebuild()
	h.metrics.RecordRebuild(h.log.Len(), time.Since(start))
	h.logger.LogRebuild(h.log.Len())
}
