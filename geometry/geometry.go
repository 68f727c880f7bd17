// Package geometry turns visible blocks and conflicts into renderable
// draw primitives. Vertex positions are expressed in window-local
// coordinates: both axes normalized to [0, 1] over the current window,
// tick along x and address along y, so the renderer only has to map
// them to screen space.
package geometry

import (
	"github.com/hupe1980/heapview/coord"
	"github.com/hupe1980/heapview/eventlog"
)

// VertexKind distinguishes block-fill geometry from conflict markers.
type VertexKind uint8

const (
	// VertexBlock belongs to a filled block quad.
	VertexBlock VertexKind = iota
	// VertexConflictAlloc is a point marker for a double-alloc conflict.
	VertexConflictAlloc
	// VertexConflictFree is a point marker for a free-of-unknown
	// conflict.
	VertexConflictFree
)

// Vertex is one renderable vertex: a 3-component position plus the kind
// tag the renderer uses to pick a pipeline or color.
type Vertex struct {
	X, Y, Z float32
	Kind    VertexKind
}

// markerZ lifts conflict markers slightly off the block plane so they
// are not z-fighting the quads they sit on.
const markerZ = 0.5

// AppendBlockVertices appends the two triangles (six vertices) covering
// b inside w and returns the extended slice. A block still open at the
// window's right edge extends to the window's maximum tick. Geometry is
// clipped to the window, so coordinates are always within [0, 1].
func AppendBlockVertices(dst []Vertex, b eventlog.Block, w coord.Window) []Vertex {
	x0 := tickToLocal(b.AllocTick, w)
	endTick := b.FreeTick
	if b.Open() || endTick > w.MaxTick {
		endTick = w.MaxTick
	}
	x1 := tickToLocal(endTick, w)

	y0 := addrToLocal(b.StartAddr, w)
	y1 := addrToLocal(b.EndAddr(), w)

	return append(dst,
		Vertex{X: x0, Y: y0, Kind: VertexBlock},
		Vertex{X: x1, Y: y0, Kind: VertexBlock},
		Vertex{X: x0, Y: y1, Kind: VertexBlock},
		Vertex{X: x1, Y: y0, Kind: VertexBlock},
		Vertex{X: x1, Y: y1, Kind: VertexBlock},
		Vertex{X: x0, Y: y1, Kind: VertexBlock},
	)
}

// AppendConflictMarker appends a point marker for c and returns the
// extended slice. Markers carry the conflict kind so the renderer can
// draw double allocs and bad frees differently.
func AppendConflictMarker(dst []Vertex, c eventlog.Conflict, w coord.Window) []Vertex {
	kind := VertexConflictAlloc
	if c.Kind == eventlog.ConflictFree {
		kind = VertexConflictFree
	}
	return append(dst, Vertex{
		X:    tickToLocal(c.Tick, w),
		Y:    addrToLocal(c.Addr, w),
		Z:    markerZ,
		Kind: kind,
	})
}

// ConflictInWindow reports whether c's (address, tick) point falls
// inside w.
func ConflictInWindow(c eventlog.Conflict, w coord.Window) bool {
	return c.Addr >= w.MinAddr && c.Addr < w.MaxAddr &&
		c.Tick >= w.MinTick && c.Tick <= w.MaxTick
}

func tickToLocal(tick uint32, w coord.Window) float32 {
	width := float64(w.Width())
	if width == 0 {
		width = 1
	}
	return clamp01(float32((float64(tick) - float64(w.MinTick)) / width))
}

func addrToLocal(addr uint64, w coord.Window) float32 {
	height := float64(w.Height())
	if height == 0 {
		height = 1
	}
	return clamp01(float32((float64(addr) - float64(w.MinAddr)) / height))
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
