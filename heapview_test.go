package heapview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/heapview/coord"
	"github.com/hupe1980/heapview/eventlog"
	"github.com/hupe1980/heapview/geometry"
)

func TestHistory(t *testing.T) {
	t.Run("MallocFreeLifecycle", func(t *testing.T) {
		h := New()

		require.NoError(t, h.RecordMalloc(0x1000, 16, DefaultHeapID))
		h.RecordFree(0x1000, DefaultHeapID)

		assert.Equal(t, 1, h.Len())
		assert.Equal(t, 0, h.LiveCount())
		assert.Empty(t, h.Conflicts())
		assert.Equal(t, coord.NewWindow(0x1000, 0x1010, 0, 1), h.GlobalArea())
	})

	t.Run("InvalidEvent", func(t *testing.T) {
		h := New()

		err := h.RecordMalloc(0x1000, 0, DefaultHeapID)
		require.ErrorIs(t, err, ErrInvalidEvent)
		require.ErrorIs(t, err, eventlog.ErrZeroSize)
		assert.Equal(t, 0, h.Len())
	})

	t.Run("PointQueries", func(t *testing.T) {
		h := New()
		require.NoError(t, h.RecordMalloc(0x1000, 16, DefaultHeapID))
		require.NoError(t, h.RecordMalloc(0x2000, 16, DefaultHeapID))
		h.RecordFree(0x1000, DefaultHeapID)

		b, pos, ok := h.BlockAt(0x1008, 1)
		require.True(t, ok)
		assert.Equal(t, uint64(0x1000), b.StartAddr)

		sb, spos, sok := h.BlockAtSlow(0x1008, 1)
		assert.Equal(t, ok, sok)
		assert.Equal(t, pos, spos)
		assert.Equal(t, b, sb)

		assert.Equal(t, b, h.Block(pos))
	})

	t.Run("WindowOps", func(t *testing.T) {
		h := New()
		require.NoError(t, h.RecordMalloc(0, 0x10000, DefaultHeapID))
		for h.GlobalArea().MaxTick < 100 {
			require.NoError(t, h.RecordMalloc(0x20000, 0x10, DefaultHeapID))
			h.RecordFree(0x20000, DefaultHeapID)
		}

		h.SetCurrentWindow(coord.NewWindow(0, 0x10000, 0, 100))
		h.ZoomToPoint(0.5, 0.5, 0.5, 0.5)
		assert.Equal(t, coord.NewWindow(0x4000, 0xc000, 25, 75), h.CurrentWindow().Window())

		ox, oy := h.Pan(5, 0x100)
		assert.Equal(t, coord.OutcomeNone, ox)
		assert.Equal(t, coord.OutcomeNone, oy)
		assert.Equal(t, coord.NewWindow(0x4100, 0xc100, 30, 80), h.CurrentWindow().Window())

		h.SetCurrentWindowToGlobal()
		assert.Equal(t, h.GlobalArea(), h.CurrentWindow().Window())
	})

	t.Run("GridWindow", func(t *testing.T) {
		h := New()
		h.SetCurrentWindow(coord.NewWindow(105, 1003, 7, 97))

		g := h.GridWindow(10)
		w := g.Window()
		assert.LessOrEqual(t, w.MinTick, uint32(7))
		assert.GreaterOrEqual(t, w.MaxTick, uint32(97))
		assert.LessOrEqual(t, w.MinAddr, uint64(105))
		assert.GreaterOrEqual(t, w.MaxAddr, uint64(1003))
	})

	t.Run("ActiveBlocksAndHeapFilter", func(t *testing.T) {
		h := New()
		require.NoError(t, h.RecordMalloc(0x1000, 0x10, 0))
		require.NoError(t, h.RecordMalloc(0x2000, 0x10, 1))
		h.SetCurrentWindowToGlobal()

		assert.Len(t, h.ActiveBlocks(), 2)

		active := h.ActiveBlocksForHeaps(1)
		require.Len(t, active, 1)
		assert.Equal(t, uint8(1), h.Block(active[0]).HeapID)
	})
}

func TestDumpVertices(t *testing.T) {
	t.Run("BlocksAndConflicts", func(t *testing.T) {
		h := New()
		require.NoError(t, h.RecordMalloc(0x1000, 0x10, DefaultHeapID)) // tick 0
		require.NoError(t, h.RecordMalloc(0x1000, 0x10, DefaultHeapID)) // tick 1, double alloc
		h.SetCurrentWindowToGlobal()

		var verts []geometry.Vertex
		n := h.DumpVertices(&verts)

		// Six vertices per block plus one conflict marker.
		assert.Equal(t, 13, n)
		assert.Len(t, verts, 13)

		var markers int
		for _, v := range verts {
			if v.Kind == geometry.VertexConflictAlloc {
				markers++
			}
		}
		assert.Equal(t, 1, markers)
	})

	t.Run("EmptyWindow", func(t *testing.T) {
		h := New()
		require.NoError(t, h.RecordMalloc(0x1000, 0x10, DefaultHeapID))
		h.SetCurrentWindow(coord.NewWindow(0x100000, 0x200000, 0, 10))

		var verts []geometry.Vertex
		assert.Equal(t, 0, h.DumpVertices(&verts))
		assert.Empty(t, verts)
	})

	t.Run("AppendsWithoutReset", func(t *testing.T) {
		h := New()
		require.NoError(t, h.RecordMalloc(0x1000, 0x10, DefaultHeapID))
		h.SetCurrentWindowToGlobal()

		verts := make([]geometry.Vertex, 1)
		n := h.DumpVertices(&verts)
		assert.Equal(t, 6, n)
		assert.Len(t, verts, 7)
	})
}

func TestMetricsCollection(t *testing.T) {
	mc := &BasicMetricsCollector{}
	h := New(WithMetricsCollector(mc))

	require.NoError(t, h.RecordMalloc(0x1000, 16, DefaultHeapID))
	h.RecordFree(0x1000, DefaultHeapID)
	require.Error(t, h.RecordMalloc(0x2000, 0, DefaultHeapID))

	h.SetCurrentWindowToGlobal()
	var verts []geometry.Vertex
	h.DumpVertices(&verts)

	assert.Equal(t, int64(3), mc.EventCount.Load())
	assert.Equal(t, int64(1), mc.EventErrors.Load())
	assert.Equal(t, int64(1), mc.RebuildCount.Load())
	assert.Equal(t, int64(1), mc.DumpCount.Load())
	assert.Equal(t, int64(6), mc.DumpVertices.Load())
}

func TestOptionNilFallbacks(t *testing.T) {
	// nil options behave like the defaults and must not panic.
	h := New(WithLogger(nil), WithMetricsCollector(nil))
	require.NoError(t, h.RecordMalloc(0x1000, 16, DefaultHeapID))
}
