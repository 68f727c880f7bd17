package spatial

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/heapview/coord"
	"github.com/hupe1980/heapview/eventlog"
)

func buildIndex(t *testing.T, l *eventlog.Log) *Index {
	t.Helper()
	x := New(l)
	require.True(t, x.Stale())
	x.Rebuild()
	require.False(t, x.Stale())
	return x
}

func TestBlockAt(t *testing.T) {
	t.Run("HitAndMiss", func(t *testing.T) {
		l := eventlog.New()
		require.NoError(t, l.RecordMalloc(0x1000, 16, 0)) // tick 0
		require.NoError(t, l.RecordMalloc(0x2000, 32, 0)) // tick 1
		l.RecordFree(0x1000, 0)                           // tick 2

		x := buildIndex(t, l)

		b, pos, ok := x.BlockAt(0x1008, 1)
		require.True(t, ok)
		assert.Equal(t, eventlog.BlockPos(0), pos)
		assert.Equal(t, uint64(0x1000), b.StartAddr)

		// Freed at tick 2, so not live there.
		_, _, ok = x.BlockAt(0x1008, 2)
		assert.False(t, ok)

		// Address gaps miss.
		_, _, ok = x.BlockAt(0x1800, 1)
		assert.False(t, ok)

		// Open block is live arbitrarily far in the future.
		b, _, ok = x.BlockAt(0x2010, 1000)
		require.True(t, ok)
		assert.Equal(t, uint64(0x2000), b.StartAddr)
	})

	t.Run("BeforeAllocation", func(t *testing.T) {
		l := eventlog.New()
		l.RecordFree(0xaaaa, 0) // tick 0, conflict only
		require.NoError(t, l.RecordMalloc(0x1000, 16, 0)) // tick 1

		x := buildIndex(t, l)
		_, _, ok := x.BlockAt(0x1000, 0)
		assert.False(t, ok)
	})

	t.Run("DoubleAllocTieBreak", func(t *testing.T) {
		l := eventlog.New()
		require.NoError(t, l.RecordMalloc(0x1000, 16, 0)) // tick 0, orphaned open
		require.NoError(t, l.RecordMalloc(0x1000, 16, 0)) // tick 1, live

		x := buildIndex(t, l)

		// Both blocks cover (0x1008, 5); the latest allocation wins.
		b, pos, ok := x.BlockAt(0x1008, 5)
		require.True(t, ok)
		assert.Equal(t, eventlog.BlockPos(1), pos)
		assert.Equal(t, uint32(1), b.AllocTick)

		// At tick 0 only the first block existed.
		_, pos, ok = x.BlockAt(0x1008, 0)
		require.True(t, ok)
		assert.Equal(t, eventlog.BlockPos(0), pos)
	})

	t.Run("NestedRanges", func(t *testing.T) {
		l := eventlog.New()
		// A huge block under a small one: the backward scan must look
		// past the small block's start to find the huge container.
		require.NoError(t, l.RecordMalloc(0x1000, 0x10000, 0)) // tick 0
		require.NoError(t, l.RecordMalloc(0x8000, 0x10, 0))    // tick 1
		l.RecordFree(0x8000, 0)                                // tick 2

		x := buildIndex(t, l)

		// Inside the small block while it lives: latest alloc wins.
		b, _, ok := x.BlockAt(0x8008, 1)
		require.True(t, ok)
		assert.Equal(t, uint64(0x8000), b.StartAddr)

		// After the small block is freed the container shows through.
		b, _, ok = x.BlockAt(0x8008, 2)
		require.True(t, ok)
		assert.Equal(t, uint64(0x1000), b.StartAddr)

		// Far from the small block, inside the container.
		b, _, ok = x.BlockAt(0xf000, 1)
		require.True(t, ok)
		assert.Equal(t, uint64(0x1000), b.StartAddr)
	})
}

// randomHistory drives a random malloc/free/realloc mix, biased towards
// address reuse so double-alloc conflicts and overlapping lifetimes
// actually occur.
func randomHistory(rng *rand.Rand, events int) *eventlog.Log {
	l := eventlog.New()
	addrs := []uint64{0x1000, 0x1008, 0x1010, 0x2000, 0x2800, 0x3000, 0x10000}
	sizes := []uint64{8, 16, 64, 0x800, 0x4000}

	for i := 0; i < events; i++ {
		addr := addrs[rng.Intn(len(addrs))]
		size := sizes[rng.Intn(len(sizes))]
		heap := uint8(rng.Intn(3))
		switch rng.Intn(4) {
		case 0, 1:
			_ = l.RecordMalloc(addr, size, heap)
		case 2:
			l.RecordFree(addr, heap)
		case 3:
			_ = l.RecordRealloc(addr, addrs[rng.Intn(len(addrs))], size, heap)
		}
	}
	return l
}

func TestBlockAtMatchesSlow(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		l := randomHistory(rng, 200)
		x := New(l)
		x.Rebuild()

		maxTick := l.CurrentTick() + 2
		for trial := 0; trial < 400; trial++ {
			addr := uint64(rng.Intn(0x18000))
			tick := uint32(rng.Intn(int(maxTick)))

			fastB, fastPos, fastOK := x.BlockAt(addr, tick)
			slowB, slowPos, slowOK := x.BlockAtSlow(addr, tick)

			require.Equal(t, slowOK, fastOK, "round %d addr %#x tick %d", round, addr, tick)
			if slowOK {
				require.Equal(t, slowPos, fastPos, "round %d addr %#x tick %d", round, addr, tick)
				require.Equal(t, slowB, fastB)
			}
		}
	}
}

func TestActiveBlocks(t *testing.T) {
	t.Run("WindowEdges", func(t *testing.T) {
		l := eventlog.New()
		require.NoError(t, l.RecordMalloc(0x1000, 0x10, 0)) // tick 0
		require.NoError(t, l.RecordMalloc(0x3000, 0x10, 0)) // tick 1
		l.RecordFree(0x1000, 0)                             // tick 2

		x := buildIndex(t, l)

		// Window covering everything sees both blocks.
		active := x.ActiveBlocks(coord.NewWindow(0, 0x10000, 0, 10))
		assert.Len(t, active, 2)

		// Address span that misses both.
		active = x.ActiveBlocks(coord.NewWindow(0x2000, 0x2800, 0, 10))
		assert.Empty(t, active)

		// Tick span after the first block was freed.
		active = x.ActiveBlocks(coord.NewWindow(0, 0x10000, 2, 10))
		require.Len(t, active, 1)
		assert.Equal(t, eventlog.BlockPos(1), active[0])

		// The open block stays active for any later tick span.
		active = x.ActiveBlocks(coord.NewWindow(0x3000, 0x3010, 500, 600))
		assert.Empty(t, active) // address span is half-open at the top

		active = x.ActiveBlocks(coord.NewWindow(0x3000, 0x3011, 500, 600))
		require.Len(t, active, 1)
		assert.Equal(t, eventlog.BlockPos(1), active[0])
	})

	t.Run("SortedByAddress", func(t *testing.T) {
		l := eventlog.New()
		require.NoError(t, l.RecordMalloc(0x3000, 0x10, 0))
		require.NoError(t, l.RecordMalloc(0x1000, 0x10, 0))
		require.NoError(t, l.RecordMalloc(0x2000, 0x10, 0))

		x := buildIndex(t, l)
		active := x.ActiveBlocks(coord.NewWindow(0, 0x10000, 0, 10))
		require.Len(t, active, 3)
		assert.Equal(t, uint64(0x1000), l.Block(active[0]).StartAddr)
		assert.Equal(t, uint64(0x2000), l.Block(active[1]).StartAddr)
		assert.Equal(t, uint64(0x3000), l.Block(active[2]).StartAddr)
	})

	t.Run("MatchesBruteForce", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))

		for round := 0; round < 25; round++ {
			l := randomHistory(rng, 150)
			x := New(l)
			x.Rebuild()

			for trial := 0; trial < 50; trial++ {
				minAddr := uint64(rng.Intn(0x14000))
				maxAddr := minAddr + uint64(rng.Intn(0x8000))
				minTick := uint32(rng.Intn(200))
				maxTick := minTick + uint32(rng.Intn(100))
				w := coord.NewWindow(minAddr, maxAddr, minTick, maxTick)

				got := x.ActiveBlocks(w)

				var want []eventlog.BlockPos
				for pos := 0; pos < l.Len(); pos++ {
					if blockActive(l.Block(eventlog.BlockPos(pos)), w) {
						want = append(want, eventlog.BlockPos(pos))
					}
				}
				require.ElementsMatch(t, want, got, "round %d window %+v", round, w)
			}
		}
	})
}

func TestActiveBlocksFiltered(t *testing.T) {
	l := eventlog.New()
	require.NoError(t, l.RecordMalloc(0x1000, 0x10, 0))
	require.NoError(t, l.RecordMalloc(0x2000, 0x10, 1))
	require.NoError(t, l.RecordMalloc(0x3000, 0x10, 2))

	x := buildIndex(t, l)
	w := coord.NewWindow(0, 0x10000, 0, 10)

	assert.Len(t, x.ActiveBlocks(w), 3)

	active := x.ActiveBlocksFiltered(w, []uint8{1})
	require.Len(t, active, 1)
	assert.Equal(t, uint8(1), l.Block(active[0]).HeapID)

	active = x.ActiveBlocksFiltered(w, []uint8{0, 2})
	assert.Len(t, active, 2)

	assert.Empty(t, x.ActiveBlocksFiltered(w, nil))

	assert.Equal(t, []uint8{0, 1, 2}, x.HeapIDs())
}

func TestStaleness(t *testing.T) {
	l := eventlog.New()
	require.NoError(t, l.RecordMalloc(0x1000, 0x10, 0))

	x := buildIndex(t, l)

	require.NoError(t, l.RecordMalloc(0x2000, 0x10, 0))
	assert.True(t, x.Stale())

	x.Rebuild()
	assert.False(t, x.Stale())
	assert.Len(t, x.ActiveBlocks(coord.NewWindow(0, 0x10000, 0, 10)), 2)
}
