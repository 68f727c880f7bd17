package coord

import "math"

// ContinuousWindow is the interactive view over (address, tick) space.
// Its bounds are integers, but it carries the fractional remainders of
// past pans (xShift along the tick axis, yShift along the address axis)
// so that a long sequence of sub-unit pans moves the window by the same
// total amount a single large pan would.
//
// The zero value is an empty window at the origin; construct one from an
// integer Window with FromWindow or Reset.
type ContinuousWindow struct {
	minAddr uint64
	maxAddr uint64
	minTick uint32
	maxTick uint32
	xShift  float64
	yShift  float64
}

// FromWindow returns a ContinuousWindow covering the same rectangle as w,
// with zero accumulated shift.
func FromWindow(w Window) ContinuousWindow {
	return ContinuousWindow{
		minAddr: w.MinAddr,
		maxAddr: w.MaxAddr,
		minTick: w.MinTick,
		maxTick: w.MaxTick,
	}
}

// Reset replaces the window's rectangle with w and clears the
// accumulated pan remainders.
func (cw *ContinuousWindow) Reset(w Window) {
	*cw = FromWindow(w)
}

// Window returns the integer snapshot of the current rectangle.
func (cw ContinuousWindow) Window() Window {
	return Window{MinAddr: cw.minAddr, MaxAddr: cw.maxAddr, MinTick: cw.minTick, MaxTick: cw.maxTick}
}

// MinAddr returns the minimum address bound.
func (cw ContinuousWindow) MinAddr() uint64 { return cw.minAddr }

// MaxAddr returns the maximum address bound.
func (cw ContinuousWindow) MaxAddr() uint64 { return cw.maxAddr }

// MinTick returns the minimum tick bound.
func (cw ContinuousWindow) MinTick() uint32 { return cw.minTick }

// MaxTick returns the maximum tick bound.
func (cw ContinuousWindow) MaxTick() uint32 { return cw.maxTick }

// 32-bit splits of the 64-bit address bounds, for callers without native
// 64-bit numeric support (e.g. shader uniforms, JS bridges).

// MinAddrLow32 returns the low 32 bits of the minimum address.
func (cw ContinuousWindow) MinAddrLow32() uint32 { return uint32(cw.minAddr) }

// MinAddrHigh32 returns the high 32 bits of the minimum address.
func (cw ContinuousWindow) MinAddrHigh32() uint32 { return uint32(cw.minAddr >> 32) }

// MaxAddrLow32 returns the low 32 bits of the maximum address.
func (cw ContinuousWindow) MaxAddrLow32() uint32 { return uint32(cw.maxAddr) }

// MaxAddrHigh32 returns the high 32 bits of the maximum address.
func (cw ContinuousWindow) MaxAddrHigh32() uint32 { return uint32(cw.maxAddr >> 32) }

// MinAddrFloat returns the minimum address as a float64. Addresses above
// 2^53 lose precision; display code accepts that.
func (cw ContinuousWindow) MinAddrFloat() float64 { return float64(cw.minAddr) }

// MaxAddrFloat returns the maximum address as a float64.
func (cw ContinuousWindow) MaxAddrFloat() float64 { return float64(cw.maxAddr) }

// MinTickFloat returns the minimum tick as a float64.
func (cw ContinuousWindow) MinTickFloat() float64 { return float64(cw.minTick) }

// MaxTickFloat returns the maximum tick as a float64.
func (cw ContinuousWindow) MaxTickFloat() float64 { return float64(cw.maxTick) }

// Height returns the address span as a float64.
func (cw ContinuousWindow) Height() float64 { return float64(cw.maxAddr - cw.minAddr) }

// Width returns the tick span as a float64.
func (cw ContinuousWindow) Width() float64 { return float64(cw.maxTick - cw.minTick) }

// Pan shifts the window by dx along the tick axis and dy along the
// address axis. Fractions below one unit are accumulated in the shift
// remainders and applied once they add up to a whole unit.
//
// Each bound is moved with saturating addition, so the window can never
// leave [0, MaxUint32] on the tick axis or [0, MaxUint64] on the address
// axis. When one side clamps the other keeps moving, so the window may
// shrink against the edge; callers that want to stop accumulating input
// at the edge inspect the returned outcomes (tick axis, address axis).
func (cw *ContinuousWindow) Pan(dx, dy float64) (Outcome, Outcome) {
	fx := dx + cw.xShift
	ix := math.Trunc(fx)
	cw.xShift = fx - ix

	fy := dy + cw.yShift
	iy := math.Trunc(fy)
	cw.yShift = fy - iy

	var ox, oy Outcome
	if ix != 0 {
		var o1, o2 Outcome
		cw.minTick, o1 = SatAddU32(cw.minTick, ix)
		cw.maxTick, o2 = SatAddU32(cw.maxTick, ix)
		ox = combine(o1, o2)
	}
	if iy != 0 {
		var o1, o2 Outcome
		cw.minAddr, o1 = SatAddU64(cw.minAddr, iy)
		cw.maxAddr, o2 = SatAddU64(cw.maxAddr, iy)
		oy = combine(o1, o2)
	}
	return ox, oy
}

func combine(a, b Outcome) Outcome {
	if a != OutcomeNone {
		return a
	}
	return b
}

// ZoomToPoint rescales the window by howMuchX on the tick axis and
// howMuchY on the address axis while keeping the point at relative
// position (dx, dy) of the old window fixed (0.0 is the minimum edge,
// 1.0 the maximum edge; the center is 0.5, 0.5).
//
// A factor of 1.0 leaves that axis untouched; factors below 1.0 zoom
// in, above 1.0 zoom out. Bounds saturate against the representable
// range instead of overflowing.
func (cw *ContinuousWindow) ZoomToPoint(dx, dy, howMuchX, howMuchY float64) {
	if howMuchX != 1.0 {
		minT := float64(cw.minTick)
		maxT := float64(cw.maxTick)
		fixed := minT + dx*(maxT-minT)
		newMin, _ := clampU32(fixed - howMuchX*(fixed-minT))
		newMax, _ := clampU32(fixed + howMuchX*(maxT-fixed))
		if newMax < newMin {
			newMax = newMin
		}
		cw.minTick, cw.maxTick = newMin, newMax
		cw.xShift = 0
	}
	if howMuchY != 1.0 {
		minA := float64(cw.minAddr)
		maxA := float64(cw.maxAddr)
		fixed := minA + dy*(maxA-minA)
		newMin, _ := clampU64(fixed - howMuchY*(fixed-minA))
		newMax, _ := clampU64(fixed + howMuchY*(maxA-fixed))
		if newMax < newMin {
			newMax = newMin
		}
		cw.minAddr, cw.maxAddr = newMin, newMax
		cw.yShift = 0
	}
}
