// Package coord provides the coordinate model for heap history views:
// integer and continuous rectangles over (address, tick) space, and the
// saturating arithmetic used to move them around without ever wrapping
// the 64-bit address axis or the 32-bit tick axis.
//
// The tick axis is horizontal (x), the address axis vertical (y). All
// pan and zoom deltas are float64 so that UI layers can hand through
// sub-unit movements; a ContinuousWindow accumulates the fractional
// remainders so repeated small pans do not get lost against integer
// bounds.
package coord

import "math"

// Outcome reports whether a saturating operation clamped its result.
type Outcome int8

const (
	// OutcomeNone means the value was representable; no clamping occurred.
	OutcomeNone Outcome = iota
	// OutcomeOver means the result was clamped to the type's maximum.
	OutcomeOver
	// OutcomeUnder means the result was clamped to zero.
	OutcomeUnder
)

// String returns a human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOver:
		return "over"
	case OutcomeUnder:
		return "under"
	default:
		return "none"
	}
}

// Clamped returns true if the operation hit either bound.
func (o Outcome) Clamped() bool { return o != OutcomeNone }

const (
	maxU64f float64 = 1 << 64 // first value past the uint64 range
	maxU32f float64 = 1 << 32
)

// SatAddU64 adds a signed float64 delta to an unsigned 64-bit value,
// clamping to [0, math.MaxUint64] instead of wrapping.
func SatAddU64(value uint64, addend float64) (uint64, Outcome) {
	if addend > 0 {
		if addend >= maxU64f-float64(value) {
			return math.MaxUint64, OutcomeOver
		}
		return value + uint64(addend), OutcomeNone
	}
	if addend < 0 {
		// Compare in the integer domain: float64(value) rounds to
		// nearest above 2^53, which would let a delta between the true
		// and the rounded value slip past the guard and wrap.
		a := -addend
		if a >= maxU64f || uint64(a) > value {
			return 0, OutcomeUnder
		}
		return value - uint64(a), OutcomeNone
	}
	return value, OutcomeNone
}

// SatAddU32 is SatAddU64 for the 32-bit tick axis. Every uint32 is
// exact in float64, so the rounded comparisons are safe here.
func SatAddU32(value uint32, addend float64) (uint32, Outcome) {
	if addend > 0 {
		if addend >= maxU32f-float64(value) {
			return math.MaxUint32, OutcomeOver
		}
		return value + uint32(addend), OutcomeNone
	}
	if addend < 0 {
		if -addend > float64(value) {
			return 0, OutcomeUnder
		}
		return value - uint32(-addend), OutcomeNone
	}
	return value, OutcomeNone
}

// clampU64 converts an absolute float64 coordinate to uint64, clamping
// to the representable range.
func clampU64(f float64) (uint64, Outcome) {
	if f < 0 {
		return 0, OutcomeUnder
	}
	if f >= maxU64f {
		return math.MaxUint64, OutcomeOver
	}
	return uint64(f), OutcomeNone
}

func clampU32(f float64) (uint32, Outcome) {
	if f < 0 {
		return 0, OutcomeUnder
	}
	if f >= maxU32f {
		return math.MaxUint32, OutcomeOver
	}
	return uint32(f), OutcomeNone
}

// Window is an integer rectangle in (address, tick) space. It is the
// authoritative snapshot type used for the global bounding area and for
// grid bounds. Invariant: Max >= Min on both axes.
type Window struct {
	MinAddr uint64
	MaxAddr uint64
	MinTick uint32
	MaxTick uint32
}

// NewWindow returns a Window with the given bounds.
func NewWindow(minAddr, maxAddr uint64, minTick, maxTick uint32) Window {
	return Window{MinAddr: minAddr, MaxAddr: maxAddr, MinTick: minTick, MaxTick: maxTick}
}

// Height returns the address span.
func (w Window) Height() uint64 { return w.MaxAddr - w.MinAddr }

// Width returns the tick span.
func (w Window) Width() uint32 { return w.MaxTick - w.MinTick }

// ExtendAddr grows the address bounds to include [start, end).
// Minimums only ever decrease, maximums only ever increase.
func (w *Window) ExtendAddr(start, end uint64) {
	if start < w.MinAddr {
		w.MinAddr = start
	}
	if end > w.MaxAddr {
		w.MaxAddr = end
	}
}

// ExtendTick grows the tick bounds to include tick.
func (w *Window) ExtendTick(tick uint32) {
	if tick < w.MinTick {
		w.MinTick = tick
	}
	if tick > w.MaxTick {
		w.MaxTick = tick
	}
}
