package coord

// GridWindow returns the rectangle used for drawing grid lines over cw:
// the current window with each axis snapped outward to a multiple of
// the grid stride, where the stride is the axis span divided by the
// requested number of lines (at least one unit). Snapping outward keeps
// the outermost grid lines just off-screen, so lines slide smoothly
// through the view while panning instead of popping at the edges.
func GridWindow(cw *ContinuousWindow, numberOfLines uint32) ContinuousWindow {
	if numberOfLines == 0 {
		numberOfLines = 1
	}

	out := *cw
	out.xShift = 0
	out.yShift = 0

	strideT := (cw.maxTick - cw.minTick) / numberOfLines
	if strideT == 0 {
		strideT = 1
	}
	out.minTick = cw.minTick - cw.minTick%strideT
	if rem := cw.maxTick % strideT; rem != 0 {
		out.maxTick, _ = SatAddU32(cw.maxTick, float64(strideT-rem))
	}

	strideA := (cw.maxAddr - cw.minAddr) / uint64(numberOfLines)
	if strideA == 0 {
		strideA = 1
	}
	out.minAddr = cw.minAddr - cw.minAddr%strideA
	if rem := cw.maxAddr % strideA; rem != 0 {
		out.maxAddr, _ = SatAddU64(cw.maxAddr, float64(strideA-rem))
	}

	return out
}
