package ui

const (
	minCols = 80
	minRows = 24
)

func DetermineLayoutMode(cols, rows int) LayoutMode {
	if cols < minCols || rows < minRows {
		return LayoutTooSmall
	}
	if cols >= 120 && rows >= 30 {
		return LayoutWide
	}
	return LayoutMedium
}

// imageBox sizes a square image preview to fit a panel interior. Cells hold
// two pixel rows, so a square image is twice as wide in cells as it is tall.
func imageBox(innerW, innerH int) (cols, rows int) {
	rows = max(1, innerH)
	cols = rows * 2
	if cols > innerW {
		cols = max(2, innerW)
		rows = max(1, cols/2)
	}
	return cols, rows
}
