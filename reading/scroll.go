package reading

// Viewport is the visible line window of the rendered document:
// [Top, Top+Height) in wrapped-line coordinates. The renderer owns
// the mapping from Position to line spans; scrolling math lives here.
type Viewport struct {
	Top    int // First visible line
	Height int // Lines visible at once
}

// Contains reports whether the line range [start, end] is fully
// visible.
func (v Viewport) Contains(start, end int) bool {
	return start >= v.Top && end < v.Top+v.Height
}

// ScrollOptions control how the viewport follows the highlight.
type ScrollOptions struct {
	Enabled bool // Follow the highlight at all
	Focus   bool // Keep the highlight vertically centered
	Margin  int  // Lines kept between the highlight and the window edge
}

// AutoScroll computes the minimal viewport adjustment that keeps the
// sentence spanning lines [lineStart, lineEnd] in view. In focus mode
// the sentence is centered; otherwise it is kept at least Margin
// lines from the window edges. The bool is false when the viewport is
// unchanged, which callers use to suppress the redraw entirely.
func AutoScroll(v Viewport, lineStart, lineEnd, totalLines int, opts ScrollOptions) (Viewport, bool) {
	if !opts.Enabled || v.Height <= 0 || totalLines <= 0 {
		return v, false
	}
	if lineEnd < lineStart {
		lineEnd = lineStart
	}

	maxTop := totalLines - v.Height
	if maxTop < 0 {
		maxTop = 0
	}

	var top int
	if opts.Focus {
		span := lineEnd - lineStart + 1
		top = lineStart - (v.Height-span)/2
	} else {
		margin := opts.Margin
		if margin > (v.Height-1)/2 {
			margin = (v.Height - 1) / 2
		}
		if margin < 0 {
			margin = 0
		}

		switch {
		case lineStart < v.Top+margin:
			top = lineStart - margin
		case lineEnd >= v.Top+v.Height-margin:
			top = lineEnd - v.Height + 1 + margin
		default:
			return v, false
		}
	}

	top = clampInt(top, 0, maxTop)
	if top == v.Top {
		return v, false
	}
	return Viewport{Top: top, Height: v.Height}, true
}
