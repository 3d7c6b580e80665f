package tui

// seekStep is how far one arrow key moves the seek handle, in percent
const seekStep = 5

// seekGesture tracks a keyboard drag of the seek handle. Intermediate
// positions only move the handle; the seek itself is issued on release.
type seekGesture struct {
	active  bool
	percent int
}

// Drag moves the handle by delta, starting the gesture at from if none is
// in progress, and returns the handle position.
func (g *seekGesture) Drag(from, delta int) int {
	if !g.active {
		g.active = true
		g.percent = from
	}
	g.percent += delta
	if g.percent < 0 {
		g.percent = 0
	}
	if g.percent > 100 {
		g.percent = 100
	}
	return g.percent
}

// Release ends the gesture and returns where the handle was let go
func (g *seekGesture) Release() (percent int, ok bool) {
	if !g.active {
		return 0, false
	}
	g.active = false
	return g.percent, true
}

// Cancel ends the gesture without seeking
func (g *seekGesture) Cancel() {
	g.active = false
}

// Active reports whether the handle is being dragged
func (g *seekGesture) Active() bool {
	return g.active
}
