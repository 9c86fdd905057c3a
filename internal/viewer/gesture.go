package viewer

import (
	"math"
)

// Tap registers a single tap or click on the image. A second tap within
// DoubleTapWindow toggles the zoom and reports true.
func (v *Viewer) Tap() bool {
	now := v.now()
	v.mu.Lock()
	if v.state == Closed {
		v.mu.Unlock()
		return false
	}
	if !v.lastTap.IsZero() && now.Sub(v.lastTap) < DoubleTapWindow {
		v.lastTap = now
		v.mu.Unlock()
		v.ToggleZoom()
		return true
	}
	v.lastTap = now
	v.mu.Unlock()
	return false
}

// TapAt registers a tap at p in viewport coordinates. A tap on the backdrop
// outside the drawn image closes the viewer; a tap on the image behaves like
// Tap. It reports whether the tap closed the viewer or toggled the zoom.
func (v *Viewer) TapAt(p Point) bool {
	v.mu.Lock()
	if v.state == Closed {
		v.mu.Unlock()
		return false
	}
	outside := v.backdropLocked(p)
	v.mu.Unlock()
	if outside {
		v.Close()
		return true
	}
	return v.Tap()
}

// backdropLocked reports whether p lies outside the drawn image. Until the
// image and viewport sizes are known nothing counts as backdrop.
func (v *Viewer) backdropLocked(p Point) bool {
	fit := v.fittedLocked()
	if fit.W <= 0 || fit.H <= 0 {
		return false
	}
	w, h := fit.W*v.scale, fit.H*v.scale
	x0 := (v.viewport.W-w)/2 + v.pan.X
	y0 := (v.viewport.H-h)/2 + v.pan.Y
	return p.X < x0 || p.X > x0+w || p.Y < y0 || p.Y > y0+h
}

// ToggleZoom switches between the fitted image and ZoomedScale, recentering
// the image. It ends the slideshow.
func (v *Viewer) ToggleZoom() {
	v.player.Stop()
	v.mu.Lock()
	if v.state == Closed {
		v.mu.Unlock()
		return
	}
	if v.scale > MinScale {
		v.setScaleLocked(MinScale)
	} else {
		v.setScaleLocked(ZoomedScale)
	}
	v.pan = Point{}
	v.mu.Unlock()
	v.changed()
}

// ZoomBy multiplies the scale by factor, as a scroll wheel does.
func (v *Viewer) ZoomBy(factor float64) {
	if factor <= 0 || math.IsNaN(factor) {
		return
	}
	v.player.Stop()
	v.mu.Lock()
	if v.state == Closed {
		v.mu.Unlock()
		return
	}
	v.setScaleLocked(v.scale * factor)
	v.mu.Unlock()
	v.changed()
}

// PinchStart begins a two-finger gesture with the fingers dist apart.
func (v *Viewer) PinchStart(dist float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == Closed || dist <= 0 {
		return
	}
	v.pinching = true
	v.pinchDist = dist
	v.pinchScale = v.scale
	v.dragging = false
}

// PinchMove scales by the ratio of the current to the initial finger
// distance.
func (v *Viewer) PinchMove(dist float64) {
	v.mu.Lock()
	if !v.pinching || v.state == Closed || dist <= 0 {
		v.mu.Unlock()
		return
	}
	v.mu.Unlock()
	v.player.Stop()
	v.mu.Lock()
	v.setScaleLocked(v.pinchScale * dist / v.pinchDist)
	v.mu.Unlock()
	v.changed()
}

// PinchEnd finishes a two-finger gesture.
func (v *Viewer) PinchEnd() {
	v.mu.Lock()
	v.pinching = false
	v.mu.Unlock()
}

// setScaleLocked clamps the scale into [MinScale, MaxScale] and derives the
// zoom state from it.
func (v *Viewer) setScaleLocked(s float64) {
	v.scale = clamp(s, MinScale, MaxScale)
	if v.scale > MinScale {
		v.state = Zoomed
	} else {
		v.state = Open
		v.pan = Point{}
	}
	v.pan = v.clampPanLocked(v.pan)
}

// DragStart begins a one-finger drag or mouse drag at p.
func (v *Viewer) DragStart(p Point) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == Closed || v.pinching {
		return
	}
	v.dragging = true
	v.dragFrom = p
	v.dragLast = p
}

// DragMove pans a zoomed image. Unzoomed drags only accumulate toward a
// swipe.
func (v *Viewer) DragMove(p Point) {
	v.mu.Lock()
	if !v.dragging || v.pinching {
		v.mu.Unlock()
		return
	}
	if v.state != Zoomed {
		v.dragLast = p
		v.mu.Unlock()
		return
	}
	next := Point{X: v.pan.X + p.X - v.dragLast.X, Y: v.pan.Y + p.Y - v.dragLast.Y}
	v.dragLast = p
	v.pan = v.clampPanLocked(next)
	v.mu.Unlock()
	v.changed()
}

// DragEnd finishes a drag at p. An unzoomed horizontal drag longer than
// SwipeThreshold navigates: leftwards to the next item, rightwards to the
// previous one. After a swipe, further swipes are ignored for
// NavigationLock. It reports whether the drag navigated.
func (v *Viewer) DragEnd(p Point) bool {
	now := v.now()
	v.mu.Lock()
	if !v.dragging {
		v.mu.Unlock()
		return false
	}
	v.dragging = false
	if v.state != Open || v.pinching {
		v.mu.Unlock()
		return false
	}
	dx := p.X - v.dragFrom.X
	if math.Abs(dx) <= SwipeThreshold || now.Before(v.lockedUntil) {
		v.mu.Unlock()
		return false
	}
	v.lockedUntil = now.Add(NavigationLock)
	v.mu.Unlock()

	if dx < 0 {
		v.Next()
	} else {
		v.Prev()
	}
	return true
}
