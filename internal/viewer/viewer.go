// Package viewer is the fullscreen photo viewer without any drawing: which
// item of the filtered view is shown, how far it is zoomed and panned, and how
// taps, pinches and drags move between those states.
package viewer

import (
	"fmt"
	"math"
	"sync"
	"time"

	"fygallery/internal/gallery"
	"fygallery/internal/slideshow"
)

const (
	DoubleTapWindow = 300 * time.Millisecond
	NavigationLock  = 200 * time.Millisecond
	SwipeThreshold  = 40.0
	ZoomedScale     = 2.0
	MinScale        = 1.0
	MaxScale        = 5.0
)

// State of the viewer.
type State int

const (
	Closed State = iota
	Open
	Zoomed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Zoomed:
		return "open-zoomed"
	default:
		return "closed"
	}
}

// Point is a position or offset in viewport units.
type Point struct{ X, Y float64 }

// Size is a width and height in viewport units.
type Size struct{ W, H float64 }

// Source supplies the filtered view the viewer indexes into. The viewer never
// keeps items; it asks again whenever it needs one.
type Source interface {
	View() []gallery.Item
	ToggleFav(id string) (bool, error)
}

// Options configures a Viewer.
type Options struct {
	// Clock defaults to time.Now.
	Clock         func() time.Time
	Slideshow     bool
	SlideInterval time.Duration
	// OnChange runs after every visible change, possibly on the slideshow
	// goroutine.
	OnChange func()
}

// Viewer is safe for concurrent use.
type Viewer struct {
	src      Source
	now      func() time.Time
	onChange func()
	player   *slideshow.Player

	mu        sync.Mutex
	state     State
	index     int
	scale     float64
	pan       Point
	viewport  Size
	imageSize Size
	slideshow bool

	lastTap     time.Time
	lockedUntil time.Time

	pinching   bool
	pinchDist  float64
	pinchScale float64

	dragging bool
	dragFrom Point
	dragLast Point
}

// New creates a closed viewer over src.
func New(src Source, opts Options) *Viewer {
	v := &Viewer{
		src:       src,
		now:       opts.Clock,
		onChange:  opts.OnChange,
		index:     -1,
		scale:     MinScale,
		slideshow: opts.Slideshow,
	}
	if v.now == nil {
		v.now = time.Now
	}
	v.player = slideshow.NewPlayer(opts.SlideInterval, v.autoAdvance)
	return v
}

func (v *Viewer) changed() {
	if v.onChange != nil {
		v.onChange()
	}
}

// Open shows the item at index of the current view, unzoomed. It returns
// false if the index is outside the view.
func (v *Viewer) Open(index int) bool {
	n := len(v.src.View())
	if index < 0 || index >= n {
		return false
	}
	v.mu.Lock()
	v.state = Open
	v.index = index
	v.resetZoomLocked()
	v.lockedUntil = time.Time{}
	v.lastTap = time.Time{}
	if v.slideshow {
		v.player.Start()
	}
	v.mu.Unlock()
	v.changed()
	return true
}

// OpenID shows the item with the given id if it is in the current view.
func (v *Viewer) OpenID(id string) bool {
	for i, it := range v.src.View() {
		if it.ID == id {
			return v.Open(i)
		}
	}
	return false
}

// Close hides the viewer and forgets its state.
func (v *Viewer) Close() {
	v.player.Stop()
	v.mu.Lock()
	if v.state == Closed {
		v.mu.Unlock()
		return
	}
	v.closeLocked()
	v.mu.Unlock()
	v.changed()
}

func (v *Viewer) closeLocked() {
	v.state = Closed
	v.index = -1
	v.resetZoomLocked()
	v.pinching = false
	v.dragging = false
}

func (v *Viewer) resetZoomLocked() {
	v.scale = MinScale
	v.pan = Point{}
	if v.state == Zoomed {
		v.state = Open
	}
}

// Next shows the following item, wrapping to the first. Manual navigation
// ends the slideshow.
func (v *Viewer) Next() {
	v.player.Stop()
	v.step(1)
}

// Prev shows the preceding item, wrapping to the last.
func (v *Viewer) Prev() {
	v.player.Stop()
	v.step(-1)
}

func (v *Viewer) autoAdvance() {
	v.step(1)
}

func (v *Viewer) step(delta int) {
	n := len(v.src.View())
	v.mu.Lock()
	if v.state == Closed {
		v.mu.Unlock()
		return
	}
	if n == 0 {
		v.player.Stop()
		v.closeLocked()
		v.mu.Unlock()
		v.changed()
		return
	}
	v.index = ((v.index+delta)%n + n) % n
	v.resetZoomLocked()
	v.mu.Unlock()
	v.changed()
}

// Sync re-checks the index after the view changed. A view that became empty
// closes the viewer; a shorter one moves the index to its last item.
func (v *Viewer) Sync() {
	n := len(v.src.View())
	v.mu.Lock()
	if v.state == Closed || v.index < n {
		v.mu.Unlock()
		return
	}
	if n == 0 {
		v.player.Stop()
		v.closeLocked()
	} else {
		v.index = n - 1
		v.resetZoomLocked()
	}
	v.mu.Unlock()
	v.changed()
}

// Current returns the shown item.
func (v *Viewer) Current() (gallery.Item, bool) {
	view := v.src.View()
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == Closed || v.index < 0 || v.index >= len(view) {
		return gallery.Item{}, false
	}
	return view[v.index], true
}

// Counter is the "3 / 12" position label, or "" when closed.
func (v *Viewer) Counter() string {
	n := len(v.src.View())
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == Closed || n == 0 {
		return ""
	}
	return fmt.Sprintf("%d / %d", min(v.index, n-1)+1, n)
}

// ToggleFavorite flips the favorite flag of the shown item.
func (v *Viewer) ToggleFavorite() (bool, error) {
	it, ok := v.Current()
	if !ok {
		return false, fmt.Errorf("viewer is closed")
	}
	fav, err := v.src.ToggleFav(it.ID)
	if err != nil {
		return false, err
	}
	v.Sync()
	v.changed()
	return fav, nil
}

func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *Viewer) Index() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.index
}

func (v *Viewer) Scale() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scale
}

func (v *Viewer) Pan() Point {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pan
}

// SetSlideshow enables or disables automatic advance. Enabling it while the
// viewer is open starts it at once.
func (v *Viewer) SetSlideshow(enabled bool, interval time.Duration) {
	v.player.SetInterval(interval)
	v.mu.Lock()
	v.slideshow = enabled
	open := v.state != Closed
	v.mu.Unlock()
	if !enabled {
		v.player.Stop()
	} else if open {
		v.player.Start()
	}
}

// HoldSlideshow pauses a running slideshow for some operation, such as
// decoding the next image. ReleaseSlideshow resumes it only if it was held
// while running.
func (v *Viewer) HoldSlideshow() {
	v.player.Pause()
}

func (v *Viewer) ReleaseSlideshow() {
	if v.State() == Closed {
		return
	}
	v.player.ResumeAfterOperation()
}

// SlideshowRunning reports whether the viewer is advancing on its own.
func (v *Viewer) SlideshowRunning() bool {
	return v.player.Running()
}

// ToggleSlideshow starts or stops the slideshow of an open viewer.
func (v *Viewer) ToggleSlideshow() bool {
	if v.State() == Closed {
		return false
	}
	return v.player.Toggle()
}

// SetViewport records the size of the area the image is drawn in.
func (v *Viewer) SetViewport(s Size) {
	v.mu.Lock()
	v.viewport = s
	v.pan = v.clampPanLocked(v.pan)
	v.mu.Unlock()
}

// SetImageSize records the pixel size of the shown image.
func (v *Viewer) SetImageSize(s Size) {
	v.mu.Lock()
	v.imageSize = s
	v.pan = v.clampPanLocked(v.pan)
	v.mu.Unlock()
}

// Fitted returns the size of the image drawn unzoomed: scaled to fit
// entirely inside the viewport.
func (v *Viewer) Fitted() Size {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fittedLocked()
}

func (v *Viewer) fittedLocked() Size {
	if v.imageSize.W <= 0 || v.imageSize.H <= 0 || v.viewport.W <= 0 || v.viewport.H <= 0 {
		return Size{}
	}
	fit := math.Min(v.viewport.W/v.imageSize.W, v.viewport.H/v.imageSize.H)
	return Size{W: v.imageSize.W * fit, H: v.imageSize.H * fit}
}

// clampPanLocked keeps the drawn image overlapping the viewport: an image
// larger than the viewport can be moved until its edge meets the viewport
// edge, a smaller one until it touches the opposite side.
func (v *Viewer) clampPanLocked(p Point) Point {
	fit := v.fittedLocked()
	maxX := math.Abs(fit.W*v.scale-v.viewport.W) / 2
	maxY := math.Abs(fit.H*v.scale-v.viewport.H) / 2
	if fit == (Size{}) {
		maxX, maxY = 0, 0
	}
	return Point{X: clamp(p.X, -maxX, maxX), Y: clamp(p.Y, -maxY, maxY)}
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
