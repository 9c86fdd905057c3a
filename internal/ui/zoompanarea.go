package ui

import (
	"image"
	"image/draw"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"fygallery/internal/viewer"
)

const zoomScrollStep = 1.1 // scale factor per wheel notch

// ZoomPanArea draws the viewer's current image with the viewer's zoom and pan
// and feeds pointer input back into it.
type ZoomPanArea struct {
	widget.BaseWidget

	v           *viewer.Viewer
	originalImg *image.RGBA
	raster      *canvas.Raster

	dragging bool
	lastPos  fyne.Position
}

// NewZoomPanArea creates a new ZoomPanArea driving v.
func NewZoomPanArea(v *viewer.Viewer) *ZoomPanArea {
	zpa := &ZoomPanArea{v: v}
	zpa.raster = canvas.NewRaster(zpa.draw)
	zpa.ExtendBaseWidget(zpa)
	return zpa
}

// SetImage updates the image displayed by the widget.
func (zpa *ZoomPanArea) SetImage(img image.Image) {
	zpa.originalImg = toRGBA(img)
	if img != nil {
		b := img.Bounds()
		zpa.v.SetImageSize(viewer.Size{W: float64(b.Dx()), H: float64(b.Dy())})
	} else {
		zpa.v.SetImageSize(viewer.Size{})
	}
	zpa.Refresh()
}

// toRGBA copies img into an RGBA image once so drawing avoids the slow
// generic At path of YCbCr sources.
func toRGBA(img image.Image) *image.RGBA {
	if img == nil {
		return nil
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	conv := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(conv, conv.Bounds(), img, b.Min, draw.Src)
	return conv
}

// imageRect is where the image lands inside a w×h pixel raster: the fitted
// size times the zoom, centered and shifted by the pan. ratio converts
// viewport units to raster pixels.
func imageRect(fitted viewer.Size, scale float64, pan viewer.Point, w, h int, ratio float64) (x0, y0, dw, dh float64) {
	dw = fitted.W * scale * ratio
	dh = fitted.H * scale * ratio
	x0 = (float64(w)-dw)/2 + pan.X*ratio
	y0 = (float64(h)-dh)/2 + pan.Y*ratio
	return x0, y0, dw, dh
}

// draw is the rendering function for the canvas.Raster.
func (zpa *ZoomPanArea) draw(w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if zpa.originalImg == nil || w <= 0 || h <= 0 || zpa.Size().Width <= 0 {
		return dst
	}
	ratio := float64(w) / float64(zpa.Size().Width)
	x0, y0, dw, dh := imageRect(zpa.v.Fitted(), zpa.v.Scale(), zpa.v.Pan(), w, h, ratio)
	if dw <= 0 || dh <= 0 {
		return dst
	}

	src := zpa.originalImg
	srcBounds := src.Bounds()
	sw, sh := float64(srcBounds.Dx()), float64(srcBounds.Dy())
	invX, invY := sw/dw, sh/dh

	// For each pixel (dx, dy) in dst, find the corresponding source pixel.
	for dy := 0; dy < h; dy++ {
		sy := (float64(dy) - y0) * invY
		if sy < 0 || sy >= sh {
			continue
		}
		for dx := 0; dx < w; dx++ {
			sx := (float64(dx) - x0) * invX
			if sx < 0 || sx >= sw {
				continue
			}
			dst.SetRGBA(dx, dy, src.RGBAAt(srcBounds.Min.X+int(sx), srcBounds.Min.Y+int(sy)))
		}
	}
	return dst
}

// CreateRenderer is a Fyne lifecycle method.
func (zpa *ZoomPanArea) CreateRenderer() fyne.WidgetRenderer {
	return &zoomPanAreaRenderer{zpa: zpa}
}

// Tapped closes the viewer on a backdrop tap. Two taps on the image in
// quick succession toggle the zoom.
func (zpa *ZoomPanArea) Tapped(ev *fyne.PointEvent) {
	zpa.v.TapAt(viewer.Point{X: float64(ev.Position.X), Y: float64(ev.Position.Y)})
}

// Scrolled handles mouse wheel events for zooming.
func (zpa *ZoomPanArea) Scrolled(ev *fyne.ScrollEvent) {
	switch {
	case ev.Scrolled.DY > 0:
		zpa.v.ZoomBy(zoomScrollStep)
	case ev.Scrolled.DY < 0:
		zpa.v.ZoomBy(1 / zoomScrollStep)
	}
}

// Dragged pans a zoomed image or tracks a swipe.
func (zpa *ZoomPanArea) Dragged(ev *fyne.DragEvent) {
	if !zpa.dragging {
		zpa.dragging = true
		start := ev.Position.Subtract(ev.Dragged)
		zpa.v.DragStart(viewer.Point{X: float64(start.X), Y: float64(start.Y)})
	}
	zpa.lastPos = ev.Position
	zpa.v.DragMove(viewer.Point{X: float64(ev.Position.X), Y: float64(ev.Position.Y)})
}

// DragEnd finishes the gesture, which may navigate.
func (zpa *ZoomPanArea) DragEnd() {
	if !zpa.dragging {
		return
	}
	zpa.dragging = false
	zpa.v.DragEnd(viewer.Point{X: float64(zpa.lastPos.X), Y: float64(zpa.lastPos.Y)})
}

// --- Renderer for ZoomPanArea ---
type zoomPanAreaRenderer struct{ zpa *ZoomPanArea }

func (r *zoomPanAreaRenderer) Layout(size fyne.Size) {
	r.zpa.raster.Resize(size)
	r.zpa.v.SetViewport(viewer.Size{W: float64(size.Width), H: float64(size.Height)})
}
func (r *zoomPanAreaRenderer) MinSize() fyne.Size           { return fyne.NewSize(200, 150) }
func (r *zoomPanAreaRenderer) Refresh()                     { canvas.Refresh(r.zpa.raster) }
func (r *zoomPanAreaRenderer) Objects() []fyne.CanvasObject { return []fyne.CanvasObject{r.zpa.raster} }
func (r *zoomPanAreaRenderer) Destroy()                     {}

var _ fyne.Widget = (*ZoomPanArea)(nil)
var _ fyne.Tappable = (*ZoomPanArea)(nil)
var _ fyne.Scrollable = (*ZoomPanArea)(nil)
var _ fyne.Draggable = (*ZoomPanArea)(nil)
