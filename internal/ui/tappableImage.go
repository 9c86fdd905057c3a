package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// tappableImage is a card thumbnail that opens the viewer when tapped and
// offers a context menu on secondary tap.
type tappableImage struct {
	widget.BaseWidget
	image       *canvas.Image
	onTapped    func()
	onSecondary func(pos fyne.Position)
}

func newTappableImage(res fyne.Resource) *tappableImage {
	ti := &tappableImage{
		image: canvas.NewImageFromResource(res),
	}
	ti.image.FillMode = canvas.ImageFillContain
	ti.image.ScaleMode = canvas.ImageScaleSmooth
	ti.ExtendBaseWidget(ti)
	return ti
}

func (t *tappableImage) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(t.image)
}

func (t *tappableImage) Tapped(_ *fyne.PointEvent) {
	if t.onTapped != nil {
		t.onTapped()
	}
}

func (t *tappableImage) TappedSecondary(ev *fyne.PointEvent) {
	if t.onSecondary != nil {
		t.onSecondary(ev.AbsolutePosition)
	}
}

// SetResource updates the image resource and refreshes.
func (t *tappableImage) SetResource(res fyne.Resource) {
	if t.image.Resource == res {
		return
	}
	t.image.Resource = res
	t.image.Image = nil
	canvas.Refresh(t.image)
}

// SetMinSize sets the minimum size of the tappable image.
func (t *tappableImage) SetMinSize(size fyne.Size) {
	t.image.SetMinSize(size)
}

var _ fyne.Tappable = (*tappableImage)(nil)
var _ fyne.SecondaryTappable = (*tappableImage)(nil)
