package ui

import (
	"bytes"
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/disintegration/imaging"

	"fygallery/internal/gallery"
)

// viewerWindow is the fullscreen-style window showing one item of the
// filtered view at a time.
type viewerWindow struct {
	win  fyne.Window
	area *ZoomPanArea

	counter *widget.Label
	title   *widget.Label
	desc    *widget.Label
	tags    *widget.Label
	fav     *widget.Button
	play    *widget.Button

	// shown is the id and source of the decoded image in area.
	shownID  string
	shownSrc string
	visible  bool
}

func (a *App) newViewerWindow() *viewerWindow {
	vw := &viewerWindow{win: a.app.NewWindow("fygallery viewer")}
	vw.area = NewZoomPanArea(a.viewer)
	vw.counter = widget.NewLabel("")
	vw.title = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	vw.title.Truncation = fyne.TextTruncateEllipsis
	vw.desc = widget.NewLabel("")
	vw.desc.Wrapping = fyne.TextWrapWord
	vw.tags = widget.NewLabel("")
	vw.tags.Truncation = fyne.TextTruncateEllipsis

	prev := widget.NewButtonWithIcon("", theme.NavigateBackIcon(), func() { a.safe(a.viewer.Prev) })
	next := widget.NewButtonWithIcon("", theme.NavigateNextIcon(), func() { a.safe(a.viewer.Next) })
	vw.fav = widget.NewButton(starOff, func() { a.safe(a.toggleViewerFav) })
	vw.play = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), func() {
		a.safe(func() {
			a.viewer.ToggleSlideshow()
			a.renderViewer()
		})
	})
	zoom := widget.NewButtonWithIcon("", theme.ZoomInIcon(), func() { a.safe(a.viewer.ToggleZoom) })
	closeBtn := widget.NewButtonWithIcon("", theme.CancelIcon(), func() { a.safe(a.viewer.Close) })

	bar := container.NewHBox(prev, vw.counter, next, layout.NewSpacer(), vw.fav, vw.play, zoom, closeBtn)
	info := container.NewVBox(vw.title, vw.desc, vw.tags)
	vw.win.SetContent(container.NewBorder(bar, info, nil, nil, vw.area))

	vw.win.SetCloseIntercept(func() { a.safe(a.viewer.Close) })
	vw.win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) { a.safe(func() { a.viewerKey(ev.Name) }) })
	vw.win.Canvas().SetOnTypedRune(func(r rune) { a.safe(func() { a.viewerRune(r) }) })
	vw.win.Resize(fyne.NewSize(1000, 760))
	return vw
}

// openViewer shows the item with id in the viewer window.
func (a *App) openViewer(id string) {
	if !a.viewer.OpenID(id) {
		a.store.Status().Warnf("Photo %s is not in the current view", id)
	}
}

func (a *App) toggleViewerFav() {
	if _, err := a.viewer.ToggleFavorite(); err != nil {
		a.showError("Favorite", err)
	}
}

func (a *App) viewerKey(name fyne.KeyName) {
	switch name {
	case fyne.KeyLeft:
		a.viewer.Prev()
	case fyne.KeyRight:
		a.viewer.Next()
	case fyne.KeyEscape:
		a.viewer.Close()
	case fyne.KeySpace:
		a.viewer.ToggleSlideshow()
		a.renderViewer()
	}
}

func (a *App) viewerRune(r rune) {
	switch r {
	case 'p', 'P':
		a.viewer.ToggleSlideshow()
		a.renderViewer()
	case 'f', 'F':
		a.toggleViewerFav()
	case '+', '=':
		a.viewer.ZoomBy(1.25)
	case '-':
		a.viewer.ZoomBy(1 / 1.25)
	case 'z', 'Z', '0':
		a.viewer.ToggleZoom()
	}
}

// tagsLine formats item tags for the viewer caption.
func tagsLine(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return "#" + strings.Join(tags, "  #")
}

// renderViewer brings the viewer window in line with the viewer state. It
// runs on the UI goroutine.
func (a *App) renderViewer() {
	it, ok := a.viewer.Current()
	if !ok {
		if a.viewerWin != nil && a.viewerWin.visible {
			a.viewerWin.visible = false
			a.viewerWin.shownID, a.viewerWin.shownSrc = "", ""
			a.viewerWin.area.SetImage(nil)
			a.viewerWin.win.Hide()
		}
		return
	}
	if a.viewerWin == nil {
		a.viewerWin = a.newViewerWindow()
	}
	vw := a.viewerWin

	vw.counter.SetText(a.viewer.Counter())
	vw.title.SetText(it.Title)
	vw.desc.SetText(it.Desc)
	vw.tags.SetText(tagsLine(it.Tags))
	if it.Fav {
		vw.fav.SetText(starOn)
	} else {
		vw.fav.SetText(starOff)
	}
	if a.viewer.SlideshowRunning() {
		vw.play.SetIcon(theme.MediaPauseIcon())
	} else {
		vw.play.SetIcon(theme.MediaPlayIcon())
	}
	if it.Title != "" {
		vw.win.SetTitle(fmt.Sprintf("%s - %s", it.Title, a.viewer.Counter()))
	} else {
		vw.win.SetTitle("fygallery " + a.viewer.Counter())
	}

	src := it.ViewerSrc()
	if it.ID != vw.shownID || src != vw.shownSrc {
		vw.shownID, vw.shownSrc = it.ID, src
		a.loadViewerImage(it, src)
	}
	vw.area.Refresh()

	if !vw.visible {
		vw.visible = true
		vw.win.Show()
		vw.win.RequestFocus()
	}
}

// loadViewerImage decodes src off the UI goroutine. A result that arrives
// after the viewer moved on is dropped.
func (a *App) loadViewerImage(it gallery.Item, src string) {
	vw := a.viewerWin
	vw.area.SetImage(nil)
	a.viewer.HoldSlideshow()
	a.goSafe(func() {
		defer a.viewer.ReleaseSlideshow()
		_, data, err := gallery.DecodeDataURI(src)
		if err == nil && len(data) == 0 {
			err = fmt.Errorf("photo has no image data")
		}
		if err != nil {
			fyne.Do(func() { a.store.Status().Errorf("Cannot show %s: %v", it.ID, err) })
			return
		}
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		fyne.Do(func() {
			if vw.shownID != it.ID || vw.shownSrc != src {
				return
			}
			if err != nil {
				a.store.Status().Errorf("Cannot decode %s: %v", it.ID, err)
				return
			}
			vw.area.SetImage(img)
			vw.area.Refresh()
		})
	})
}
