package ui

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// About is the Help > About dialog.
type About struct {
	title     string
	parent    *fyne.Window
	container *fyne.Container
	d         dialog.Dialog
}

// NewAbout builds the dialog body: the app icon above one label per line.
func NewAbout(parent *fyne.Window, title string, image fyne.Resource, lines []string) *About {
	a := &About{
		title:  title,
		parent: parent,
	}

	img := canvas.NewImageFromResource(image)
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(96, 96))

	text := widget.NewLabel(strings.Join(lines, "\n"))
	text.Alignment = fyne.TextAlignCenter
	vbox := container.NewVBox(img, text)

	ok := container.NewHBox(
		layout.NewSpacer(),
		widget.NewButton("OK", func() { a.Hide() }),
		layout.NewSpacer(),
	)

	a.container = container.NewBorder(nil, ok, nil, nil, vbox)

	return a
}

func (a *About) Hide() {
	a.d.Hide()
}

func (a *About) Show() {
	a.d = dialog.NewCustomWithoutButtons(a.title, a.container, *a.parent)
	a.d.Show()
}

// aboutLines describes the running gallery.
func (a *App) aboutLines() []string {
	return []string{
		"fygallery",
		"An offline photo gallery.",
		"",
		"Storage: " + a.store.BackendName(),
		countText(len(a.view), a.store.Len(), len(a.store.Selected())),
	}
}
