package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"fygallery/internal/gallery"
)

const (
	starOn  = "★"
	starOff = "☆"

	// autoLabelMinWidth is the narrowest card that still shows its title
	// when labels are "auto".
	autoLabelMinWidth = 180
)

// labelVisible decides whether a card shows its title line.
func labelVisible(mode string, cardMin int, title string) bool {
	switch mode {
	case gallery.LabelsOn:
		return true
	case gallery.LabelsOff:
		return false
	default:
		return title != "" && cardMin >= autoLabelMinWidth
	}
}

// cardImageSize is the thumbnail area of a card: cardMin wide at 4:3.
func cardImageSize(cardMin int) fyne.Size {
	w := float32(cardMin)
	return fyne.NewSize(w, w*3/4)
}

// galleryCard is one cell of the grid. GridWrap recycles cards, so every
// callback looks up the item by the id bound last.
type galleryCard struct {
	widget.BaseWidget
	a  *App
	id string

	img   *tappableImage
	title *widget.Label
	fav   *widget.Button
	sel   *widget.Check

	content fyne.CanvasObject
}

func (a *App) newCard() *galleryCard {
	c := &galleryCard{a: a}
	c.img = newTappableImage(theme.FileImageIcon())
	c.img.SetMinSize(cardImageSize(a.prefs.CardMin))
	c.img.onTapped = func() { a.safe(func() { a.openViewer(c.id) }) }
	c.img.onSecondary = func(pos fyne.Position) { a.safe(func() { a.showCardMenu(c.id, pos) }) }

	c.title = widget.NewLabel("")
	c.title.Truncation = fyne.TextTruncateEllipsis
	c.title.TextStyle = fyne.TextStyle{Bold: true}

	c.fav = widget.NewButton(starOff, func() {
		a.safe(func() {
			if _, err := a.store.ToggleFav(c.id); err != nil {
				a.showError("Favorite", err)
			}
		})
	})
	c.fav.Importance = widget.LowImportance
	c.sel = widget.NewCheck("", nil)

	up := widget.NewButtonWithIcon("", theme.MoveUpIcon(), func() {
		a.safe(func() { a.showError("Move up", a.store.MoveUp(c.id)) })
	})
	down := widget.NewButtonWithIcon("", theme.MoveDownIcon(), func() {
		a.safe(func() { a.showError("Move down", a.store.MoveDown(c.id)) })
	})
	edit := widget.NewButtonWithIcon("", theme.DocumentCreateIcon(), func() {
		a.safe(func() { a.showEditDialog(c.id) })
	})
	for _, b := range []*widget.Button{up, down, edit} {
		b.Importance = widget.LowImportance
	}

	c.content = container.NewBorder(nil,
		container.NewVBox(c.title, container.NewHBox(c.sel, c.fav, layout.NewSpacer(), up, down, edit)),
		nil, nil,
		c.img,
	)
	c.ExtendBaseWidget(c)
	return c
}

func (c *galleryCard) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(c.content)
}

// bind shows it in the card.
func (c *galleryCard) bind(it gallery.Item, selected bool, prefs gallery.Preferences) {
	c.id = it.ID
	id := it.ID
	c.img.SetResource(c.a.thumbs.GetThumbnail(it, func(res fyne.Resource) {
		if c.id == id {
			c.img.SetResource(res)
		}
	}))

	title := it.Title
	if title == "" && prefs.Labels == gallery.LabelsOn {
		title = "Untitled"
	}
	c.title.SetText(title)
	if labelVisible(prefs.Labels, prefs.CardMin, it.Title) {
		c.title.Show()
	} else {
		c.title.Hide()
	}

	if it.Fav {
		c.fav.SetText(starOn)
	} else {
		c.fav.SetText(starOff)
	}

	// SetChecked fires OnChanged, which must not echo back into the store.
	c.sel.OnChanged = nil
	c.sel.SetChecked(selected)
	c.sel.OnChanged = func(on bool) {
		c.a.safe(func() {
			if on {
				c.a.store.Select(id)
			} else {
				c.a.store.Deselect(id)
			}
		})
	}
}

// buildGrid creates the card grid over a.view.
func (a *App) buildGrid() *widget.GridWrap {
	return widget.NewGridWrap(
		func() int { return len(a.view) },
		func() fyne.CanvasObject { return a.newCard() },
		func(id widget.GridWrapItemID, obj fyne.CanvasObject) {
			if id < 0 || id >= len(a.view) {
				return
			}
			it := a.view[id]
			obj.(*galleryCard).bind(it, a.store.IsSelected(it.ID), a.prefs)
		},
	)
}

// showCardMenu offers the less common item actions.
func (a *App) showCardMenu(id string, pos fyne.Position) {
	menu := fyne.NewMenu("",
		fyne.NewMenuItem("Open", func() { a.safe(func() { a.openViewer(id) }) }),
		fyne.NewMenuItem("Edit...", func() { a.safe(func() { a.showEditDialog(id) }) }),
		fyne.NewMenuItem("Replace Image...", func() { a.safe(func() { a.replaceImage(id) }) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Remove", func() { a.safe(func() { a.confirmRemove([]string{id}) }) }),
	)
	widget.ShowPopUpMenuAtPosition(menu, a.UI.MainWin.Canvas(), pos)
}

// confirmRemove asks before removing items from the gallery.
func (a *App) confirmRemove(ids []string) {
	if len(ids) == 0 {
		return
	}
	msg := "Remove this photo from the gallery?"
	if len(ids) > 1 {
		msg = "Remove the selected photos from the gallery?"
	}
	dialog.ShowConfirm("Remove", msg+"\nThis action cannot be undone.", func(ok bool) {
		if !ok {
			return
		}
		a.safe(func() {
			n := a.store.Remove(ids...)
			a.store.Status().Infof("Removed %d photos", n)
		})
	}, a.UI.MainWin)
}
