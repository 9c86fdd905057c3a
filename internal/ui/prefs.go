package ui

import (
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"fygallery/internal/gallery"
)

// prefsFromForm reads the preferences form. Unparseable numbers keep the
// value of base.
func prefsFromForm(base gallery.Preferences, labels, cardMin string, favFilter, slideshow bool, slideSec string) gallery.Preferences {
	p := base
	p.Labels = labels
	if n, err := strconv.Atoi(strings.TrimSpace(cardMin)); err == nil {
		p.CardMin = n
	}
	p.FavFilter = favFilter
	p.Slideshow = slideshow
	if f, err := strconv.ParseFloat(strings.TrimSpace(slideSec), 64); err == nil {
		p.SlideMs = int(f * 1000)
	}
	return p.Normalize()
}

// showPrefsDialog edits the display preferences. The preferences are saved
// at once and survive New Gallery.
func (a *App) showPrefsDialog() {
	p := a.store.Prefs()

	labels := widget.NewSelect([]string{gallery.LabelsAuto, gallery.LabelsOn, gallery.LabelsOff}, nil)
	labels.SetSelected(p.Labels)
	cardMin := widget.NewEntry()
	cardMin.SetText(strconv.Itoa(p.CardMin))
	favFilter := widget.NewCheck("Show the favorites-only filter", nil)
	favFilter.SetChecked(p.FavFilter)
	slideshow := widget.NewCheck("Play a slideshow when the viewer opens", nil)
	slideshow.SetChecked(p.Slideshow)
	slideSec := widget.NewEntry()
	slideSec.SetText(strconv.FormatFloat(float64(p.SlideMs)/1000, 'f', -1, 64))

	clearAll := widget.NewButton("Clear all local data...", func() { a.safe(a.confirmClearAll) })
	clearAll.Importance = widget.DangerImportance

	items := []*widget.FormItem{
		widget.NewFormItem("Labels", labels),
		widget.NewFormItem("Card width", cardMin),
		widget.NewFormItem("", favFilter),
		widget.NewFormItem("", slideshow),
		widget.NewFormItem("Slide seconds", slideSec),
		widget.NewFormItem("", clearAll),
	}
	d := dialog.NewForm("Preferences", "Save", "Cancel", items, func(save bool) {
		if !save {
			return
		}
		a.safe(func() {
			next := prefsFromForm(p, labels.Selected, cardMin.Text, favFilter.Checked, slideshow.Checked, slideSec.Text)
			if _, err := a.store.SetPrefs(a.ctx, next); err != nil {
				a.showError("Preferences", err)
			}
		})
	}, a.UI.MainWin)
	d.Resize(fyne.NewSize(420, 0))
	d.Show()
}

// confirmClearAll empties the gallery and restores default preferences.
func (a *App) confirmClearAll() {
	msg := fmt.Sprintf("Delete all %d photos, the title and your preferences from this computer?\nThis action cannot be undone.", a.store.Len())
	dialog.ShowConfirm("Clear All Local Data", msg, func(ok bool) {
		if !ok {
			return
		}
		a.safe(func() {
			a.viewer.Close()
			a.store.Reset()
			if _, err := a.store.SetPrefs(a.ctx, gallery.DefaultPreferences()); err != nil {
				a.showError("Clear all local data", err)
				return
			}
			if err := a.store.Flush(a.ctx); err != nil {
				a.showError("Clear all local data", err)
				return
			}
			a.store.Status().Infof("All local data cleared")
		})
	}, a.UI.MainWin)
}
