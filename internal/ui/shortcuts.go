// Package ui  Shortcuts for keyboard actions
package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"fygallery/internal/transfer"
)

// shortcut pairs a key chord with what it does in the main window.
type shortcut struct {
	key         fyne.KeyName
	label       string
	description string
	action      func()
}

func (a *App) mainShortcuts() []shortcut {
	return []shortcut{
		{fyne.KeyQ, "Ctrl+Q", "Quit", func() {
			a.shutdown()
			a.app.Quit()
		}},
		{fyne.KeyS, "Ctrl+S", "Save now", a.saveNow},
		{fyne.KeyO, "Ctrl+O", "Add photo", a.addPhoto},
		{fyne.KeyI, "Ctrl+I", "Import gallery", func() { a.importDocument(transfer.Replace) }},
		{fyne.KeyE, "Ctrl+E", "Export gallery", func() { a.exportGallery(false) }},
		{fyne.KeyA, "Ctrl+A", "Select all", a.store.SelectAll},
		{fyne.KeyF, "Ctrl+F", "Search", func() {
			if a.UI.searchEntry != nil {
				a.UI.MainWin.Canvas().Focus(a.UI.searchEntry)
			}
		}},
		{fyne.KeyT, "Ctrl+T", "Tag selected", a.tagSelected},
	}
}

func (a *App) buildKeyboardShortcuts() {
	for _, s := range a.mainShortcuts() {
		action := s.action
		a.UI.MainWin.Canvas().AddShortcut(&desktop.CustomShortcut{
			KeyName:  s.key,
			Modifier: a.UI.mainModKey,
		}, func(_ fyne.Shortcut) { a.safe(action) })
	}

	a.UI.MainWin.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		a.safe(func() {
			switch key.Name {
			case fyne.KeyDelete:
				a.confirmRemove(a.store.Selected())
			// close dialogs with esc key, else drop the selection
			case fyne.KeyEscape:
				if top := a.UI.MainWin.Canvas().Overlays().Top(); top != nil {
					top.Hide()
				} else {
					a.store.ClearSelection()
				}
			}
		})
	})
}

func ternaryString(condition bool, trueVal, falseVal string) string {
	if condition {
		return trueVal
	}
	return falseVal
}

// shortcutRows lists the main window and viewer keys as label/description
// pairs. modName replaces "Ctrl" on hosts using another modifier.
func (a *App) shortcutRows(modName string) [][2]string {
	var rows [][2]string
	for _, s := range a.mainShortcuts() {
		label := s.label
		if modName != "Ctrl" {
			label = modName + label[len("Ctrl"):]
		}
		rows = append(rows, [2]string{label, s.description})
	}
	return append(rows,
		[2]string{"Delete", "Remove selected"},
		[2]string{"Esc", "Close dialog or clear selection"},
		[2]string{"Left / Right", "Viewer: previous / next"},
		[2]string{"P or Space", "Viewer: play / pause slideshow"},
		[2]string{"F", "Viewer: toggle favorite"},
		[2]string{"+ / -", "Viewer: zoom in / out"},
		[2]string{"Z or 0", "Viewer: toggle zoom"},
		[2]string{"Double click", "Viewer: toggle zoom"},
		[2]string{"Drag", "Viewer: pan when zoomed, swipe to navigate"},
		[2]string{"Esc", "Viewer: close"},
	)
}

func (a *App) showShortcuts() {
	rows := a.shortcutRows(ternaryString(a.UI.mainModKey == fyne.KeyModifierSuper, "Cmd", "Ctrl"))

	win := a.app.NewWindow("Keyboard Shortcuts")
	table := widget.NewTable(
		func() (int, int) { return len(rows) + 1, 2 }, // +1 for header row
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			label := obj.(*widget.Label)
			isHeader := id.Row == 0 // First row is header
			if isHeader {
				label.SetText(ternaryString(id.Col == 0, "Shortcut", "Description"))
			} else {
				label.SetText(rows[id.Row-1][id.Col])
			}
			label.TextStyle.Bold = isHeader
		},
	)
	table.SetColumnWidth(0, 160)
	table.SetColumnWidth(1, 340)
	win.SetContent(table)
	win.Resize(fyne.NewSize(520, 520))
	win.Show()
}
