package ui

import (
	"fmt"
	"io"
	"runtime"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"fygallery/internal/scan"
	"fygallery/internal/transfer"
)

func (a *App) buildToolbar() *widget.Toolbar {
	return widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentAddIcon(), a.addPhoto),
		widget.NewToolbarAction(theme.FolderOpenIcon(), a.addFolder),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DownloadIcon(), func() { a.importDocument(transfer.Replace) }),
		widget.NewToolbarAction(theme.ContentPasteIcon(), func() { a.importDocument(transfer.Append) }),
		widget.NewToolbarAction(theme.UploadIcon(), func() { a.exportGallery(false) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.CheckButtonCheckedIcon(), func() { a.safe(a.store.SelectAll) }),
		widget.NewToolbarAction(theme.CheckButtonIcon(), func() { a.safe(a.store.ClearSelection) }),
		widget.NewToolbarAction(theme.MailForwardIcon(), func() { a.exportGallery(true) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentIcon(), a.newGallery),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), a.saveNow),
		widget.NewToolbarSpacer(),
		widget.NewToolbarAction(theme.ListIcon(), a.showTagsWindow),
		widget.NewToolbarAction(theme.SettingsIcon(), a.showPrefsDialog),
		widget.NewToolbarAction(theme.HelpIcon(), a.showShortcuts),
	)
}

// buildHeader holds the gallery title and session name.
func (a *App) buildHeader() fyne.CanvasObject {
	a.UI.titleEntry = widget.NewEntry()
	a.UI.titleEntry.SetPlaceHolder(transfer.DefaultTitle)
	a.UI.sessionEntry = widget.NewEntry()
	a.UI.sessionEntry.SetPlaceHolder("Session name")
	a.syncMetaEntries()
	a.UI.titleEntry.OnChanged = func(s string) {
		a.safe(func() {
			m := a.store.Meta()
			m.Title = s
			a.store.SetMeta(m)
		})
	}
	a.UI.sessionEntry.OnChanged = func(s string) {
		a.safe(func() {
			m := a.store.Meta()
			m.Session = s
			a.store.SetMeta(m)
		})
	}
	return container.NewGridWithColumns(2, a.UI.titleEntry, a.UI.sessionEntry)
}

// syncMetaEntries shows the stored title and session without echoing the
// change back.
func (a *App) syncMetaEntries() {
	if a.UI.titleEntry == nil {
		return
	}
	m := a.store.Meta()
	if a.UI.titleEntry.Text != m.Title {
		a.UI.titleEntry.SetText(m.Title)
	}
	if a.UI.sessionEntry.Text != m.Session {
		a.UI.sessionEntry.SetText(m.Session)
	}
	title := "fygallery"
	if m.Title != "" {
		title = "fygallery - " + m.Title
	}
	a.UI.MainWin.SetTitle(title)
}

// buildFilterBar holds the search box, the tag chips and the favorites-only
// toggle.
func (a *App) buildFilterBar() fyne.CanvasObject {
	a.UI.searchEntry = widget.NewEntry()
	a.UI.searchEntry.SetPlaceHolder("Search title, description or tags...")
	a.UI.searchEntry.OnChanged = func(q string) {
		a.safe(func() {
			f := a.store.Filter()
			if f.Query == q {
				return
			}
			f.Query = q
			a.store.SetFilter(f)
		})
	}

	a.UI.favToggle = widget.NewButton("Favorites only", func() {
		a.safe(func() {
			f := a.store.Filter()
			f.FavOnly = !f.FavOnly
			a.store.SetFilter(f)
		})
	})
	a.UI.tagBar = container.NewHBox()
	a.UI.countLabel = widget.NewLabel("")

	return container.NewVBox(
		container.NewBorder(nil, nil, nil, container.NewHBox(a.UI.favToggle, a.UI.countLabel), a.UI.searchEntry),
		container.NewHScroll(a.UI.tagBar),
	)
}

// tagChipText labels a tag chip with its item count.
func tagChipText(name string, count int) string {
	return fmt.Sprintf("%s (%d)", name, count)
}

// refreshTagBar rebuilds the tag chips. The active tag is highlighted and
// tapping it again clears the tag filter.
func (a *App) refreshTagBar() {
	if a.UI.tagBar == nil {
		return
	}
	active := a.store.Filter().Tag
	chips := []fyne.CanvasObject{}
	all := widget.NewButton("All", func() {
		a.safe(func() {
			f := a.store.Filter()
			f.Tag = ""
			a.store.SetFilter(f)
		})
	})
	if active == "" {
		all.Importance = widget.HighImportance
	}
	chips = append(chips, all)
	for _, t := range a.store.Tags() {
		name := t.Name
		b := widget.NewButton(tagChipText(name, t.Count), func() {
			a.safe(func() {
				f := a.store.Filter()
				if f.Tag == name {
					f.Tag = ""
				} else {
					f.Tag = name
				}
				a.store.SetFilter(f)
			})
		})
		if name == active {
			b.Importance = widget.HighImportance
		}
		chips = append(chips, b)
	}
	a.UI.tagBar.Objects = chips
	a.UI.tagBar.Refresh()
}

// syncFilterWidgets mirrors the store's filter in the filter bar.
func (a *App) syncFilterWidgets() {
	if a.UI.searchEntry == nil {
		return
	}
	f := a.store.Filter()
	if a.UI.searchEntry.Text != f.Query {
		a.UI.searchEntry.SetText(f.Query)
	}
	if a.prefs.FavFilter {
		a.UI.favToggle.Show()
	} else {
		a.UI.favToggle.Hide()
	}
	if f.FavOnly {
		a.UI.favToggle.SetText("All items")
		a.UI.favToggle.Importance = widget.HighImportance
	} else {
		a.UI.favToggle.SetText("Favorites only")
		a.UI.favToggle.Importance = widget.MediumImportance
	}
	a.UI.favToggle.Refresh()
	a.refreshTagBar()
}

func (a *App) buildStatusBar() fyne.CanvasObject {
	label := widget.NewLabel("")
	label.Truncation = fyne.TextTruncateEllipsis
	up := widget.NewButtonWithIcon("", theme.MoveUpIcon(), nil)
	down := widget.NewButtonWithIcon("", theme.MoveDownIcon(), nil)
	a.logUIManager = NewLogUIManager(a.store.Status(), label, up, down)
	backend := widget.NewLabel(a.store.BackendName())
	return container.NewVBox(
		widget.NewSeparator(),
		container.NewBorder(nil, nil, container.NewHBox(up, down), backend, label),
	)
}

func (a *App) buildMainUI() fyne.CanvasObject {
	a.UI.MainWin.SetMaster()
	// set main mod key to super on darwin hosts, else set it to ctrl
	if runtime.GOOS == "darwin" {
		a.UI.mainModKey = fyne.KeyModifierSuper
	} else {
		a.UI.mainModKey = fyne.KeyModifierControl
	}
	if a.prefs.CardMin == 0 {
		a.prefs = a.store.Prefs()
	}

	mainMenu := fyne.NewMainMenu(
		fyne.NewMenu("File",
			fyne.NewMenuItem("Add Photo...", a.addPhoto),
			fyne.NewMenuItem("Add Folder...", a.addFolder),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Import...", func() { a.importDocument(transfer.Replace) }),
			fyne.NewMenuItem("Append from File...", func() { a.importDocument(transfer.Append) }),
			fyne.NewMenuItem("Export All...", func() { a.exportGallery(false) }),
			fyne.NewMenuItem("Export Selected...", func() { a.exportGallery(true) }),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("New Gallery", a.newGallery),
			fyne.NewMenuItem("Save Now", a.saveNow),
		),
		fyne.NewMenu("Edit",
			fyne.NewMenuItem("Select All", func() { a.safe(a.store.SelectAll) }),
			fyne.NewMenuItem("Clear Selection", func() { a.safe(a.store.ClearSelection) }),
			fyne.NewMenuItem("Tag Selected...", a.tagSelected),
			fyne.NewMenuItem("Remove Selected...", func() { a.safe(func() { a.confirmRemove(a.store.Selected()) }) }),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Manage Tags...", a.showTagsWindow),
			fyne.NewMenuItem("Preferences...", a.showPrefsDialog),
		),
		fyne.NewMenu("Help",
			fyne.NewMenuItem("Keyboard Shortcuts", a.showShortcuts),
			fyne.NewMenuItem("About", func() {
				NewAbout(&a.UI.MainWin, "About fygallery", theme.FileImageIcon(), a.aboutLines()).Show()
			}),
		),
	)
	a.UI.MainWin.SetMainMenu(mainMenu)
	a.buildKeyboardShortcuts()

	a.UI.grid = a.buildGrid()
	a.UI.gridHolder = container.NewStack(a.UI.grid)

	top := container.NewVBox(a.buildToolbar(), a.buildHeader(), a.buildFilterBar())
	return container.NewBorder(
		top,                // Top
		a.buildStatusBar(), // Bottom
		nil,
		nil,
		a.UI.gridHolder,
	)
}

// --- actions ---

func (a *App) addPhoto() {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError("Adding photo", err)
			return
		}
		if r == nil {
			return
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			a.showError("Adding photo", err)
			return
		}
		name := r.URI().Name()
		a.goSafe(func() {
			if _, err := a.Service.AddData(a.ctx, name, data); err != nil {
				fyne.Do(func() { a.showError("Adding photo", err) })
			}
		})
	}, a.UI.MainWin)
	d.SetFilter(fstorage.NewExtensionFileFilter(scan.Extensions))
	d.Show()
}

func (a *App) addFolder() {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			a.showError("Adding folder", err)
			return
		}
		if dir == nil {
			return
		}
		path := dir.Path()
		a.store.Status().Infof("Adding photos from %s...", dir.Name())
		a.goSafe(func() { a.addPaths(path) })
	}, a.UI.MainWin)
}

func (a *App) importDocument(mode transfer.Mode) {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError("Import", err)
			return
		}
		if r == nil {
			return
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			a.showError("Import", err)
			return
		}
		run := func() {
			a.safe(func() {
				if _, err := a.store.ImportData(a.ctx, data, mode); err != nil {
					a.showError("Import", err)
				}
			})
		}
		if mode == transfer.Replace && a.store.Len() > 0 {
			dialog.ShowConfirm("Import", "Replace the current gallery with the imported one?", func(ok bool) {
				if ok {
					run()
				}
			}, a.UI.MainWin)
			return
		}
		run()
	}, a.UI.MainWin)
	d.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
	d.Show()
}

func (a *App) exportGallery(selectedOnly bool) {
	if selectedOnly && len(a.store.Selected()) == 0 {
		dialog.ShowInformation("Export", "Select photos first.", a.UI.MainWin)
		return
	}
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			a.showError("Export", err)
			return
		}
		if dir == nil {
			return
		}
		a.safe(func() {
			paths, err := a.Service.Export(dir.Path(), selectedOnly)
			switch {
			case errorIsNothingSelected(err):
				dialog.ShowInformation("Export", "There is nothing to export.", a.UI.MainWin)
			case err != nil:
				a.showError("Export", err)
			case len(paths) > 1:
				dialog.ShowInformation("Export", fmt.Sprintf("The gallery was split into %d files.", len(paths)), a.UI.MainWin)
			}
		})
	}, a.UI.MainWin)
}

func (a *App) newGallery() {
	dialog.ShowConfirm("New Gallery", "Remove all photos and clear the title?\nThis action cannot be undone.", func(ok bool) {
		if ok {
			a.safe(func() {
				a.viewer.Close()
				a.store.Reset()
			})
		}
	}, a.UI.MainWin)
}

func (a *App) saveNow() {
	a.safe(func() {
		if err := a.store.Flush(a.ctx); err != nil {
			a.showError("Save", err)
		}
	})
}
