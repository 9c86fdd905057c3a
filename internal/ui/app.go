// Package ui is the fyne front end of fygallery: the gallery grid with its
// filter bar and status bar, and the fullscreen viewer window.
package ui

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"fygallery/internal/config"
	"fygallery/internal/gallery"
	"fygallery/internal/logger"
	"fygallery/internal/service"
	"fygallery/internal/store"
	"fygallery/internal/viewer"
)

// App represents the whole application with all its windows, widgets and functions
type App struct {
	app fyne.App
	UI  UI

	ctx     context.Context
	Service *service.Service
	store   *store.Store
	viewer  *viewer.Viewer
	thumbs  *ThumbnailManager
	logger  *slog.Logger

	logUIManager *LogUIManager
	tagsWin      *tagListController
	viewerWin    *viewerWindow

	// Owned by the UI goroutine.
	view  []gallery.Item
	prefs gallery.Preferences

	// slideshowOverride replaces the saved slideshow interval when set.
	slideshowOverride time.Duration

	closeOnce sync.Once
}

// UI holds the widgets of the main window.
type UI struct {
	MainWin    fyne.Window
	mainModKey fyne.KeyModifier

	gridHolder   *fyne.Container
	grid         *widget.GridWrap
	searchEntry  *widget.Entry
	tagBar       *fyne.Container
	favToggle    *widget.Button
	titleEntry   *widget.Entry
	sessionEntry *widget.Entry
	countLabel   *widget.Label
}

// safe runs an event callback and turns a panic into a logged error and a
// status message, keeping the window alive.
func (a *App) safe(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("recovered from panic in UI callback", "panic", r, "stack", string(debug.Stack()))
			a.store.Status().Errorf("Unexpected error: %v", r)
		}
	}()
	fn()
}

// showError reports err in a dialog and the status bar.
func (a *App) showError(action string, err error) {
	if err == nil {
		return
	}
	a.logger.Error(action+" failed", "error", err)
	a.store.Status().Errorf("%s failed: %v", action, err)
	dialog.ShowError(fmt.Errorf("%s: %w", action, err), a.UI.MainWin)
}

// goSafe runs fn off the UI goroutine with the same panic protection as safe.
func (a *App) goSafe(fn func()) {
	go a.safe(fn)
}

// onStoreChange redraws whatever a store change touched. It runs on the UI
// goroutine.
func (a *App) onStoreChange(c store.Change) {
	switch c.Kind {
	case store.ChangePrefs:
		a.applyPrefs(a.store.Prefs())
	case store.ChangeMeta:
		a.syncMetaEntries()
	case store.ChangeReset:
		a.syncMetaEntries()
		a.syncFilterWidgets()
		a.refreshView()
	case store.ChangeFilter:
		a.syncFilterWidgets()
		a.refreshView()
	case store.ChangeSelection:
		if a.UI.grid != nil {
			a.UI.grid.Refresh()
		}
		a.updateCount()
	default:
		a.refreshView()
	}
}

// refreshView re-reads the filtered view and redraws everything built on it.
func (a *App) refreshView() {
	a.view = a.store.View()
	a.thumbs.Prune(a.store.Items())
	if a.UI.grid != nil {
		a.UI.grid.Refresh()
	}
	a.refreshTagBar()
	a.updateCount()
	a.viewer.Sync()
	if a.tagsWin != nil {
		a.tagsWin.loadAndFilterTagData()
	}
}

func (a *App) updateCount() {
	if a.UI.countLabel == nil {
		return
	}
	a.UI.countLabel.SetText(countText(len(a.view), a.store.Len(), len(a.store.Selected())))
}

// countText is the "12 of 40 photos, 3 selected" summary.
func countText(shown, total, selected int) string {
	text := fmt.Sprintf("%d photos", total)
	if shown != total {
		text = fmt.Sprintf("%d of %d photos", shown, total)
	}
	if selected > 0 {
		text += fmt.Sprintf(", %d selected", selected)
	}
	return text
}

// applyPrefs pushes preferences into the grid, the filter bar and the viewer.
func (a *App) applyPrefs(p gallery.Preferences) {
	rebuild := a.prefs.CardMin != p.CardMin
	a.prefs = p
	interval := p.SlideInterval()
	if a.slideshowOverride > 0 {
		interval = a.slideshowOverride
	}
	a.viewer.SetSlideshow(p.Slideshow, interval)

	if !p.FavFilter {
		if f := a.store.Filter(); f.FavOnly {
			f.FavOnly = false
			a.store.SetFilter(f)
		}
	}
	a.syncFilterWidgets()
	if rebuild && a.UI.gridHolder != nil {
		a.UI.grid = a.buildGrid()
		a.UI.gridHolder.Objects = []fyne.CanvasObject{a.UI.grid}
		a.UI.gridHolder.Refresh()
	} else if a.UI.grid != nil {
		a.UI.grid.Refresh()
	}
}

// shutdown flushes the gallery and closes the backend once.
func (a *App) shutdown() {
	a.closeOnce.Do(func() {
		a.viewer.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Service.Close(ctx); err != nil {
			a.logger.Error("failed to save gallery on exit", "error", err)
		}
	})
}

var slideshowIntervalFlag = flag.Float64("slideshow-interval", 0, "Slideshow interval in seconds, overriding the saved preference (0 keeps it). Min: 0.8.")

// CreateApplication opens the gallery and runs the GUI until the main window
// is closed. Paths given on the command line are added as photos.
func CreateApplication() {
	flag.Parse()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewSlog(logger.SlogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat}).With("app", "fygallery")

	ctx := context.Background()
	svc, err := service.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open gallery", "error", err)
		os.Exit(1)
	}

	a := app.NewWithID("io.github.fygallery")
	a.SetIcon(theme.FileImageIcon())
	a.Settings().SetTheme(NewCompactTheme(a.Settings().Theme()))

	ui := &App{
		app:     a,
		ctx:     ctx,
		Service: svc,
		store:   svc.Store,
		logger:  log,
	}
	if *slideshowIntervalFlag > 0 {
		ui.slideshowOverride = max(time.Duration(*slideshowIntervalFlag*float64(time.Second)), 800*time.Millisecond)
	}
	ui.thumbs = NewThumbnailManager(func(id string, err error) {
		log.Warn("thumbnail unavailable", "id", id, "error", err)
	})
	ui.viewer = viewer.New(svc.Store, viewer.Options{
		OnChange: func() { fyne.Do(ui.renderViewer) },
	})

	ui.UI.MainWin = a.NewWindow("fygallery")
	ui.UI.MainWin.SetCloseIntercept(func() {
		ui.shutdown()
		ui.UI.MainWin.Close()
	})
	ui.UI.MainWin.SetContent(ui.buildMainUI())
	ui.applyPrefs(svc.Store.Prefs())
	ui.refreshView()

	svc.Store.Subscribe(func(c store.Change) {
		fyne.Do(func() { ui.safe(func() { ui.onStoreChange(c) }) })
	})

	if paths := flag.Args(); len(paths) > 0 {
		ui.goSafe(func() { ui.addPaths(paths...) })
	}

	ui.UI.MainWin.Resize(fyne.NewSize(1100, 760))
	ui.UI.MainWin.CenterOnScreen()
	ui.UI.MainWin.ShowAndRun()
	ui.shutdown()
}

// addPaths adds files and directories through the bounded intake pool.
func (a *App) addPaths(paths ...string) {
	added, err := a.Service.AddFiles(a.ctx, paths...)
	a.logger.Info("photos added", "count", len(added), "paths", len(paths))
	if err != nil {
		fyne.Do(func() { a.showError("Adding photos", err) })
	}
}

// errorIsNothingSelected reports the export-with-empty-selection case, which
// is shown as information rather than an error.
func errorIsNothingSelected(err error) bool {
	return errors.Is(err, store.ErrNothingToExport)
}

