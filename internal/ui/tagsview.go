package ui

import (
	"fmt"
	"sort"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"fygallery/internal/gallery"
)

const (
	noTagsFoundMsg       = "No tags yet. Edit a photo to add some."
	noTagsMatchSearchMsg = "No tags match your search."
)

// tagListController drives the Manage Tags window.
type tagListController struct {
	app *App
	win fyne.Window

	allTags             []gallery.TagWithCount
	filteredDisplayData []gallery.TagWithCount
	selectedTag         string

	searchEntry  *widget.Entry
	renameButton *widget.Button
	removeButton *widget.Button
	tagList      *widget.List
	messageLabel *widget.Label
}

// sortTags orders tags by count (descending), then by name (ascending) for ties.
func sortTags(tags []gallery.TagWithCount) {
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Name < tags[j].Name
	})
}

// filterTags keeps the tags whose name contains term, ignoring case.
func filterTags(tags []gallery.TagWithCount, term string) []gallery.TagWithCount {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return tags
	}
	out := []gallery.TagWithCount{}
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t.Name), term) {
			out = append(out, t)
		}
	}
	return out
}

// showTagsWindow opens the Manage Tags window, or raises it if open.
func (a *App) showTagsWindow() {
	if a.tagsWin != nil {
		a.tagsWin.win.RequestFocus()
		return
	}
	c := &tagListController{app: a, win: a.app.NewWindow("Manage Tags")}

	c.searchEntry = widget.NewEntry()
	c.searchEntry.SetPlaceHolder("Search Tags...")
	c.searchEntry.OnChanged = c.filterAndRefreshList

	c.renameButton = widget.NewButtonWithIcon("Rename", theme.DocumentCreateIcon(), c.onRenameTapped)
	c.removeButton = widget.NewButtonWithIcon("Remove Tag Globally", theme.DeleteIcon(), c.onRemoveTapped)
	c.renameButton.Disable()
	c.removeButton.Disable()

	c.tagList = widget.NewList(
		func() int { return len(c.filteredDisplayData) },
		func() fyne.CanvasObject { return widget.NewLabel("tag template") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < 0 || id >= len(c.filteredDisplayData) {
				return
			}
			t := c.filteredDisplayData[id]
			obj.(*widget.Label).SetText(tagChipText(t.Name, t.Count))
		},
	)
	c.tagList.OnSelected = c.onTagSelected
	c.tagList.OnUnselected = c.onTagUnselected

	c.messageLabel = widget.NewLabel(noTagsFoundMsg)
	c.messageLabel.Alignment = fyne.TextAlignCenter
	c.messageLabel.Wrapping = fyne.TextWrapWord

	buttons := container.NewHBox(c.renameButton, c.removeButton)
	c.win.SetContent(container.NewBorder(c.searchEntry, buttons, nil, nil,
		container.NewStack(c.tagList, c.messageLabel)))
	c.win.SetOnClosed(func() { a.tagsWin = nil })
	c.win.Resize(fyne.NewSize(360, 480))

	a.tagsWin = c
	c.loadAndFilterTagData()
	c.win.Show()
}

// filterAndRefreshList updates the list display based on the current search term.
func (c *tagListController) filterAndRefreshList(searchTerm string) {
	c.filteredDisplayData = filterTags(c.allTags, searchTerm)

	if len(c.filteredDisplayData) == 0 {
		c.messageLabel.SetText(ternaryString(strings.TrimSpace(searchTerm) != "", noTagsMatchSearchMsg, noTagsFoundMsg))
		c.messageLabel.Show()
		c.tagList.Hide()
		return
	}
	c.messageLabel.Hide()
	c.tagList.Show()
	c.tagList.Refresh()
}

// loadAndFilterTagData reloads the tag counts from the store and refreshes
// the view.
func (c *tagListController) loadAndFilterTagData() {
	tags := c.app.store.Tags()
	sortTags(tags)
	c.allTags = tags
	// The selection follows the grid's tag filter, which may have changed
	// from the filter bar.
	keep := c.app.store.Filter().Tag
	c.filterAndRefreshList(c.searchEntry.Text)
	c.tagList.UnselectAll() // This will trigger OnUnselected and disable the buttons
	for i, t := range c.filteredDisplayData {
		if t.Name == keep {
			c.tagList.Select(i)
			break
		}
	}
}

func (c *tagListController) onRenameTapped() {
	oldTag := c.selectedTag
	if oldTag == "" {
		return
	}
	entry := widget.NewEntry()
	entry.SetText(oldTag)
	dialog.ShowForm(fmt.Sprintf("Rename '%s'", oldTag), "Rename", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("New name", entry)},
		func(ok bool) {
			if !ok {
				return
			}
			c.app.safe(func() {
				n, err := c.app.Service.ReplaceTag(oldTag, entry.Text)
				if err != nil {
					dialog.ShowError(fmt.Errorf("failed to rename tag '%s': %w", oldTag, err), c.win)
					return
				}
				c.app.store.Status().Infof("Renamed tag '%s' on %d photos", oldTag, n)
				c.loadAndFilterTagData()
			})
		}, c.win)
}

// onRemoveTapped handles the logic for the "Remove Tag Globally" button.
func (c *tagListController) onRemoveTapped() {
	tag := c.selectedTag
	if tag == "" {
		return
	}
	confirmMessage := fmt.Sprintf("Are you sure you want to remove the tag '%s' from ALL photos?\nThis action cannot be undone.", tag)
	dialog.ShowConfirm("Confirm Global Tag Removal", confirmMessage, func(confirm bool) {
		if !confirm {
			return
		}
		c.app.safe(func() {
			n, err := c.app.Service.RemoveTagGlobally(tag)
			if err != nil {
				dialog.ShowError(fmt.Errorf("failed to globally remove tag '%s': %w", tag, err), c.win)
				return
			}
			if f := c.app.store.Filter(); f.Tag == tag {
				f.Tag = ""
				c.app.store.SetFilter(f)
			}
			c.app.store.Status().Infof("Removed tag '%s' from %d photos", tag, n)
			c.loadAndFilterTagData()
		})
	}, c.win)
}

// onTagSelected filters the grid by the tag the user clicked.
func (c *tagListController) onTagSelected(id widget.ListItemID) {
	if id < 0 || id >= len(c.filteredDisplayData) {
		c.onTagUnselected(id)
		return
	}
	c.selectedTag = c.filteredDisplayData[id].Name
	c.renameButton.Enable()
	c.removeButton.Enable()
	c.app.safe(func() {
		f := c.app.store.Filter()
		if f.Tag != c.selectedTag {
			f.Tag = c.selectedTag
			c.app.store.SetFilter(f)
		}
	})
}

func (c *tagListController) onTagUnselected(_ widget.ListItemID) {
	c.selectedTag = ""
	c.renameButton.Disable()
	c.removeButton.Disable()
}
