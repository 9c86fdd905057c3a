package ui

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"fygallery/internal/gallery"
	"fygallery/internal/scan"
)

// tagDiff returns the tags in next but not in prev, and those in prev but
// not in next, each in their original order.
func tagDiff(prev, next []string) (added, removed []string) {
	inPrev := make(map[string]bool, len(prev))
	for _, t := range prev {
		inPrev[t] = true
	}
	inNext := make(map[string]bool, len(next))
	for _, t := range next {
		inNext[t] = true
		if !inPrev[t] {
			added = append(added, t)
		}
	}
	for _, t := range prev {
		if !inNext[t] {
			removed = append(removed, t)
		}
	}
	return added, removed
}

// showEditDialog edits the title, description and tags of one item.
func (a *App) showEditDialog(id string) {
	it, ok := a.store.Get(id)
	if !ok {
		a.showError("Edit", fmt.Errorf("photo %s no longer exists", id))
		return
	}

	title := widget.NewEntry()
	title.SetText(it.Title)
	desc := widget.NewMultiLineEntry()
	desc.SetText(it.Desc)
	desc.SetMinRowsVisible(3)
	tags := widget.NewEntry()
	tags.SetText(strings.Join(it.Tags, ", "))
	tags.SetPlaceHolder("comma, separated, tags")

	items := []*widget.FormItem{
		widget.NewFormItem("Title", title),
		widget.NewFormItem("Description", desc),
		widget.NewFormItem("Tags", tags),
	}
	d := dialog.NewForm("Edit Photo", "Save", "Cancel", items, func(save bool) {
		if !save {
			return
		}
		a.safe(func() { a.applyEdit(id, title.Text, desc.Text, tags.Text) })
	}, a.UI.MainWin)
	d.Resize(fyne.NewSize(480, 0))
	d.Show()
}

// applyEdit saves the edit dialog. Tags are applied as a diff so tags added
// elsewhere meanwhile survive.
func (a *App) applyEdit(id, title, desc, tagText string) {
	it, err := a.Service.EditItem(id, &title, &desc)
	if err != nil {
		a.showError("Edit", err)
		return
	}
	added, removed := tagDiff(it.Tags, gallery.ParseTags(tagText))
	if len(added) > 0 {
		if _, err := a.Service.AddTagsToItem(id, added); err != nil {
			a.showError("Adding tags", err)
			return
		}
	}
	if len(removed) > 0 {
		if _, err := a.Service.RemoveTagsFromItem(id, removed); err != nil {
			a.showError("Removing tags", err)
			return
		}
	}
	a.store.Status().Infof("Saved %s", ternaryString(title != "", fmt.Sprintf("%q", title), "photo"))
}

// replaceImage swaps the image of an item for another file, keeping its
// metadata.
func (a *App) replaceImage(id string) {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError("Replace image", err)
			return
		}
		if r == nil {
			return
		}
		path := r.URI().Path()
		r.Close()
		a.goSafe(func() {
			if err := a.Service.ReplaceImage(a.ctx, id, path); err != nil {
				fyne.Do(func() { a.showError("Replace image", err) })
			}
		})
	}, a.UI.MainWin)
	d.SetFilter(fstorage.NewExtensionFileFilter(scan.Extensions))
	d.Show()
}

// tagSelected adds or removes tags on every selected item.
func (a *App) tagSelected() {
	ids := a.store.Selected()
	if len(ids) == 0 {
		dialog.ShowInformation("Tag Selected", "Select photos first.", a.UI.MainWin)
		return
	}
	entry := widget.NewEntry()
	entry.SetPlaceHolder("comma, separated, tags")
	remove := widget.NewCheck("Remove these tags instead", nil)

	items := []*widget.FormItem{
		widget.NewFormItem("Tags", entry),
		widget.NewFormItem("", remove),
	}
	dialog.ShowForm(fmt.Sprintf("Tag %d Selected Photos", len(ids)), "Apply", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		tags := gallery.ParseTags(entry.Text)
		if len(tags) == 0 {
			return
		}
		a.safe(func() { a.applyBulkTags(ids, tags, remove.Checked) })
	}, a.UI.MainWin)
}

func (a *App) applyBulkTags(ids, tags []string, remove bool) {
	op, verb := a.Service.AddTagsToItem, "Tagged"
	if remove {
		op, verb = a.Service.RemoveTagsFromItem, "Untagged"
	}
	done := 0
	var firstErr error
	for _, id := range ids {
		if _, err := op(id, tags); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		done++
	}
	a.store.Status().Infof("%s %d photos with %s", verb, done, strings.Join(tags, ", "))
	if firstErr != nil {
		a.showError("Tagging", firstErr)
	}
}
