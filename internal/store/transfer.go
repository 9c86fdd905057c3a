package store

import (
	"context"
	"errors"
	"slices"
	"time"

	"fygallery/internal/gallery"
	"fygallery/internal/transfer"
)

// Import merges a parsed document. Replace clears the collection, the
// selection and the backend first and takes the document's title and session
// where it has them; Append keeps everything. Imported items are numbered
// after the current maximum order. The write happens immediately; its error
// is returned but the in-memory import stands.
func (s *Store) Import(ctx context.Context, doc *transfer.Imported, mode transfer.Mode) ([]gallery.Item, error) {
	if doc == nil {
		return nil, &transfer.ParseError{Err: transfer.ErrNoItems}
	}
	var clearErr error
	if mode == transfer.Replace {
		if clearErr = s.backend.Clear(ctx); clearErr != nil {
			s.logger.Error("failed to clear backend before import", "error", clearErr)
		}
	}

	s.mu.Lock()
	if mode == transfer.Replace {
		s.items = nil
		s.selected = make(map[string]struct{})
		if doc.Meta.Session != "" {
			s.meta.Session = doc.Meta.Session
		}
		if doc.Meta.Title != "" {
			s.meta.Title = doc.Meta.Title
		}
		s.pending.all()
	}
	added := s.appendLocked(doc.Items)
	s.mu.Unlock()

	s.logger.Info("gallery imported", "mode", mode.String(), "items", len(added))
	s.status.Infof("Imported %d items (%s)", len(added), mode)
	kind := ChangeItems
	if mode == transfer.Replace {
		kind = ChangeReset
	}
	s.notify(Change{Kind: kind, IDs: ids(added)})

	return added, errors.Join(clearErr, s.Flush(ctx))
}

// ImportData parses and imports a document. A document that cannot be parsed
// leaves the store untouched.
func (s *Store) ImportData(ctx context.Context, data []byte, mode transfer.Mode) ([]gallery.Item, error) {
	doc, err := transfer.Parse(data)
	if err != nil {
		s.logger.Warn("import rejected", "error", err)
		s.status.Errorf("Import failed: %v", err)
		return nil, err
	}
	return s.Import(ctx, doc, mode)
}

// Export returns the metadata and the items to export in display order:
// every item, or only the selected ones.
func (s *Store) Export(selectedOnly bool) (gallery.Meta, []gallery.Item, error) {
	s.mu.Lock()
	meta := s.meta
	items := gallery.CloneItems(s.items)
	if selectedOnly {
		items = slices.DeleteFunc(items, func(it gallery.Item) bool {
			_, ok := s.selected[it.ID]
			return !ok
		})
	}
	s.mu.Unlock()

	if len(items) == 0 {
		return meta, nil, ErrNothingToExport
	}
	gallery.SortByOrder(items)
	return meta, items, nil
}

// ExportParts builds the export files, split so that each stays under limit
// bytes where possible.
func (s *Store) ExportParts(selectedOnly bool, at time.Time, limit int) ([]transfer.Part, error) {
	meta, items, err := s.Export(selectedOnly)
	if err != nil {
		s.status.Warnf("Nothing to export")
		return nil, err
	}
	if limit <= 0 {
		limit = int(transfer.DefaultLimit)
	}
	parts, err := transfer.Build(meta, items, at, limit)
	if err != nil {
		s.status.Errorf("Export failed: %v", err)
		return nil, err
	}
	return parts, nil
}
