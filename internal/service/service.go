// Package service turns user commands from the GUI and the CLI into store and
// intake calls.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fygallery/internal/gallery"
	"fygallery/internal/intake"
	"fygallery/internal/scan"
	"fygallery/internal/store"
	"fygallery/internal/transfer"
)

// Processor abstracts the image intake for easier testing.
type Processor interface {
	Process(ctx context.Context, name string, data []byte) (intake.Result, error)
}

// Options configures a Service.
type Options struct {
	// Workers bounds how many images are decoded at once.
	Workers     int
	ExportLimit int
	// Now defaults to time.Now; it stamps export file names.
	Now    func() time.Time
	Logger *slog.Logger
}

// Service is the main entry point for business logic.
type Service struct {
	Store       *store.Store
	Intake      Processor
	workers     int
	exportLimit int
	now         func() time.Time
	logger      *slog.Logger
}

// NewService constructs a new Service.
func NewService(st *store.Store, proc Processor, opts Options) *Service {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ExportLimit <= 0 {
		opts.ExportLimit = int(transfer.DefaultLimit)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		Store:       st,
		Intake:      proc,
		workers:     opts.Workers,
		exportLimit: opts.ExportLimit,
		now:         opts.Now,
		logger:      opts.Logger,
	}
}

// upload is one file waiting for its renditions.
type upload struct {
	id   string
	name string
	data []byte
}

// AddFiles adds every image found under paths. Each file becomes an item
// straight away, titled after the file, so the grid shows it in upload
// order; renditions are filled in as the bounded worker pool finishes them.
// A file that cannot be read is dropped and reported; the others continue.
func (s *Service) AddFiles(ctx context.Context, paths ...string) ([]gallery.Item, error) {
	files, err := scan.Run(ctx, paths...)
	if err != nil {
		return nil, err
	}
	uploads := make([]upload, 0, len(files))
	var readErrs []error
	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			s.logger.Warn("skipping unreadable file", "file", f.Path, "error", err)
			readErrs = append(readErrs, fmt.Errorf("failed to read %s: %w", f.Path, err))
			continue
		}
		uploads = append(uploads, upload{name: f.Path, data: data})
	}
	added, err := s.addUploads(ctx, uploads)
	return added, errors.Join(append(readErrs, err)...)
}

// AddData adds one image whose bytes the caller already holds, such as a
// file picked in the GUI.
func (s *Service) AddData(ctx context.Context, name string, data []byte) (gallery.Item, error) {
	added, err := s.addUploads(ctx, []upload{{name: name, data: data}})
	if len(added) == 0 {
		return gallery.Item{}, err
	}
	return added[0], err
}

func (s *Service) addUploads(ctx context.Context, uploads []upload) ([]gallery.Item, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	placeholders := make([]gallery.Item, len(uploads))
	for i, u := range uploads {
		placeholders[i] = gallery.Item{Title: intake.TitleFromName(u.name), Tags: []string{}}
	}
	for i, it := range s.Store.Add(placeholders...) {
		uploads[i].id = it.ID
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	degraded := 0
	results := make([]bool, len(uploads))
	filled := make([]bool, len(uploads))
	for i, u := range uploads {
		g.Go(func() error {
			res, err := s.Intake.Process(gctx, u.name, u.data)
			if err != nil {
				return err
			}
			results[i] = res.Degraded
			if len(res.EXIF) > 0 {
				s.logger.Debug("photo metadata", "file", u.name, "exif", res.EXIF)
			}
			// The item may have been removed while it was being processed.
			if err := s.Store.SetImages(u.id, res.Full.DataURI(), res.Thumb.DataURI()); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					s.logger.Info("discarding images for removed item", "id", u.id, "file", u.name)
					return nil
				}
				return err
			}
			filled[i] = true
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		// A failed batch leaves no image-less items behind.
		var empty []string
		for i, u := range uploads {
			if !filled[i] {
				empty = append(empty, u.id)
			}
		}
		if n := s.Store.Remove(empty...); n > 0 {
			s.logger.Warn("removed photos that were never processed", "count", n, "error", err)
		}
	}

	added := make([]gallery.Item, 0, len(uploads))
	for i, u := range uploads {
		if results[i] {
			degraded++
		}
		if it, ok := s.Store.Get(u.id); ok {
			added = append(added, it)
		}
	}
	if degraded > 0 {
		s.Store.Status().Warnf("Added %d photos (%d stored as original files)", len(added), degraded)
	} else {
		s.Store.Status().Infof("Added %d photos", len(added))
	}
	return added, err
}

// ReplaceImage runs a new file through intake and swaps it into an existing
// item, keeping its title, tags and position.
func (s *Service) ReplaceImage(ctx context.Context, id, path string) error {
	if _, ok := s.Store.Get(id); !ok {
		return fmt.Errorf("replace image of %s: %w", id, store.ErrNotFound)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	res, err := s.Intake.Process(ctx, path, data)
	if err != nil {
		return err
	}
	if err := s.Store.SetImages(id, res.Full.DataURI(), res.Thumb.DataURI()); err != nil {
		return err
	}
	s.Store.Status().Infof("Replaced image of %q", filepath.Base(path))
	return nil
}

// EditItem changes the title and/or description. Nil fields are left alone.
func (s *Service) EditItem(id string, title, desc *string) (gallery.Item, error) {
	return s.Store.Update(id, func(it *gallery.Item) {
		if title != nil {
			it.Title = *title
		}
		if desc != nil {
			it.Desc = *desc
		}
	})
}

// AddTagsToItem adds one or more tags to an item.
func (s *Service) AddTagsToItem(id string, tags []string) (gallery.Item, error) {
	if id == "" || len(tags) == 0 {
		return gallery.Item{}, errors.New("item id and tags required")
	}
	return s.Store.Update(id, func(it *gallery.Item) { it.AddTags(tags...) })
}

// RemoveTagsFromItem removes one or more tags from an item.
func (s *Service) RemoveTagsFromItem(id string, tags []string) (gallery.Item, error) {
	if id == "" || len(tags) == 0 {
		return gallery.Item{}, errors.New("item id and tags required")
	}
	return s.Store.Update(id, func(it *gallery.Item) { it.RemoveTags(tags...) })
}

// ReplaceTag replaces oldTag with newTag on every item carrying it and
// returns how many items changed.
func (s *Service) ReplaceTag(oldTag, newTag string) (int, error) {
	oldTag, newTag = strings.TrimSpace(oldTag), strings.TrimSpace(newTag)
	if oldTag == "" || newTag == "" || oldTag == newTag {
		return 0, errors.New("invalid tags")
	}
	changed := 0
	var firstErr error
	for _, it := range s.Store.Items() {
		if !it.HasTag(oldTag) {
			continue
		}
		_, err := s.Store.Update(it.ID, func(it *gallery.Item) {
			it.RemoveTags(oldTag)
			it.AddTags(newTag)
		})
		if err != nil {
			s.logger.Warn("ReplaceTag: item vanished", "id", it.ID, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("replacing tag '%s' on '%s': %w", oldTag, it.ID, err)
			}
			continue
		}
		changed++
	}
	return changed, firstErr
}

// RemoveTagGlobally removes a tag from all items and returns how many
// changed.
func (s *Service) RemoveTagGlobally(tag string) (int, error) {
	if tag == "" {
		return 0, errors.New("tag cannot be empty")
	}
	removed := 0
	for _, it := range s.Store.Items() {
		if !it.HasTag(tag) {
			continue
		}
		if _, err := s.Store.Update(it.ID, func(it *gallery.Item) { it.RemoveTags(tag) }); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Search returns the items matching f in display order, without touching
// the store's active filter.
func (s *Service) Search(f gallery.Filter) []gallery.Item {
	return gallery.Apply(s.Store.Items(), f)
}

// Export writes the gallery, or only the selected items, into dir as one or
// more JSON files and returns their paths.
func (s *Service) Export(dir string, selectedOnly bool) ([]string, error) {
	parts, err := s.Store.ExportParts(selectedOnly, s.now(), s.exportLimit)
	if err != nil {
		return nil, err
	}
	paths, err := transfer.WriteFiles(dir, parts)
	if err != nil {
		s.logger.Error("export failed", "dir", dir, "error", err)
		s.Store.Status().Errorf("Export failed: %v", err)
		return paths, err
	}
	s.logger.Info("gallery exported", "dir", dir, "files", len(paths), "selected_only", selectedOnly)
	if len(paths) > 1 {
		s.Store.Status().Infof("Exported in %d parts", len(paths))
	} else {
		s.Store.Status().Infof("Exported %s", filepath.Base(paths[0]))
	}
	return paths, nil
}

// ImportFiles imports documents in order. With Replace, the first document
// replaces the gallery and the rest are appended, so the parts of a split
// export can be imported together. It stops at the first unreadable or
// invalid document.
func (s *Service) ImportFiles(ctx context.Context, mode transfer.Mode, paths ...string) (int, error) {
	total := 0
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			s.Store.Status().Errorf("Import failed: %v", err)
			return total, fmt.Errorf("failed to read %s: %w", p, err)
		}
		m := mode
		if i > 0 {
			m = transfer.Append
		}
		added, err := s.Store.ImportData(ctx, data, m)
		total += len(added)
		if err != nil {
			var perr *transfer.ParseError
			if errors.As(err, &perr) {
				return total, fmt.Errorf("%s: %w", p, err)
			}
			// Persistence errors are already reported; the import stands.
			s.logger.Warn("imported but not saved", "file", p, "error", err)
		}
	}
	return total, nil
}
