package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fygallery/internal/gallery"
	"fygallery/internal/storage"
)

// pending tracks what changed since the last write. Backends that store one
// record per item get only the touched records; the others, and any write
// after a failure, get the whole snapshot.
type pending struct {
	full bool
	meta bool
	puts map[string]struct{}
	dels map[string]struct{}
}

func (p *pending) put(id string) {
	if p.puts == nil {
		p.puts = make(map[string]struct{})
	}
	delete(p.dels, id)
	p.puts[id] = struct{}{}
}

func (p *pending) remove(id string) {
	if p.dels == nil {
		p.dels = make(map[string]struct{})
	}
	delete(p.puts, id)
	p.dels[id] = struct{}{}
}

func (p *pending) all() {
	*p = pending{full: true, meta: true}
}

func (p pending) empty() bool {
	return !p.full && !p.meta && len(p.puts) == 0 && len(p.dels) == 0
}

// schedule arranges a write after the debounce window, restarting the window
// if one is already open.
func (s *Store) schedule() {
	if s.debounce <= 0 {
		_ = s.Flush(context.Background())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		_ = s.Flush(context.Background())
	})
}

// Dirty reports whether changes are waiting to be written.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.pending.empty()
}

// Flush writes pending changes now. A failed write is logged and reported to
// the status log; the in-memory gallery is kept as is and the next write
// sends the whole snapshot.
func (s *Store) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	p := s.pending
	s.pending = pending{}
	if p.empty() {
		s.mu.Unlock()
		return nil
	}
	snap := gallery.Snapshot{Meta: s.meta, Items: gallery.CloneItems(s.items)}
	s.mu.Unlock()

	err := s.write(ctx, p, snap)
	if err != nil {
		s.mu.Lock()
		s.pending.full = true
		s.pending.meta = true
		s.mu.Unlock()
		s.logger.Error("failed to save gallery", "backend", s.backend.Name(), "items", len(snap.Items), "error", err)
		s.status.Errorf("Save failed: %v", err)
		return fmt.Errorf("failed to save gallery to %s: %w", s.backend.Name(), err)
	}
	s.logger.Debug("gallery saved", "backend", s.backend.Name(), "items", len(snap.Items), "full", p.full || s.writer == nil)
	s.status.Infof("Saved")
	return nil
}

func (s *Store) write(ctx context.Context, p pending, snap gallery.Snapshot) error {
	if s.writer == nil || p.full {
		return s.backend.Save(ctx, snap)
	}
	var errs []error
	if p.meta {
		if err := s.writer.SaveMeta(ctx, snap.Meta); err != nil {
			errs = append(errs, err)
		}
	}
	for _, it := range snap.Items {
		if _, ok := p.puts[it.ID]; !ok {
			continue
		}
		if err := s.writer.PutItem(ctx, it); err != nil {
			errs = append(errs, err)
		}
	}
	for id := range p.dels {
		if err := s.writer.DeleteItem(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if len(p.puts) > 0 || len(p.dels) > 0 {
		if err := s.writer.SavePositions(ctx, storage.ItemIDs(snap.Items)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close writes pending changes and closes the backend.
func (s *Store) Close(ctx context.Context) error {
	ferr := s.Flush(ctx)
	return errors.Join(ferr, s.backend.Close())
}
