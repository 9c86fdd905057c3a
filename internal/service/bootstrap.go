package service

import (
	"context"
	"fmt"
	"log/slog"

	"fygallery/internal/config"
	"fygallery/internal/intake"
	"fygallery/internal/status"
	"fygallery/internal/storage"
	"fygallery/internal/store"
)

// Open wires a Service from configuration: it opens the storage backend,
// loads the gallery into a store and builds the intake pipeline. Close the
// returned service when done.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := cfg.StorageOptions()
	opts.Logger = logger
	backend, err := storage.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage in %s: %w", cfg.DataDir, err)
	}

	st := store.New(store.Options{
		Backend:  backend,
		Debounce: cfg.SaveDebounce,
		Status:   status.NewLog(0),
		Logger:   logger,
	})
	st.Load(ctx)

	pipeline := intake.New(
		intake.Profile{MaxEdge: cfg.Intake.FullMax, Quality: cfg.Intake.FullQuality},
		intake.Profile{MaxEdge: cfg.Intake.ThumbMax, Quality: cfg.Intake.ThumbQuality},
		logger,
	)
	return NewService(st, pipeline, Options{
		Workers:     cfg.Intake.Workers,
		ExportLimit: int(cfg.ExportLimit),
		Logger:      logger,
	}), nil
}

// Close flushes pending changes and closes the backend.
func (s *Service) Close(ctx context.Context) error {
	return s.Store.Close(ctx)
}
