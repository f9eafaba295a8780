package catalog

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Holder keeps the catalog being served and swaps it on reload.
// A failed reload keeps the previous catalog.
type Holder struct {
	source  Source
	current atomic.Pointer[Catalog]
	logger  *zap.Logger
}

func NewHolder(ctx context.Context, source Source, logger *zap.Logger) (*Holder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Holder{source: source, logger: logger}
	if err := h.Reload(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Holder) Current() *Catalog {
	return h.current.Load()
}

func (h *Holder) Reload(ctx context.Context) error {
	c, err := h.source.Load(ctx)
	if err != nil {
		return err
	}
	h.current.Store(c)
	h.logger.Info("catalog loaded",
		zap.String("source", h.source.Name()),
		zap.Int("categories", len(c.Categories)),
		zap.Int("products", c.Count()),
	)
	return nil
}

// Watch reloads whenever path changes, until ctx is done. The directory is
// watched so editors that replace the file on save are picked up too.
func (h *Holder) Watch(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer w.Close()
		target := filepath.Clean(path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := h.Reload(ctx); err != nil {
					h.logger.Warn("catalog reload failed, keeping previous", zap.Error(err))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				h.logger.Warn("catalog watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
