package content

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Holder serves the current content and swaps it on reload.
type Holder struct {
	cur atomic.Pointer[Content]
}

// NewHolder wraps c.
func NewHolder(c *Content) *Holder {
	h := &Holder{}
	h.cur.Store(c)
	return h
}

// Get returns the current content.
func (h *Holder) Get() *Content {
	return h.cur.Load()
}

// Set replaces the content.
func (h *Holder) Set(c *Content) {
	h.cur.Store(c)
}

const reloadDebounce = 250 * time.Millisecond

// Watch reloads path into h whenever it changes, until ctx ends. The
// directory is watched rather than the file because editors often replace
// files by rename. A file that fails to parse is logged and the previous
// content stays live.
func Watch(ctx context.Context, h *Holder, path string, logger *zap.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			pending = time.After(reloadDebounce)

		case <-pending:
			pending = nil
			c, err := Load(abs)
			if err != nil {
				logger.Warn("content reload failed, keeping previous version",
					zap.String("path", abs), zap.Error(err))
				continue
			}
			h.Set(c)
			logger.Info("content reloaded", zap.String("path", abs))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("content watcher error", zap.Error(err))
		}
	}
}
