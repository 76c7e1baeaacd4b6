package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

const debounce = 100 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk. A file that fails to load is logged and the
// previous config stays in effect.
type Watcher struct {
	fs       afero.Fs
	path     string
	onChange func(*Config)

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	timer   *time.Timer
}

// Watch starts watching path until ctx is done. The parent directory is watched so that editors which
// replace the file on save are seen too.
func Watch(ctx context.Context, fs afero.Fs, path string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Errorf("creating config watcher: %w", err)
	}
	path = filepath.Clean(path)
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, errors.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{fs: fs, path: path, onChange: onChange, watcher: fw}
	go w.loop(ctx)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context) {
	logger := zerolog.Ctx(ctx)
	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		if err := w.watcher.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing config watcher")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.schedule(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("config watcher failure")
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounce, func() {
		w.reload(ctx)
	})
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	logger := zerolog.Ctx(ctx)
	cfg, err := Load(w.fs, w.path)
	if err != nil {
		logger.Warn().Err(err).Str("path", w.path).Msg("keeping previous config")
		return
	}
	logger.Info().Str("path", w.path).Msg("config reloaded")
	w.onChange(cfg)
}
