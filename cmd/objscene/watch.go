package main

import (
	"os"
	"os/signal"
	"path/filepath"

	"github.com/binzume/objscene/internal/config"
	"github.com/binzume/objscene/internal/logger"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchSet holds the files that trigger a conversion. Directories are
// watched so files replaced by editors are still seen.
type watchSet struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	dirs    map[string]bool
}

func (w *watchSet) update(paths []string) {
	w.files = map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if w.dirs[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			logger.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.dirs[dir] = true
	}
}

func (w *watchSet) match(e fsnotify.Event) bool {
	if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return false
	}
	abs, err := filepath.Abs(e.Name)
	return err == nil && w.files[abs]
}

func watchFiles(cfg *config.Config, input, output string, libs []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	w := &watchSet{watcher: watcher, dirs: map[string]bool{}}
	w.update(append([]string{input}, libs...))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	logger.Info("watching", zap.String("input", input), zap.Strings("materials", libs))
	for {
		select {
		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.match(e) {
				continue
			}
			logger.Debug("changed", zap.String("file", e.Name), zap.Stringer("op", e.Op))
			libs, err := run(cfg, input, output)
			if err != nil {
				logger.Error("conversion failed", zap.Error(err))
				continue
			}
			w.update(append([]string{input}, libs...))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		case <-interrupt:
			return nil
		}
	}
}
