package main

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"frame-renderer/renderer"
)

// configWatcher re-reads the options file whenever it is written. Editors
// often replace the file, so the directory is watched rather than the file.
type configWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	log     *zap.Logger
	updates chan renderer.Options
	done    chan struct{}
}

func watchConfig(path string, log *zap.Logger) (*configWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	cw := &configWatcher{
		path:    filepath.Clean(path),
		watcher: w,
		log:     log.Named("config"),
		updates: make(chan renderer.Options, 1),
		done:    make(chan struct{}),
	}
	go cw.loop()
	return cw, nil
}

func (cw *configWatcher) loop() {
	for {
		select {
		case <-cw.done:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			opts, err := renderer.LoadOptions(cw.path)
			if err != nil {
				cw.log.Warn("ignoring config change", zap.Error(err))
				continue
			}
			// Keep only the newest options.
			select {
			case <-cw.updates:
			default:
			}
			cw.updates <- opts
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.log.Warn("watch error", zap.Error(err))
		}
	}
}

// Updates delivers freshly parsed options. Read it from the render thread.
func (cw *configWatcher) Updates() <-chan renderer.Options { return cw.updates }

func (cw *configWatcher) Close() {
	close(cw.done)
	cw.watcher.Close()
}
