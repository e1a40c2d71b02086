package config

import (
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads configuration when its YAML file changes and hands the new
// Config to a callback. Route tables are immutable by design, so a reload
// never touches routing; callers typically use it to adjust the log level or
// rate limits at runtime.
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching path. onChange runs on each successful reload; load
// failures are logged and the previous configuration stays in effect.
func Watch(path string, logger *zap.Logger, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{watcher: fw, done: make(chan struct{})}
	go w.loop(path, logger, onChange)
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop(path string, logger *zap.Logger, onChange func(*Config)) {
	// Editors often emit several events per save; debounce them.
	const debounce = 100 * time.Millisecond
	var timer *time.Timer

	reload := func() {
		cfg := &Config{}
		if err := NewSimpleLoader().WithYAMLFile(path).Load(cfg); err != nil {
			logger.Warn("config reload failed, keeping previous configuration",
				zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("configuration reloaded", zap.String("path", path))
		onChange(cfg)
	}

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("config watcher error", zap.Error(err))
		}
	}
}
