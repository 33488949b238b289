package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads cfg in place whenever path changes on disk, until stop is
// closed. Load failures are logged and the previous config is kept live.
func Watch(path string, cfg *Config, stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloaded, err := Load(path)
				if err != nil {
					slog.Error("config: reload failed, keeping previous config", "error", err)
					continue
				}
				cfg.ReplaceFrom(reloaded)
				cfg.ApplyEnvOverrides()
				slog.Info("config: reloaded", "path", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("config: watcher error", "error", err)
			case <-stop:
				return
			}
		}
	}()

	return nil
}
