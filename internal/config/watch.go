// ABOUTME: Hot reload of the router file using fsnotify
// ABOUTME: A failed reload keeps the last good configuration
package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch reloads the router whenever its file is written or recreated.
// The parent directory is watched so editors that replace the file are handled.
// The returned channel is closed once the watcher has stopped after ctx is done.
func (r *Router) Watch(ctx context.Context) (<-chan struct{}, error) {
	if r.path == "" {
		return nil, errors.New("router has no backing file")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(r.path), err)
	}

	done := make(chan struct{})
	target := filepath.Clean(r.path)

	go func() {
		defer close(done)
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := r.Reload(); err != nil {
					log.Warn().Err(err).Str("path", r.path).Msg("router: reload failed, keeping previous config")
					continue
				}
				log.Info().Str("path", r.path).Strs("aliases", r.Names()).Msg("router: reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("router: watcher error")
			}
		}
	}()

	return done, nil
}
