package project

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jaspreet-dot-casa/aproj/pkg/script"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// WatchFunc receives the result of each evaluation made by Watch.
type WatchFunc func(mod *script.Module, err error)

// Watch imports the script at rel and calls fn with the result, then
// re-imports it with reload each time the file is written or recreated. It
// blocks until ctx is done. Evaluation errors go to fn and do not stop the
// watch; a failed reload leaves the previously cached module in place.
func (p *Project) Watch(ctx context.Context, rel string, fn WatchFunc) error {
	path, err := p.scriptPath(rel)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory; editors often replace the file rather than write it.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	fn(p.scripts().ImportPath(path, false))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			p.logger.Debug("script changed", zap.String("file", path), zap.Stringer("op", event.Op))
			fn(p.scripts().ImportPath(path, true))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("watch error", zap.String("file", path), zap.Error(err))
		}
	}
}
