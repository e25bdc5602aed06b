package preset

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounceDelay coalesces rapid editor write events into one reload.
const WatchDebounceDelay = 300 * time.Millisecond

// Watch reloads the store whenever the presets file changes and invokes
// onReload after each successful reload. It blocks until the context is
// cancelled. Reload failures are reported through onError and do not stop
// the watch; the previously loaded presets stay in effect.
func (s *Store) Watch(ctx context.Context, onReload func(), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files on save,
	// which drops a direct file watch.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	target := filepath.Base(s.path)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(WatchDebounceDelay, func() {
				if err := s.Load(); err != nil {
					if onError != nil {
						onError(err)
					}
					return
				}
				if onReload != nil {
					onReload()
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
