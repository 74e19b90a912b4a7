package treestat

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounceInterval = 500 * time.Millisecond

// WatchAndReport monitors the root directory and reruns the full analysis
// once filesystem events settle. Every report is published to the registered
// targets and then handed to onReport.
func (a *Analyzer) WatchAndReport(ctx context.Context, onReport func(*Report) error) error {
	logger := a.loggerOrDefault()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	filter := newWatchFilter(a.walkOptions())
	watched := make(map[string]struct{})
	if err := a.addRecursiveWatch(watcher, a.root, watched, filter); err != nil {
		return err
	}

	logger.Info("Watch mode active", "root", a.root, "debounce", watchDebounceInterval.String())

	// Idle until the first relevant event; each further event restarts the window.
	debounce := time.NewTimer(watchDebounceInterval)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping watch mode", "reason", ctx.Err())
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if a.handleWatcherEvent(event, watcher, watched, filter) {
				debounce.Reset(watchDebounceInterval)
			}
		case err, ok := <-watcher.Errors:
			if !ok || err == nil {
				continue
			}
			logger.Error("Watcher error", "error", err)
		case <-debounce.C:
			report, runErr := a.Run(ctx)
			if report == nil {
				logger.Error("Analysis failed", "error", runErr)
				if errors.Is(runErr, context.Canceled) {
					return runErr
				}
				continue
			}
			if runErr != nil {
				logger.Warn("Report targets failed", "error", runErr)
			}
			if onReport != nil {
				if err := onReport(report); err != nil {
					return err
				}
			}
		}
	}
}

// watchFilter decides which paths can influence a report.
type watchFilter struct {
	excludes excludeSet
	skip     map[string]struct{}
}

func newWatchFilter(opts WalkOptions) watchFilter {
	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = struct{}{}
	}
	return watchFilter{excludes: newExcludeSet(opts.ExcludeDirs), skip: skip}
}

func (f watchFilter) relevant(rel string) bool {
	if rel == "" || rel == "." {
		return true
	}
	if _, ok := f.skip[rel]; ok {
		return false
	}
	return !f.excludes.containsPath(rel)
}

// handleWatcherEvent updates the watch set and reports whether the event
// should trigger a new analysis.
func (a *Analyzer) handleWatcherEvent(event fsnotify.Event, watcher *fsnotify.Watcher, watched map[string]struct{}, filter watchFilter) bool {
	logger := a.loggerOrDefault()

	path := filepath.Clean(event.Name)
	rel, err := relativeTo(a.root, path)
	if err != nil || !filter.relevant(rel) {
		return false
	}

	if event.Op&fsnotify.Create != 0 {
		info, statErr := a.fs.Stat(path)
		if statErr == nil && info.IsDir() {
			if err := a.addRecursiveWatch(watcher, path, watched, filter); err != nil {
				logger.Error("Failed to watch new directory", "path", rel, "error", err)
			}
		}
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if _, ok := watched[path]; ok {
			if err := watcher.Remove(path); err != nil {
				logger.Debug("Failed to stop watching directory", "path", rel, "error", err)
			}
			delete(watched, path)
			logger.Debug("Stopped watching directory", "path", rel)
		}
	}

	return triggersRerun(event.Op)
}

func (a *Analyzer) addRecursiveWatch(watcher *fsnotify.Watcher, start string, watched map[string]struct{}, filter watchFilter) error {
	logger := a.loggerOrDefault()

	return a.fs.WalkDir(start, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == start {
				return err
			}
			logger.Warn("Skipping unreadable directory", "path", path, "error", err)
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		clean := filepath.Clean(path)
		rel, relErr := relativeTo(a.root, clean)
		if relErr != nil {
			return relErr
		}
		if !filter.relevant(rel) {
			return fs.SkipDir
		}
		if _, ok := watched[clean]; ok {
			return nil
		}
		if err := watcher.Add(clean); err != nil {
			return fmt.Errorf("watch directory %s: %w", clean, err)
		}
		watched[clean] = struct{}{}
		logger.Debug("Watching directory", "path", rel)
		return nil
	})
}

func triggersRerun(op fsnotify.Op) bool {
	return op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
