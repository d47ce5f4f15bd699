package fswatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/rsyncer/pkg/errors"
)

var fs = afero.NewOsFs()

// Watch watches for changes to the files within `root`. It sends an event on
// the returned channel whenever a file changes. Events that occur before the
// previous event is received are combined into a single event.
// Directories whose name is in `excludes` aren't watched, mirroring how rsync
// applies `--exclude=<name>`.
func Watch(root string, excludes []string) (chan struct{}, error) {
	dirs, err := getDirsToWatch(root, excludes)
	if err != nil {
		return nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", dir))
		}
	}

	go func() {
		for err := range watcher.Errors {
			log.WithError(err).Warn("File watcher error")
		}
	}()

	// fsnotify doesn't watch directories recursively, so directories created
	// after we started watching must be added explicitly.
	addDir := func(path string) {
		subdirs, err := getDirsToWatch(path, excludes)
		if err != nil {
			log.WithError(err).WithField("path", path).Debug("Failed to watch new directory")
			return
		}
		for _, dir := range subdirs {
			if err := watcher.Add(dir); err != nil {
				log.WithError(err).WithField("path", dir).Warn("Failed to watch new directory")
			}
		}
	}

	return combineUpdates(watcher.Events, root, excludes, addDir), nil
}

func combineUpdates(updates <-chan fsnotify.Event, root string, excludes []string,
	addDir func(string)) chan struct{} {

	combined := make(chan struct{}, 1)
	go func() {
		for event := range updates {
			if event.Op == fsnotify.Chmod || isExcluded(root, event.Name, excludes) {
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				if fi, err := fs.Stat(event.Name); err == nil && fi.IsDir() {
					addDir(event.Name)
				}
			}

			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}

func getDirsToWatch(root string, excludes []string) (dirs []string, err error) {
	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat")
	}
	if !fi.IsDir() {
		return nil, errors.NewFriendlyError("%q is not a directory.", root)
	}

	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		if !fi.IsDir() {
			return nil
		}

		if path != root && isExcluded(root, path, excludes) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

// isExcluded returns whether any component of `path`, relative to `root`,
// is one of the excluded names.
func isExcluded(root, path string, excludes []string) bool {
	if len(excludes) == 0 {
		return false
	}

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}

	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		for _, exclude := range excludes {
			if part == exclude {
				return true
			}
		}
	}
	return false
}
