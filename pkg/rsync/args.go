package rsync

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sidkik/rsyncer/pkg/errors"
)

// Options describes a single rsync invocation.
type Options struct {
	// LocalPath is the root of the local project.
	LocalPath string

	// Remote is the destination, in the form `[user@]host:path`.
	Remote string

	// Excludes are directory names that are never transferred.
	Excludes []string

	// DryRun makes rsync report what it would transfer without transferring
	// anything.
	DryRun bool

	// File restricts the sync to a single file. It's either relative to
	// LocalPath, or an absolute path within LocalPath. If empty, the whole
	// project is synced.
	File string
}

// BuildArgs returns the arguments to pass to rsync for `opts`.
//
// A project sync mirrors the contents of LocalPath into the remote path:
//
//	rsync -av [--dry-run] [--exclude=<dir>]... <LocalPath>/ <remote>
//
// A single file sync uses rsync's implied relative paths so that the file
// keeps its position relative to the project root on the remote:
//
//	rsync -avR [--dry-run] [--exclude=<dir>]... <LocalPath>/./<file> <remote>
func BuildArgs(opts Options) ([]string, error) {
	if opts.LocalPath == "" {
		return nil, errors.MissingFieldError{Field: "local path"}
	}
	if opts.Remote == "" {
		return nil, errors.MissingFieldError{Field: "remote"}
	}

	root := strings.TrimRight(opts.LocalPath, "/")
	flags := "-av"
	source := root + "/"
	if opts.File != "" {
		rel, err := relativeFile(root, opts.File)
		if err != nil {
			return nil, err
		}

		if rel != "." {
			flags = "-avR"
			source = root + "/./" + filepath.ToSlash(rel)
		}
	}

	args := []string{flags}
	if opts.DryRun {
		args = append(args, "--dry-run")
	}
	for _, exclude := range opts.Excludes {
		args = append(args, "--exclude="+exclude)
	}
	return append(args, source, opts.Remote), nil
}

func relativeFile(root, file string) (string, error) {
	if !filepath.IsAbs(file) {
		file = filepath.Join(root, file)
	}

	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", errors.WithContext(err, "relative path")
	}

	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.NewFriendlyError(
			"Cannot sync %q since it's not inside the project at %q.", file, root)
	}
	return rel, nil
}

// Command returns the full command line for `args`, for logging.
func Command(binary string, args []string) string {
	return fmt.Sprintf("%s %s", binary, strings.Join(args, " "))
}
