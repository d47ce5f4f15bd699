package watch

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/rsyncer/cmd/util"
	"github.com/sidkik/rsyncer/pkg/config"
	"github.com/sidkik/rsyncer/pkg/coordinator"
	"github.com/sidkik/rsyncer/pkg/errors"
	"github.com/sidkik/rsyncer/pkg/fswatch"
	"github.com/sidkik/rsyncer/pkg/rsync"
)

// The interval to poll for changes when the filesystem can't be watched.
const pollSeconds = 15

// Mocked for unit testing.
var (
	loadProject = util.LoadProject
	checkRsync  = util.WarnIfRsyncUnsupported
	watchFiles  = fswatch.Watch
	newLauncher = func(binary string) rsync.Launcher { return rsync.NewExecLauncher(binary) }
)

type options struct {
	dir           string
	noInitialSync bool
	showOutput    bool
}

// New creates a new `watch` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync the project to its remotes whenever a file changes",
		Long: `Watch the project for changes, and sync it to each of its remotes
whenever a file changes.

Changes made while a sync is running are picked up by a single follow-up sync
once the running one finishes. Press Ctrl-C to stop. Syncs that are already
running are allowed to finish.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(opts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&opts.dir, "dir", ".",
		"A directory within the project to watch.")
	cmd.Flags().BoolVar(&opts.noInitialSync, "no-initial-sync", false,
		"Don't sync when starting. Only sync after a file changes.")
	cmd.Flags().BoolVar(&opts.showOutput, "show-output", false,
		"Show the output of rsync.")
	return cmd
}

func run(opts options) error {
	project, user, err := loadProject(opts.dir)
	if err != nil {
		return err
	}

	req := util.NewRequest(project, user)
	if len(req.Remotes) == 0 {
		return util.NoRemotesError(project)
	}
	checkRsync(user.RsyncPath)

	logger := logrus.New()
	logger.SetLevel(logrus.GetLevel())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	fileWatcher, err := startFileWatcher(logger, project, req.Excludes)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := coordinator.New(coordinator.Config{
		Logger:     logger,
		Launcher:   newLauncher(user.RsyncPath),
		ShowOutput: opts.showOutput,
	})
	coordinatorDone := make(chan struct{})
	go func() {
		defer util.HandlePanic()
		c.Run(ctx)
		close(coordinatorDone)
	}()

	tallyDone := make(chan tally)
	go func() {
		tallyDone <- collectResults(c.Results())
	}()

	logger.WithField("remotes", req.Remotes).Infof("Watching %s for changes.", req.LocalPath)
	w := watcher{
		requester:   c,
		req:         req,
		fileWatcher: fileWatcher,
		clock:       clockwork.NewRealClock(),
		log:         logger,
	}
	w.run(ctx, !opts.noInitialSync)

	logger.Info("Stopping. Waiting for running syncs to finish.")
	<-coordinatorDone
	total := <-tallyDone
	logger.Infof("Stopped after %d syncs. %d failed.", total.synced, total.failed)
	return nil
}

// startFileWatcher starts watching the project for changes. If the kernel
// refuses to watch any more files, it returns a nil channel so that the
// project is polled instead.
func startFileWatcher(log logrus.FieldLogger, project config.Project,
	excludes []string) (chan struct{}, error) {

	fileWatcher, err := watchFiles(project.LocalPath, excludes)
	if err == nil {
		return fileWatcher, nil
	}

	rootCause := errors.RootCause(err)
	if dneErr, ok := rootCause.(errors.FileNotFound); ok {
		return nil, errors.NewFriendlyError(
			"Failed to watch files for syncing.\n"+
				"%q doesn't exist.\n\n"+
				"Is the local path in %q correct?",
			dneErr.Path, project.GetPath())
	}

	if msg := rootCause.Error(); strings.Contains(msg, "too many open files") ||
		strings.Contains(msg, "no space left on device") {
		log.Warnf("Too many files to automatically watch for changes. "+
			"The project will be polled for changes every %d seconds instead.",
			pollSeconds)
		log.Warn("Raise fs.inotify.max_user_watches or exclude large " +
			"directories with `rsyncer config --exclude` to watch for changes.")
		return nil, nil
	}
	return nil, errors.WithContext(err, "watch files")
}

type requester interface {
	RequestSync(coordinator.Request) error
}

type watcher struct {
	requester requester
	req       coordinator.Request

	// fileWatcher is nil if the project is polled instead.
	fileWatcher chan struct{}

	clock clockwork.Clock
	log   logrus.FieldLogger
}

// run requests a sync every time the project changes, until `ctx` is
// cancelled.
func (w watcher) run(ctx context.Context, initialSync bool) {
	if initialSync && !w.requestSync() {
		return
	}

	for {
		var poll <-chan time.Time
		if w.fileWatcher == nil {
			poll = w.clock.After(pollSeconds * time.Second)
		}

		select {
		case <-ctx.Done():
			return
		case <-w.fileWatcher:
		case <-poll:
		}

		if !w.requestSync() {
			return
		}
	}
}

// requestSync returns false if the coordinator has stopped.
func (w watcher) requestSync() bool {
	err := w.requester.RequestSync(w.req)
	switch {
	case err == coordinator.ErrStopped:
		return false
	case err != nil:
		w.log.WithError(err).Error("Failed to request sync")
	}
	return true
}

type tally struct {
	synced, failed int
}

func collectResults(results <-chan coordinator.Result) (t tally) {
	for result := range results {
		t.synced++
		if result.Err != nil {
			t.failed++
		}
	}
	return t
}
