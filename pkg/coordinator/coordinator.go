// Package coordinator serializes rsync runs. At most one rsync runs at a time
// for each (project, remote) pair. A sync requested while one is already
// running for the same pair is remembered as a single pending sync, which is
// started as soon as the running one exits.
//
// All session state is owned by the goroutine executing Run. Launched
// processes are waited on in their own goroutines, which report the exit back
// to Run over a channel.
package coordinator

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/sidkik/rsyncer/pkg/errors"
	"github.com/sidkik/rsyncer/pkg/rsync"
)

// ErrStopped is returned by RequestSync after the coordinator has shut down.
var ErrStopped = errors.New("sync coordinator stopped")

// Request asks for a project to be synced to a set of remotes.
type Request struct {
	// Project identifies the project that sessions are tracked under. It
	// defaults to LocalPath.
	Project string

	LocalPath string
	Remotes   []string
	Excludes  []string
	DryRun    bool

	// File restricts the sync to a single file within LocalPath.
	File string
}

// Result describes the outcome of a single rsync run to one remote.
type Result struct {
	Project  string
	Remote   string
	File     string
	DryRun   bool
	Duration time.Duration

	// Err is non-nil if rsync couldn't be started, or exited abnormally.
	Err error
}

// Config contains the dependencies of a Coordinator.
type Config struct {
	Logger   *logrus.Logger
	Launcher rsync.Launcher

	// Clock defaults to the real clock.
	Clock clockwork.Clock

	// ShowOutput logs rsync's output at the Info level rather than Debug.
	ShowOutput bool
}

type sessionKey struct {
	project, remote string
}

// session tracks an in-flight rsync process.
type session struct {
	req     Request
	process rsync.Process
	output  io.WriteCloser
	started time.Time

	// pending is the sync to run once the process exits. Requests made while
	// a pending sync is already set are merged into it.
	pending *Request
}

type exitEvent struct {
	key sessionKey
	err error
}

// Coordinator launches rsync processes and tracks their lifetime.
type Coordinator struct {
	log        *logrus.Logger
	launcher   rsync.Launcher
	clock      clockwork.Clock
	showOutput bool

	sessions map[sessionKey]*session
	requests chan Request
	exits    chan exitEvent
	results  chan Result
	stopped  chan struct{}

	// sending is held for reading while RequestSync hands off a request.
	// Run takes the write lock after closing stopped to wait out senders
	// that haven't seen it yet.
	sending sync.RWMutex
}

// resultsBuffer is how many results can be queued before a slow consumer
// starts losing them.
const resultsBuffer = 64

// New creates a Coordinator. Run must be called for requests to be handled.
func New(cfg Config) *Coordinator {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Coordinator{
		log:        logger,
		launcher:   cfg.Launcher,
		clock:      clock,
		showOutput: cfg.ShowOutput,
		sessions:   map[sessionKey]*session{},
		requests:   make(chan Request, 16),
		exits:      make(chan exitEvent),
		results:    make(chan Result, resultsBuffer),
		stopped:    make(chan struct{}),
	}
}

// Results returns the outcome of every attempted rsync run, including runs
// that failed to start. The channel is closed once Run returns.
func (c *Coordinator) Results() <-chan Result {
	return c.results
}

// RequestSync asks for `req.LocalPath` to be synced to each of `req.Remotes`.
// It returns as soon as the request is queued. Remotes that are already being
// synced get a pending sync that runs after the current one exits.
func (c *Coordinator) RequestSync(req Request) error {
	if len(req.Remotes) == 0 {
		return errors.ErrNoRemotes
	}
	if req.LocalPath == "" {
		return errors.MissingFieldError{Field: "local path"}
	}
	if req.Project == "" {
		req.Project = req.LocalPath
	}

	c.sending.RLock()
	defer c.sending.RUnlock()

	select {
	case <-c.stopped:
		return ErrStopped
	default:
	}

	select {
	case c.requests <- req:
		return nil
	case <-c.stopped:
		return ErrStopped
	}
}

// Run handles sync requests and process exits until `ctx` is cancelled. It
// then waits for the in-flight rsync processes to exit, drops any queued or
// pending syncs, and closes the Results channel.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.results)

	for {
		// Cancellation takes priority over queued work.
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		default:
		}

		select {
		case req := <-c.requests:
			c.handleRequest(req)
		case exit := <-c.exits:
			c.handleExit(exit)
		case <-ctx.Done():
			c.shutdown()
			return
		}
	}
}

func (c *Coordinator) shutdown() {
	close(c.stopped)
	c.sending.Lock()
	c.sending.Unlock()

	for {
		select {
		case req := <-c.requests:
			c.log.WithField("remotes", req.Remotes).Info(
				"Shutting down. Dropped the queued sync.")
		default:
			c.drain()
			return
		}
	}
}

func (c *Coordinator) handleRequest(req Request) {
	for _, remote := range req.Remotes {
		key := sessionKey{project: req.Project, remote: remote}
		single := req
		single.Remotes = []string{remote}

		if sess, ok := c.sessions[key]; ok {
			sess.pending = mergePending(sess.pending, single)
			c.log.WithField("remote", remote).Debug(
				"Sync already in progress. Another sync will run once it finishes.")
			continue
		}
		c.start(key, single)
	}
}

func (c *Coordinator) start(key sessionKey, req Request) {
	logger := c.log.WithField("remote", key.remote)
	result := Result{
		Project: key.project,
		Remote:  key.remote,
		File:    req.File,
		DryRun:  req.DryRun,
	}

	args, err := rsync.BuildArgs(rsync.Options{
		LocalPath: req.LocalPath,
		Remote:    key.remote,
		Excludes:  req.Excludes,
		DryRun:    req.DryRun,
		File:      req.File,
	})
	if err != nil {
		result.Err = errors.WithContext(err, "build rsync arguments")
		logger.WithError(err).Error("Failed to start sync")
		c.report(result)
		return
	}

	outputLevel := logrus.DebugLevel
	if c.showOutput {
		outputLevel = logrus.InfoLevel
	}
	output := logger.WriterLevel(outputLevel)

	process, err := c.launcher.Start(args, output)
	if err != nil {
		output.Close()
		result.Err = errors.WithContext(err, "launch rsync")
		logger.WithError(err).Error("Failed to start rsync")
		c.report(result)
		return
	}

	c.sessions[key] = &session{
		req:     req,
		process: process,
		output:  output,
		started: c.clock.Now(),
	}
	logger.WithField("args", args).Debug("Started rsync")
	go c.wait(key, process)
}

func (c *Coordinator) wait(key sessionKey, process rsync.Process) {
	c.exits <- exitEvent{key: key, err: process.Wait()}
}

// handleExit clears the session for the exited process, reports its outcome,
// and starts the pending sync if there is one.
func (c *Coordinator) handleExit(exit exitEvent) {
	pending, ok := c.finish(exit)
	if ok && pending != nil {
		c.start(exit.key, *pending)
	}
}

func (c *Coordinator) finish(exit exitEvent) (*Request, bool) {
	sess, ok := c.sessions[exit.key]
	if !ok {
		c.log.WithField("remote", exit.key.remote).Warn("Exit for unknown sync session")
		return nil, false
	}
	delete(c.sessions, exit.key)
	sess.output.Close()

	result := Result{
		Project:  exit.key.project,
		Remote:   exit.key.remote,
		File:     sess.req.File,
		DryRun:   sess.req.DryRun,
		Duration: c.clock.Now().Sub(sess.started),
	}

	logger := c.log.WithField("remote", exit.key.remote)
	if exit.err != nil {
		result.Err = errors.WithContext(exit.err, "rsync")
		logger.Errorf("rsync to %s failed: %s",
			exit.key.remote, rsync.ExitDescription(exit.err))
	} else {
		logger.Info(completionMessage(sess.req, result.Duration))
	}
	c.report(result)
	return sess.pending, true
}

// drain waits for every in-flight process to exit without starting their
// pending syncs.
func (c *Coordinator) drain() {
	for len(c.sessions) != 0 {
		exit := <-c.exits
		if pending, ok := c.finish(exit); ok && pending != nil {
			c.log.WithField("remote", exit.key.remote).Info(
				"Shutting down. Dropped the pending sync.")
		}
	}
}

func (c *Coordinator) report(result Result) {
	select {
	case c.results <- result:
	default:
		c.log.WithField("remote", result.Remote).Debug("Dropped sync result")
	}
}

// mergePending folds `req` into the pending request for a session. Syncs of
// different files widen into a sync of the whole project, and the merged sync
// transfers files if any of the merged requests did.
func mergePending(pending *Request, req Request) *Request {
	if pending == nil {
		return &req
	}

	merged := req
	if pending.File != req.File {
		merged.File = ""
	}
	merged.DryRun = pending.DryRun && req.DryRun
	return &merged
}

func completionMessage(req Request, duration time.Duration) string {
	target := "Synced"
	if req.File != "" {
		target = "Synced " + req.File
	}
	if req.DryRun {
		target = "Dry run: " + target
	}
	return target + " in " + duration.Round(time.Millisecond).String() + "."
}
