package watch

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/rsyncer/pkg/config"
	"github.com/sidkik/rsyncer/pkg/coordinator"
	"github.com/sidkik/rsyncer/pkg/errors"
)

type fakeRequester struct {
	requests chan coordinator.Request
	err      error
}

func newFakeRequester() *fakeRequester {
	return &fakeRequester{requests: make(chan coordinator.Request, 16)}
}

func (r *fakeRequester) RequestSync(req coordinator.Request) error {
	r.requests <- req
	return r.err
}

func (r *fakeRequester) expectRequest(t *testing.T) coordinator.Request {
	select {
	case req := <-r.requests:
		return req
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for sync request")
	}
	return coordinator.Request{}
}

func (r *fakeRequester) expectNoRequest(t *testing.T) {
	select {
	case req := <-r.requests:
		assert.Failf(t, "unexpected sync request", "%+v", req)
	case <-time.After(100 * time.Millisecond):
	}
}

var testReq = coordinator.Request{
	Project:   "/app",
	LocalPath: "/app",
	Remotes:   []string{"web1:/srv"},
}

func startWatcher(w watcher, initialSync bool) (context.CancelFunc, chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.run(ctx, initialSync)
		close(done)
	}()
	return cancel, done
}

func TestWatcherSyncsOnChange(t *testing.T) {
	logger, _ := logrusTest.NewNullLogger()
	requester := newFakeRequester()
	fileWatcher := make(chan struct{}, 1)

	cancel, done := startWatcher(watcher{
		requester:   requester,
		req:         testReq,
		fileWatcher: fileWatcher,
		clock:       clockwork.NewFakeClock(),
		log:         logger,
	}, true)

	assert.Equal(t, testReq, requester.expectRequest(t))

	fileWatcher <- struct{}{}
	assert.Equal(t, testReq, requester.expectRequest(t))
	requester.expectNoRequest(t)

	cancel()
	<-done
}

func TestWatcherNoInitialSync(t *testing.T) {
	logger, _ := logrusTest.NewNullLogger()
	requester := newFakeRequester()
	fileWatcher := make(chan struct{}, 1)

	cancel, done := startWatcher(watcher{
		requester:   requester,
		req:         testReq,
		fileWatcher: fileWatcher,
		clock:       clockwork.NewFakeClock(),
		log:         logger,
	}, false)
	requester.expectNoRequest(t)

	fileWatcher <- struct{}{}
	requester.expectRequest(t)

	cancel()
	<-done
}

func TestWatcherPolls(t *testing.T) {
	logger, _ := logrusTest.NewNullLogger()
	requester := newFakeRequester()
	clock := clockwork.NewFakeClock()

	cancel, done := startWatcher(watcher{
		requester: requester,
		req:       testReq,
		clock:     clock,
		log:       logger,
	}, false)

	clock.BlockUntil(1)
	clock.Advance((pollSeconds - 1) * time.Second)
	requester.expectNoRequest(t)

	clock.Advance(time.Second)
	requester.expectRequest(t)

	// The next poll is scheduled once the request is made.
	clock.BlockUntil(1)
	clock.Advance(pollSeconds * time.Second)
	requester.expectRequest(t)

	cancel()
	<-done
}

func TestWatcherStopsWithCoordinator(t *testing.T) {
	logger, hook := logrusTest.NewNullLogger()
	requester := newFakeRequester()
	requester.err = coordinator.ErrStopped

	done := make(chan struct{})
	go func() {
		watcher{
			requester:   requester,
			req:         testReq,
			fileWatcher: make(chan struct{}),
			clock:       clockwork.NewFakeClock(),
			log:         logger,
		}.run(context.Background(), true)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "watcher didn't stop")
	}
	assert.Empty(t, hook.AllEntries())
}

func TestWatcherLogsFailedRequests(t *testing.T) {
	logger, hook := logrusTest.NewNullLogger()
	requester := newFakeRequester()
	requester.err = assert.AnError

	w := watcher{requester: requester, req: testReq, log: logger}
	assert.True(t, w.requestSync())
	if assert.Len(t, hook.AllEntries(), 1) {
		assert.Equal(t, "Failed to request sync", hook.LastEntry().Message)
	}
}

func TestStartFileWatcher(t *testing.T) {
	defer func(orig func(string, []string) (chan struct{}, error)) {
		watchFiles = orig
	}(watchFiles)

	project := config.Project{LocalPath: "/app"}
	excludes := []string{".git"}

	tests := []struct {
		name       string
		watchErr   error
		expWatcher bool
		expErr     error
		expWarns   int
	}{
		{
			name:       "Watching works",
			expWatcher: true,
		},
		{
			name:     "Too many files falls back to polling",
			watchErr: errors.WithContext(syscall.EMFILE, "watch"),
			expWarns: 2,
		},
		{
			name:     "Watch limit reached falls back to polling",
			watchErr: errors.WithContext(syscall.ENOSPC, "watch"),
			expWarns: 2,
		},
		{
			name:     "Missing local path",
			watchErr: errors.WithContext(errors.FileNotFound{Path: "/app"}, "watch"),
			expErr: errors.NewFriendlyError(
				"Failed to watch files for syncing.\n"+
					"%q doesn't exist.\n\n"+
					"Is the local path in %q correct?",
				"/app", ""),
		},
		{
			name:     "Other errors",
			watchErr: assert.AnError,
			expErr:   errors.WithContext(assert.AnError, "watch files"),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			logger, hook := logrusTest.NewNullLogger()
			watchFiles = func(root string, gotExcludes []string) (chan struct{}, error) {
				assert.Equal(t, "/app", root)
				assert.Equal(t, excludes, gotExcludes)
				if test.watchErr != nil {
					return nil, test.watchErr
				}
				return make(chan struct{}), nil
			}

			fileWatcher, err := startFileWatcher(logger, project, excludes)
			assert.Equal(t, test.expErr, err)
			assert.Equal(t, test.expWatcher, fileWatcher != nil)
			assert.Len(t, hook.AllEntries(), test.expWarns)
		})
	}
}

func TestCollectResults(t *testing.T) {
	results := make(chan coordinator.Result, 3)
	results <- coordinator.Result{Remote: "web1:/srv"}
	results <- coordinator.Result{Remote: "web2:/srv", Err: assert.AnError}
	results <- coordinator.Result{Remote: "web1:/srv"}
	close(results)

	assert.Equal(t, tally{synced: 3, failed: 1}, collectResults(results))
}
