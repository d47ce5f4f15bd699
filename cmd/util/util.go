package util

import (
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/rsyncer/pkg/errors"
)

// HandleFatalError prints `err` for the user and exits. Errors with a friendly
// message are printed without their context.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")
	fmt.Fprintln(os.Stderr, errors.GetPrintableMessage(err))
	os.Exit(1)
}

// HandlePanic logs a recovered panic with its stack trace before exiting. It
// must be deferred at the top of every goroutine that could panic.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Errorf("Unexpected panic: %v", r)
		fmt.Fprintln(os.Stderr, "rsyncer crashed unexpectedly. "+
			"Rerun with RSYNCER_LOG_VERBOSE=true for more information.")
		os.Exit(1)
	}
}
