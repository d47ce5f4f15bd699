package rsync

import (
	"io"
	"os/exec"

	"github.com/sidkik/rsyncer/pkg/errors"
)

// DefaultBinary is the rsync binary used when the user config doesn't set one.
const DefaultBinary = "rsync"

// Process is a launched rsync process.
type Process interface {
	// Wait blocks until the process exits. It returns nil if the process
	// exited with status 0.
	Wait() error
}

// Launcher starts rsync processes.
type Launcher interface {
	// Start launches rsync with `args` and returns without waiting for it to
	// exit. Both stdout and stderr are written to `output`.
	Start(args []string, output io.Writer) (Process, error)
}

// ExecLauncher launches rsync as a child process.
type ExecLauncher struct {
	// Binary is the name or path of the rsync executable.
	Binary string
}

// NewExecLauncher returns a launcher for `binary`, or DefaultBinary if it's
// empty.
func NewExecLauncher(binary string) ExecLauncher {
	if binary == "" {
		binary = DefaultBinary
	}
	return ExecLauncher{Binary: binary}
}

// Start implements the Launcher interface.
func (l ExecLauncher) Start(args []string, output io.Writer) (Process, error) {
	cmd := exec.Command(l.Binary, args...)
	cmd.Stdout = output
	cmd.Stderr = output

	// rsync runs in its own process group so that a Ctrl-C in the terminal
	// doesn't kill it before the coordinator lets it finish.
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return nil, errors.WithContext(err, "start")
	}
	return cmd, nil
}

// ExitDescription describes why rsync failed, using the process's own exit
// description (e.g. "exit status 23" or "signal: killed") when it ran.
func ExitDescription(err error) string {
	if err == nil {
		return "exit status 0"
	}
	if exitErr, ok := errors.RootCause(err).(*exec.ExitError); ok {
		return exitErr.Error()
	}
	return err.Error()
}
