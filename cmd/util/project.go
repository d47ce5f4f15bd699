package util

import (
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/rsyncer/pkg/config"
	"github.com/sidkik/rsyncer/pkg/coordinator"
	"github.com/sidkik/rsyncer/pkg/errors"
	"github.com/sidkik/rsyncer/pkg/rsync"
)

// Mocked out for unit testing.
var (
	parseUser          = config.ParseUser
	parseProject       = config.ParseProject
	detectRsyncVersion = rsync.DetectVersion
)

// LoadProject parses the config of the project containing `dir`, and the
// user config.
func LoadProject(dir string) (config.Project, config.User, error) {
	user, err := parseUser()
	if err != nil {
		return config.Project{}, config.User{}, errors.WithContext(err, "parse user config")
	}

	project, err := parseProject(dir)
	if err != nil {
		if dneErr, ok := errors.RootCause(err).(errors.FileNotFound); ok {
			return config.Project{}, config.User{}, errors.NewFriendlyError(
				"No project config found at %q.\n"+
					"Run `rsyncer config` in the project directory to create one.",
				dneErr.Path)
		}
		return config.Project{}, config.User{}, errors.WithContext(err, "parse project config")
	}
	return project, user, nil
}

// NewRequest returns a request to sync `project` to all of its remotes.
func NewRequest(project config.Project, user config.User) coordinator.Request {
	return coordinator.Request{
		Project:   project.ID(),
		LocalPath: project.LocalPath,
		Remotes:   project.Remotes,
		Excludes:  project.ExcludedDirs(user),
	}
}

// NoRemotesError explains how to fix a project without remotes.
func NoRemotesError(project config.Project) error {
	return errors.NewFriendlyError("No remotes are configured in %q.\n"+
		"Add one with `rsyncer config --remote [user@]host:path`.", project.GetPath())
}

// WarnIfRsyncUnsupported logs a warning if the rsync at `binary` is missing or
// too old. Syncs are still attempted, and fail individually.
func WarnIfRsyncUnsupported(binary string) {
	v, err := detectRsyncVersion(binary)
	if err != nil {
		log.Warn(errors.GetPrintableMessage(err))
		return
	}

	if err := rsync.CheckVersion(v); err != nil {
		log.Warn(errors.GetPrintableMessage(err))
	}
}
