package config

import (
	homedir "github.com/mitchellh/go-homedir"

	"github.com/sidkik/rsyncer/pkg/errors"
	"github.com/sidkik/rsyncer/pkg/rsync"
)

const (
	// UserConfigPath is the default path to the rsyncer user config.
	UserConfigPath = "~/.rsyncer.yaml"

	// InitialUserConfigVersion is the first version of the user config.
	// Config files that do not specify a version will default to this
	// version.
	InitialUserConfigVersion = "v1alpha1"

	// SupportedUserConfigVersion is the supported version of the user config
	// of the current rsyncer binary.
	SupportedUserConfigVersion = "v1alpha1"
)

// User contains settings that apply to every project of the user.
type User struct {
	Version string `json:"version,omitempty"`

	// RsyncPath is the rsync binary to run. Defaults to `rsync` in $PATH.
	RsyncPath string `json:"rsyncPath,omitempty"`

	// Excludes are directory names that are excluded from every project.
	Excludes []string `json:"excludes,omitempty"`
}

func (u User) getVersion() string {
	return u.Version
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ParseUser parses the user config stored in the default path. The user
// config is optional, so a missing file results in the default config.
func ParseUser() (User, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return User{}, errors.WithContext(err, "expand config path")
	}

	config := User{Version: InitialUserConfigVersion}
	if err := parseConfig(path, &config, SupportedUserConfigVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			return User{
				Version:   SupportedUserConfigVersion,
				RsyncPath: rsync.DefaultBinary,
			}, nil
		}
		return User{}, errors.WithContext(err, "parse")
	}

	if config.RsyncPath == "" {
		config.RsyncPath = rsync.DefaultBinary
	} else {
		config.RsyncPath, err = homedirExpand(config.RsyncPath)
		if err != nil {
			return User{}, errors.WithContext(err, "expand rsync path")
		}
	}
	return config, nil
}

// GetUserConfigPath returns the path to the user's global rsyncer
// configuration. This path is expanded, so it can be directly passed to file
// operations.
func GetUserConfigPath() (string, error) {
	return homedirExpand(UserConfigPath)
}
