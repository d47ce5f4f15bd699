package rsync

import (
	"os/exec"
	"regexp"

	goVersion "github.com/hashicorp/go-version"

	"github.com/sidkik/rsyncer/pkg/errors"
)

// MinVersion is the oldest rsync release that understands the `/./` marker
// used for single file syncs.
const MinVersion = "2.6.7"

var versionPattern = regexp.MustCompile(`rsync\s+version\s+v?([0-9]+(\.[0-9]+)*)`)

// Mocked out for unit testing.
var runVersionCommand = func(binary string) ([]byte, error) {
	return exec.Command(binary, "--version").Output()
}

// DetectVersion returns the version of the rsync installed at `binary`.
func DetectVersion(binary string) (*goVersion.Version, error) {
	out, err := runVersionCommand(binary)
	if err != nil {
		if _, ok := err.(*exec.Error); ok {
			return nil, errors.NewFriendlyError(
				"Could not find rsync at %q. Please install rsync, or set "+
					"`rsyncPath` in the user config.", binary)
		}
		return nil, errors.WithContext(err, "run rsync --version")
	}
	return ParseVersion(string(out))
}

// ParseVersion extracts the version from the output of `rsync --version`.
func ParseVersion(output string) (*goVersion.Version, error) {
	match := versionPattern.FindStringSubmatch(output)
	if match == nil {
		return nil, errors.New("unrecognized rsync version output")
	}

	v, err := goVersion.NewVersion(match[1])
	if err != nil {
		return nil, errors.WithContext(err, "parse version")
	}
	return v, nil
}

// CheckVersion returns an error if `v` is older than MinVersion.
func CheckVersion(v *goVersion.Version) error {
	if v.LessThan(goVersion.Must(goVersion.NewVersion(MinVersion))) {
		return errors.NewFriendlyError(
			"rsync %s is too old. Version %s or newer is required.",
			v, MinVersion)
	}
	return nil
}
