package version

import (
	"bytes"
	"io"
	"testing"

	goVersion "github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"

	"github.com/sidkik/rsyncer/pkg/config"
	"github.com/sidkik/rsyncer/pkg/errors"
	"github.com/sidkik/rsyncer/pkg/version"
)

func TestRun(t *testing.T) {
	defer func(origStdout io.Writer, origParse func() (config.User, error),
		origDetect func(string) (*goVersion.Version, error)) {
		stdout = origStdout
		parseUser = origParse
		detectRsync = origDetect
	}(stdout, parseUser, detectRsync)

	tests := []struct {
		name      string
		user      config.User
		userErr   error
		detectErr error
		expBinary string
		expOutput string
		expErr    error
	}{
		{
			name:      "Configured rsync",
			user:      config.User{RsyncPath: "/opt/bin/rsync"},
			expBinary: "/opt/bin/rsync",
			expOutput: "local version: " + version.Version + "\n" +
				"rsync version: 3.2.7 (/opt/bin/rsync)\n",
		},
		{
			name:      "Fall back to the default rsync",
			userErr:   assert.AnError,
			expBinary: "rsync",
			expOutput: "local version: " + version.Version + "\n" +
				"rsync version: 3.2.7 (rsync)\n",
		},
		{
			name:      "rsync is missing",
			user:      config.User{RsyncPath: "rsync"},
			detectErr: assert.AnError,
			expBinary: "rsync",
			expOutput: "local version: " + version.Version + "\n",
			expErr:    errors.WithContext(assert.AnError, "get rsync version"),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			var out bytes.Buffer
			stdout = &out
			parseUser = func() (config.User, error) {
				return test.user, test.userErr
			}
			detectRsync = func(binary string) (*goVersion.Version, error) {
				assert.Equal(t, test.expBinary, binary)
				if test.detectErr != nil {
					return nil, test.detectErr
				}
				return goVersion.NewVersion("3.2.7")
			}

			assert.Equal(t, test.expErr, run())
			assert.Equal(t, test.expOutput, out.String())
		})
	}
}
