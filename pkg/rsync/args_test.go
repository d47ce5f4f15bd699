package rsync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/rsyncer/pkg/errors"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		expArgs  []string
		expError error
	}{
		{
			name: "Whole project",
			opts: Options{
				LocalPath: "/home/kevin/app",
				Remote:    "deploy@web1:/srv/app",
			},
			expArgs: []string{"-av", "/home/kevin/app/", "deploy@web1:/srv/app"},
		},
		{
			name: "Trailing slash on the local path isn't doubled",
			opts: Options{
				LocalPath: "/home/kevin/app/",
				Remote:    "web1:/srv/app",
			},
			expArgs: []string{"-av", "/home/kevin/app/", "web1:/srv/app"},
		},
		{
			name: "Excludes",
			opts: Options{
				LocalPath: "/app",
				Remote:    "web1:/srv/app",
				Excludes:  []string{"node_modules", ".git"},
			},
			expArgs: []string{"-av", "--exclude=node_modules", "--exclude=.git",
				"/app/", "web1:/srv/app"},
		},
		{
			name: "Dry run",
			opts: Options{
				LocalPath: "/app",
				Remote:    "web1:/srv/app",
				Excludes:  []string{".git"},
				DryRun:    true,
			},
			expArgs: []string{"-av", "--dry-run", "--exclude=.git", "/app/", "web1:/srv/app"},
		},
		{
			name: "Relative file",
			opts: Options{
				LocalPath: "/app",
				Remote:    "web1:/srv/app",
				File:      "src/index.js",
			},
			expArgs: []string{"-avR", "/app/./src/index.js", "web1:/srv/app"},
		},
		{
			name: "Absolute file inside the project",
			opts: Options{
				LocalPath: "/app",
				Remote:    "web1:/srv/app",
				File:      "/app/src/index.js",
				DryRun:    true,
			},
			expArgs: []string{"-avR", "--dry-run", "/app/./src/index.js", "web1:/srv/app"},
		},
		{
			name: "File that is the project root",
			opts: Options{
				LocalPath: "/app",
				Remote:    "web1:/srv/app",
				File:      "/app",
			},
			expArgs: []string{"-av", "/app/", "web1:/srv/app"},
		},
		{
			name: "File outside the project",
			opts: Options{
				LocalPath: "/app",
				Remote:    "web1:/srv/app",
				File:      "/etc/passwd",
			},
			expError: errors.NewFriendlyError(
				"Cannot sync %q since it's not inside the project at %q.",
				"/etc/passwd", "/app"),
		},
		{
			name:     "Missing remote",
			opts:     Options{LocalPath: "/app"},
			expError: errors.MissingFieldError{Field: "remote"},
		},
		{
			name:     "Missing local path",
			opts:     Options{Remote: "web1:/srv/app"},
			expError: errors.MissingFieldError{Field: "local path"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			args, err := BuildArgs(test.opts)
			assert.Equal(t, test.expError, err)
			assert.Equal(t, test.expArgs, args)
		})
	}
}

func TestDryRunOnlyAddsFlag(t *testing.T) {
	opts := Options{
		LocalPath: "/app",
		Remote:    "web1:/srv/app",
		Excludes:  []string{".git", "build"},
		File:      "main.go",
	}
	wet, err := BuildArgs(opts)
	assert.NoError(t, err)

	opts.DryRun = true
	dry, err := BuildArgs(opts)
	assert.NoError(t, err)

	var withoutFlag []string
	for _, arg := range dry {
		if arg != "--dry-run" {
			withoutFlag = append(withoutFlag, arg)
		}
	}
	assert.Len(t, dry, len(wet)+1)
	assert.Equal(t, wet, withoutFlag)
}

func TestCommand(t *testing.T) {
	assert.Equal(t, "rsync -av /app/ web1:/srv",
		Command("rsync", []string{"-av", "/app/", "web1:/srv"}))
}
