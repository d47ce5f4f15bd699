package util

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ghodss/yaml"

	"github.com/sidkik/rsyncer/pkg/config"
	"github.com/sidkik/rsyncer/pkg/errors"
)

// TestHelper contains methods commonly used during integration tests.
type TestHelper struct {
	// Remote is the remote that projects are synced to.
	Remote string

	// RemoteRoot is where the path of Remote is visible on the local machine.
	RemoteRoot string

	// ProjectDir is a scratch project that's removed by Cleanup.
	ProjectDir string
}

// NewTestHelper creates a project in a temporary directory, and clears the
// destination of `remote`.
func NewTestHelper(remote, remoteRoot string) (*TestHelper, error) {
	projectDir, err := ioutil.TempDir("", "rsyncer-ci")
	if err != nil {
		return nil, errors.WithContext(err, "make project dir")
	}

	if err := os.RemoveAll(remoteRoot); err != nil {
		return nil, errors.WithContext(err, "clear remote")
	}
	if err := os.MkdirAll(remoteRoot, 0755); err != nil {
		return nil, errors.WithContext(err, "make remote")
	}

	return &TestHelper{
		Remote:     remote,
		RemoteRoot: remoteRoot,
		ProjectDir: projectDir,
	}, nil
}

// Cleanup removes the project directory.
func (helper *TestHelper) Cleanup() error {
	return os.RemoveAll(helper.ProjectDir)
}

// Run runs the given rsyncer command in the project directory, and returns
// its combined output.
func (helper *TestHelper) Run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "rsyncer", args...)
	cmd.Dir = helper.ProjectDir
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.Bytes(), fmt.Errorf("rsyncer %v: %s: %s", args, err, out.String())
	}
	return out.Bytes(), nil
}

// WriteFiles creates `files` in the project, relative to the project root.
func (helper *TestHelper) WriteFiles(files map[string]string) error {
	for path, contents := range files {
		path = filepath.Join(helper.ProjectDir, path)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return errors.WithContext(err, "make parent")
		}

		if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
			return errors.WithContext(err, "write")
		}
	}
	return nil
}

// ReadProjectConfig parses the project config as it was written to disk.
func (helper *TestHelper) ReadProjectConfig() (config.Project, error) {
	configBytes, err := ioutil.ReadFile(filepath.Join(helper.ProjectDir, config.ProjectConfigName))
	if err != nil {
		return config.Project{}, errors.WithContext(err, "read")
	}

	var cfg config.Project
	if err := yaml.Unmarshal(configBytes, &cfg); err != nil {
		return config.Project{}, errors.WithContext(err, "parse")
	}
	return cfg, nil
}

// RemoteFiles returns the contents of every file at the remote, keyed by the
// path relative to the remote root.
func (helper *TestHelper) RemoteFiles() (map[string]string, error) {
	files := map[string]string{}
	err := filepath.Walk(helper.RemoteRoot, func(path string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return err
		}

		contents, err := ioutil.ReadFile(path)
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(helper.RemoteRoot, path)
		if err != nil {
			return err
		}
		files[rel] = string(contents)
		return nil
	})
	return files, err
}
