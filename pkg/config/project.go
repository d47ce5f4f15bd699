package config

import (
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	git "gopkg.in/src-d/go-git.v4"

	"github.com/sidkik/rsyncer/pkg/errors"
	"github.com/sidkik/rsyncer/pkg/rsync"
)

const (
	// ProjectConfigName is the name of the project config file. It lives in
	// the root of the project.
	ProjectConfigName = "rsyncer.yaml"

	// InitialProjectConfigVersion is the first version of the project config.
	// Config files that do not specify a version will default to this version.
	InitialProjectConfigVersion = "v1alpha1"

	// SupportedProjectConfigVersion is the supported version of the project
	// config of the current rsyncer binary.
	SupportedProjectConfigVersion = "v1alpha1"
)

// DefaultExcludes are the directories that are never synced.
var DefaultExcludes = []string{".git", ".hg", ".svn", "node_modules", ".DS_Store"}

// Project describes which local directory is mirrored, and where to.
type Project struct {
	Version string `json:"version,omitempty"`

	// LocalPath is the directory to mirror. Relative paths are relative to the
	// directory containing the config file. Defaults to that directory.
	LocalPath string `json:"localPath,omitempty"`

	// Remotes are the destinations, each of the form `[user@]host:path`.
	Remotes []string `json:"remotes"`

	// Excludes are directory names that aren't synced, in addition to the
	// defaults.
	Excludes []string `json:"excludes,omitempty"`

	// Only populated and consumed by rsyncer. Never set by user.
	path string
}

// GetPath returns the filepath that the project was parsed from. A getter
// method is used rather than making the field public so that it can't get set
// by the yaml Unmarshalling.
func (p Project) GetPath() string {
	return p.path
}

func (p Project) getVersion() string {
	return p.Version
}

// ID identifies the project in the sync coordinator.
func (p Project) ID() string {
	return p.LocalPath
}

// Mocked out for unit testing.
var findRepoRoot = findRepoRootImpl

func findRepoRootImpl(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", errors.WithContext(err, "get worktree")
	}
	return worktree.Filesystem.Root(), nil
}

// FindProjectRoot returns the root of the project containing `dir`. This is
// the root of the enclosing git worktree if there is one, and `dir` itself
// otherwise.
func FindProjectRoot(dir string) string {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		log.WithError(err).Debug("Failed to parse absolute path")
		absDir = dir
	}

	root, err := findRepoRoot(absDir)
	if err != nil {
		log.WithError(err).WithField("dir", absDir).Debug("Not in a git repository")
		return absDir
	}
	return root
}

// ParseProject parses the config of the project containing `dir`.
func ParseProject(dir string) (Project, error) {
	root := FindProjectRoot(dir)
	configPath := filepath.Join(root, ProjectConfigName)
	config := Project{
		path:    configPath,
		Version: InitialProjectConfigVersion,
	}
	if err := parseConfig(configPath, &config, SupportedProjectConfigVersion); err != nil {
		return Project{}, errors.WithContext(err, "parse")
	}

	localPath, err := homedir.Expand(config.LocalPath)
	if err != nil {
		return Project{}, errors.WithContext(err, "expand homedir")
	}
	if localPath == "" {
		localPath = root
	} else if !filepath.IsAbs(localPath) {
		localPath = filepath.Join(root, localPath)
	}
	config.LocalPath = filepath.Clean(localPath)

	var remotes []string
	seen := map[string]struct{}{}
	for _, remote := range config.Remotes {
		remote = strings.TrimSpace(remote)
		if _, err := rsync.ParseRemote(remote); err != nil {
			return Project{}, errors.NewFriendlyError(
				"The project config in %q contains an invalid remote.\n"+
					"Remotes must be of the form [user@]host:path.\n\n%s",
				configPath, err)
		}

		if _, ok := seen[remote]; ok {
			continue
		}
		seen[remote] = struct{}{}
		remotes = append(remotes, remote)
	}
	config.Remotes = remotes
	config.Excludes = MergeExcludes(config.Excludes)
	return config, nil
}

// WriteProject writes the project config into the directory `root`.
func WriteProject(root string, cfg Project) (string, error) {
	cfg.Version = SupportedProjectConfigVersion
	path := filepath.Join(root, ProjectConfigName)
	if err := writeConfig(path, cfg); err != nil {
		return "", err
	}
	return path, nil
}

// ExcludedDirs returns the directories excluded when syncing the project: the
// de-duplicated union of the project's excludes, the user's excludes, and
// DefaultExcludes.
func (p Project) ExcludedDirs(user User) []string {
	return MergeExcludes(p.Excludes, user.Excludes, DefaultExcludes)
}

// MergeExcludes returns the union of `lists`, in order of first appearance.
// Trailing slashes are stripped, and empty entries are dropped.
func MergeExcludes(lists ...[]string) []string {
	var merged []string
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, exclude := range list {
			exclude = strings.TrimRight(strings.TrimSpace(exclude), "/")
			if exclude == "" {
				continue
			}

			if _, ok := seen[exclude]; ok {
				continue
			}
			seen[exclude] = struct{}{}
			merged = append(merged, exclude)
		}
	}
	return merged
}
