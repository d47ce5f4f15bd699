package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/rsyncer/cmd/util"
	"github.com/sidkik/rsyncer/pkg/coordinator"
	"github.com/sidkik/rsyncer/pkg/errors"
	"github.com/sidkik/rsyncer/pkg/rsync"
)

// Mocked for unit testing.
var (
	stdout        io.Writer = os.Stdout
	loadProject             = util.LoadProject
	checkRsync              = util.WarnIfRsyncUnsupported
	newLauncher             = func(binary string) rsync.Launcher { return rsync.NewExecLauncher(binary) }
	getWorkingDir           = os.Getwd
)

type options struct {
	dir        string
	file       string
	remotes    []string
	dryRun     bool
	showOutput bool
}

// New creates a new `sync` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "sync [file]",
		Short: "Mirror the project to its remotes",
		Long: `Mirror the project to each of its remotes with rsync, and wait for the
syncs to finish.

If a file is given, only that file is synced. Its path on the remote is the
same as its path relative to the project root.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			if len(args) == 1 {
				opts.file = args[0]
			}
			if err := run(opts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&opts.dir, "dir", ".",
		"A directory within the project to sync.")
	cmd.Flags().StringSliceVar(&opts.remotes, "remote", nil,
		"Only sync to this remote. Either the full remote or its host. "+
			"May be repeated.")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false,
		"Show what would be transferred without transferring anything.")
	cmd.Flags().BoolVar(&opts.showOutput, "show-output", false,
		"Show the output of rsync.")
	return cmd
}

func run(opts options) error {
	project, user, err := loadProject(opts.dir)
	if err != nil {
		return err
	}

	req := util.NewRequest(project, user)
	req.DryRun = opts.dryRun
	req.Remotes, err = selectRemotes(project.Remotes, opts.remotes)
	if err != nil {
		return err
	}

	if opts.file != "" {
		req.File, err = absPath(opts.file)
		if err != nil {
			return errors.WithContext(err, "resolve file")
		}
	}

	checkRsync(user.RsyncPath)

	c := coordinator.New(coordinator.Config{
		Logger:     log.StandardLogger(),
		Launcher:   newLauncher(user.RsyncPath),
		ShowOutput: opts.showOutput,
	})

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer util.HandlePanic()
		c.Run(ctx)
		close(runDone)
	}()
	defer func() {
		cancel()
		<-runDone
	}()

	if err := c.RequestSync(req); err != nil {
		if err == errors.ErrNoRemotes {
			return util.NoRemotesError(project)
		}
		return errors.WithContext(err, "request sync")
	}

	// Every remote produces exactly one result, even if rsync fails to start.
	var failed int
	for i := 0; i < len(req.Remotes); i++ {
		if result := <-c.Results(); result.Err != nil {
			failed++
		}
	}

	fmt.Fprintln(stdout, util.Summary(failed, len(req.Remotes), req.DryRun))
	if failed != 0 {
		return errors.NewFriendlyError("%d of %d syncs failed.", failed, len(req.Remotes))
	}
	return nil
}

// selectRemotes returns the configured remotes that match `requested`. A
// requested remote matches a configured remote if it's equal to it, or to its
// host.
func selectRemotes(configured, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return configured, nil
	}

	var selected []string
	for _, want := range requested {
		var found bool
		for _, remote := range configured {
			parsed, err := rsync.ParseRemote(remote)
			if err != nil {
				continue
			}

			if want == remote || want == parsed.Host {
				found = true
				if !contains(selected, remote) {
					selected = append(selected, remote)
				}
			}
		}

		if !found {
			sorted := append([]string{}, configured...)
			sort.Strings(sorted)
			return nil, errors.NewFriendlyError("%q doesn't match any of the "+
				"remotes in the project config.\n\nThe configured remotes are [%s].",
				want, strings.Join(sorted, ", "))
		}
	}
	return selected, nil
}

func absPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}

	wd, err := getWorkingDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, path), nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
