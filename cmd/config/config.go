package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/rsyncer/cmd/util"
	"github.com/sidkik/rsyncer/pkg/config"
	"github.com/sidkik/rsyncer/pkg/errors"
	"github.com/sidkik/rsyncer/pkg/rsync"
)

// Mocked for unit testing.
var (
	stdout          io.Writer = os.Stdout
	stdin           io.Reader = os.Stdin
	stat                      = os.Stat
	findProjectRoot           = config.FindProjectRoot
	parseProject              = config.ParseProject
	writeProject              = config.WriteProject
)

// buildDirs are directories that usually hold generated files, and are
// suggested as excludes if they exist.
var buildDirs = []string{"build", "dist", "target", "out", "bin",
	".venv", "__pycache__", ".idea", ".vscode"}

type options struct {
	dir       string
	remotes   []string
	excludes  []string
	localPath string
}

// New creates a new `config` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Setup the project configuration",
		Long: "Write the " + config.ProjectConfigName + " for the project " +
			"containing the current directory.\n\n" +
			"Fields that aren't set with flags are prompted for interactively.",
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if err := setupConfig(opts); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s",
					errors.GetPrintableMessage(err))
				util.HandleFatalError(err)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.dir, "dir", ".",
		"A directory within the project.")
	cmd.Flags().StringSliceVar(&opts.remotes, "remote", nil,
		"A remote to sync to, of the form [user@]host:path. May be repeated. "+
			"Optional: If not set, `rsyncer config` will interactively prompt.")
	cmd.Flags().StringSliceVar(&opts.excludes, "exclude", nil,
		"A directory name to never sync. May be repeated. "+
			"Optional: If not set, `rsyncer config` will interactively prompt.")
	cmd.Flags().StringVar(&opts.localPath, "local-path", "",
		"The directory to sync. Defaults to the project root.")

	// Setup the commands for querying the contents of the project config.
	type getterSpec struct {
		use, short string
		fn         func(config.Project) []string
	}

	getters := []getterSpec{
		{
			use:   "get-remotes",
			short: "Get the remotes the project syncs to",
			fn:    func(cfg config.Project) []string { return cfg.Remotes },
		},
		{
			use:   "get-excludes",
			short: "Get the directories excluded by the project config",
			fn:    func(cfg config.Project) []string { return cfg.Excludes },
		},
		{
			use:   "get-local-path",
			short: "Get the local directory that is synced",
			fn:    func(cfg config.Project) []string { return []string{cfg.LocalPath} },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Args:  cobra.NoArgs,
			Run: func(_ *cobra.Command, _ []string) {
				cfg, err := parseProject(opts.dir)
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
				}

				for _, line := range getter.fn(cfg) {
					fmt.Fprintln(stdout, line)
				}
			},
		})
	}

	return cmd
}

func setupConfig(opts options) error {
	root := findProjectRoot(opts.dir)
	cfg, err := generateConfig(root, opts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	path, err := writeProject(root, cfg)
	if err != nil {
		return errors.WithContext(err, "write config")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", path)
	return nil
}

func remotesValidationFn(resp string) (string, bool) {
	remotes := splitList(resp)
	if len(remotes) == 0 {
		return "At least one remote is required.", false
	}

	for _, remote := range remotes {
		if _, err := rsync.ParseRemote(remote); err != nil {
			return fmt.Sprintf("%s.\n"+
				"Remotes must be of the form [user@]host:path, "+
				"such as deploy@example.com:/srv/app.", err), false
		}
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateConfig interacts with the user to decide what the project
// configuration should be.
// The current config is offered as an answer, and flags skip their prompts.
func generateConfig(root string, opts options) (config.Project, error) {
	for _, remote := range opts.remotes {
		if _, err := rsync.ParseRemote(remote); err != nil {
			return config.Project{}, errors.NewFriendlyError(
				"Invalid --remote flag: %s.\n"+
					"Remotes must be of the form [user@]host:path, "+
					"such as deploy@example.com:/srv/app.", err)
		}
	}

	currConfig, err := parseProject(root)
	if err != nil {
		currConfig = config.Project{}
		log.WithError(err).Debug("Failed to read current config")
	}

	cfg := config.Project{
		LocalPath: opts.localPath,
		Remotes:   opts.remotes,
		Excludes:  opts.excludes,
	}
	if cfg.LocalPath == "" && currConfig.LocalPath != root {
		cfg.LocalPath = currConfig.LocalPath
	}

	var remotes, excludes string
	var prompts []prompt
	if len(opts.remotes) == 0 {
		prompts = append(prompts, prompt{
			helpString: "Enter the remotes to sync the project to, separated by commas.\n" +
				"Each remote is of the form [user@]host:path.",
			prompt:       "Remotes",
			currAnswer:   strings.Join(currConfig.Remotes, ","),
			field:        &remotes,
			validationFn: remotesValidationFn,
		})
	}

	if len(opts.excludes) == 0 {
		prompts = append(prompts, prompt{
			helpString: "Enter the directory names to never sync, separated by commas.\n" +
				"Version control directories and node_modules are always excluded.",
			prompt:        "Excluded directories",
			defaultAnswer: strings.Join(guessExcludes(root), ","),
			currAnswer:    strings.Join(currConfig.Excludes, ","),
			field:         &excludes,
		})
	}

	for _, prompt := range prompts {
		var resp string
		for {
			resp, err = promptUser(prompt.helpString, prompt.prompt,
				prompt.defaultAnswer, prompt.currAnswer)
			if err != nil {
				return config.Project{}, errors.WithContext(err, "read response")
			}

			if prompt.validationFn == nil {
				break
			}

			validationErr, ok := prompt.validationFn(resp)
			if ok {
				break
			}

			fmt.Fprintln(stdout, validationErr)
		}

		*prompt.field = resp
	}

	if len(opts.remotes) == 0 {
		cfg.Remotes = splitList(remotes)
	}
	if len(opts.excludes) == 0 {
		cfg.Excludes = splitList(excludes)
	}
	cfg.Excludes = config.MergeExcludes(cfg.Excludes)
	return cfg, nil
}

// guessExcludes returns the build directories that exist in the project root.
func guessExcludes(root string) (excludes []string) {
	for _, dir := range buildDirs {
		fi, err := stat(filepath.Join(root, dir))
		if err != nil {
			if !os.IsNotExist(err) {
				log.WithError(err).WithField("dir", dir).Debug("Failed to stat")
			}
			continue
		}

		if fi.IsDir() {
			excludes = append(excludes, dir)
		}
	}
	return excludes
}

func splitList(s string) (list []string) {
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func promptUser(helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Separate fields with a blank line.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	stdinReader := bufio.NewReader(stdin)
	if nOptions := len(options); nOptions > 1 {
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			// An empty response picks the first option.
			choice := 1
			if choiceStr = strings.TrimSpace(choiceStr); choiceStr != "" {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					continue
				}
			}

			if choice == nOptions {
				break
			}
			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil && !(err == io.EOF && resp != "") {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}
