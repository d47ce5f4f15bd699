package version

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/rsyncer/cmd/util"
	"github.com/sidkik/rsyncer/pkg/config"
	"github.com/sidkik/rsyncer/pkg/errors"
	"github.com/sidkik/rsyncer/pkg/rsync"
	"github.com/sidkik/rsyncer/pkg/version"
)

// Mocked for unit testing.
var (
	stdout      io.Writer = os.Stdout
	parseUser             = config.ParseUser
	detectRsync           = rsync.DetectVersion
)

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of rsyncer and rsync.",
		Long: "Print the local version of rsyncer, and the version of the\n" +
			"rsync binary that it runs.",
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run() error {
	fmt.Fprintf(stdout, "local version: %s\n", version.Version)

	binary := rsync.DefaultBinary
	if user, err := parseUser(); err == nil {
		binary = user.RsyncPath
	} else {
		log.WithError(err).Debugf("Failed to parse %s. Using %q.",
			config.UserConfigPath, binary)
	}

	rsyncVersion, err := detectRsync(binary)
	if err != nil {
		return errors.WithContext(err, "get rsync version")
	}

	fmt.Fprintf(stdout, "rsync version: %s (%s)\n", rsyncVersion, binary)
	if err := rsync.CheckVersion(rsyncVersion); err != nil {
		log.Warn(errors.GetPrintableMessage(err))
	}
	return nil
}
