package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/sidkik/rsyncer/cmd/config"
	syncCmd "github.com/sidkik/rsyncer/cmd/sync"
	"github.com/sidkik/rsyncer/cmd/util"
	"github.com/sidkik/rsyncer/cmd/version"
	"github.com/sidkik/rsyncer/cmd/watch"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above. This includes the output of rsync.
const verboseLogKey = "RSYNCER_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	if err := newRootCommand().Execute(); err != nil {
		util.HandleFatalError(err)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "rsyncer",
		Short:        "Mirror a local project to remote hosts with rsync",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		configCmd.New(),
		syncCmd.New(),
		version.New(),
		watch.New(),
	)
	return rootCmd
}
