package commands

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dyluth/boardsync/internal/config"
	"github.com/dyluth/boardsync/internal/printer"
)

var versionString = "dev"

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	debug      bool
}

// NewRootCmd builds the command tree. Each call returns independent flag state.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "boardsync",
		Short: "boardsync - shared task boards with live updates",
		Long: `boardsync keeps a workspace of task boards in Redis or MongoDB and
pushes every change to the other sessions of the workspace in real time.

Boards are organised in groups of tasks with typed columns. Any session can
filter the current board, post updates on tasks and like or remove them.`,
		Version: versionString,
		// Prevent silent success when unknown flags are passed to root command
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.debug {
				log.SetLevel(log.DebugLevel)
			}
		},
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", config.DefaultFileName, "Path to boardsync.yml")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		newInitCmd(),
		newLoginCmd(g),
		newLogoutCmd(g),
		newBoardsCmd(g),
		newShowCmd(g),
		newAddTaskCmd(g),
		newDuplicateCmd(g),
		newRemoveCmd(g),
		newRenameCmd(g),
		newCommentCmd(g),
		newLikeCmd(g),
		newRemoveUpdateCmd(g),
		newActivityCmd(g),
		newWatchCmd(g),
	)

	return rootCmd
}

// Execute runs the root command. This is called by main.main().
// Errors not already reported by the printer are printed here.
func Execute() error {
	err := NewRootCmd().Execute()
	var reported *printer.ReportedError
	if err != nil && !errors.As(err, &reported) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
