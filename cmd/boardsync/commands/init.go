package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/boardsync/internal/config"
	"github.com/dyluth/boardsync/internal/printer"
	"github.com/dyluth/boardsync/internal/scaffold"
)

func newInitCmd() *cobra.Command {
	opts := scaffold.DefaultOptions()
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a boardsync.yml in the current directory",
		Long: `Create a starter boardsync.yml.

Examples:
  # Redis on localhost
  boardsync init

  # Shared workspace on MongoDB, live updates over Redis
  boardsync init --workspace team-a --backend mongo --mongo-uri mongodb://db:27017`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Backend != config.BackendRedis && opts.Backend != config.BackendMongo {
				return printer.Error(
					"invalid backend",
					fmt.Sprintf("Unknown backend: %s", opts.Backend),
					[]string{"Valid backends: redis, mongo"},
				)
			}

			path, err := scaffold.Initialize(dir, opts, force)
			if err != nil {
				return printer.Error("initialization failed", err.Error(), nil)
			}

			scaffold.PrintSuccess(path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write boardsync.yml into")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing boardsync.yml")
	cmd.Flags().StringVarP(&opts.Workspace, "workspace", "w", opts.Workspace, "Workspace name")
	cmd.Flags().StringVar(&opts.Backend, "backend", opts.Backend, "Store backend: redis or mongo")
	cmd.Flags().StringVar(&opts.RedisURL, "redis-url", opts.RedisURL, "Redis URL")
	cmd.Flags().StringVar(&opts.MongoURI, "mongo-uri", opts.MongoURI, "MongoDB URI")
	cmd.Flags().StringVar(&opts.MongoDatabase, "mongo-database", opts.MongoDatabase, "MongoDB database")
	cmd.Flags().StringVar(&opts.IdentityDBPath, "identity-db", opts.IdentityDBPath, "Path to the local identity database")

	return cmd
}
