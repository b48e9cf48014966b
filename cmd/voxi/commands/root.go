// Package commands defines all Cobra CLI commands for the voxi binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/voxidesk/voxi-go/internal/audit"
	"github.com/voxidesk/voxi-go/internal/config"
	"github.com/voxidesk/voxi-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "voxi",
		Short: "Voxi — AI customer service assistant grounded in your knowledge base",
		Long: `Voxi is a retrieval-augmented customer service assistant.

It answers customer questions using company documents stored in a local
SQLite knowledge base and indexed in Qdrant for similarity search. Answers
stream token by token and cite the documents they were grounded on.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.voxi/config.yaml).
See 'voxi --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.voxi/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewSearchCmd(),
		NewAddCmd(),
		NewListCmd(),
		NewDeleteCmd(),
		NewReindexCmd(),
		NewSeedCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
