package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxidesk/voxi-go/internal/logging"
)

// NewReindexCmd constructs the `voxi reindex` command, which wipes the
// similarity index and re-embeds every document in the knowledge base.
func NewReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild every embedding in the similarity index",
		Long: `Wipe the Qdrant collection and all stored vectors, then re-embed every
document in the knowledge base.

Run this after switching embedding backends or to heal documents that were
stored without a vector. Documents whose embedding fails are skipped and
counted; the rest of the sweep continues.

Examples:
  voxi reindex
  EMBEDDING_PROVIDER=openai voxi reindex`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			st, err := buildStack(ctx, log)
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}
			defer st.Close()

			report, err := st.pipeline.Reindex(ctx)
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}

			fmt.Printf("reindex complete: %d indexed, %d failed\n", report.Indexed, report.Failed)
			if report.Failed > 0 {
				fmt.Println("failed documents were skipped — check the logs and run 'voxi reindex' again")
			}
			return nil
		},
	}
}
