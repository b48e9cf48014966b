package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voxidesk/voxi-go/internal/logging"
)

// NewSearchCmd constructs the `voxi search` command, which runs a similarity
// query against the knowledge base and prints the scored matches.
func NewSearchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the knowledge base by similarity",
		Long: `Run a similarity search against the knowledge base and print the results
best match first.

When the similarity index is unreachable or empty, the most recent documents
are returned instead, marked with a fixed score.

Examples:
  voxi search "pricing"
  voxi search --top-k 10 "CRM integration"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			st, err := buildStack(ctx, log)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer st.Close()

			result, err := st.retriever.Search(ctx, strings.Join(args, " "), topK)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if len(result.Documents) == 0 {
				fmt.Println("no documents found")
				return nil
			}

			if result.Fallback {
				fmt.Println("similarity index unavailable — showing most recent documents:")
			}
			for i, d := range result.Documents {
				fmt.Printf("%d. [%.2f] %s (%s)\n", i+1, d.Score, d.Title, d.ID)
				fmt.Printf("   %s\n", firstLine(d.Content))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results to return (0 = default)")

	return cmd
}

// firstLine returns the first line of s, truncated for terminal display.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}
