package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voxidesk/voxi-go/internal/answer"
	"github.com/voxidesk/voxi-go/internal/logging"
	"github.com/voxidesk/voxi-go/internal/provider"
	"github.com/voxidesk/voxi-go/internal/rag"
)

// NewAskCmd constructs the `voxi ask` command, which sends a single customer
// question to the assistant and streams the answer to stdout.
func NewAskCmd() *cobra.Command {
	var topK int
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the assistant a customer question",
		Long: `Ask the assistant a question and stream the grounded answer to stdout.

The assistant retrieves the most relevant company documents from the
knowledge base and answers strictly from them. When the similarity index is
unreachable it falls back to the most recent documents.

Examples:
  voxi ask "how much does the Professional plan cost?"
  voxi ask --sources "which languages does the voice agent support?"
  voxi ask --top-k 5 "do you integrate with Salesforce?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			st, err := buildStack(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer st.Close()

			assistant, err := answer.New(&answer.Config{
				ChatModel: chatModel,
				Retriever: st.retriever,
				TopK:      topK,
			})
			if err != nil {
				return fmt.Errorf("ask: failed to initialise assistant: %w", err)
			}

			question := strings.Join(args, " ")
			reply, err := assistant.Answer(ctx, question, nil, os.Stdout)
			if err != nil {
				return err //nolint:wrapcheck // CLI entry point — error goes directly to cobra
			}
			fmt.Println()

			if showSources {
				printSources(reply.Sources, reply.Fallback)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of documents to retrieve (0 = default)")
	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Print the source documents after the answer")

	return cmd
}

// printSources prints the documents an answer was grounded on.
func printSources(sources []rag.ScoredDocument, fallback bool) {
	if len(sources) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for _, d := range sources {
		fmt.Printf("  [%.2f] %s (%s)\n", d.Score, d.Title, d.ID)
	}
	if fallback {
		fmt.Println("  (similarity index unavailable — showing most recent documents)")
	}
}
