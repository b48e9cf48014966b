package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxidesk/voxi-go/internal/logging"
)

// seedDocuments is the built-in starter knowledge base used by `voxi seed`.
var seedDocuments = []struct {
	title   string
	content string
}{
	{
		title:   "Company Overview",
		content: "We are a leading AI solutions provider specializing in voice assistants and customer service automation. Founded in 2020, we serve over 500 enterprise clients worldwide.",
	},
	{
		title:   "Product Features",
		content: "Our AI voice agent supports 50+ languages, real-time transcription, sentiment analysis, and seamless CRM integration. It handles 10,000+ concurrent calls with 99.9% uptime.",
	},
	{
		title:   "Pricing Plans",
		content: "Starter plan: $99/month for 1,000 minutes. Professional: $499/month for 10,000 minutes. Enterprise: Custom pricing with dedicated support and unlimited minutes.",
	},
}

// NewSeedCmd constructs the `voxi seed` command, which loads the built-in
// sample documents into the knowledge base.
func NewSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample company documents into the knowledge base",
		Long: `Store, embed, and index a small set of sample company documents.

Useful for trying the assistant before adding real content. Running seed
twice creates duplicate documents; delete the extras with 'voxi delete'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			st, err := buildStack(ctx, log)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			defer st.Close()

			for _, d := range seedDocuments {
				doc, err := st.pipeline.AddDocument(ctx, d.title, d.content)
				if err != nil {
					return fmt.Errorf("seed: %w", err)
				}
				fmt.Printf("added %s: %s\n", doc.ID, doc.Title)
			}

			fmt.Printf("seeded %d documents\n", len(seedDocuments))
			return nil
		},
	}
}
