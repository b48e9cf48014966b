package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voxidesk/voxi-go/internal/docstore"
	"github.com/voxidesk/voxi-go/internal/logging"
)

// NewAddCmd constructs the `voxi add` command, which stores a document,
// embeds it, and indexes it for similarity search.
func NewAddCmd() *cobra.Command {
	var title string
	var file string

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a document to the knowledge base",
		Long: `Add a company document to the knowledge base.

The document is stored in SQLite, embedded, and indexed in Qdrant. If the
embedding step fails the document is still stored; run 'voxi reindex' later
to restore search consistency.

Content is taken from the positional argument, or from a file with --file.

Examples:
  voxi add --title "Refund Policy" "Refunds are processed within 5 business days."
  voxi add --title "Onboarding Guide" --file ./docs/onboarding.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			content := strings.Join(args, " ")
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("add: failed to read %s: %w", file, err)
				}
				content = string(data)
			}

			st, err := buildStack(ctx, log)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}
			defer st.Close()

			doc, err := st.pipeline.AddDocument(ctx, title, content)
			if err != nil && doc.ID == "" {
				return fmt.Errorf("add: %w", err)
			}
			if err != nil {
				// Stored but not indexed — reindex will finish the job.
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
				fmt.Printf("stored %s (not yet searchable — run 'voxi reindex')\n", doc.ID)
				return nil
			}

			fmt.Printf("added %s: %s\n", doc.ID, doc.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read document content from a file")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// NewListCmd constructs the `voxi list` command, which prints all documents
// newest first.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all documents in the knowledge base",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore()
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}
			defer store.Close()

			docs, err := store.ListDocuments(ctx)
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}

			if len(docs) == 0 {
				fmt.Println("knowledge base is empty — add documents with 'voxi add' or 'voxi seed'")
				return nil
			}

			for _, d := range docs {
				fmt.Printf("%s  %s  %s\n", d.ID, d.CreatedAt.Format("2006-01-02 15:04"), d.Title)
			}
			return nil
		},
	}
}

// NewDeleteCmd constructs the `voxi delete` command, which removes a document
// from the store and its vector from the index.
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a document from the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			st, err := buildStack(ctx, log)
			if err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			defer st.Close()

			id := args[0]
			if err := st.pipeline.DeleteDocument(ctx, id); err != nil {
				if errors.Is(err, docstore.ErrNotFound) {
					return fmt.Errorf("delete: document %s not found", id)
				}
				return fmt.Errorf("delete: %w", err)
			}

			fmt.Printf("deleted %s\n", id)
			return nil
		},
	}
}
