package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/voxidesk/voxi-go/internal/answer"
	"github.com/voxidesk/voxi-go/internal/logging"
	"github.com/voxidesk/voxi-go/internal/provider"
	"github.com/voxidesk/voxi-go/internal/server"
	"github.com/voxidesk/voxi-go/internal/tracing"
)

// NewServeCmd constructs the `voxi serve` command, which starts the HTTP
// server exposing the assistant over a REST/SSE API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Voxi HTTP server",
		Long: `Start the Voxi HTTP server on localhost.

The server exposes streamed chat answers (POST /api/chat), similarity search
(POST /api/search), document management (/api/documents), and an admin
reindex endpoint. Protect the API with a Bearer token via VOXI_API_KEY.

Examples:
  voxi serve
  voxi serve --port 9090
  MODEL_PROVIDER=openai voxi serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}

			st, err := buildStack(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer st.Close()

			assistant, err := answer.New(&answer.Config{
				ChatModel: chatModel,
				Retriever: st.retriever,
				TopK:      getEnvInt("VOXI_TOP_K", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to initialise assistant: %w", err)
			}

			srv, err := server.New(&server.Deps{
				Answerer: assistant,
				Searcher: st.retriever,
				Ingestor: st.pipeline,
				Library:  st.store,
			}, &server.Config{
				Host:   host,
				Port:   port,
				Logger: log,
				Pingers: []server.Pinger{
					st.store,
					server.NewQdrantPinger(st.index.Client()),
				},
				APIKey: os.Getenv("VOXI_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
