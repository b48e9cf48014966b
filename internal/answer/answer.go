// Package answer turns a customer question into a streamed, grounded reply.
// It retrieves relevant documents, renders them into the system prompt, and
// streams the chat model's response. Retrieval degradation is invisible to
// the customer: when no context can be fetched the model still answers,
// instructed to admit what it does not know.
package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/voxidesk/voxi-go/internal/budget"
	"github.com/voxidesk/voxi-go/internal/logging"
	"github.com/voxidesk/voxi-go/internal/rag"
)

// systemPromptHeader establishes the assistant persona. Retrieved documents
// are appended under the COMPANY INFORMATION heading.
const systemPromptHeader = `You are an AI customer service agent for a company.
Use the following company information to answer customer questions accurately
and professionally. Be friendly, concise, and helpful.

If the information needed to answer a question is not available in the company
information below, politely say that you don't have that information and
suggest the customer contact the support team directly.

COMPANY INFORMATION:
`

// noContextNote replaces the document section when retrieval yields nothing.
const noContextNote = `(No company information is currently available. Answer
politely and direct the customer to the support team for specifics.)`

// Retriever is the slice of the retrieval engine the answerer needs.
// Satisfied by *rag.Retriever.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) (rag.Result, error)
}

// Config holds the dependencies required to construct an Answerer.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel model.ToolCallingChatModel

	// Retriever supplies grounding documents. May be nil, in which case
	// every answer is generated without context.
	Retriever Retriever

	// TopK controls how many documents are retrieved per question.
	// Defaults to rag.DefaultTopK if zero.
	TopK int

	// MaxContextTokens is the estimated token budget for the full input
	// (system prompt + context + history + question). Retrieved documents
	// are trimmed least-relevant-first and history oldest-first to fit.
	// Defaults to budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// Reply is the outcome of one answered question.
type Reply struct {
	// Text is the full assistant response.
	Text string

	// Sources are the documents that grounded the response, best first.
	// Empty when retrieval produced nothing.
	Sources []rag.ScoredDocument

	// Fallback is true when the sources came from the degraded recency
	// path rather than ranked similarity search.
	Fallback bool
}

// Answerer generates grounded customer-service responses.
type Answerer struct {
	chatModel        model.ToolCallingChatModel
	retriever        Retriever
	topK             int
	maxContextTokens int
}

// New constructs an Answerer from the provided Config.
func New(cfg *Config) (*Answerer, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("answer: ChatModel must not be nil")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}

	return &Answerer{
		chatModel:        cfg.ChatModel,
		retriever:        cfg.Retriever,
		topK:             topK,
		maxContextTokens: maxCtx,
	}, nil
}

// Answer generates a response to question, streaming chunks to w as they
// arrive, and returns the complete reply. history carries prior conversation
// turns (oldest first) and may be nil for a single-shot question.
func (a *Answerer) Answer(ctx context.Context, question string, history []*schema.Message, w io.Writer) (Reply, error) {
	if strings.TrimSpace(question) == "" {
		return Reply{}, rag.ErrEmptyQuery
	}

	reply := a.retrieve(ctx, question)
	messages := a.buildMessages(ctx, question, history, reply.Sources)

	sr, err := a.chatModel.Stream(ctx, messages)
	if err != nil {
		return reply, fmt.Errorf("answer: stream failed: %w", err)
	}
	defer sr.Close()

	var sb strings.Builder
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return reply, fmt.Errorf("answer: stream receive error: %w", err)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		sb.WriteString(msg.Content)
		if w != nil {
			if _, err := io.WriteString(w, msg.Content); err != nil {
				return reply, fmt.Errorf("answer: write error: %w", err)
			}
			flush(w)
		}
	}

	reply.Text = sb.String()
	return reply, nil
}

// retrieve fetches grounding documents for the question. Any retrieval
// failure is logged and swallowed — the customer still gets an answer.
func (a *Answerer) retrieve(ctx context.Context, question string) Reply {
	if a.retriever == nil {
		return Reply{}
	}

	result, err := a.retriever.Search(ctx, question, a.topK)
	if err != nil {
		logging.FromContext(ctx).Warn("answer: retrieval failed, continuing without context",
			slog.Any("error", err),
		)
		return Reply{}
	}
	return Reply{Sources: result.Documents, Fallback: result.Fallback}
}

// buildMessages assembles [system, ...history, user], trimming the retrieved
// documents and then the history to fit the token budget.
func (a *Answerer) buildMessages(ctx context.Context, question string, history []*schema.Message, docs []rag.ScoredDocument) []*schema.Message {
	// Reserve roughly a third of the budget for history and the question.
	docs = budget.TrimContext(docs, a.maxContextTokens*2/3)

	fixed := []*schema.Message{
		schema.SystemMessage(systemPromptHeader + renderContext(docs)),
		schema.UserMessage(question),
	}

	before := len(history)
	history = budget.TrimHistory(fixed, history, a.maxContextTokens)
	if dropped := before - len(history); dropped > 0 {
		logging.FromContext(ctx).Warn("answer: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(history)),
		)
	}

	messages := make([]*schema.Message, 0, 2+len(history))
	messages = append(messages, fixed[0])
	messages = append(messages, history...)
	messages = append(messages, fixed[1])
	return messages
}

// renderContext formats retrieved documents for the system prompt.
func renderContext(docs []rag.ScoredDocument) string {
	if len(docs) == 0 {
		return noContextNote
	}
	var sb strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&sb, "### %d. %s\n%s\n\n", i+1, doc.Title, doc.Content)
	}
	return sb.String()
}

// flush pushes buffered bytes to the client when the writer supports it,
// so SSE consumers see tokens as they are generated.
func flush(w io.Writer) {
	if f, ok := w.(interface{ Flush() }); ok {
		f.Flush()
	}
}
