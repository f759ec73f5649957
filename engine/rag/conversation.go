package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vivekavani/gita-engine/engine/semantic"
	"github.com/vivekavani/gita-engine/pkg/fn"
	"github.com/vivekavani/gita-engine/pkg/llm"
)

// Greeting is the canned assistant opener for a fresh conversation.
const Greeting = "Namaste, Ask me any questions on Bhagavat Gita!"

// RefusalSentence is the exact reply required for questions the context
// cannot answer. It is enforced through the system prompt, not in code, so
// an empty retrieval still goes through generation.
const RefusalSentence = `I'm only able to answer questions that relate to the Bhagavad Gita based on the context provided. Let's return to that topic. I apoligize if you believe you were on topic but I couldn't answer the question. AI is not perfect after all! not yet atleast!`

// Options configures the conversation service.
type Options struct {
	// TopK is how many verses are retrieved per turn.
	TopK int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{TopK: 5}
}

// Service orchestrates one conversation turn: retrieve context, build a
// fresh system prompt, assemble the message list, run the answer pipeline.
// It holds no per-conversation state; the caller owns history.
type Service struct {
	retriever *Retriever
	answer    fn.Stage[[]llm.Message, []llm.Message]
	opts      Options
	logger    *slog.Logger
}

// New creates a conversation Service.
func New(retriever *Retriever, generator Generator, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	return &Service{
		retriever: retriever,
		answer:    NewAnswerPipeline(generator),
		opts:      opts,
		logger:    logger,
	}
}

// HandleTurn answers one user message given the prior history and returns
// the assistant reply text. The system prompt is rebuilt from scratch every
// turn to prevent drift across a long session.
func (s *Service) HandleTurn(ctx context.Context, userMessage string, history []llm.Message) (string, error) {
	results, err := s.retriever.Retrieve(ctx, userMessage, s.opts.TopK)
	if err != nil {
		return "", err
	}

	messages := make([]llm.Message, 0, len(history)+3)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: BuildSystemPrompt(results),
	})

	if len(history) == 0 {
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: Greeting})
	} else {
		messages = append(messages, history...)
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})

	result := s.answer(ctx, messages)
	final, err := result.Unwrap()
	if err != nil {
		return "", fmt.Errorf("rag: answer: %w", err)
	}
	if len(final) == 0 {
		return "", fmt.Errorf("rag: answer pipeline returned no messages")
	}
	return final[len(final)-1].Content, nil
}

// BuildSystemPrompt renders the constrained system prompt: the numbered rule
// set plus the retrieved verses formatted as context. An empty result set
// yields an empty context block, which the rules turn into the fixed
// refusal.
func BuildSystemPrompt(results []semantic.SearchResult) string {
	return fmt.Sprintf(`You are a religious guru and an expert in Hindu literature, particularly the Bhagavad Gita.

You must strictly follow the rules below:

1. You are only allowed to answer using the content provided in the context below.
2. Do NOT draw from any other scriptures, spiritual traditions, or external knowledge — even if the user asks.
3. If the question cannot be answered from the context provided below, respond with:
   "%s"
4. Do NOT add personal interpretations or speculative commentary.
5. Every valid answer must include:
   - Topic
   - The chapters in Gita that deal with this topic
   - The specific verses in those chapters
   - A snippet of those verses
   - Summary
   - Follow-up questions that you may have on this topic
6. any question that the user asks, always understand it "from the context of Bhagavat Gita" if the user doesnt explicitly mention it.

Your answers must be in **simple, clear language** and remain strictly tied to the context.

--------------------------
## CONTEXT:
%s
`, RefusalSentence, FormatContext(results))
}

// FormatContext renders retrieved verses as the context block, ranked order
// preserved.
func FormatContext(results []semantic.SearchResult) string {
	blocks := fn.Map(results, func(r semantic.SearchResult) string {
		return fmt.Sprintf("[%s] %s (score: %.3f)\n%s", r.ID, r.VerseTitle, r.Score, r.Content)
	})
	return strings.Join(blocks, "\n\n")
}
