// Package llm wraps the OpenAI API as the two external capabilities the
// engine consumes: embed(text) -> vector and generate(messages) -> message.
// Calls are rate limited and retried with exponential backoff; these are the
// only blocking, failure-prone boundaries in the system.
package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/vivekavani/gita-engine/pkg/fn"
)

// Message roles, mirroring the chat API.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleAssistant = openai.ChatMessageRoleAssistant
	RoleUser      = openai.ChatMessageRoleUser
)

// Message is one role-tagged entry of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config holds client configuration.
type Config struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel openai.EmbeddingModel
	Temperature    float32
	// RequestsPerSecond throttles outbound API calls; Burst is bucket size.
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	Retry             fn.RetryOpts
}

// DefaultConfig returns the default configuration, overridable via env.
func DefaultConfig(apiKey string) Config {
	chatModel := os.Getenv("GITA_CHAT_MODEL")
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	embedModel := openai.EmbeddingModel(os.Getenv("GITA_EMBEDDING_MODEL"))
	if embedModel == "" {
		embedModel = openai.LargeEmbedding3
	}
	return Config{
		APIKey:            apiKey,
		ChatModel:         chatModel,
		EmbeddingModel:    embedModel,
		Temperature:       0.3,
		RequestsPerSecond: 5,
		Burst:             10,
		Timeout:           60 * time.Second,
		Retry:             fn.DefaultRetry,
	}
}

// Client is the OpenAI-backed capability client.
type Client struct {
	api     *openai.Client
	cfg     Config
	limiter *rate.Limiter
}

// New creates a Client. The API key is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		api:     openai.NewClient(cfg.APIKey),
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	result := fn.Retry(ctx, c.cfg.Retry, func(ctx context.Context) fn.Result[[]float32] {
		if err := c.limiter.Wait(ctx); err != nil {
			return fn.Err[[]float32](err)
		}
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		resp, err := c.api.CreateEmbeddings(callCtx, openai.EmbeddingRequestStrings{
			Input: []string{text},
			Model: c.cfg.EmbeddingModel,
		})
		if err != nil {
			return fn.Err[[]float32](err)
		}
		if len(resp.Data) == 0 {
			return fn.Errf[[]float32]("no embeddings returned")
		}
		return fn.Ok(resp.Data[0].Embedding)
	})

	vec, err := result.Unwrap()
	if err != nil {
		return nil, fmt.Errorf("llm: embed: %w", err)
	}
	return vec, nil
}

// Generate runs a chat completion over the full ordered message list and
// returns the assistant reply.
func (c *Client) Generate(ctx context.Context, messages []Message) (Message, error) {
	reqMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		reqMessages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	result := fn.Retry(ctx, c.cfg.Retry, func(ctx context.Context) fn.Result[Message] {
		if err := c.limiter.Wait(ctx); err != nil {
			return fn.Err[Message](err)
		}
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       c.cfg.ChatModel,
			Messages:    reqMessages,
			Temperature: c.cfg.Temperature,
		})
		if err != nil {
			return fn.Err[Message](err)
		}
		if len(resp.Choices) == 0 {
			return fn.Errf[Message]("no completion choices returned")
		}
		return fn.Ok(Message{
			Role:    RoleAssistant,
			Content: resp.Choices[0].Message.Content,
		})
	})

	msg, err := result.Unwrap()
	if err != nil {
		return Message{}, fmt.Errorf("llm: generate: %w", err)
	}
	return msg, nil
}
