package rag

import (
	"context"
	"fmt"

	"github.com/vivekavani/gita-engine/pkg/fn"
	"github.com/vivekavani/gita-engine/pkg/llm"
)

// Signature is the fixed block appended to every generated answer.
const Signature = "\n--------- \n with love, \n##### Krishna"

// Generator is the text-generation capability.
type Generator interface {
	Generate(ctx context.Context, messages []llm.Message) (llm.Message, error)
}

// NewGenerate creates the generation stage. The stage's output replaces the
// message state with the single new assistant message; the caller re-threads
// history itself on the next turn.
func NewGenerate(g Generator) fn.Stage[[]llm.Message, []llm.Message] {
	return func(ctx context.Context, messages []llm.Message) fn.Result[[]llm.Message] {
		reply, err := g.Generate(ctx, messages)
		if err != nil {
			return fn.Err[[]llm.Message](fmt.Errorf("generate: %w", err))
		}
		return fn.Ok([]llm.Message{reply})
	}
}

// Annotate appends the signature to the content of the last message in
// place. It adds no new message, makes no external call, and must run
// exactly once per generated reply: a second pass would sign twice.
var Annotate fn.Stage[[]llm.Message, []llm.Message] = func(_ context.Context, messages []llm.Message) fn.Result[[]llm.Message] {
	if len(messages) == 0 {
		return fn.Ok(messages)
	}
	messages[len(messages)-1].Content += Signature
	return fn.Ok(messages)
}

// NewAnswerPipeline composes the linear answer flow: Generate → Annotate.
// No branching, no cycles; the single blocking call is the generation, so
// cancellation is the caller's context.
func NewAnswerPipeline(g Generator) fn.Stage[[]llm.Message, []llm.Message] {
	return fn.Then(
		fn.TracedStage("answer.generate", NewGenerate(g)),
		fn.TracedStage("answer.annotate", Annotate),
	)
}
