package llm

import "context"

// Provider is a chat backend that turns an assembled question-plus-context
// prompt into an answer.
type Provider interface {
	// Complete sends the prompt messages to the model and returns its reply.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name identifies the backend ("openai", "ollama") in logs and status output.
	Name() string
}
