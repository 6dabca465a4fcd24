package llm

import "context"

// LLMClient defines the interface for completion provider operations.
// Retries and backoff, if any, belong behind this interface; the
// orchestrator calls it exactly once per turn.
type LLMClient interface {
	// CreateChatCompletion sends a chat completion request.
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

	// ListModels retrieves the list of available models.
	ListModels(ctx context.Context) ([]Model, error)
}

// Ensure Client implements LLMClient interface.
var _ LLMClient = (*Client)(nil)
