package memory

import "context"

// MemoryClient defines the interface for memory service operations.
type MemoryClient interface {
	// Search issues a scoped retrieval request across memory kinds.
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)

	// AddEpisodic records a single durable event.
	AddEpisodic(ctx context.Context, scope Scope, text, episodeType string, metadata map[string]interface{}) error

	// AddProfile records a single durable fact.
	AddProfile(ctx context.Context, scope Scope, text, episodeType string, metadata map[string]interface{}) error
}

// Ensure Client implements MemoryClient interface.
var _ MemoryClient = (*Client)(nil)
