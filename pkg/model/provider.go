package model

import "context"

// Provider is a chat-model backend. Implementations live in providers/ and
// translate Request/Response to their native wire formats.
type Provider interface {
	// Name returns the provider identifier, e.g. "openai".
	Name() string

	// Generate runs one non-streaming completion. The returned response
	// carries the assistant message, stop reason, and token usage.
	Generate(ctx context.Context, req Request) (*Response, error)
}
