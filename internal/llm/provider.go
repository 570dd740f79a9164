// Package llm adapts third-party chat completion APIs to one streaming interface.
package llm

import "context"

// ChatMessage models the message format consumed by downstream LLM providers.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatStream yields incremental content deltas.
// Recv returns io.EOF once the provider has finished; any other error aborts the stream.
// Close releases the underlying connection and is safe to call after io.EOF.
type ChatStream interface {
	Recv() (string, error)
	Close() error
}

// StreamingProvider abstracts a streaming chat completion provider.
type StreamingProvider interface {
	StreamChat(ctx context.Context, messages []ChatMessage) (ChatStream, error)
	Name() string
}
