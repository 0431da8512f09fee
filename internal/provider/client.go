// Package provider defines the capability contract implemented by LLM vendor
// adapters and the registry the router dispatches through.
package provider

import (
	"context"

	"github.com/tidemill/llmgate/pkg/types"
)

// Client is the polymorphic capability each vendor adapter implements. Any
// adapter satisfying this shape is pluggable without router changes.
//
// Timeouts are the adapter's responsibility and surface as errors, never as
// hangs. StreamChat returns a channel that delivers chunks in provider
// emission order and always ends with exactly one done or error chunk; the
// channel is closed after the terminal chunk. Adapters must honor ctx
// cancellation so abandoned streams release network resources promptly.
type Client interface {
	Chat(ctx context.Context, messages []types.ChatMessage, model string, opts types.ChatOptions) (string, error)
	StreamChat(ctx context.Context, messages []types.ChatMessage, model string, opts types.ChatOptions) (<-chan types.StreamChunk, error)
}
