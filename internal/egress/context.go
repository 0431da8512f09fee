// Package egress implements the composable request-guarding pipeline that
// validates and sanitizes outbound LLM requests before dispatch.
package egress

import (
	"github.com/tidemill/llmgate/internal/policy"
	"github.com/tidemill/llmgate/pkg/types"
)

// Context is the value threaded through the guard pipeline. Aspects never
// mutate it in place; each receives the current value and returns a new one,
// so callers can safely inspect the context after execution.
type Context struct {
	Target     string
	ProviderID string
	EndpointID string
	TenantID   string
	Task       string

	// Mode is the resolved effective egress mode for this call.
	Mode policy.Mode

	// Request is what the execute callback dispatches. In enforce mode the
	// sanitization aspect swaps it for the sanitized copy.
	Request          *types.GuardedRequest
	SanitizedRequest *types.GuardedRequest
	OriginalRequest  *types.GuardedRequest

	Metadata map[string]any
}

// WithMetadata returns a copy of the context with the key set. The metadata
// map is cloned so prior snapshots stay unchanged.
func (c Context) WithMetadata(key string, value any) Context {
	meta := make(map[string]any, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta[key] = value
	c.Metadata = meta
	return c
}

// MetadataBool reads a boolean metadata entry, false when absent.
func (c Context) MetadataBool(key string) bool {
	v, ok := c.Metadata[key].(bool)
	return ok && v
}
