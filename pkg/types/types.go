// Package types defines core data structures shared by the router, the egress
// guard pipeline, and provider clients.
package types

// ChatMessage represents a single message in the conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// ChatOptions carries generation parameters resolved from tenant policy.
type ChatOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

// GuardedRequest is the outbound request object threaded through the egress
// guard pipeline. It is the unit the sanitizer rewrites and the provider
// client ultimately dispatches.
type GuardedRequest struct {
	Messages []ChatMessage `json:"messages"`
	Model    string        `json:"model"`
	Options  ChatOptions   `json:"options"`
}

// Clone returns a deep copy so pipeline aspects can rewrite a request without
// mutating the caller's view.
func (r *GuardedRequest) Clone() *GuardedRequest {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Messages = make([]ChatMessage, len(r.Messages))
	copy(cp.Messages, r.Messages)
	if r.Options.Temperature != nil {
		temp := *r.Options.Temperature
		cp.Options.Temperature = &temp
	}
	return &cp
}

// StreamChunkType tags the variant of a stream chunk.
type StreamChunkType string

const (
	// StreamText carries an incremental text delta.
	StreamText StreamChunkType = "text"
	// StreamDone marks successful stream completion.
	StreamDone StreamChunkType = "done"
	// StreamError marks stream termination with an error.
	StreamError StreamChunkType = "error"
)

// StreamChunk is a tagged variant delivered by StreamChat. Within one stream,
// exactly one of done or error is the final chunk, never both, never neither.
type StreamChunk struct {
	Type  StreamChunkType `json:"type"`
	Delta string          `json:"delta,omitempty"`
	Err   error           `json:"-"`
}

// CallOptions identifies the caller and its routing intent for one call.
type CallOptions struct {
	TenantID string
	UserID   string
	Task     string
	// EgressModeOverride is the per-call egress mode request. Per-call
	// overrides carry no allow-off permission of their own.
	EgressModeOverride string
}
