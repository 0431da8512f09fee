package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tidemill/llmgate/pkg/types"
)

type stubClient struct{ name string }

func (s *stubClient) Chat(ctx context.Context, messages []types.ChatMessage, model string, opts types.ChatOptions) (string, error) {
	return s.name, nil
}

func (s *stubClient) StreamChat(ctx context.Context, messages []types.ChatMessage, model string, opts types.ChatOptions) (<-chan types.StreamChunk, error) {
	ch := make(chan types.StreamChunk, 1)
	ch <- types.StreamChunk{Type: types.StreamDone}
	close(ch)
	return ch, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register("openai", &stubClient{name: "openai"})

	c, ok := r.Get("openai")
	assert.True(t, ok)
	assert.NotNil(t, c)

	_, ok = r.Get("unknown")
	assert.False(t, ok)
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register("openai", &stubClient{name: "v1"})
	r.Register("openai", &stubClient{name: "v2"})

	c, ok := r.Get("openai")
	assert.True(t, ok)
	got, _ := c.Chat(context.Background(), nil, "", types.ChatOptions{})
	assert.Equal(t, "v2", got)
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	r.Register("openai", &stubClient{})
	r.Register("anthropic", &stubClient{})

	assert.ElementsMatch(t, []string{"openai", "anthropic"}, r.List())
}
