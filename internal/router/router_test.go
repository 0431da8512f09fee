package router

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemill/llmgate/internal/egress"
	"github.com/tidemill/llmgate/internal/policy"
	"github.com/tidemill/llmgate/internal/provider"
	llmerrors "github.com/tidemill/llmgate/pkg/errors"
	"github.com/tidemill/llmgate/pkg/types"
)

// fakeClient records the last call it received and replies with canned data.
type fakeClient struct {
	calls     int
	lastModel string
	lastMsgs  []types.ChatMessage
	lastOpts  types.ChatOptions

	reply   string
	chatErr error
	chunks  []types.StreamChunk
}

func (f *fakeClient) Chat(ctx context.Context, messages []types.ChatMessage, model string, opts types.ChatOptions) (string, error) {
	f.calls++
	f.lastModel = model
	f.lastMsgs = messages
	f.lastOpts = opts
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return f.reply, nil
}

func (f *fakeClient) StreamChat(ctx context.Context, messages []types.ChatMessage, model string, opts types.ChatOptions) (<-chan types.StreamChunk, error) {
	f.calls++
	f.lastModel = model
	f.lastMsgs = messages
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	ch := make(chan types.StreamChunk, len(f.chunks))
	for _, chunk := range f.chunks {
		ch <- chunk
	}
	close(ch)
	return ch, nil
}

func modePtr(m policy.Mode) *policy.Mode { return &m }
func boolPtr(b bool) *bool               { return &b }

func newTestRouter(t *testing.T, client *fakeClient, tenant *policy.TenantPolicy, gcfg egress.GuardConfig) *Router {
	t.Helper()

	registry := provider.NewRegistry()
	if client != nil {
		registry.Register("openai", client)
	}

	store := policy.NewMemoryStore()
	if tenant != nil {
		require.NoError(t, store.SetPolicy(context.Background(), tenant))
	}

	guard := egress.NewGuard(gcfg, nil, nil)

	return New(Config{
		DefaultProvider: "openai",
		DefaultModel:    "gpt-4o-mini",
	}, registry, store, guard, nil)
}

func TestChat_UsesRouterDefaultsWithoutPolicy(t *testing.T) {
	client := &fakeClient{reply: "hello"}
	r := newTestRouter(t, client, nil, egress.GuardConfig{})

	got, err := r.Chat(context.Background(), []types.ChatMessage{{Role: "user", Content: "hi"}}, types.CallOptions{TenantID: "acme"})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, "gpt-4o-mini", client.lastModel)
}

func TestChat_TaskPolicySelectsProviderAndModel(t *testing.T) {
	client := &fakeClient{reply: "summarized"}
	registry := provider.NewRegistry()
	registry.Register("anthropic", client)

	store := policy.NewMemoryStore()
	require.NoError(t, store.SetPolicy(context.Background(), &policy.TenantPolicy{
		TenantID:        "acme",
		DefaultProvider: "openai",
		DefaultModel:    "gpt-4o",
		Tasks: []policy.TaskPolicy{{
			Task:        "summarize",
			Provider:    "anthropic",
			Model:       "claude-sonnet",
			Temperature: 0.2,
			MaxTokens:   512,
		}},
	}))

	r := New(Config{}, registry, store, egress.NewGuard(egress.GuardConfig{}, nil, nil), nil)

	got, err := r.Chat(context.Background(), []types.ChatMessage{{Role: "user", Content: "long text"}},
		types.CallOptions{TenantID: "acme", Task: "summarize"})
	require.NoError(t, err)
	assert.Equal(t, "summarized", got)
	assert.Equal(t, "claude-sonnet", client.lastModel)
	require.NotNil(t, client.lastOpts.Temperature)
	assert.Equal(t, 0.2, *client.lastOpts.Temperature)
	assert.Equal(t, 512, client.lastOpts.MaxTokens)
}

func TestChat_UnregisteredProviderFailsWithoutIO(t *testing.T) {
	client := &fakeClient{reply: "never"}
	registry := provider.NewRegistry()
	registry.Register("openai", client)

	store := policy.NewMemoryStore()
	require.NoError(t, store.SetPolicy(context.Background(), &policy.TenantPolicy{
		TenantID:        "acme",
		DefaultProvider: "missing-provider",
		DefaultModel:    "some-model",
	}))

	r := New(Config{DefaultProvider: "openai"}, registry, store,
		egress.NewGuard(egress.GuardConfig{}, nil, nil), nil)

	_, err := r.Chat(context.Background(), []types.ChatMessage{{Role: "user", Content: "hi"}},
		types.CallOptions{TenantID: "acme"})
	require.Error(t, err)

	var llmErr *llmerrors.LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, llmerrors.TypeConfiguration, llmErr.Type)
	assert.Zero(t, client.calls)
}

func TestChat_AllowListBlocksInEnforceMode(t *testing.T) {
	client := &fakeClient{reply: "never"}
	tenant := &policy.TenantPolicy{
		TenantID:   "acme",
		EgressMode: modePtr(policy.ModeEnforce),
	}
	r := newTestRouter(t, client, tenant, egress.GuardConfig{AllowedProviders: []string{"anthropic"}})

	_, err := r.Chat(context.Background(), []types.ChatMessage{{Role: "user", Content: "hi"}},
		types.CallOptions{TenantID: "acme"})
	require.Error(t, err)

	var llmErr *llmerrors.LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, llmerrors.TypePolicyViolation, llmErr.Type)
	assert.Zero(t, client.calls)
}

func TestChat_AllowListPassesInReportOnlyMode(t *testing.T) {
	client := &fakeClient{reply: "observed"}
	tenant := &policy.TenantPolicy{
		TenantID:   "acme",
		EgressMode: modePtr(policy.ModeReportOnly),
	}
	r := newTestRouter(t, client, tenant, egress.GuardConfig{AllowedProviders: []string{"anthropic"}})

	got, err := r.Chat(context.Background(), []types.ChatMessage{{Role: "user", Content: "hi"}},
		types.CallOptions{TenantID: "acme"})
	require.NoError(t, err)
	assert.Equal(t, "observed", got)
	assert.Equal(t, 1, client.calls)
}

func TestChat_EnforceModeSanitizesOutboundPayload(t *testing.T) {
	client := &fakeClient{reply: "done"}
	tenant := &policy.TenantPolicy{
		TenantID:   "acme",
		EgressMode: modePtr(policy.ModeEnforce),
	}
	r := newTestRouter(t, client, tenant, egress.GuardConfig{})

	_, err := r.Chat(context.Background(),
		[]types.ChatMessage{{Role: "user", Content: "contact alice@example.com please"}},
		types.CallOptions{TenantID: "acme"})
	require.NoError(t, err)
	require.Len(t, client.lastMsgs, 1)
	assert.NotContains(t, client.lastMsgs[0].Content, "alice@example.com")
}

func TestChat_ReportOnlyModeSendsOriginalPayload(t *testing.T) {
	client := &fakeClient{reply: "done"}
	tenant := &policy.TenantPolicy{
		TenantID:   "acme",
		EgressMode: modePtr(policy.ModeReportOnly),
	}
	r := newTestRouter(t, client, tenant, egress.GuardConfig{})

	_, err := r.Chat(context.Background(),
		[]types.ChatMessage{{Role: "user", Content: "contact alice@example.com please"}},
		types.CallOptions{TenantID: "acme"})
	require.NoError(t, err)
	require.Len(t, client.lastMsgs, 1)
	assert.Contains(t, client.lastMsgs[0].Content, "alice@example.com")
}

func TestChat_OffOverrideRequiresGrant(t *testing.T) {
	client := &fakeClient{reply: "done"}
	tenant := &policy.TenantPolicy{
		TenantID:     "acme",
		EgressMode:   modePtr(policy.ModeEnforce),
		AllowOffMode: boolPtr(false),
	}
	r := newTestRouter(t, client, tenant, egress.GuardConfig{})

	// The off request is rejected, so enforce still applies and the email is
	// redacted on the wire.
	_, err := r.Chat(context.Background(),
		[]types.ChatMessage{{Role: "user", Content: "mail alice@example.com"}},
		types.CallOptions{TenantID: "acme", EgressModeOverride: "off"})
	require.NoError(t, err)
	require.Len(t, client.lastMsgs, 1)
	assert.NotContains(t, client.lastMsgs[0].Content, "alice@example.com")
}

func TestChat_OffOverrideHonoredWhenGranted(t *testing.T) {
	client := &fakeClient{reply: "done"}
	tenant := &policy.TenantPolicy{
		TenantID:     "acme",
		EgressMode:   modePtr(policy.ModeEnforce),
		AllowOffMode: boolPtr(true),
	}
	r := newTestRouter(t, client, tenant, egress.GuardConfig{})

	_, err := r.Chat(context.Background(),
		[]types.ChatMessage{{Role: "user", Content: "mail alice@example.com"}},
		types.CallOptions{TenantID: "acme", EgressModeOverride: "off"})
	require.NoError(t, err)
	require.Len(t, client.lastMsgs, 1)
	assert.Contains(t, client.lastMsgs[0].Content, "alice@example.com")
}

func TestChat_UnknownOverrideIsInvalidRequest(t *testing.T) {
	client := &fakeClient{reply: "never"}
	r := newTestRouter(t, client, nil, egress.GuardConfig{})

	_, err := r.Chat(context.Background(), []types.ChatMessage{{Role: "user", Content: "hi"}},
		types.CallOptions{TenantID: "acme", EgressModeOverride: "paranoid"})
	require.Error(t, err)

	var llmErr *llmerrors.LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, llmerrors.TypeInvalidRequest, llmErr.Type)
	assert.Zero(t, client.calls)
}

func TestChat_WrapsProviderError(t *testing.T) {
	client := &fakeClient{chatErr: fmt.Errorf("connection reset")}
	r := newTestRouter(t, client, nil, egress.GuardConfig{})

	_, err := r.Chat(context.Background(), []types.ChatMessage{{Role: "user", Content: "hi"}},
		types.CallOptions{TenantID: "acme"})
	require.Error(t, err)

	var llmErr *llmerrors.LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, llmerrors.TypeProvider, llmErr.Type)
	assert.Equal(t, "openai", llmErr.Provider)
}

func TestStreamChat_ForwardsDeltasAndDone(t *testing.T) {
	client := &fakeClient{chunks: []types.StreamChunk{
		{Type: types.StreamText, Delta: "Hel"},
		{Type: types.StreamText, Delta: "lo"},
		{Type: types.StreamDone},
	}}
	r := newTestRouter(t, client, nil, egress.GuardConfig{})

	stream, err := r.StreamChat(context.Background(),
		[]types.ChatMessage{{Role: "user", Content: "hi"}}, types.CallOptions{TenantID: "acme"})
	require.NoError(t, err)

	var chunks []types.StreamChunk
	for chunk := range stream {
		chunks = append(chunks, chunk)
	}
	require.Len(t, chunks, 3)
	assert.Equal(t, "Hel", chunks[0].Delta)
	assert.Equal(t, "lo", chunks[1].Delta)
	assert.Equal(t, types.StreamDone, chunks[2].Type)
}

func TestStreamChat_MidStreamErrorIsTerminal(t *testing.T) {
	client := &fakeClient{chunks: []types.StreamChunk{
		{Type: types.StreamText, Delta: "partial"},
		{Type: types.StreamError, Err: fmt.Errorf("upstream reset")},
		{Type: types.StreamText, Delta: "never delivered"},
	}}
	r := newTestRouter(t, client, nil, egress.GuardConfig{})

	stream, err := r.StreamChat(context.Background(),
		[]types.ChatMessage{{Role: "user", Content: "hi"}}, types.CallOptions{TenantID: "acme"})
	require.NoError(t, err)

	var chunks []types.StreamChunk
	for chunk := range stream {
		chunks = append(chunks, chunk)
	}
	require.Len(t, chunks, 2)
	assert.Equal(t, "partial", chunks[0].Delta)
	assert.Equal(t, types.StreamError, chunks[1].Type)

	var llmErr *llmerrors.LLMError
	require.True(t, errors.As(chunks[1].Err, &llmErr))
	assert.Equal(t, llmerrors.TypeProvider, llmErr.Type)
}

func TestStreamChat_CallFailureBecomesErrorChunk(t *testing.T) {
	client := &fakeClient{chatErr: fmt.Errorf("dial refused")}
	r := newTestRouter(t, client, nil, egress.GuardConfig{})

	stream, err := r.StreamChat(context.Background(),
		[]types.ChatMessage{{Role: "user", Content: "hi"}}, types.CallOptions{TenantID: "acme"})
	require.NoError(t, err)

	var chunks []types.StreamChunk
	for chunk := range stream {
		chunks = append(chunks, chunk)
	}
	require.Len(t, chunks, 1)
	assert.Equal(t, types.StreamError, chunks[0].Type)
	assert.Error(t, chunks[0].Err)
}

func TestStreamChat_PolicyViolationFailsSynchronously(t *testing.T) {
	client := &fakeClient{chunks: []types.StreamChunk{{Type: types.StreamDone}}}
	tenant := &policy.TenantPolicy{
		TenantID:   "acme",
		EgressMode: modePtr(policy.ModeEnforce),
	}
	r := newTestRouter(t, client, tenant, egress.GuardConfig{AllowedProviders: []string{"anthropic"}})

	_, err := r.StreamChat(context.Background(),
		[]types.ChatMessage{{Role: "user", Content: "hi"}}, types.CallOptions{TenantID: "acme"})
	require.Error(t, err)

	var llmErr *llmerrors.LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, llmerrors.TypePolicyViolation, llmErr.Type)
	assert.Zero(t, client.calls)
}

func TestStreamChat_ProviderClosingWithoutTerminalGetsDone(t *testing.T) {
	client := &fakeClient{chunks: []types.StreamChunk{
		{Type: types.StreamText, Delta: "dangling"},
	}}
	r := newTestRouter(t, client, nil, egress.GuardConfig{})

	stream, err := r.StreamChat(context.Background(),
		[]types.ChatMessage{{Role: "user", Content: "hi"}}, types.CallOptions{TenantID: "acme"})
	require.NoError(t, err)

	var chunks []types.StreamChunk
	for chunk := range stream {
		chunks = append(chunks, chunk)
	}
	require.Len(t, chunks, 2)
	assert.Equal(t, types.StreamDone, chunks[1].Type)
}

func TestChat_UserPolicyOverridesTenantMode(t *testing.T) {
	client := &fakeClient{reply: "done"}
	tenant := &policy.TenantPolicy{
		TenantID:   "acme",
		EgressMode: modePtr(policy.ModeEnforce),
		UserPolicies: map[string]policy.UserPolicy{
			"auditor": {EgressMode: modePtr(policy.ModeReportOnly)},
		},
	}
	r := newTestRouter(t, client, tenant, egress.GuardConfig{})

	_, err := r.Chat(context.Background(),
		[]types.ChatMessage{{Role: "user", Content: "mail alice@example.com"}},
		types.CallOptions{TenantID: "acme", UserID: "auditor"})
	require.NoError(t, err)
	require.Len(t, client.lastMsgs, 1)
	assert.Contains(t, client.lastMsgs[0].Content, "alice@example.com")
}
