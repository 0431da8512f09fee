package egress

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemill/llmgate/internal/policy"
	llmerrors "github.com/tidemill/llmgate/pkg/errors"
)

func TestRateLimit_BlocksAfterBurst(t *testing.T) {
	g := NewGuard(GuardConfig{}, nil, nil,
		RateLimitAspect(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))

	ctx := context.Background()
	gc := testContext(policy.ModeEnforce, "openai")

	for i := 0; i < 2; i++ {
		_, err := g.Guard(ctx, gc)
		require.NoError(t, err)
	}

	_, err := g.Guard(ctx, gc)
	require.Error(t, err)

	var llmErr *llmerrors.LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, llmerrors.TypeRateLimit, llmErr.Type)
}

func TestRateLimit_TenantsIsolated(t *testing.T) {
	g := NewGuard(GuardConfig{}, nil, nil,
		RateLimitAspect(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}))

	ctx := context.Background()

	first := testContext(policy.ModeEnforce, "openai")
	_, err := g.Guard(ctx, first)
	require.NoError(t, err)

	// Exhausting acme's bucket does not affect another tenant.
	other := first
	other.TenantID = "globex"
	_, err = g.Guard(ctx, other)
	assert.NoError(t, err)

	_, err = g.Guard(ctx, first)
	assert.Error(t, err)
}
