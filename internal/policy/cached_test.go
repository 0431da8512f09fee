package policy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemill/llmgate/internal/cache"
)

// countingStore wraps a Store and counts durable reads.
type countingStore struct {
	Store
	mu   sync.Mutex
	gets int
}

func (c *countingStore) GetPolicy(ctx context.Context, tenantID string) (*TenantPolicy, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.Store.GetPolicy(ctx, tenantID)
}

func (c *countingStore) getCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

func newCachedFixture(t *testing.T) (*CachedStore, *countingStore) {
	t.Helper()
	durable := &countingStore{Store: NewMemoryStore()}
	c := cache.New(cache.Config{Type: cache.BackendMemory}, nil)
	return NewCachedStore(durable, c, time.Minute, nil), durable
}

func TestCachedStore_ReadThroughAndRepopulate(t *testing.T) {
	cached, durable := newCachedFixture(t)
	ctx := context.Background()

	require.NoError(t, cached.SetPolicy(ctx, samplePolicy()))

	first, err := cached.GetPolicy(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, durable.getCount())

	// Second read is served from cache.
	second, err := cached.GetPolicy(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, durable.getCount())
}

func TestCachedStore_RoundTripEquality(t *testing.T) {
	cached, _ := newCachedFixture(t)
	ctx := context.Background()

	p := samplePolicy()
	require.NoError(t, cached.SetPolicy(ctx, p))

	// Both the cold read (durable) and the warm read (cache) must equal the
	// written policy.
	cold, err := cached.GetPolicy(ctx, p.TenantID)
	require.NoError(t, err)
	assert.Equal(t, p, cold)

	warm, err := cached.GetPolicy(ctx, p.TenantID)
	require.NoError(t, err)
	assert.Equal(t, p, warm)
}

func TestCachedStore_SetInvalidatesInsteadOfRepopulating(t *testing.T) {
	cached, durable := newCachedFixture(t)
	ctx := context.Background()

	p := samplePolicy()
	require.NoError(t, cached.SetPolicy(ctx, p))
	_, err := cached.GetPolicy(ctx, "acme") // populate cache
	require.NoError(t, err)

	updated := samplePolicy()
	updated.DefaultModel = "gpt-4o-mini"
	require.NoError(t, cached.SetPolicy(ctx, updated))

	// The write invalidated the entry; the next read must hit the durable
	// store and observe the new value.
	before := durable.getCount()
	got, err := cached.GetPolicy(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", got.DefaultModel)
	assert.Equal(t, before+1, durable.getCount())
}

func TestCachedStore_DeleteRemovesCacheEntry(t *testing.T) {
	cached, _ := newCachedFixture(t)
	ctx := context.Background()

	require.NoError(t, cached.SetPolicy(ctx, samplePolicy()))
	_, err := cached.GetPolicy(ctx, "acme")
	require.NoError(t, err)

	require.NoError(t, cached.DeletePolicy(ctx, "acme"))

	got, err := cached.GetPolicy(ctx, "acme")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCachedStore_AbsentTenantNotNegativelyCached(t *testing.T) {
	cached, durable := newCachedFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := cached.GetPolicy(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	// Every miss went to the durable store.
	assert.Equal(t, 3, durable.getCount())
}

func TestCachedStore_WorksWithPassthroughCache(t *testing.T) {
	durable := &countingStore{Store: NewMemoryStore()}
	cached := NewCachedStore(durable, cache.NewPassthrough(nil), 0, nil)
	ctx := context.Background()

	p := samplePolicy()
	require.NoError(t, cached.SetPolicy(ctx, p))

	// With a passthrough cache every read falls through to the durable
	// store; behavior is identical apart from the extra reads.
	for i := 0; i < 3; i++ {
		got, err := cached.GetPolicy(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	assert.Equal(t, 3, durable.getCount())
}
