// Package router orchestrates policy lookup, egress mode resolution,
// provider selection, and pipeline-guarded invocation for single-shot and
// streaming LLM calls.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tidemill/llmgate/internal/egress"
	"github.com/tidemill/llmgate/internal/metrics"
	"github.com/tidemill/llmgate/internal/observability"
	"github.com/tidemill/llmgate/internal/policy"
	"github.com/tidemill/llmgate/internal/provider"
	llmerrors "github.com/tidemill/llmgate/pkg/errors"
	"github.com/tidemill/llmgate/pkg/types"
)

// Config holds router defaults used when a tenant has no policy.
type Config struct {
	DefaultProvider string `yaml:"default_provider"`
	DefaultModel    string `yaml:"default_model"`
	// BaseEgressMode is the mode before any policy layer applies.
	BaseEgressMode policy.Mode `yaml:"base_egress_mode"`
}

// Router routes chat calls to provider clients under tenant policy. A Router
// owns one provider registry, one policy store, and one egress guard; there
// is no ambient global state.
type Router struct {
	cfg       Config
	providers *provider.Registry
	policies  policy.Store
	guard     *egress.Guard
	logger    *observability.Logger
}

// New constructs a router. The base egress mode defaults to enforce.
func New(cfg Config, providers *provider.Registry, policies policy.Store, guard *egress.Guard, logger *observability.Logger) *Router {
	if cfg.BaseEgressMode == "" {
		cfg.BaseEgressMode = policy.ModeEnforce
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Router{
		cfg:       cfg,
		providers: providers,
		policies:  policies,
		guard:     guard,
		logger:    logger,
	}
}

// route is one resolved dispatch decision.
type route struct {
	client     provider.Client
	providerID string
	gc         egress.Context
}

// resolveRoute runs steps 1-5 shared by Chat and StreamChat: policy lookup,
// provider/model resolution, registry lookup, mode resolution, and guard
// context construction.
func (r *Router) resolveRoute(ctx context.Context, messages []types.ChatMessage, opts types.CallOptions) (*route, error) {
	tenant, err := r.policies.GetPolicy(ctx, opts.TenantID)
	if err != nil {
		return nil, llmerrors.NewInternalError("gateway", "",
			fmt.Sprintf("policy lookup failed for tenant %q: %v", opts.TenantID, err))
	}

	providerID := r.cfg.DefaultProvider
	model := r.cfg.DefaultModel
	var chatOpts types.ChatOptions

	if tenant != nil {
		if tenant.DefaultProvider != "" {
			providerID = tenant.DefaultProvider
		}
		if tenant.DefaultModel != "" {
			model = tenant.DefaultModel
		}
		if task := tenant.TaskFor(opts.Task); task != nil {
			providerID = task.Provider
			model = task.Model
			temp := task.Temperature
			chatOpts.Temperature = &temp
			chatOpts.MaxTokens = task.MaxTokens
		}
	}

	client, ok := r.providers.Get(providerID)
	if !ok {
		return nil, llmerrors.NewConfigurationError(providerID, model,
			fmt.Sprintf("no provider client registered for %q", providerID))
	}

	var override *policy.Mode
	if opts.EgressModeOverride != "" {
		mode, ok := policy.ParseMode(opts.EgressModeOverride)
		if !ok {
			return nil, llmerrors.NewInvalidRequestError(providerID, model,
				fmt.Sprintf("unknown egress mode %q", opts.EgressModeOverride))
		}
		override = &mode
	}

	res := policy.Resolve(r.cfg.BaseEgressMode, tenant, policy.ResolveOptions{
		UserID:             opts.UserID,
		EgressModeOverride: override,
	})

	gc := egress.Context{
		Target:     "llm",
		ProviderID: providerID,
		TenantID:   opts.TenantID,
		Task:       opts.Task,
		Mode:       res.EffectiveMode,
		Request: &types.GuardedRequest{
			Messages: messages,
			Model:    model,
			Options:  chatOpts,
		},
		Metadata: map[string]any{
			"request_id":     uuid.NewString(),
			"requested_mode": string(res.RequestedMode),
			"effective_mode": string(res.EffectiveMode),
		},
	}

	return &route{client: client, providerID: providerID, gc: gc}, nil
}

// Chat routes a single-shot call and returns the provider's text result.
func (r *Router) Chat(ctx context.Context, messages []types.ChatMessage, opts types.CallOptions) (string, error) {
	rt, err := r.resolveRoute(ctx, messages, opts)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(opts.TenantID, "unresolved", "error").Inc()
		return "", err
	}

	start := time.Now()
	result, err := egress.GuardAndExecute(ctx, r.guard, rt.gc,
		func(ctx context.Context, gc egress.Context) (string, error) {
			return rt.client.Chat(ctx, gc.Request.Messages, gc.Request.Model, gc.Request.Options)
		})
	metrics.RequestDuration.WithLabelValues(rt.providerID).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.RequestsTotal.WithLabelValues(opts.TenantID, rt.providerID, "error").Inc()
		return "", wrapProviderError(rt.providerID, rt.gc.Request.Model, err)
	}

	metrics.RequestsTotal.WithLabelValues(opts.TenantID, rt.providerID, "ok").Inc()
	return result, nil
}

// StreamChat routes a streaming call. Routing and policy failures are
// returned synchronously; provider failures after that point arrive as a
// terminal error chunk, so the returned stream always closes deterministically.
func (r *Router) StreamChat(ctx context.Context, messages []types.ChatMessage, opts types.CallOptions) (<-chan types.StreamChunk, error) {
	rt, err := r.resolveRoute(ctx, messages, opts)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(opts.TenantID, "unresolved", "error").Inc()
		return nil, err
	}

	src, err := egress.GuardAndExecute(ctx, r.guard, rt.gc,
		func(ctx context.Context, gc egress.Context) (<-chan types.StreamChunk, error) {
			return rt.client.StreamChat(ctx, gc.Request.Messages, gc.Request.Model, gc.Request.Options)
		})
	if err != nil {
		var llmErr *llmerrors.LLMError
		if errors.As(err, &llmErr) && llmErr.Type == llmerrors.TypePolicyViolation {
			// Guard abort: no provider I/O happened, fail the call itself.
			metrics.RequestsTotal.WithLabelValues(opts.TenantID, rt.providerID, "error").Inc()
			return nil, err
		}
		if errors.As(err, &llmErr) && (llmErr.Type == llmerrors.TypeConfiguration || llmErr.Type == llmerrors.TypeRateLimit || llmErr.Type == llmerrors.TypeInvalidRequest) {
			metrics.RequestsTotal.WithLabelValues(opts.TenantID, rt.providerID, "error").Inc()
			return nil, err
		}
		// The provider call itself failed: deliver a terminal error chunk.
		out := make(chan types.StreamChunk, 1)
		out <- types.StreamChunk{
			Type: types.StreamError,
			Err:  wrapProviderError(rt.providerID, rt.gc.Request.Model, err),
		}
		close(out)
		metrics.StreamErrors.WithLabelValues(rt.providerID).Inc()
		return out, nil
	}

	out := make(chan types.StreamChunk)
	go r.forwardStream(ctx, rt, src, out, opts.TenantID)
	return out, nil
}

// forwardStream relays provider chunks in emission order and guarantees the
// output ends with exactly one terminal chunk before closing.
func (r *Router) forwardStream(ctx context.Context, rt *route, src <-chan types.StreamChunk, out chan<- types.StreamChunk, tenantID string) {
	defer close(out)

	emit := func(chunk types.StreamChunk) bool {
		select {
		case out <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for chunk := range src {
		switch chunk.Type {
		case types.StreamText:
			if !emit(chunk) {
				return
			}
		case types.StreamDone:
			metrics.RequestsTotal.WithLabelValues(tenantID, rt.providerID, "ok").Inc()
			emit(chunk)
			return
		case types.StreamError:
			chunk.Err = wrapProviderError(rt.providerID, rt.gc.Request.Model, chunk.Err)
			metrics.StreamErrors.WithLabelValues(rt.providerID).Inc()
			metrics.RequestsTotal.WithLabelValues(tenantID, rt.providerID, "error").Inc()
			emit(chunk)
			return
		}
	}

	// The provider closed its channel without a terminal chunk. Close the
	// stream deterministically anyway.
	metrics.RequestsTotal.WithLabelValues(tenantID, rt.providerID, "ok").Inc()
	emit(types.StreamChunk{Type: types.StreamDone})
}

// wrapProviderError ensures every failure surfaces as an LLMError.
func wrapProviderError(providerID, model string, err error) error {
	if err == nil {
		return nil
	}
	var llmErr *llmerrors.LLMError
	if errors.As(err, &llmErr) {
		return err
	}
	return llmerrors.NewProviderError(providerID, model, err)
}
