// Package llmgate provides a multi-tenant LLM routing and egress-control
// core as a Go library.
//
// Callers route chat traffic through a Router, which looks up the tenant's
// policy, resolves the effective data-egress mode, runs the egress guard
// pipeline, and dispatches to a registered provider adapter:
//
//	cfg, err := config.LoadFromFile("llmgate.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	gw, err := llmgate.NewGateway(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reply, err := gw.Chat(ctx, []llmgate.ChatMessage{
//	    {Role: "user", Content: "Hello!"},
//	}, llmgate.CallOptions{TenantID: "acme", Task: "main-chat"})
package llmgate

import (
	"github.com/tidemill/llmgate/internal/cache"
	"github.com/tidemill/llmgate/internal/config"
	"github.com/tidemill/llmgate/internal/egress"
	"github.com/tidemill/llmgate/internal/observability"
	"github.com/tidemill/llmgate/internal/policy"
	"github.com/tidemill/llmgate/internal/provider"
	"github.com/tidemill/llmgate/internal/provider/openailike"
	"github.com/tidemill/llmgate/internal/router"
	"github.com/tidemill/llmgate/pkg/errors"
	"github.com/tidemill/llmgate/pkg/types"
)

// Version is the current version of llmgate.
const Version = "1.0.0"

// Re-export core call types for convenience.
type (
	// ChatMessage is a single message in the conversation.
	ChatMessage = types.ChatMessage

	// ChatOptions carries per-call generation parameters.
	ChatOptions = types.ChatOptions

	// CallOptions identifies the tenant, user, and task for one call.
	CallOptions = types.CallOptions

	// GuardedRequest is the outbound payload the guard pipeline inspects.
	GuardedRequest = types.GuardedRequest

	// StreamChunk is one element of a streaming response.
	StreamChunk = types.StreamChunk
)

// Re-export stream chunk variants.
const (
	StreamText  = types.StreamText
	StreamDone  = types.StreamDone
	StreamError = types.StreamError
)

// Re-export policy types.
type (
	// Mode is the data-egress enforcement level.
	Mode = policy.Mode

	// TenantPolicy is the per-tenant routing and egress policy.
	TenantPolicy = policy.TenantPolicy

	// TaskPolicy overrides provider and model selection per named workload.
	TaskPolicy = policy.TaskPolicy

	// UserPolicy is a sparse per-user egress override.
	UserPolicy = policy.UserPolicy

	// PolicyStore is the tenant policy persistence interface.
	PolicyStore = policy.Store
)

// Re-export egress modes.
const (
	ModeEnforce    = policy.ModeEnforce
	ModeReportOnly = policy.ModeReportOnly
	ModeOff        = policy.ModeOff
)

// Re-export routing and guard types.
type (
	// Router routes chat calls to provider clients under tenant policy.
	Router = router.Router

	// Guard runs the egress guard pipeline.
	Guard = egress.Guard

	// GuardContext is the value threaded through the guard pipeline.
	GuardContext = egress.Context

	// Aspect is one composable guard pipeline step.
	Aspect = egress.Aspect

	// Provider is the capability contract vendor adapters implement.
	Provider = provider.Client

	// ProviderRegistry maps provider ids to clients.
	ProviderRegistry = provider.Registry

	// Cache is the transparent cache handed to consumers.
	Cache = cache.Cache
)

// Re-export error types.
type (
	// LLMError is the uniform error wrapper for all failures.
	LLMError = errors.LLMError
)

// Re-export error type constants.
const (
	TypeConfiguration      = errors.TypeConfiguration
	TypePolicyViolation    = errors.TypePolicyViolation
	TypeRateLimit          = errors.TypeRateLimit
	TypeInvalidRequest     = errors.TypeInvalidRequest
	TypeTimeout            = errors.TypeTimeout
	TypeServiceUnavailable = errors.TypeServiceUnavailable
	TypeProvider           = errors.TypeProvider
	TypeInternalError      = errors.TypeInternalError
)

// ResolveEgressMode computes the effective egress mode from the base mode,
// tenant policy, and call-level inputs. Pure and deterministic.
func ResolveEgressMode(baseMode Mode, tenant *TenantPolicy, opts policy.ResolveOptions) policy.Resolution {
	return policy.Resolve(baseMode, tenant, opts)
}

// NewGateway assembles a router from a validated configuration: logger,
// cache, policy store, provider registry, and guard pipeline.
func NewGateway(cfg *config.Config) (*Router, error) {
	redactor := observability.NewRedactor()
	logger := observability.NewLogger(cfg.LoggerConfig(), redactor)

	c := cache.New(cfg.Cache, logger)

	store, err := policy.NewStore(cfg.Policy, c, logger)
	if err != nil {
		return nil, err
	}

	registry := provider.NewRegistry()
	for _, pc := range cfg.Providers {
		client, err := openailike.New(pc)
		if err != nil {
			return nil, err
		}
		registry.Register(pc.Name, client)
	}

	var extensions []egress.Aspect
	if cfg.Egress.RateLimit.RequestsPerSecond > 0 {
		extensions = append(extensions, egress.RateLimitAspect(cfg.Egress.RateLimit))
	}
	guard := egress.NewGuard(egress.GuardConfig{
		AllowedProviders: cfg.Egress.AllowedProviders,
	}, redactor, logger, extensions...)

	return router.New(cfg.Router, registry, store, guard, logger), nil
}
