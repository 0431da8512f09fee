package egress

import (
	"context"

	"github.com/tidemill/llmgate/internal/observability"
)

// Next invokes the rest of the pipeline.
type Next func(ctx context.Context, gc Context) (Context, error)

// Aspect is one composable guard step. It may inspect or rewrite the guard
// context, call next zero or one times, and return the resulting context.
type Aspect func(ctx context.Context, gc Context, next Next) (Context, error)

// GuardConfig configures the baseline aspects.
type GuardConfig struct {
	// AllowedProviders is the provider allow-list. Empty disables the
	// allow-list check.
	AllowedProviders []string `yaml:"allowed_providers"`
}

// Guard runs the egress guard pipeline. The baseline allow-list and
// sanitization aspects are always prepended to caller-supplied extensions;
// aspects compose right to left so the first aspect is the outermost wrapper.
type Guard struct {
	aspects []Aspect
	logger  *observability.Logger
}

// NewGuard builds a guard with the baseline aspects plus any extensions.
func NewGuard(cfg GuardConfig, redactor *observability.Redactor, logger *observability.Logger, extensions ...Aspect) *Guard {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if redactor == nil {
		redactor = observability.NewRedactor()
	}

	aspects := []Aspect{
		AllowListAspect(cfg.AllowedProviders, logger),
		SanitizeAspect(redactor, logger),
	}
	aspects = append(aspects, extensions...)

	return &Guard{aspects: aspects, logger: logger}
}

// Guard runs the pipeline and returns the guarded context without executing
// anything.
func (g *Guard) Guard(ctx context.Context, gc Context) (Context, error) {
	chain := Next(func(ctx context.Context, gc Context) (Context, error) {
		return gc, nil
	})
	for i := len(g.aspects) - 1; i >= 0; i-- {
		aspect := g.aspects[i]
		inner := chain
		chain = func(ctx context.Context, gc Context) (Context, error) {
			return aspect(ctx, gc, inner)
		}
	}
	return chain(ctx, gc)
}

// GuardAndExecute runs the pipeline for g, then invokes execute exactly once
// with the final context. When any aspect aborts, execute is never called.
func GuardAndExecute[T any](ctx context.Context, g *Guard, gc Context, execute func(ctx context.Context, gc Context) (T, error)) (T, error) {
	var zero T
	guarded, err := g.Guard(ctx, gc)
	if err != nil {
		return zero, err
	}
	return execute(ctx, guarded)
}
