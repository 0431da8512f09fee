package egress

import (
	"context"
	"fmt"
	"slices"

	llmerrors "github.com/tidemill/llmgate/pkg/errors"

	"github.com/tidemill/llmgate/internal/metrics"
	"github.com/tidemill/llmgate/internal/observability"
	"github.com/tidemill/llmgate/internal/policy"
)

// MetadataKeyPolicyViolation marks a report-only allow-list violation.
const MetadataKeyPolicyViolation = "egress_policy_violation"

// MetadataKeyPolicyReason carries the human-readable violation reason.
const MetadataKeyPolicyReason = "egress_policy_reason"

// AllowListAspect checks the context's provider against the configured
// allow-list. In enforce mode a disallowed provider aborts the call before
// any provider I/O; in report-only mode the violation is annotated and the
// call continues; in off mode the aspect is skipped entirely.
func AllowListAspect(allowed []string, logger *observability.Logger) Aspect {
	return func(ctx context.Context, gc Context, next Next) (Context, error) {
		if gc.Mode == policy.ModeOff || len(allowed) == 0 {
			return next(ctx, gc)
		}

		if slices.Contains(allowed, gc.ProviderID) {
			return next(ctx, gc)
		}

		reason := fmt.Sprintf("provider %q is not on the egress allow-list", gc.ProviderID)
		metrics.EgressViolations.WithLabelValues(gc.TenantID, string(gc.Mode)).Inc()

		if gc.Mode == policy.ModeEnforce {
			return gc, llmerrors.NewPolicyViolationError(gc.ProviderID, requestModel(gc), reason)
		}

		logger.Warn("egress policy violation",
			"tenant_id", gc.TenantID, "provider", gc.ProviderID, "reason", reason)
		gc = gc.WithMetadata(MetadataKeyPolicyViolation, true)
		gc = gc.WithMetadata(MetadataKeyPolicyReason, reason)
		return next(ctx, gc)
	}
}

func requestModel(gc Context) string {
	if gc.Request == nil {
		return ""
	}
	return gc.Request.Model
}
