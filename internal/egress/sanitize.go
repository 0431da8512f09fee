package egress

import (
	"context"

	"github.com/tidemill/llmgate/internal/metrics"
	"github.com/tidemill/llmgate/internal/observability"
	"github.com/tidemill/llmgate/internal/policy"
	"github.com/tidemill/llmgate/pkg/types"
)

// MetadataKeyRedactionApplied records whether sanitization changed the request.
const MetadataKeyRedactionApplied = "redaction_applied"

// SanitizeAspect runs the outbound request through the redaction transform.
// The transform rewrites sensitive substrings only; it never removes fields
// and is idempotent. In enforce mode the sanitized copy is dispatched; in
// report-only mode the original is dispatched and the would-be change is
// annotated and logged; in off mode sanitization is skipped.
func SanitizeAspect(redactor *observability.Redactor, logger *observability.Logger) Aspect {
	return func(ctx context.Context, gc Context, next Next) (Context, error) {
		if gc.Mode == policy.ModeOff || gc.Request == nil {
			return next(ctx, gc)
		}

		sanitized, changed := sanitizeRequest(redactor, gc.Request)

		gc.OriginalRequest = gc.Request
		gc.SanitizedRequest = sanitized
		gc = gc.WithMetadata(MetadataKeyRedactionApplied, changed)

		if changed {
			metrics.RedactionsApplied.WithLabelValues(gc.TenantID).Inc()
		}

		switch gc.Mode {
		case policy.ModeEnforce:
			gc.Request = sanitized
		case policy.ModeReportOnly:
			if changed {
				logger.Warn("sanitization would have rewritten outbound request",
					"tenant_id", gc.TenantID, "provider", gc.ProviderID, "task", gc.Task)
			}
		}

		return next(ctx, gc)
	}
}

// sanitizeRequest redacts every message of the request, reporting whether the
// sanitized copy differs from the input.
func sanitizeRequest(redactor *observability.Redactor, req *types.GuardedRequest) (*types.GuardedRequest, bool) {
	sanitized := req.Clone()
	changed := false
	for i := range sanitized.Messages {
		redacted := redactor.Redact(sanitized.Messages[i].Content)
		if redacted != sanitized.Messages[i].Content {
			sanitized.Messages[i].Content = redacted
			changed = true
		}
	}
	return sanitized, changed
}
