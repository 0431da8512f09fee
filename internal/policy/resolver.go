package policy

// ResolveOptions carries the call-level inputs to mode resolution.
type ResolveOptions struct {
	UserID string
	// EgressModeOverride is the per-call mode request. Per-call overrides
	// cannot carry their own AllowOffMode; the permission must already be
	// granted by a tenant or user layer.
	EgressModeOverride *Mode
}

// Resolution is the outcome of egress mode resolution. RequestedMode records
// the most specific caller intent even when it was rejected; EffectiveMode is
// what the guard pipeline actually enforces. The separation exists for audit
// logging.
type Resolution struct {
	RequestedMode Mode
	EffectiveMode Mode
}

// Resolve computes the effective egress mode from the base mode and the
// tenant, user, and per-call layers, in increasing specificity.
//
// Each layer may carry an AllowOffMode and/or an EgressMode. An explicit
// AllowOffMode shadows the inherited permission; an absent one inherits it.
// A requested "off" takes effect only when the permission is true at that
// point; a rejected "off" leaves the effective mode frozen at whatever the
// prior layers established, not reset to the base mode. "enforce" and
// "report-only" are always permitted.
func Resolve(baseMode Mode, tenant *TenantPolicy, opts ResolveOptions) Resolution {
	effective := baseMode
	requested := baseMode
	allowOff := false

	apply := func(mode *Mode, allow *bool) {
		if allow != nil {
			allowOff = *allow
		}
		if mode == nil {
			return
		}
		requested = *mode
		if *mode == ModeOff {
			if allowOff {
				effective = ModeOff
			}
			return
		}
		effective = *mode
	}

	if tenant != nil {
		apply(tenant.EgressMode, tenant.AllowOffMode)

		if opts.UserID != "" {
			if up, ok := tenant.UserPolicies[opts.UserID]; ok {
				apply(up.EgressMode, up.AllowOffMode)
			}
		}
	}

	if opts.EgressModeOverride != nil {
		apply(opts.EgressModeOverride, nil)
	}

	return Resolution{RequestedMode: requested, EffectiveMode: effective}
}
