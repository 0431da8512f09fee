// Package policy holds the per-tenant routing and egress policy model, the
// egress mode resolver, and the policy store implementations.
package policy

// Mode is the data-egress enforcement level applied to an outbound call.
type Mode string

const (
	// ModeEnforce sanitizes the payload and dispatches the sanitized copy.
	ModeEnforce Mode = "enforce"
	// ModeReportOnly logs would-be sanitization and dispatches the original.
	ModeReportOnly Mode = "report-only"
	// ModeOff disables guarding entirely. Only effective when explicitly
	// permitted via AllowOffMode.
	ModeOff Mode = "off"
)

// Valid reports whether m is a known egress mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeEnforce, ModeReportOnly, ModeOff:
		return true
	}
	return false
}

// ParseMode converts a string to a Mode, reporting whether it was recognized.
func ParseMode(s string) (Mode, bool) {
	m := Mode(s)
	return m, m.Valid()
}

// TaskPolicy overrides provider and model selection for one named workload
// (e.g. "main-chat", "egress-guard", "pii-sanitizer").
type TaskPolicy struct {
	Task        string  `json:"task"`
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// UserPolicy is a sparse per-user egress override scoped to one tenant.
// Pointer fields distinguish "absent, inherit" from an explicit value.
type UserPolicy struct {
	EgressMode   *Mode `json:"egress_mode,omitempty"`
	AllowOffMode *bool `json:"allow_off_mode,omitempty"`
}

// TenantPolicy is the per-tenant routing and egress policy. One per tenant,
// created on first configuration and mutated by admin action.
type TenantPolicy struct {
	TenantID          string                `json:"tenant_id"`
	DefaultProvider   string                `json:"default_provider"`
	DefaultModel      string                `json:"default_model"`
	AllowRemoteEgress bool                  `json:"allow_remote_egress"`
	Tasks             []TaskPolicy          `json:"tasks,omitempty"`
	EgressMode        *Mode                 `json:"egress_mode,omitempty"`
	AllowOffMode      *bool                 `json:"allow_off_mode,omitempty"`
	UserPolicies      map[string]UserPolicy `json:"user_policies,omitempty"`
}

// TaskFor returns the task policy matching name exactly, or nil when the
// tenant has no override for it.
func (p *TenantPolicy) TaskFor(name string) *TaskPolicy {
	if p == nil || name == "" {
		return nil
	}
	for i := range p.Tasks {
		if p.Tasks[i].Task == name {
			return &p.Tasks[i]
		}
	}
	return nil
}

// Clone returns a deep copy so stores can hand out policies without sharing
// mutable state with callers.
func (p *TenantPolicy) Clone() *TenantPolicy {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Tasks != nil {
		cp.Tasks = make([]TaskPolicy, len(p.Tasks))
		copy(cp.Tasks, p.Tasks)
	}
	if p.EgressMode != nil {
		mode := *p.EgressMode
		cp.EgressMode = &mode
	}
	if p.AllowOffMode != nil {
		allow := *p.AllowOffMode
		cp.AllowOffMode = &allow
	}
	if p.UserPolicies != nil {
		cp.UserPolicies = make(map[string]UserPolicy, len(p.UserPolicies))
		for id, up := range p.UserPolicies {
			cp.UserPolicies[id] = up.clone()
		}
	}
	return &cp
}

func (u UserPolicy) clone() UserPolicy {
	cp := u
	if u.EgressMode != nil {
		mode := *u.EgressMode
		cp.EgressMode = &mode
	}
	if u.AllowOffMode != nil {
		allow := *u.AllowOffMode
		cp.AllowOffMode = &allow
	}
	return cp
}
