package safeguards

import (
	"net/http/httptest"
	"testing"

	"github.com/viralcraft/core/internal/config"
)

func permissivePolicy() config.SafeguardsConfig {
	return config.SafeguardsConfig{
		AllowInteractive: true,
		AllowScheduled:   true,
		AllowBatch:       true,
	}
}

func TestDetectGenerationContext(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantSource string
	}{
		{name: "no header means interactive", header: "", wantSource: SourceInteractive},
		{name: "declared interactive", header: SourceInteractive, wantSource: SourceInteractive},
		{name: "declared scheduled", header: SourceScheduled, wantSource: SourceScheduled},
		{name: "declared batch", header: SourceBatch, wantSource: SourceBatch},
		{name: "unrecognized value", header: "cron-ish", wantSource: SourceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/generate-content", nil)
			if tt.header != "" {
				r.Header.Set(SourceHeader, tt.header)
			}

			got := DetectGenerationContext(r)
			if got.Source != tt.wantSource {
				t.Errorf("DetectGenerationContext() source = %q, want %q", got.Source, tt.wantSource)
			}
		})
	}

	if got := DetectGenerationContext(nil); got.Source != SourceUnknown {
		t.Errorf("nil request source = %q, want unknown", got.Source)
	}
}

func TestValidateKillSwitchDeniesEverything(t *testing.T) {
	policy := permissivePolicy()
	policy.KillSwitch = true
	gate := NewGate(policy)

	for _, source := range []string{SourceInteractive, SourceScheduled, SourceBatch, SourceUnknown} {
		decision := gate.Validate(Context{Source: source})
		if decision.Allowed {
			t.Errorf("kill switch should deny source %q", source)
		}
		if decision.Reason == "" {
			t.Errorf("denial for source %q should carry a reason", source)
		}
	}
}

func TestValidatePerSourceFlags(t *testing.T) {
	tests := []struct {
		name    string
		policy  config.SafeguardsConfig
		source  string
		allowed bool
	}{
		{name: "interactive allowed", policy: permissivePolicy(), source: SourceInteractive, allowed: true},
		{name: "scheduled allowed", policy: permissivePolicy(), source: SourceScheduled, allowed: true},
		{name: "batch allowed", policy: permissivePolicy(), source: SourceBatch, allowed: true},
		{
			name:   "interactive disabled",
			policy: config.SafeguardsConfig{AllowScheduled: true, AllowBatch: true},
			source: SourceInteractive,
		},
		{
			name:   "scheduled disabled",
			policy: config.SafeguardsConfig{AllowInteractive: true, AllowBatch: true},
			source: SourceScheduled,
		},
		{
			name:   "batch disabled",
			policy: config.SafeguardsConfig{AllowInteractive: true, AllowScheduled: true},
			source: SourceBatch,
		},
		{name: "unknown always denied", policy: permissivePolicy(), source: SourceUnknown},
		{name: "empty source denied", policy: permissivePolicy(), source: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := NewGate(tt.policy).Validate(Context{Source: tt.source})
			if decision.Allowed != tt.allowed {
				t.Errorf("Validate() allowed = %v, want %v (reason %q)", decision.Allowed, tt.allowed, decision.Reason)
			}
		})
	}
}

func TestScheduledContext(t *testing.T) {
	ctx := ScheduledContext()
	if ctx.Source != SourceScheduled {
		t.Errorf("ScheduledContext() source = %q, want %q", ctx.Source, SourceScheduled)
	}

	decision := NewGate(permissivePolicy()).Validate(ctx)
	if !decision.Allowed {
		t.Errorf("scheduled context should pass a permissive gate: %q", decision.Reason)
	}
}
