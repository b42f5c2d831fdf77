// Package safeguards gates every content-generation attempt behind a pure
// policy check. The gate is consulted fresh before each attempt, including the
// ones fired from a running cron task, because policy may change between job
// creation and job execution.
package safeguards

import (
	"net/http"

	"github.com/viralcraft/core/internal/config"
)

// SourceHeader declares where a generation request originated
const SourceHeader = "x-generation-source"

// Generation sources
const (
	SourceInteractive = "interactive"
	SourceScheduled   = "scheduled_job"
	SourceBatch       = "batch"
	SourceUnknown     = "unknown"
)

// Context is a small structured descriptor of an inbound generation request
type Context struct {
	Source    string
	UserAgent string
}

// Decision is the gate's verdict for one generation attempt
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Gate validates generation attempts against static policy configuration.
// Validate has no I/O side effects and is safe to call repeatedly.
type Gate struct {
	policy config.SafeguardsConfig
}

// NewGate creates a gate with the given policy
func NewGate(policy config.SafeguardsConfig) *Gate {
	return &Gate{policy: policy}
}

// DetectGenerationContext extracts the generation context from an inbound
// request. Requests without a declared source are treated as interactive when
// they look like browser traffic, unknown otherwise.
func DetectGenerationContext(r *http.Request) Context {
	if r == nil {
		return Context{Source: SourceUnknown}
	}

	source := r.Header.Get(SourceHeader)
	switch source {
	case SourceInteractive, SourceScheduled, SourceBatch:
	case "":
		source = SourceInteractive
	default:
		source = SourceUnknown
	}

	return Context{
		Source:    source,
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// ScheduledContext builds the synthetic context used by background callers
// that have no inbound request.
func ScheduledContext() Context {
	return Context{
		Source:    SourceScheduled,
		UserAgent: "scheduled-job-runner",
	}
}

// Validate decides whether a generation attempt may proceed. Callers must
// abort when Allowed is false and report Reason; scheduled executions record
// the denial as a failed run, not a silent skip.
func (g *Gate) Validate(ctx Context) Decision {
	if g.policy.KillSwitch {
		return Decision{
			Allowed: false,
			Reason:  "generation kill switch is engaged",
			Source:  ctx.Source,
		}
	}

	switch ctx.Source {
	case SourceInteractive:
		if !g.policy.AllowInteractive {
			return Decision{
				Allowed: false,
				Reason:  "interactive generation is disabled in this deployment",
				Source:  ctx.Source,
			}
		}
	case SourceScheduled:
		if !g.policy.AllowScheduled {
			return Decision{
				Allowed: false,
				Reason:  "scheduled generation is disabled in this deployment",
				Source:  ctx.Source,
			}
		}
	case SourceBatch:
		if !g.policy.AllowBatch {
			return Decision{
				Allowed: false,
				Reason:  "batch generation is disabled in this deployment",
				Source:  ctx.Source,
			}
		}
	default:
		return Decision{
			Allowed: false,
			Reason:  "generation source could not be identified",
			Source:  SourceUnknown,
		}
	}

	return Decision{Allowed: true, Source: ctx.Source}
}
