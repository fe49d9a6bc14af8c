package shared

import (
	"time"
)

// Agent names recorded with every delegated call.
const (
	AgentSelector = "Selector"
	AgentAnalyst  = "Analyst"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// Total prefers the provider-reported total and falls back to the sum of the parts.
func (u TokenUsage) Total() int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.PromptTokens + u.CompletionTokens
}

// AgentMeta describes one delegated selection or analysis call.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
	// Fallback is set when the external call failed and a local result was used.
	Fallback bool
}
