// Package impact tracks model token usage and estimates its environmental
// footprint through an external calculator service.
package impact

import (
	"fmt"
	"sort"
	"sync"

	"github.com/andresuchdata/ecoagent/backend-go/internal/metrics"
)

// AgentUsage is the accumulated token count of one agent.
type AgentUsage struct {
	Agent  string `json:"agent"`
	Tokens int64  `json:"tokens"`
	Calls  int    `json:"calls"`
}

// Usage accumulates token counts per agent. One Usage belongs to one request
// or session; it is safe for concurrent use.
type Usage struct {
	mu     sync.Mutex
	agents map[string]*AgentUsage
}

func NewUsage() *Usage {
	return &Usage{agents: make(map[string]*AgentUsage)}
}

// Record adds one model call with the given token count.
func (u *Usage) Record(agent string, tokens int64) error {
	if agent == "" {
		return fmt.Errorf("agent name is required")
	}
	if tokens < 0 {
		return fmt.Errorf("token count must be non-negative, got %d", tokens)
	}

	u.mu.Lock()
	a, ok := u.agents[agent]
	if !ok {
		a = &AgentUsage{Agent: agent}
		u.agents[agent] = a
	}
	a.Tokens += tokens
	a.Calls++
	u.mu.Unlock()

	metrics.TokensRecordedTotal.WithLabelValues(agent).Add(float64(tokens))
	return nil
}

// Agents returns a copy of the per-agent totals ordered by agent name.
func (u *Usage) Agents() []AgentUsage {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]AgentUsage, 0, len(u.agents))
	for _, a := range u.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Agent < out[j].Agent })
	return out
}

// Total sums tokens and calls over every agent.
func (u *Usage) Total() (tokens int64, calls int) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, a := range u.agents {
		tokens += a.Tokens
		calls += a.Calls
	}
	return tokens, calls
}

// AverageTokens is the mean tokens per call, 0 when nothing was recorded.
func (u *Usage) AverageTokens() int64 {
	tokens, calls := u.Total()
	if calls == 0 {
		return 0
	}
	return tokens / int64(calls)
}
