package agent

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tailored-agentic-units/flora/agent/providers"
	"github.com/tailored-agentic-units/flora/core/protocol"
	"github.com/tailored-agentic-units/flora/core/response"
)

// limited throttles calls to the wrapped Agent with a token bucket. When
// the engine reports rate limiting the refill rate is halved, down to a
// floor of a tenth of the configured rate; each success restores it
// gradually.
type limited struct {
	next    Agent
	limiter *rate.Limiter

	mu      sync.Mutex
	current rate.Limit
	max     rate.Limit
	min     rate.Limit
}

// WithRateLimit wraps a so that at most rps requests per second (with the
// given burst) reach the engine.
func WithRateLimit(a Agent, rps float64, burst int) Agent {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	return &limited{
		next:    a,
		limiter: rate.NewLimiter(limit, burst),
		current: limit,
		max:     limit,
		min:     limit / 10,
	}
}

func (l *limited) Tools(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := l.next.Tools(ctx, messages, tools)
	switch {
	case errors.Is(err, providers.ErrRateLimited):
		l.adjust(0.5)
	case err == nil:
		l.adjust(1.1)
	}
	return resp, err
}

func (l *limited) adjust(factor float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := rate.Limit(float64(l.current) * factor)
	next = max(min(next, l.max), l.min)
	if next == l.current {
		return
	}
	l.current = next
	l.limiter.SetLimit(next)
}
