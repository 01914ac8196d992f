package agent

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tailored-agentic-units/flora/agent/providers"
	"github.com/tailored-agentic-units/flora/core/config"
	"github.com/tailored-agentic-units/flora/core/protocol"
	"github.com/tailored-agentic-units/flora/core/response"
)

const (
	defaultRetryInitial = 500 * time.Millisecond
	defaultRetryMax     = 10 * time.Second
)

type retrying struct {
	next Agent
	cfg  config.RetryConfig
}

// WithRetry wraps a so that calls failing with providers.ErrRateLimited
// are retried with exponential backoff, up to cfg.MaxAttempts calls in
// total. Other errors return immediately.
func WithRetry(a Agent, cfg config.RetryConfig) Agent {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaultRetryInitial
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = defaultRetryMax
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &retrying{next: a, cfg: cfg}
}

func (r *retrying) Tools(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.cfg.InitialInterval
	exp.MaxInterval = r.cfg.MaxInterval
	exp.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.cfg.MaxAttempts-1)), ctx)

	return backoff.RetryWithData(func() (*response.ToolsResponse, error) {
		resp, err := r.next.Tools(ctx, messages, tools)
		if err != nil && !errors.Is(err, providers.ErrRateLimited) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}, policy)
}
