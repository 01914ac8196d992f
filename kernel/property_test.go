package kernel_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tailored-agentic-units/flora/agent/mock"
	"github.com/tailored-agentic-units/flora/core/protocol"
	"github.com/tailored-agentic-units/flora/kernel"
	"github.com/tailored-agentic-units/flora/memory"
	"github.com/tailored-agentic-units/flora/observability"
	"github.com/tailored-agentic-units/flora/session"
)

// An engine that never stops requesting tools is cut off after exactly
// MaxRounds dispatch rounds, however many calls it asks for per round.
func TestRun_TerminatesForAdversarialEngine(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 40
	properties := gopter.NewProperties(params)

	properties.Property("round bound holds", prop.ForAll(
		func(maxRounds, width int) bool {
			calls := make([]protocol.ToolCall, width)
			for i := range calls {
				calls[i] = protocol.ToolCall{ID: fmt.Sprintf("c%d", i), Name: "noop", Arguments: "{}"}
			}
			a := mock.New("adversary").Repeat(mock.Calls(calls...))
			exec := &stubExecutor{}

			cfg := kernel.DefaultConfig()
			cfg.MaxRounds = maxRounds
			k, err := kernel.New(context.Background(), &cfg,
				kernel.WithAgent(a),
				kernel.WithToolExecutor(exec),
				kernel.WithSessionStore(session.NewMemoryStore()),
				kernel.WithMemoryStore(memory.NewMapStore()),
				kernel.WithObserver(observability.NoOpObserver{}),
				kernel.WithGuard(nil),
			)
			if err != nil {
				return false
			}

			result, err := k.Run(context.Background(), "adversarial", "order everything")
			return err == nil &&
				result.RoundLimitHit &&
				result.Rounds == maxRounds &&
				len(a.Requests()) == maxRounds+1 &&
				len(exec.calls) == maxRounds*width
		},
		gen.IntRange(1, 12),
		gen.IntRange(1, 4),
	))

	properties.TestingRun(t)
}
