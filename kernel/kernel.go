// Package kernel implements the decision loop that composes the reasoning
// engine, the tool catalogue, session transcripts and session facts into
// the reason/dispatch/answer cycle of one user message.
//
// The kernel initializes from configuration via New. Functional options
// replace any subsystem before the config-driven defaults are created.
//
//	k, err := kernel.New(ctx, &cfg)
//	result, err := k.Run(ctx, sessionID, "5 roses to 123 Akasya Sokak, Kadıköy, İstanbul")
package kernel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/flora/agent"
	"github.com/tailored-agentic-units/flora/catalog"
	"github.com/tailored-agentic-units/flora/core/protocol"
	"github.com/tailored-agentic-units/flora/florist"
	"github.com/tailored-agentic-units/flora/knowledge"
	"github.com/tailored-agentic-units/flora/memory"
	"github.com/tailored-agentic-units/flora/observability"
	"github.com/tailored-agentic-units/flora/order"
	"github.com/tailored-agentic-units/flora/pii"
	"github.com/tailored-agentic-units/flora/session"
	"github.com/tailored-agentic-units/flora/tools"
)

// Result holds the outcome of a kernel Run invocation.
type Result struct {
	Response      string           // Final text returned to the user.
	Rounds        int              // Tool dispatch rounds completed.
	RoundLimitHit bool             // The engine was cut off at the round bound.
	ToolCalls     []ToolCallRecord // Log of all tool invocations.
}

// ToolCallRecord logs one tool invocation of a run.
type ToolCallRecord struct {
	protocol.ToolCall
	Round    int    // Dispatch round in which the call occurred.
	Result   string // Observation returned to the engine.
	IsError  bool   // The observation reports a failure.
	Rejected bool   // The call was refused before its handler ran.
}

// ToolExecutor abstracts tool listing and execution for testability.
// *tools.Registry satisfies it.
type ToolExecutor interface {
	List() []protocol.Tool
	Execute(ctx context.Context, name string, args json.RawMessage) (tools.Result, error)
}

// Guard vets a tool call against the conversation before it executes.
// history holds the stored transcript and the turns of the current run.
// A non-nil error rejects the call; the error text is returned to the
// engine as an observation.
type Guard interface {
	Check(ctx context.Context, call protocol.ToolCall, history []protocol.Message) error
}

// Option configures a Kernel. Options run before config-driven
// initialization; a subsystem set by an option is not created from config.
type Option func(*Kernel)

// WithAgent overrides the config-created agent.
func WithAgent(a agent.Agent) Option {
	return func(k *Kernel) { k.agent = a }
}

// WithSessionStore overrides the config-created transcript store.
func WithSessionStore(s session.Store) Option {
	return func(k *Kernel) { k.sessions = s }
}

// WithToolExecutor overrides the config-created tool catalogue.
func WithToolExecutor(e ToolExecutor) Option {
	return func(k *Kernel) { k.tools = e }
}

// WithMemoryStore overrides the config-created fact store.
func WithMemoryStore(s memory.Store) Option {
	return func(k *Kernel) { k.store = s }
}

// WithObserver overrides the observer named in config.
func WithObserver(o observability.Observer) Option {
	return func(k *Kernel) { k.observer = o }
}

// WithGuard replaces the default address guard. A nil guard disables
// call vetting.
func WithGuard(g Guard) Option {
	return func(k *Kernel) {
		k.guard = g
		k.guardSet = true
	}
}

// Kernel runs the decision loop for any number of sessions. Runs for
// different sessions proceed concurrently; runs for one session are
// serialized.
type Kernel struct {
	agent     agent.Agent
	sessions  session.Store
	store     memory.Store
	tools     ToolExecutor
	guard     Guard
	guardSet  bool
	observer  observability.Observer
	orders    *order.Service
	locks     *sessionLocks
	closers   []io.Closer
	maxRounds int
	timeout   time.Duration
	prompt    string
}

// New creates a Kernel from configuration. Subsystems not supplied through
// options are initialized from their config sections: the agent, the
// session and fact stores, the observer, and the tool catalogue with its
// florist directory, order service, knowledge index and PII redactor.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Kernel, error) {
	k := &Kernel{
		locks:     newSessionLocks(),
		maxRounds: cfg.MaxRounds,
		timeout:   cfg.Agent.Timeout,
		prompt:    cfg.SystemPrompt,
	}
	if k.maxRounds <= 0 {
		k.maxRounds = defaultMaxRounds
	}
	if k.prompt == "" {
		k.prompt = DefaultSystemPrompt
	}

	for _, opt := range opts {
		opt(k)
	}

	if err := k.init(ctx, cfg); err != nil {
		return nil, multierr.Append(err, k.Close())
	}
	return k, nil
}

func (k *Kernel) init(ctx context.Context, cfg *Config) error {
	if k.observer == nil {
		name := cfg.Observer
		if name == "" {
			name = defaultObserver
		}
		o, err := observability.GetObserver(name)
		if err != nil {
			return fmt.Errorf("failed to resolve observer: %w", err)
		}
		k.observer = o
	}

	if !k.guardSet {
		k.guard = catalog.AddressGuard{}
	}

	if k.agent == nil {
		a, err := agent.New(ctx, &cfg.Agent)
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}
		k.agent = a
	}

	if k.sessions == nil {
		s, err := session.New(&cfg.Session)
		if err != nil {
			return fmt.Errorf("failed to create session store: %w", err)
		}
		k.sessions = s
		k.own(s)
	}

	if k.store == nil {
		s, err := memory.NewStore(&cfg.Memory)
		if err != nil {
			return fmt.Errorf("failed to create memory store: %w", err)
		}
		k.store = s
	}

	if k.tools == nil {
		reg, err := k.buildCatalog(ctx, cfg)
		if err != nil {
			return err
		}
		k.tools = reg
	}
	return nil
}

func (k *Kernel) buildCatalog(ctx context.Context, cfg *Config) (*tools.Registry, error) {
	dir, err := florist.New(&cfg.Florist)
	if err != nil {
		return nil, fmt.Errorf("failed to create florist directory: %w", err)
	}

	redactor, err := pii.New(&cfg.PII)
	if err != nil {
		return nil, fmt.Errorf("failed to create pii redactor: %w", err)
	}

	index, err := knowledge.Load(ctx, &cfg.Knowledge)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge index: %w", err)
	}
	k.own(index)

	k.orders = order.NewService()

	reg, err := catalog.New(catalog.Deps{
		Directory:   dir,
		Orders:      k.orders,
		Recommender: knowledge.NewRecommender(index),
		Redactor:    redactor,
		Observer:    k.observer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tool catalogue: %w", err)
	}
	return reg, nil
}

func (k *Kernel) own(v any) {
	if c, ok := v.(io.Closer); ok {
		k.closers = append(k.closers, c)
	}
}

// Tools returns the tool catalogue the kernel dispatches to.
func (k *Kernel) Tools() ToolExecutor {
	return k.tools
}

// Observer returns the observer receiving kernel events.
func (k *Kernel) Observer() observability.Observer {
	return k.observer
}

// Orders returns the ledger of orders placed through a config-created
// catalogue, or nil when the catalogue was supplied by an option.
func (k *Kernel) Orders() *order.Ledger {
	if k.orders == nil {
		return nil
	}
	return k.orders.Ledger()
}

// Close releases the subsystems the kernel created.
func (k *Kernel) Close() error {
	var err error
	for i := len(k.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, k.closers[i].Close())
	}
	k.closers = nil
	return err
}

// Run processes one user message for sessionID: it loads the transcript
// and the session's facts, alternates engine decisions with tool dispatch
// rounds until the engine answers or MaxRounds rounds have run, and then
// appends the run's turns to the transcript. A run that fails leaves the
// transcript and facts untouched.
func (k *Kernel) Run(ctx context.Context, sessionID, message string) (*Result, error) {
	if sessionID == "" || message == "" {
		return nil, ErrInvalidInput
	}

	release, err := k.locks.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	result := &Result{}

	history, err := k.sessions.Messages(ctx, sessionID)
	if err != nil {
		return k.fail(ctx, result, fmt.Errorf("failed to load session: %w", err))
	}

	facts, err := memory.LoadFacts(ctx, k.store, sessionID)
	if err != nil {
		return k.fail(ctx, result, err)
	}
	ctx = memory.WithFacts(ctx, facts)

	catalogue := k.tools.List()
	turns := []protocol.Message{protocol.NewMessage(protocol.RoleUser, message)}

	k.observer.OnEvent(ctx, observability.NewEvent(EventRunStart, observability.LevelInfo, eventSource, map[string]any{
		"session_id":     sessionID,
		"message_length": len(message),
		"history":        len(history),
		"max_rounds":     k.maxRounds,
		"tools":          len(catalogue),
	}))

	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return k.fail(ctx, result, err)
		}

		k.observer.OnEvent(ctx, observability.NewEvent(EventIterationStart, observability.LevelVerbose, eventSource,
			map[string]any{"round": round + 1}))

		messages := k.compose(facts, history, turns)
		next, err := k.decide(ctx, messages, catalogue)
		if err != nil {
			return k.fail(ctx, result, err)
		}

		if len(next.ToolCalls) == 0 {
			turns = append(turns, protocol.NewMessage(protocol.RoleAssistant, next.Content))
			result.Response = next.Content
			break
		}

		if round == k.maxRounds {
			k.observer.OnEvent(ctx, observability.NewEvent(EventRoundLimit, observability.LevelWarning, eventSource, map[string]any{
				"session_id": sessionID,
				"rounds":     round,
				"requested":  len(next.ToolCalls),
			}))
			turns = append(turns, protocol.NewMessage(protocol.RoleAssistant, RoundLimitMessage))
			result.Response = RoundLimitMessage
			result.RoundLimitHit = true
			break
		}

		calls := assignIDs(next.ToolCalls)
		callTurn := protocol.Message{Role: protocol.RoleAssistant, Content: next.Content, ToolCalls: calls}
		turns = append(turns, callTurn)

		observations, records, err := k.dispatch(ctx, round+1, calls, concat(history, turns))
		if err != nil {
			return k.fail(ctx, result, err)
		}
		turns = append(turns, observations...)
		result.ToolCalls = append(result.ToolCalls, records...)
		result.Rounds = round + 1
	}

	if err := k.sessions.Append(ctx, sessionID, turns...); err != nil {
		return k.fail(ctx, result, fmt.Errorf("failed to persist session: %w", err))
	}
	if err := facts.Flush(ctx); err != nil {
		return k.fail(ctx, result, err)
	}

	k.observer.OnEvent(ctx, observability.NewEvent(EventResponse, observability.LevelInfo, eventSource, map[string]any{
		"session_id":      sessionID,
		"rounds":          result.Rounds,
		"tool_calls":      len(result.ToolCalls),
		"round_limit":     result.RoundLimitHit,
		"response_length": len(result.Response),
	}))
	return result, nil
}

func (k *Kernel) fail(ctx context.Context, result *Result, err error) (*Result, error) {
	k.observer.OnEvent(context.WithoutCancel(ctx), observability.NewEvent(EventError, observability.LevelError, eventSource,
		map[string]any{"error": err.Error(), "rounds": result.Rounds}))
	return result, err
}

func (k *Kernel) compose(facts *memory.Facts, history, turns []protocol.Message) []protocol.Message {
	messages := make([]protocol.Message, 0, len(history)+len(turns)+1)
	messages = append(messages, protocol.NewMessage(protocol.RoleSystem, systemContent(k.prompt, facts.All())))
	messages = append(messages, history...)
	messages = append(messages, turns...)
	return messages
}

// decide asks the engine for the next step, bounded by the configured
// timeout. A timeout of the engine call, as opposed to cancellation by the
// caller, surfaces as ErrAgentTimeout.
func (k *Kernel) decide(ctx context.Context, messages []protocol.Message, catalogue []protocol.Tool) (decision, error) {
	callCtx := ctx
	if k.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}

	resp, err := k.agent.Tools(callCtx, messages, catalogue)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return decision{}, fmt.Errorf("%w after %s: %v", ErrAgentTimeout, k.timeout, err)
		}
		return decision{}, fmt.Errorf("agent call failed: %w", err)
	}

	msg, ok := resp.Decision()
	if !ok {
		return decision{}, ErrEmptyDecision
	}
	return decision{Content: msg.Content, ToolCalls: msg.ToolCalls}, nil
}

type decision struct {
	Content   string
	ToolCalls []protocol.ToolCall
}

// dispatch executes the calls of one round concurrently and returns their
// observations in request order. Guard rejections, unknown tools and schema
// violations become error observations; any other tool failure aborts the
// run.
func (k *Kernel) dispatch(ctx context.Context, round int, calls []protocol.ToolCall, history []protocol.Message) ([]protocol.Message, []ToolCallRecord, error) {
	observations := make([]protocol.Message, len(calls))
	records := make([]ToolCallRecord, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			record, err := k.execute(gctx, round, call, history)
			if err != nil {
				return err
			}
			records[i] = record
			observations[i] = protocol.NewToolResult(call, record.Result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return observations, records, nil
}

func (k *Kernel) execute(ctx context.Context, round int, call protocol.ToolCall, history []protocol.Message) (ToolCallRecord, error) {
	record := ToolCallRecord{ToolCall: call, Round: round}

	k.observer.OnEvent(ctx, observability.NewEvent(EventToolCall, observability.LevelVerbose, eventSource, map[string]any{
		"round": round,
		"name":  call.Name,
		"id":    call.ID,
	}))

	if k.guard != nil {
		if err := k.guard.Check(ctx, call, history); err != nil {
			return k.reject(ctx, record, err), nil
		}
	}

	res, err := k.tools.Execute(ctx, call.Name, json.RawMessage(call.Arguments))
	switch {
	case errors.Is(err, tools.ErrNotFound), errors.Is(err, tools.ErrSchemaViolation):
		return k.reject(ctx, record, err), nil
	case err != nil:
		return record, fmt.Errorf("%w: %w", ErrToolFailed, err)
	}

	record.Result = res.Content
	record.IsError = res.IsError

	data := map[string]any{
		"round": round,
		"name":  call.Name,
		"error": record.IsError,
	}
	if gjson.Valid(res.Content) {
		if status := gjson.Get(res.Content, "status"); status.Exists() {
			data["status"] = status.String()
		}
	}
	k.observer.OnEvent(ctx, observability.NewEvent(EventToolComplete, observability.LevelVerbose, eventSource, data))
	return record, nil
}

// reject records a refused call. The engine sees a structured error
// observation it can correct against.
func (k *Kernel) reject(ctx context.Context, record ToolCallRecord, cause error) ToolCallRecord {
	k.observer.OnEvent(ctx, observability.NewEvent(EventToolRejected, observability.LevelWarning, eventSource, map[string]any{
		"round":  record.Round,
		"name":   record.Name,
		"reason": cause.Error(),
	}))

	payload, _ := json.Marshal(struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}{"error", cause.Error()})

	record.Result = string(payload)
	record.IsError = true
	record.Rejected = true
	return record
}

func assignIDs(calls []protocol.ToolCall) []protocol.ToolCall {
	out := make([]protocol.ToolCall, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = "call_" + uuid.NewString()
		}
		out[i] = c
	}
	return out
}

func concat(a, b []protocol.Message) []protocol.Message {
	out := make([]protocol.Message, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
