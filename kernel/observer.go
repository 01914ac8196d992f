package kernel

import "github.com/tailored-agentic-units/flora/observability"

// Kernel event types emitted during the decision loop.
const (
	EventRunStart       observability.EventType = "kernel.run.start"
	EventIterationStart observability.EventType = "kernel.iteration.start"
	EventToolCall       observability.EventType = "kernel.tool.call"
	EventToolComplete   observability.EventType = "kernel.tool.complete"
	EventToolRejected   observability.EventType = "kernel.tool.rejected"
	EventResponse       observability.EventType = "kernel.response"
	EventError          observability.EventType = "kernel.error"
	EventRoundLimit     observability.EventType = "kernel.round.limit"
)

const eventSource = "kernel.Run"
