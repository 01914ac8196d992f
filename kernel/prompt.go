package kernel

import (
	"strings"

	"github.com/tailored-agentic-units/flora/memory"
)

// DefaultSystemPrompt carries the three policy rules the engine works
// under: grounding, address validation and tone.
const DefaultSystemPrompt = "You are a helpful and conversational flower ordering assistant. " +
	"You have access to tools to redact pii and get address, find florists, create orders, and provide recommendations. " +
	"If you don't have enough information to use a tool, ask the user for clarification. " +
	"**Core Rules:**" +
	"1. **Grounding:** You MUST base your answers on the factual information provided by the tools. " +
	"If a tool returns an error or says something is not available, you must accept that as a fact and not contradict it. " +
	"2. **Address Validation:** You MUST NOT call the `create_flower_order` tool unless you have a complete and specific street address from the user. " +
	"A district name alone is not enough. " +
	"3. **Tone:** Maintain a professional and confident tone. " +
	"If you make a mistake, acknowledge it briefly and clearly state the correct information without excessive apologies."

// RoundLimitMessage is the answer given when the engine keeps requesting
// tools past the round bound.
const RoundLimitMessage = "I'm sorry, I wasn't able to complete your request. " +
	"Please try again or rephrase it with more detail."

func systemContent(prompt string, facts []memory.Fact) string {
	if len(facts) == 0 {
		return prompt
	}

	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nKnown facts for this conversation:")
	for _, f := range facts {
		b.WriteString("\n- ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
	}
	return b.String()
}
