package history

import (
	"github.com/mnemolabs/mnemo/internal/messages"
)

// RecencyProcessor keeps only the most recent turns, where a turn is one
// user message plus one assistant message. Unlike the context window
// manager it makes no carve-out for system prompts.
type RecencyProcessor struct {
	maxTurns int
}

// NewRecencyProcessor creates a processor keeping the last maxTurns turns.
func NewRecencyProcessor(maxTurns int) *RecencyProcessor {
	return &RecencyProcessor{maxTurns: maxTurns}
}

// Process truncates from the front to at most 2*maxTurns messages.
func (p *RecencyProcessor) Process(msgs []messages.ModelMessage) []messages.ModelMessage {
	keep := 2 * p.maxTurns
	if keep <= 0 {
		return []messages.ModelMessage{}
	}
	if len(msgs) <= keep {
		return msgs
	}
	return msgs[len(msgs)-keep:]
}
