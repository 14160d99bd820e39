// Package history provides composable policies applied to a model message
// list before it is sent to a model. Every processor is a pure function from
// message list to message list and can be chained.
package history

import (
	"github.com/mnemolabs/mnemo/internal/messages"
)

// Processor transforms a model message list. Implementations must not
// mutate the input slice.
type Processor interface {
	Process(msgs []messages.ModelMessage) []messages.ModelMessage
}

// Chained applies a sequence of processors in order.
type Chained struct {
	processors []Processor
}

// NewChained builds a chain from the given processors.
func NewChained(processors ...Processor) *Chained {
	return &Chained{processors: processors}
}

// Process runs every processor in order, feeding each the previous output.
func (c *Chained) Process(msgs []messages.ModelMessage) []messages.ModelMessage {
	for _, p := range c.processors {
		msgs = p.Process(msgs)
	}
	return msgs
}

// Defaults used by NewDefaultProcessor when neither bound is supplied.
const (
	DefaultMaxTurns  = 10
	DefaultMaxTokens = 2000
)

// NewDefaultProcessor builds the standard recency-then-token-limit chain.
// A zero bound is treated as unset; when both are unset the defaults of 10
// turns and 2000 tokens apply.
func NewDefaultProcessor(maxTurns, maxTokens int, modelName string) Processor {
	if maxTurns == 0 && maxTokens == 0 {
		maxTurns = DefaultMaxTurns
		maxTokens = DefaultMaxTokens
	}

	var chain []Processor
	if maxTurns > 0 {
		chain = append(chain, NewRecencyProcessor(maxTurns))
	}
	if maxTokens > 0 {
		chain = append(chain, NewTokenLimitProcessor(maxTokens, modelName))
	}
	return NewChained(chain...)
}
