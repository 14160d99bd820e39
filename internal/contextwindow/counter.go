// Package contextwindow implements token counting and the sliding-window
// truncation that keeps a message list inside a model's context budget.
package contextwindow

import (
	"encoding/json"

	"github.com/mnemolabs/mnemo/internal/messages"
)

// perMessageOverhead approximates the role and formatting cost a model
// charges per message on top of its text content.
const perMessageOverhead = 4

// Tokenizer counts tokens exactly for a specific model encoding.
type Tokenizer interface {
	CountTokens(text string) int
}

// Counter maps text to token counts. With no tokenizer configured it falls
// back to the ~4 characters per token heuristic, never returning less than 1.
type Counter struct {
	tokenizer Tokenizer
}

// NewCounter creates a counter. A nil tokenizer selects the character-based
// fallback.
func NewCounter(tokenizer Tokenizer) *Counter {
	return &Counter{tokenizer: tokenizer}
}

// CountTokens returns the token count for text.
func (c *Counter) CountTokens(text string) int {
	if c.tokenizer != nil {
		return c.tokenizer.CountTokens(text)
	}
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// CountMessageTokens sums the counts of all textual parts of a model message
// and adds the per-message structural overhead.
func (c *Counter) CountMessageTokens(msg messages.ModelMessage) int {
	total := perMessageOverhead

	if msg.Request != nil {
		for _, part := range msg.Request.Parts {
			switch p := part.(type) {
			case messages.SystemPromptPart:
				total += c.CountTokens(p.Content)
			case messages.UserPromptPart:
				total += c.CountTokens(p.Content)
			case messages.ToolReturnPart:
				total += c.CountTokens(p.Content)
			case messages.RetryPromptPart:
				total += c.CountTokens(p.Content)
			}
		}
		return total
	}

	if msg.Response != nil {
		for _, part := range msg.Response.Parts {
			switch p := part.(type) {
			case messages.TextPart:
				total += c.CountTokens(p.Content)
			case messages.ToolCallPart:
				total += c.CountTokens(p.ToolName)
				if args, err := json.Marshal(p.Args); err == nil {
					total += c.CountTokens(string(args))
				}
			}
		}
	}

	return total
}

// CountAll sums CountMessageTokens over a message list.
func (c *Counter) CountAll(msgs []messages.ModelMessage) int {
	total := 0
	for _, msg := range msgs {
		total += c.CountMessageTokens(msg)
	}
	return total
}
