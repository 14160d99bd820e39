package history

import (
	"github.com/mnemolabs/mnemo/internal/contextwindow"
	"github.com/mnemolabs/mnemo/internal/messages"
)

// TokenLimitProcessor drops the oldest messages while the list exceeds a
// token budget, counting with the model's own budget table.
type TokenLimitProcessor struct {
	maxTokens int
	counter   *contextwindow.Counter
}

// NewTokenLimitProcessor creates a processor enforcing maxTokens for the
// named model.
func NewTokenLimitProcessor(maxTokens int, modelName string) *TokenLimitProcessor {
	return &TokenLimitProcessor{
		maxTokens: maxTokens,
		counter:   contextwindow.ForModel(modelName, 0, nil).Counter(),
	}
}

// Process pops the oldest message until the total fits.
func (p *TokenLimitProcessor) Process(msgs []messages.ModelMessage) []messages.ModelMessage {
	for len(msgs) > 0 && p.counter.CountAll(msgs) > p.maxTokens {
		msgs = msgs[1:]
	}
	return msgs
}
