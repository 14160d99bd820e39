package history

import (
	"context"

	"github.com/mnemolabs/mnemo/internal/messages"
)

// LLMClient produces completions. The summary processor will use it to
// compress overflowed history once summarization is implemented.
type LLMClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// SummaryProcessor is the extension point for LLM-based summarization of
// history that has grown past a threshold. It does not compress anything
// yet: Process is a pass-through regardless of the threshold.
type SummaryProcessor struct {
	summaryThreshold int
	llm              LLMClient
}

// NewSummaryProcessor creates the processor. The client may be nil until
// summarization lands.
func NewSummaryProcessor(summaryThreshold int, llm LLMClient) *SummaryProcessor {
	return &SummaryProcessor{
		summaryThreshold: summaryThreshold,
		llm:              llm,
	}
}

// Process returns the input unchanged.
func (p *SummaryProcessor) Process(msgs []messages.ModelMessage) []messages.ModelMessage {
	return msgs
}
