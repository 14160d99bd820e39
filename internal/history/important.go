package history

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mnemolabs/mnemo/internal/messages"
)

// ImportantMessageProcessor flags messages containing configured keywords.
// It is classification-only: Process passes the list through unchanged, and
// reordering or dropping based on the flags is an extension point.
type ImportantMessageProcessor struct {
	keywords          []string
	preserveImportant bool
	logger            *logrus.Logger
}

// NewImportantMessageProcessor creates a processor flagging messages whose
// text contains any of the keywords, case-insensitively.
func NewImportantMessageProcessor(keywords []string, preserveImportant bool, logger *logrus.Logger) *ImportantMessageProcessor {
	if logger == nil {
		logger = logrus.New()
	}
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &ImportantMessageProcessor{
		keywords:          lowered,
		preserveImportant: preserveImportant,
		logger:            logger,
	}
}

// Classify reports, per message, whether it matches any configured keyword.
func (p *ImportantMessageProcessor) Classify(msgs []messages.ModelMessage) []bool {
	flags := make([]bool, len(msgs))
	for i, msg := range msgs {
		flags[i] = p.isImportant(msg)
	}
	return flags
}

// Process returns the input unchanged after recording the classification.
func (p *ImportantMessageProcessor) Process(msgs []messages.ModelMessage) []messages.ModelMessage {
	if len(p.keywords) == 0 {
		return msgs
	}

	important := 0
	for _, flagged := range p.Classify(msgs) {
		if flagged {
			important++
		}
	}

	p.logger.WithFields(logrus.Fields{
		"messages":  len(msgs),
		"important": important,
	}).Debug("Classified important messages")

	return msgs
}

func (p *ImportantMessageProcessor) isImportant(msg messages.ModelMessage) bool {
	for _, text := range messageTexts(msg) {
		lower := strings.ToLower(text)
		for _, kw := range p.keywords {
			if kw != "" && strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func messageTexts(msg messages.ModelMessage) []string {
	var texts []string
	if msg.Request != nil {
		for _, part := range msg.Request.Parts {
			switch p := part.(type) {
			case messages.SystemPromptPart:
				texts = append(texts, p.Content)
			case messages.UserPromptPart:
				texts = append(texts, p.Content)
			case messages.ToolReturnPart:
				texts = append(texts, p.Content)
			case messages.RetryPromptPart:
				texts = append(texts, p.Content)
			}
		}
	}
	if msg.Response != nil {
		for _, part := range msg.Response.Parts {
			switch p := part.(type) {
			case messages.TextPart:
				texts = append(texts, p.Content)
			case messages.ToolCallPart:
				texts = append(texts, p.ToolName)
			}
		}
	}
	return texts
}
