package messages

import (
	"strings"
	"time"
)

// ToModelMessages converts internal messages to the model-facing form. Each
// user message becomes a request with a user-prompt part; the first user
// message additionally carries a prepended system-prompt part when
// systemPrompt is non-empty. Each assistant message becomes a response with
// a single text part, tagged with the model name from its metadata if
// present. System-role messages are never stored internally and are skipped.
func ToModelMessages(msgs []Message, systemPrompt string) []ModelMessage {
	result := make([]ModelMessage, 0, len(msgs))
	systemPending := systemPrompt != ""

	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			parts := []RequestPart{}
			if systemPending {
				parts = append(parts, SystemPromptPart{Content: systemPrompt})
				systemPending = false
			}
			parts = append(parts, UserPromptPart{
				Content:   msg.Content,
				Timestamp: msg.Timestamp,
			})
			result = append(result, NewRequest(parts...))

		case RoleAssistant:
			modelName := ""
			if msg.Metadata != nil {
				if name, ok := msg.Metadata["model_name"].(string); ok {
					modelName = name
				}
			}
			result = append(result, NewResponse(modelName, TextPart{Content: msg.Content}))
		}
	}

	return result
}

// FromModelMessages inverts ToModelMessages. User-prompt parts become user
// messages with their timestamps preserved; system prompts are dropped by
// design. Text parts of a response are concatenated into one assistant
// message, timestamped at conversion time since responses carry no
// message-level timestamp.
func FromModelMessages(model []ModelMessage) []Message {
	result := make([]Message, 0, len(model))

	for _, mm := range model {
		if mm.Request != nil {
			for _, part := range mm.Request.Parts {
				switch p := part.(type) {
				case UserPromptPart:
					result = append(result, Message{
						Role:      RoleUser,
						Content:   p.Content,
						Timestamp: p.Timestamp,
					})
				case SystemPromptPart, ToolReturnPart, RetryPromptPart:
					// Not round-tripped into internal form.
				}
			}
			continue
		}

		if mm.Response != nil {
			var texts []string
			for _, part := range mm.Response.Parts {
				if p, ok := part.(TextPart); ok {
					texts = append(texts, p.Content)
				}
			}
			if len(texts) == 0 {
				continue
			}
			msg := Message{
				Role:      RoleAssistant,
				Content:   strings.Join(texts, ""),
				Timestamp: time.Now(),
			}
			if mm.Response.ModelName != "" {
				msg.Metadata = map[string]interface{}{"model_name": mm.Response.ModelName}
			}
			result = append(result, msg)
		}
	}

	return result
}
