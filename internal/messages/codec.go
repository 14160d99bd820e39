package messages

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire discriminators for the canonical JSON encoding. The encoding is the
// persistence format for model message logs, so these values are stable.
const (
	kindRequest  = "request"
	kindResponse = "response"

	partSystemPrompt = "system-prompt"
	partUserPrompt   = "user-prompt"
	partToolReturn   = "tool-return"
	partRetryPrompt  = "retry-prompt"
	partText         = "text"
	partToolCall     = "tool-call"
)

type wirePart struct {
	PartKind  string                 `json:"part_kind"`
	Content   string                 `json:"content,omitempty"`
	Timestamp *time.Time             `json:"timestamp,omitempty"`
	ToolName  string                 `json:"tool_name,omitempty"`
	Args      map[string]interface{} `json:"args,omitempty"`
}

type wireMessage struct {
	Kind      string     `json:"kind"`
	ModelName string     `json:"model_name,omitempty"`
	Parts     []wirePart `json:"parts"`
}

// MarshalJSON encodes the message in the canonical wire form.
func (m ModelMessage) MarshalJSON() ([]byte, error) {
	wm, err := m.toWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(wm)
}

// UnmarshalJSON decodes the canonical wire form.
func (m *ModelMessage) UnmarshalJSON(data []byte) error {
	var wm wireMessage
	if err := json.Unmarshal(data, &wm); err != nil {
		return err
	}
	decoded, err := fromWire(wm)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}

func (m ModelMessage) toWire() (wireMessage, error) {
	switch {
	case m.Request != nil:
		wm := wireMessage{Kind: kindRequest, Parts: make([]wirePart, 0, len(m.Request.Parts))}
		for _, part := range m.Request.Parts {
			switch p := part.(type) {
			case SystemPromptPart:
				wm.Parts = append(wm.Parts, wirePart{PartKind: partSystemPrompt, Content: p.Content})
			case UserPromptPart:
				ts := p.Timestamp
				wm.Parts = append(wm.Parts, wirePart{PartKind: partUserPrompt, Content: p.Content, Timestamp: &ts})
			case ToolReturnPart:
				wm.Parts = append(wm.Parts, wirePart{PartKind: partToolReturn, Content: p.Content})
			case RetryPromptPart:
				wm.Parts = append(wm.Parts, wirePart{PartKind: partRetryPrompt, Content: p.Content})
			default:
				return wireMessage{}, fmt.Errorf("unknown request part %T", part)
			}
		}
		return wm, nil

	case m.Response != nil:
		wm := wireMessage{
			Kind:      kindResponse,
			ModelName: m.Response.ModelName,
			Parts:     make([]wirePart, 0, len(m.Response.Parts)),
		}
		for _, part := range m.Response.Parts {
			switch p := part.(type) {
			case TextPart:
				wm.Parts = append(wm.Parts, wirePart{PartKind: partText, Content: p.Content})
			case ToolCallPart:
				wm.Parts = append(wm.Parts, wirePart{PartKind: partToolCall, ToolName: p.ToolName, Args: p.Args})
			default:
				return wireMessage{}, fmt.Errorf("unknown response part %T", part)
			}
		}
		return wm, nil
	}

	return wireMessage{}, fmt.Errorf("model message has neither request nor response")
}

func fromWire(wm wireMessage) (ModelMessage, error) {
	switch wm.Kind {
	case kindRequest:
		parts := make([]RequestPart, 0, len(wm.Parts))
		for _, wp := range wm.Parts {
			switch wp.PartKind {
			case partSystemPrompt:
				parts = append(parts, SystemPromptPart{Content: wp.Content})
			case partUserPrompt:
				up := UserPromptPart{Content: wp.Content}
				if wp.Timestamp != nil {
					up.Timestamp = *wp.Timestamp
				}
				parts = append(parts, up)
			case partToolReturn:
				parts = append(parts, ToolReturnPart{Content: wp.Content})
			case partRetryPrompt:
				parts = append(parts, RetryPromptPart{Content: wp.Content})
			default:
				return ModelMessage{}, fmt.Errorf("unknown request part kind %q", wp.PartKind)
			}
		}
		return ModelMessage{Request: &Request{Parts: parts}}, nil

	case kindResponse:
		parts := make([]ResponsePart, 0, len(wm.Parts))
		for _, wp := range wm.Parts {
			switch wp.PartKind {
			case partText:
				parts = append(parts, TextPart{Content: wp.Content})
			case partToolCall:
				parts = append(parts, ToolCallPart{ToolName: wp.ToolName, Args: wp.Args})
			default:
				return ModelMessage{}, fmt.Errorf("unknown response part kind %q", wp.PartKind)
			}
		}
		return ModelMessage{Response: &Response{Parts: parts, ModelName: wm.ModelName}}, nil
	}

	return ModelMessage{}, fmt.Errorf("unknown message kind %q", wm.Kind)
}

// Marshal encodes a model message log in the canonical wire form.
func Marshal(msgs []ModelMessage) ([]byte, error) {
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal model messages: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a model message log. Marshal and Unmarshal are exact
// inverses for any value produced by ToModelMessages.
func Unmarshal(data []byte) ([]ModelMessage, error) {
	var msgs []ModelMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model messages: %w", err)
	}
	return msgs, nil
}
