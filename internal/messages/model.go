package messages

import (
	"time"
)

// RequestPart is one part of a model-facing request. The interface is
// sealed: the set of request part kinds is closed at compile time, so a new
// kind forces every switch over RequestPart to be revisited.
type RequestPart interface {
	requestPart()
}

// SystemPromptPart carries system instructions. System prompts are
// synthesized at conversion time and never stored as internal messages.
type SystemPromptPart struct {
	Content string
}

// UserPromptPart carries user input together with its original timestamp.
type UserPromptPart struct {
	Content   string
	Timestamp time.Time
}

// ToolReturnPart carries the result of a tool invocation back to the model.
type ToolReturnPart struct {
	Content string
}

// RetryPromptPart asks the model to retry after a failed or rejected turn.
type RetryPromptPart struct {
	Content string
}

func (SystemPromptPart) requestPart() {}
func (UserPromptPart) requestPart()   {}
func (ToolReturnPart) requestPart()   {}
func (RetryPromptPart) requestPart()  {}

// ResponsePart is one part of a model response. Sealed like RequestPart.
type ResponsePart interface {
	responsePart()
}

// TextPart carries assistant text.
type TextPart struct {
	Content string
}

// ToolCallPart carries a tool invocation requested by the model.
type ToolCallPart struct {
	ToolName string
	Args     map[string]interface{}
}

func (TextPart) responsePart()     {}
func (ToolCallPart) responsePart() {}

// Request is a model-facing message sent to the model.
type Request struct {
	Parts []RequestPart
}

// HasSystemPrompt reports whether any part carries system instructions.
func (r *Request) HasSystemPrompt() bool {
	for _, p := range r.Parts {
		if _, ok := p.(SystemPromptPart); ok {
			return true
		}
	}
	return false
}

// Response is a model-facing message produced by the model. ModelName is
// optional and records which model produced it.
type Response struct {
	Parts     []ResponsePart
	ModelName string
}

// ModelMessage is a tagged variant: exactly one of Request or Response is
// non-nil.
type ModelMessage struct {
	Request  *Request
	Response *Response
}

// NewRequest builds a request-kind model message.
func NewRequest(parts ...RequestPart) ModelMessage {
	return ModelMessage{Request: &Request{Parts: parts}}
}

// NewResponse builds a response-kind model message.
func NewResponse(modelName string, parts ...ResponsePart) ModelMessage {
	return ModelMessage{Response: &Response{Parts: parts, ModelName: modelName}}
}

// IsRequest reports whether the message is the request variant.
func (m ModelMessage) IsRequest() bool {
	return m.Request != nil
}
