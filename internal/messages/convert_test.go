package messages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToModelMessages_UserBecomesRequest(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	msgs := []Message{
		{Role: RoleUser, Content: "hello", Timestamp: ts},
	}

	model := ToModelMessages(msgs, "")
	require.Len(t, model, 1)
	require.True(t, model[0].IsRequest())
	require.Len(t, model[0].Request.Parts, 1)

	up, ok := model[0].Request.Parts[0].(UserPromptPart)
	require.True(t, ok)
	assert.Equal(t, "hello", up.Content)
	assert.Equal(t, ts, up.Timestamp)
}

func TestToModelMessages_SystemPromptOnFirstUserOnly(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "first", Timestamp: time.Now()},
		{Role: RoleAssistant, Content: "reply", Timestamp: time.Now()},
		{Role: RoleUser, Content: "second", Timestamp: time.Now()},
	}

	model := ToModelMessages(msgs, "be helpful")
	require.Len(t, model, 3)

	require.True(t, model[0].IsRequest())
	require.Len(t, model[0].Request.Parts, 2)
	sp, ok := model[0].Request.Parts[0].(SystemPromptPart)
	require.True(t, ok)
	assert.Equal(t, "be helpful", sp.Content)
	assert.True(t, model[0].Request.HasSystemPrompt())

	require.True(t, model[2].IsRequest())
	require.Len(t, model[2].Request.Parts, 1)
	assert.False(t, model[2].Request.HasSystemPrompt())
}

func TestToModelMessages_AssistantCarriesModelName(t *testing.T) {
	msgs := []Message{
		{
			Role:      RoleAssistant,
			Content:   "answer",
			Timestamp: time.Now(),
			Metadata:  map[string]interface{}{"model_name": "gpt-4o"},
		},
	}

	model := ToModelMessages(msgs, "")
	require.Len(t, model, 1)
	require.NotNil(t, model[0].Response)
	assert.Equal(t, "gpt-4o", model[0].Response.ModelName)

	tp, ok := model[0].Response.Parts[0].(TextPart)
	require.True(t, ok)
	assert.Equal(t, "answer", tp.Content)
}

func TestRoundTrip_PreservesRoleAndContent(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msgs := []Message{
		{Role: RoleUser, Content: "what is the capital of France?", Timestamp: ts},
		{Role: RoleAssistant, Content: "Paris.", Timestamp: ts},
		{Role: RoleUser, Content: "and of Italy?", Timestamp: ts.Add(time.Minute)},
		{Role: RoleAssistant, Content: "Rome.", Timestamp: ts.Add(time.Minute)},
	}

	back := FromModelMessages(ToModelMessages(msgs, "sys"))
	require.Len(t, back, len(msgs))

	for i := range msgs {
		assert.Equal(t, msgs[i].Role, back[i].Role, "role at %d", i)
		assert.Equal(t, msgs[i].Content, back[i].Content, "content at %d", i)
		if msgs[i].Role == RoleUser {
			assert.True(t, msgs[i].Timestamp.Equal(back[i].Timestamp), "timestamp at %d", i)
		}
	}
}

func TestFromModelMessages_DropsSystemPrompt(t *testing.T) {
	model := []ModelMessage{
		NewRequest(
			SystemPromptPart{Content: "instructions"},
			UserPromptPart{Content: "hi", Timestamp: time.Now()},
		),
	}

	back := FromModelMessages(model)
	require.Len(t, back, 1)
	assert.Equal(t, RoleUser, back[0].Role)
	assert.Equal(t, "hi", back[0].Content)
}

func TestFromModelMessages_ConcatenatesTextParts(t *testing.T) {
	model := []ModelMessage{
		NewResponse("claude-3-opus",
			TextPart{Content: "part one "},
			TextPart{Content: "part two"},
			ToolCallPart{ToolName: "search", Args: map[string]interface{}{"q": "x"}},
		),
	}

	back := FromModelMessages(model)
	require.Len(t, back, 1)
	assert.Equal(t, RoleAssistant, back[0].Role)
	assert.Equal(t, "part one part two", back[0].Content)
	assert.Equal(t, "claude-3-opus", back[0].Metadata["model_name"])
}
