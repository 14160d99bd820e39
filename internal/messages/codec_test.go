package messages

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTripIdentity(t *testing.T) {
	ts := time.Date(2026, 5, 7, 12, 0, 0, 123456789, time.UTC)
	original := []ModelMessage{
		NewRequest(
			SystemPromptPart{Content: "be terse"},
			UserPromptPart{Content: "hello", Timestamp: ts},
		),
		NewResponse("gpt-4o", TextPart{Content: "hi there"}),
		NewRequest(ToolReturnPart{Content: `{"result": 42}`}),
		NewRequest(RetryPromptPart{Content: "please retry"}),
		NewResponse("", ToolCallPart{ToolName: "lookup", Args: map[string]interface{}{"key": "value"}}),
	}

	data, err := Marshal(original)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestCodec_WireFormat(t *testing.T) {
	ts := time.Date(2026, 5, 7, 12, 0, 0, 0, time.UTC)
	data, err := Marshal([]ModelMessage{
		NewRequest(UserPromptPart{Content: "hi", Timestamp: ts}),
	})
	require.NoError(t, err)

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "request", raw[0]["kind"])

	parts, ok := raw[0]["parts"].([]interface{})
	require.True(t, ok)
	require.Len(t, parts, 1)
	part := parts[0].(map[string]interface{})
	assert.Equal(t, "user-prompt", part["part_kind"])
	assert.Equal(t, "hi", part["content"])
	assert.Equal(t, "2026-05-07T12:00:00Z", part["timestamp"])
}

func TestCodec_UnknownPartKindRejected(t *testing.T) {
	payload := `[{"kind":"request","parts":[{"part_kind":"hologram","content":"x"}]}]`
	_, err := Unmarshal([]byte(payload))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hologram")
}

func TestCodec_UnknownKindRejected(t *testing.T) {
	payload := `[{"kind":"telegram","parts":[]}]`
	_, err := Unmarshal([]byte(payload))
	require.Error(t, err)
}

func TestCodec_SerializeConverted(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "question", Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Role: RoleAssistant, Content: "answer", Timestamp: time.Now(), Metadata: map[string]interface{}{"model_name": "gpt-4"}},
	}

	model := ToModelMessages(msgs, "system")
	data, err := Marshal(model)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, model, decoded)
}
