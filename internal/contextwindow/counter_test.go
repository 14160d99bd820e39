package contextwindow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mnemolabs/mnemo/internal/messages"
)

type wordTokenizer struct{}

func (wordTokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(strings.Fields(text))
}

func TestCounter_CharacterFallback(t *testing.T) {
	c := NewCounter(nil)

	assert.Equal(t, 1, c.CountTokens(""))
	assert.Equal(t, 1, c.CountTokens("abc"))
	assert.Equal(t, 2, c.CountTokens("eight ch"))
	assert.Equal(t, 25, c.CountTokens(strings.Repeat("x", 100)))
}

func TestCounter_PluggableTokenizer(t *testing.T) {
	c := NewCounter(wordTokenizer{})
	assert.Equal(t, 4, c.CountTokens("one two three four"))
}

func TestCounter_MessageOverhead(t *testing.T) {
	c := NewCounter(wordTokenizer{})

	msg := messages.NewRequest(messages.UserPromptPart{Content: "two words"})
	assert.Equal(t, 2+perMessageOverhead, c.CountMessageTokens(msg))
}

func TestCounter_SumsAllParts(t *testing.T) {
	c := NewCounter(wordTokenizer{})

	msg := messages.NewRequest(
		messages.SystemPromptPart{Content: "one two three"},
		messages.UserPromptPart{Content: "four five"},
	)
	assert.Equal(t, 5+perMessageOverhead, c.CountMessageTokens(msg))
}

func TestCounter_ToolCallIncludesNameAndArgs(t *testing.T) {
	c := NewCounter(nil)

	plain := messages.NewResponse("", messages.TextPart{Content: "answer text"})
	withCall := messages.NewResponse("",
		messages.TextPart{Content: "answer text"},
		messages.ToolCallPart{ToolName: "search", Args: map[string]interface{}{"query": "weather"}},
	)
	assert.Greater(t, c.CountMessageTokens(withCall), c.CountMessageTokens(plain))
}

func TestCounter_CountAll(t *testing.T) {
	c := NewCounter(wordTokenizer{})

	msgs := []messages.ModelMessage{
		messages.NewRequest(messages.UserPromptPart{Content: "one two"}),
		messages.NewResponse("", messages.TextPart{Content: "three"}),
	}
	assert.Equal(t, 3+2*perMessageOverhead, c.CountAll(msgs))
}
