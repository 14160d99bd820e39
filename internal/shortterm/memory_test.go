package shortterm

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemolabs/mnemo/internal/cache"
	"github.com/mnemolabs/mnemo/internal/messages"
)

func setupMemory(t *testing.T, sessionID string) (*ConversationMemory, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := cache.NewRedisClientFromConn(redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	}))

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return New(sessionID, client, nil), mr
}

func TestAddMessage_PersistsSynchronously(t *testing.T) {
	mem, mr := setupMemory(t, "sess-1")
	ctx := context.Background()

	require.NoError(t, mem.AddMessage(ctx, messages.RoleUser, "hello", nil))

	stored, err := mr.Get("conversation_memory:sess-1")
	require.NoError(t, err)
	assert.Contains(t, stored, `"hello"`)
	assert.Contains(t, stored, `"user"`)
}

func TestAddMessage_Validation(t *testing.T) {
	mem, _ := setupMemory(t, "sess-1")
	ctx := context.Background()

	assert.Error(t, mem.AddMessage(ctx, "", "content", nil))
	assert.Error(t, mem.AddMessage(ctx, messages.RoleUser, "", nil))
	assert.Empty(t, mem.Messages())
}

func TestLoadFromRedis_EmptyCache(t *testing.T) {
	mem, _ := setupMemory(t, "new")
	ctx := context.Background()

	require.NoError(t, mem.LoadFromRedis(ctx))
	assert.Empty(t, mem.Messages())
	assert.Empty(t, mem.ModelMessages(""))
}

func TestLoadFromRedis_RoundTrip(t *testing.T) {
	mem, mr := setupMemory(t, "sess-rt")
	ctx := context.Background()

	require.NoError(t, mem.AddMessage(ctx, messages.RoleUser, "question", nil))
	require.NoError(t, mem.AddMessage(ctx, messages.RoleAssistant, "answer", map[string]interface{}{"model_name": "gpt-4"}))
	require.NoError(t, mem.AddModelMessages(ctx, messages.ToModelMessages(mem.Messages(), "")))

	// Fresh instance pointed at the same session.
	client := cache.NewRedisClientFromConn(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	reloaded := New("sess-rt", client, nil)
	require.NoError(t, reloaded.LoadFromRedis(ctx))

	msgs := reloaded.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, messages.RoleUser, msgs[0].Role)
	assert.Equal(t, "question", msgs[0].Content)
	assert.Equal(t, "answer", msgs[1].Content)

	model := reloaded.ModelMessages("")
	require.Len(t, model, 2)
	assert.True(t, model[0].IsRequest())
}

func TestLoadFromRedis_CorruptPayloadResetsState(t *testing.T) {
	mem, mr := setupMemory(t, "sess-bad")
	ctx := context.Background()

	require.NoError(t, mr.Set("conversation_memory:sess-bad", "{not json"))

	require.NoError(t, mem.LoadFromRedis(ctx))
	assert.Empty(t, mem.Messages())
	assert.Empty(t, mem.ModelMessages(""))
}

func TestSessionIsolation(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := cache.NewRedisClientFromConn(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	a := New("a", client, nil)
	b := New("b", client, nil)

	require.NoError(t, a.AddMessage(ctx, messages.RoleUser, "for a", nil))
	require.NoError(t, b.AddMessage(ctx, messages.RoleUser, "for b", nil))
	require.NoError(t, a.AddMessage(ctx, messages.RoleUser, "more for a", nil))

	fresh := New("b", client, nil)
	require.NoError(t, fresh.LoadFromRedis(ctx))
	msgs := fresh.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "for b", msgs[0].Content)
}

func TestClear_RemovesBothKeys(t *testing.T) {
	mem, mr := setupMemory(t, "sess-clear")
	ctx := context.Background()

	require.NoError(t, mem.AddMessage(ctx, messages.RoleUser, "hello", nil))
	require.NoError(t, mem.AddModelMessages(ctx, []messages.ModelMessage{
		messages.NewRequest(messages.UserPromptPart{Content: "hello"}),
	}))

	require.NoError(t, mem.Clear(ctx))
	assert.Empty(t, mem.Messages())
	assert.False(t, mr.Exists("conversation_memory:sess-clear"))
	assert.False(t, mr.Exists("conversation_memory:model:sess-clear"))
}

func TestRecentMessages(t *testing.T) {
	mem, _ := setupMemory(t, "sess-tail")
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		require.NoError(t, mem.AddMessage(ctx, messages.RoleUser, content, nil))
	}

	assert.Empty(t, mem.RecentMessages(0))

	tail := mem.RecentMessages(2)
	require.Len(t, tail, 2)
	assert.Equal(t, "two", tail[0].Content)
	assert.Equal(t, "three", tail[1].Content)

	all := mem.RecentMessages(10)
	assert.Len(t, all, 3)
}

func TestModelMessages_NativeLogTakesPrecedence(t *testing.T) {
	mem, _ := setupMemory(t, "sess-native")
	ctx := context.Background()

	require.NoError(t, mem.AddMessage(ctx, messages.RoleUser, "converted path", nil))

	// Converted fallback while the native log is empty.
	model := mem.ModelMessages("sys")
	require.Len(t, model, 1)
	assert.True(t, model[0].Request.HasSystemPrompt())

	native := []messages.ModelMessage{
		messages.NewRequest(messages.UserPromptPart{Content: "native path"}),
	}
	require.NoError(t, mem.AddModelMessages(ctx, native))

	model = mem.ModelMessages("sys")
	require.Len(t, model, 1)
	up, ok := model[0].Request.Parts[0].(messages.UserPromptPart)
	require.True(t, ok)
	assert.Equal(t, "native path", up.Content)
}

func TestModelMessagesWithLimit_Truncates(t *testing.T) {
	mem, _ := setupMemory(t, "sess-limit")
	ctx := context.Background()

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, mem.AddMessage(ctx, messages.RoleUser, string(long), nil))
	}

	// gpt-4 budgets 8192 tokens; 20 messages at ~500 tokens each overflow.
	fitted := mem.ModelMessagesWithLimit("gpt-4", "", 500)
	assert.NotEmpty(t, fitted)
	assert.Less(t, len(fitted), 20)
}

func TestCountTokens_CharacterBased(t *testing.T) {
	mem, _ := setupMemory(t, "sess-count")
	ctx := context.Background()

	require.NoError(t, mem.AddMessage(ctx, messages.RoleUser, "12345678", nil)) // 2 tokens

	assert.Equal(t, 2, mem.CountTokens())
}

func TestTruncateToFit_Zero(t *testing.T) {
	mem, _ := setupMemory(t, "sess-trunc")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, mem.AddMessage(ctx, messages.RoleUser, "some message content", nil))
	}

	mem.TruncateToFit(0)
	assert.Empty(t, mem.Messages())
	assert.Equal(t, 0, mem.CountTokens())
}

func TestTruncateToFit_KeepsNewest(t *testing.T) {
	mem, _ := setupMemory(t, "sess-trunc2")
	ctx := context.Background()

	for _, content := range []string{"aaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbb", "cccccccccccccccc"} {
		require.NoError(t, mem.AddMessage(ctx, messages.RoleUser, content, nil)) // 4 tokens each
	}

	mem.TruncateToFit(8)
	msgs := mem.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "bbbbbbbbbbbbbbbb", msgs[0].Content)
	assert.Equal(t, "cccccccccccccccc", msgs[1].Content)
}
