// Package shortterm implements the per-session, Redis-backed working copy
// of a conversation: the message log an agent replays into a model on every
// turn.
package shortterm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mnemolabs/mnemo/internal/cache"
	"github.com/mnemolabs/mnemo/internal/contextwindow"
	"github.com/mnemolabs/mnemo/internal/messages"
)

// Cache key layout. Both keys hold full-list snapshots, not appended
// entries: every save overwrites the previous value.
const (
	keyPrefix      = "conversation_memory:"
	modelKeyPrefix = "conversation_memory:model:"
)

// ConversationMemory owns a session's two parallel logs: the internal
// message log and the model-facing message log. A single instance is safe
// for concurrent use. The engine assumes at most one writer per session
// across instances and processes; because persistence is full-list
// overwrite, two concurrent writers can silently clobber each other's
// snapshot. Callers needing cross-instance serialization must supply their
// own per-session mutual exclusion.
type ConversationMemory struct {
	sessionID string
	cache     *cache.RedisClient
	logger    *logrus.Logger

	mu            sync.Mutex
	messages      []messages.Message
	modelMessages []messages.ModelMessage
}

// New creates the working copy for a session. Sessions are created
// implicitly on first write; there is no explicit creation call.
func New(sessionID string, redisClient *cache.RedisClient, logger *logrus.Logger) *ConversationMemory {
	if logger == nil {
		logger = logrus.New()
	}
	return &ConversationMemory{
		sessionID: sessionID,
		cache:     redisClient,
		logger:    logger,
	}
}

// SessionID returns the opaque session identifier.
func (m *ConversationMemory) SessionID() string {
	return m.sessionID
}

func (m *ConversationMemory) key() string {
	return keyPrefix + m.sessionID
}

func (m *ConversationMemory) modelKey() string {
	return modelKeyPrefix + m.sessionID
}

// AddMessage validates and appends a message, then persists the full
// message log synchronously before returning. The model message log is not
// touched; callers keeping both logs in sync use AddModelMessages.
func (m *ConversationMemory) AddMessage(ctx context.Context, role messages.Role, content string, metadata map[string]interface{}) error {
	if role == "" {
		return fmt.Errorf("message role must not be empty")
	}
	if content == "" {
		return fmt.Errorf("message content must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, messages.NewMessage(role, content, metadata))
	if err := m.cache.Set(ctx, m.key(), m.messages, 0); err != nil {
		return fmt.Errorf("failed to persist messages for session %s: %w", m.sessionID, err)
	}
	return nil
}

// AddModelMessages appends to the model message log and persists it. The
// two logs are not atomically linked; callers are responsible for keeping
// them consistent.
func (m *ConversationMemory) AddModelMessages(ctx context.Context, msgs []messages.ModelMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.modelMessages = append(m.modelMessages, msgs...)
	if err := m.cache.Set(ctx, m.modelKey(), m.modelMessages, 0); err != nil {
		return fmt.Errorf("failed to persist model messages for session %s: %w", m.sessionID, err)
	}
	return nil
}

// Messages returns a copy of the full internal message log.
func (m *ConversationMemory) Messages() []messages.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]messages.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// RecentMessages returns a copy of the last n messages; n = 0 yields an
// empty list.
func (m *ConversationMemory) RecentMessages(n int) []messages.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 {
		return []messages.Message{}
	}
	if n > len(m.messages) {
		n = len(m.messages)
	}
	out := make([]messages.Message, n)
	copy(out, m.messages[len(m.messages)-n:])
	return out
}

// ModelMessages returns the model-facing log. Once the native model message
// log is populated it takes precedence; otherwise the internal log is
// converted on the fly with the given system prompt.
func (m *ConversationMemory) ModelMessages(systemPrompt string) []messages.ModelMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.modelMessages) > 0 {
		out := make([]messages.ModelMessage, len(m.modelMessages))
		copy(out, m.modelMessages)
		return out
	}
	return messages.ToModelMessages(m.messages, systemPrompt)
}

// ModelMessagesWithLimit composes ModelMessages with sliding-window
// truncation for the named model. This is the primary call path before
// every model invocation.
func (m *ConversationMemory) ModelMessagesWithLimit(modelName, systemPrompt string, reserveTokens int) []messages.ModelMessage {
	mgr := contextwindow.ForModel(modelName, reserveTokens, nil)
	return mgr.FitMessages(m.ModelMessages(systemPrompt), true)
}

// LoadFromRedis replaces both in-memory logs with the persisted snapshots.
// A missing key yields an empty log (a cold session is fine). A payload
// that fails to deserialize resets both logs to empty rather than leaving
// them partially populated.
func (m *ConversationMemory) LoadFromRedis(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var loaded []messages.Message
	data, err := m.cache.GetBytes(ctx, m.key())
	switch {
	case errors.Is(err, cache.ErrMiss):
		// Cold session.
	case err != nil:
		return fmt.Errorf("failed to load messages for session %s: %w", m.sessionID, err)
	default:
		if err := json.Unmarshal(data, &loaded); err != nil {
			m.logger.WithError(err).WithField("session_id", m.sessionID).
				Warn("Corrupt message log in cache, resetting session")
			m.messages = nil
			m.modelMessages = nil
			return nil
		}
	}

	var loadedModel []messages.ModelMessage
	modelData, err := m.cache.GetBytes(ctx, m.modelKey())
	switch {
	case errors.Is(err, cache.ErrMiss):
	case err != nil:
		return fmt.Errorf("failed to load model messages for session %s: %w", m.sessionID, err)
	default:
		if loadedModel, err = messages.Unmarshal(modelData); err != nil {
			m.logger.WithError(err).WithField("session_id", m.sessionID).
				Warn("Corrupt model message log in cache, resetting session")
			m.messages = nil
			m.modelMessages = nil
			return nil
		}
	}

	m.messages = loaded
	m.modelMessages = loadedModel
	return nil
}

// SaveToRedis overwrites both persisted snapshots with the in-memory logs.
func (m *ConversationMemory) SaveToRedis(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.cache.Set(ctx, m.key(), m.messages, 0); err != nil {
		return fmt.Errorf("failed to save messages for session %s: %w", m.sessionID, err)
	}
	if err := m.cache.Set(ctx, m.modelKey(), m.modelMessages, 0); err != nil {
		return fmt.Errorf("failed to save model messages for session %s: %w", m.sessionID, err)
	}
	return nil
}

// Clear empties both logs and deletes both cache keys.
func (m *ConversationMemory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = nil
	m.modelMessages = nil
	if err := m.cache.Delete(ctx, m.key(), m.modelKey()); err != nil {
		return fmt.Errorf("failed to clear session %s: %w", m.sessionID, err)
	}
	return nil
}

// CountTokens is the legacy character-based estimate over the internal
// message log, independent of the tokenizer-backed budgeting path.
func (m *ConversationMemory) CountTokens() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, msg := range m.messages {
		total += len(msg.Content) / 4
	}
	return total
}

// TruncateToFit trims the internal message log to approximately maxTokens
// using the same newest-first greedy walk as the context window manager,
// applied to the character-based estimate. maxTokens = 0 empties the log.
// The trimmed log is not persisted; callers persist via SaveToRedis.
func (m *ConversationMemory) TruncateToFit(maxTokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if maxTokens <= 0 {
		m.messages = nil
		return
	}

	used := 0
	cut := len(m.messages)
	for i := len(m.messages) - 1; i >= 0; i-- {
		cost := len(m.messages[i].Content) / 4
		if used+cost > maxTokens {
			break
		}
		used += cost
		cut = i
	}
	if cut > 0 {
		m.messages = append([]messages.Message(nil), m.messages[cut:]...)
	}
}
