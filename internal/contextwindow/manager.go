package contextwindow

import (
	"sort"
	"strings"

	"github.com/mnemolabs/mnemo/internal/messages"
)

// DefaultContextWindow is the conservative budget used for unknown models.
const DefaultContextWindow = 4096

// modelContextWindows maps known model names to their context sizes.
// Lookup is exact first, then case-insensitive substring in both directions.
var modelContextWindows = map[string]int{
	"gpt-3.5-turbo":     16385,
	"gpt-3.5-turbo-16k": 16384,
	"gpt-4":             8192,
	"gpt-4-32k":         32768,
	"gpt-4-turbo":       128000,
	"gpt-4o":            128000,
	"gpt-4o-mini":       128000,
	"claude-2":          100000,
	"claude-3-haiku":    200000,
	"claude-3-opus":     200000,
	"claude-3-sonnet":   200000,
	"claude-3-5-sonnet": 200000,
	"gemini-pro":        32768,
	"gemini-1.5-pro":    1048576,
	"llama-3":           8192,
	"mistral":           32768,
	"mixtral":           32768,
}

// ContextWindowFor resolves the context size for a model name. Unknown
// models get the conservative default.
func ContextWindowFor(modelName string) int {
	if size, ok := modelContextWindows[modelName]; ok {
		return size
	}

	lower := strings.ToLower(modelName)
	if lower == "" {
		return DefaultContextWindow
	}
	keys := make([]string, 0, len(modelContextWindows))
	for k := range modelContextWindows {
		keys = append(keys, k)
	}
	// Longest key first so "gpt-4-turbo" wins over "gpt-4".
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		if strings.Contains(lower, k) || strings.Contains(k, lower) {
			return modelContextWindows[k]
		}
	}

	return DefaultContextWindow
}

// Manager truncates message lists to a token budget using a sliding window
// that preserves system instructions.
type Manager struct {
	maxTokens        int
	reserveTokens    int
	maxHistoryTokens int
	counter          *Counter
}

// NewManager creates a manager with an explicit budget. A nil counter
// selects the character-based fallback counter.
func NewManager(maxTokens, reserveTokens int, counter *Counter) *Manager {
	if counter == nil {
		counter = NewCounter(nil)
	}
	return &Manager{
		maxTokens:        maxTokens,
		reserveTokens:    reserveTokens,
		maxHistoryTokens: maxTokens - reserveTokens,
		counter:          counter,
	}
}

// ForModel creates a manager whose budget is resolved from the model name.
func ForModel(modelName string, reserveTokens int, counter *Counter) *Manager {
	return NewManager(ContextWindowFor(modelName), reserveTokens, counter)
}

// MaxHistoryTokens returns the budget available to history after the reserve.
func (m *Manager) MaxHistoryTokens() int {
	return m.maxHistoryTokens
}

// Counter returns the token counter the manager budgets with.
func (m *Manager) Counter() *Counter {
	return m.counter
}

// FitMessages truncates msgs to the history budget. When the list already
// fits it is returned unchanged. Otherwise requests carrying a system prompt
// are kept unconditionally (system prompts win ties over history) and the
// remaining messages are walked newest to oldest, accepting whole messages
// greedily until the next one would overflow. The result preserves original
// chronological order. This is a strict sliding window, not a knapsack fit.
func (m *Manager) FitMessages(msgs []messages.ModelMessage, keepSystemPrompts bool) []messages.ModelMessage {
	if m.counter.CountAll(msgs) <= m.maxHistoryTokens {
		return msgs
	}

	var systemMsgs, otherMsgs []messages.ModelMessage
	for _, msg := range msgs {
		if keepSystemPrompts && msg.Request != nil && msg.Request.HasSystemPrompt() {
			systemMsgs = append(systemMsgs, msg)
		} else {
			otherMsgs = append(otherMsgs, msg)
		}
	}

	available := m.maxHistoryTokens - m.counter.CountAll(systemMsgs)
	if available <= 0 {
		return systemMsgs
	}

	// Newest first; stop at the first message that would overflow.
	var kept []messages.ModelMessage
	used := 0
	for i := len(otherMsgs) - 1; i >= 0; i-- {
		cost := m.counter.CountMessageTokens(otherMsgs[i])
		if used+cost > available {
			break
		}
		kept = append(kept, otherMsgs[i])
		used += cost
	}

	result := make([]messages.ModelMessage, 0, len(systemMsgs)+len(kept))
	result = append(result, systemMsgs...)
	for i := len(kept) - 1; i >= 0; i-- {
		result = append(result, kept[i])
	}
	return result
}

// ContextStats is an observability snapshot of budget usage for a message
// list. Computing it has no side effects.
type ContextStats struct {
	TotalTokens        int     `json:"total_tokens"`
	MaxTokens          int     `json:"max_tokens"`
	MaxHistoryTokens   int     `json:"max_history_tokens"`
	ReserveTokens      int     `json:"reserve_tokens"`
	AvailableTokens    int     `json:"available_tokens"`
	UtilizationPercent float64 `json:"utilization_percent"`
	NumMessages        int     `json:"num_messages"`
}

// GetContextStats computes budget usage for msgs.
func (m *Manager) GetContextStats(msgs []messages.ModelMessage) ContextStats {
	total := m.counter.CountAll(msgs)
	available := m.maxHistoryTokens - total
	if available < 0 {
		available = 0
	}

	utilization := 0.0
	if m.maxHistoryTokens > 0 {
		utilization = float64(total) / float64(m.maxHistoryTokens) * 100
	}

	return ContextStats{
		TotalTokens:        total,
		MaxTokens:          m.maxTokens,
		MaxHistoryTokens:   m.maxHistoryTokens,
		ReserveTokens:      m.reserveTokens,
		AvailableTokens:    available,
		UtilizationPercent: utilization,
		NumMessages:        len(msgs),
	}
}
