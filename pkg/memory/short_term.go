package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hearthkit/hearth/pkg/logger"
	"github.com/hearthkit/hearth/pkg/providers"
)

const shortTermComponent = "memory.short_term"

// ShortTermMemory tracks the active conversation as a bounded buffer: the
// live log holds at most maxMessages entries. On overflow the oldest
// messages are persisted to the store and dropped from the buffer, so the
// full history survives in durable storage while the working set stays
// small.
type ShortTermMemory struct {
	mu           sync.Mutex
	store        Store
	conversation *Conversation
	maxMessages  int
}

// NewShortTermMemory returns an empty buffer backed by store.
func NewShortTermMemory(store Store, maxMessages int) *ShortTermMemory {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	return &ShortTermMemory{store: store, maxMessages: maxMessages}
}

// Begin opens a new conversation for userID and makes it current.
func (m *ShortTermMemory) Begin(ctx context.Context, userID, externalSessionID string) (*Conversation, error) {
	conv, err := m.store.CreateConversation(ctx, userID, externalSessionID)
	if err != nil {
		return nil, fmt.Errorf("begin conversation: %w", err)
	}
	m.mu.Lock()
	m.conversation = conv
	m.mu.Unlock()
	return conv, nil
}

// Conversation returns the current conversation, or nil when idle.
func (m *ShortTermMemory) Conversation() *Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversation
}

// AddMessage appends a dialogue message to the current conversation.
func (m *ShortTermMemory) AddMessage(ctx context.Context, role, content string) error {
	return m.add(ctx, Message{Role: role, Content: content, Timestamp: time.Now().UTC()})
}

// AddToolMessage appends a tool result message correlated to a tool call.
func (m *ShortTermMemory) AddToolMessage(ctx context.Context, toolName, toolCallID, content string) error {
	return m.add(ctx, Message{
		Role:       MessageRoleTool,
		Content:    content,
		ToolName:   toolName,
		ToolCallID: toolCallID,
		Timestamp:  time.Now().UTC(),
	})
}

// AddAssistantToolCalls appends the assistant message that requested a batch
// of tool calls, so later turns can replay the full exchange.
func (m *ShortTermMemory) AddAssistantToolCalls(ctx context.Context, content string, calls []ToolCallRecord) error {
	return m.add(ctx, Message{
		Role:      MessageRoleAssistant,
		Content:   content,
		ToolCalls: calls,
		Timestamp: time.Now().UTC(),
	})
}

func (m *ShortTermMemory) add(ctx context.Context, msg Message) error {
	if !ValidMessageRole(msg.Role) {
		return fmt.Errorf("invalid message role %q", msg.Role)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conversation == nil {
		return fmt.Errorf("no active conversation")
	}
	m.conversation.Messages = append(m.conversation.Messages, msg)
	if len(m.conversation.Messages) > m.maxMessages {
		// Persist before dropping so the overflowed messages stay in the
		// durable record of the conversation.
		if err := m.store.SaveConversation(ctx, m.conversation); err != nil {
			logger.WarnCF(shortTermComponent, "failed to persist before overflow trim",
				map[string]any{"conversation_id": m.conversation.ID, "error": err.Error()})
		}
		m.conversation.Messages = m.conversation.Messages[len(m.conversation.Messages)-m.maxMessages:]
	}
	return nil
}

// MessageCount reports how many messages the current conversation holds.
func (m *ShortTermMemory) MessageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conversation == nil {
		return 0
	}
	return len(m.conversation.Messages)
}

// MessagesForLLM returns the replay for the next completion call, oldest
// first: user and assistant messages, assistant tool-call requests, and tool
// results, so later turns see prior tool outcomes. A tool result whose
// requesting assistant message was trimmed away is dropped; replaying it
// alone would be an invalid exchange.
func (m *ShortTermMemory) MessagesForLLM() []providers.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conversation == nil {
		return nil
	}
	var out []providers.Message
	for _, msg := range m.conversation.Messages {
		switch msg.Role {
		case MessageRoleUser, MessageRoleAssistant:
			if msg.Content == "" && len(msg.ToolCalls) == 0 {
				continue
			}
			out = append(out, providers.Message{
				Role:      msg.Role,
				Content:   msg.Content,
				ToolCalls: providerToolCalls(msg.ToolCalls),
			})
		case MessageRoleTool:
			out = append(out, providers.Message{
				Role:       MessageRoleTool,
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		}
	}
	if len(out) > m.maxMessages {
		out = out[len(out)-m.maxMessages:]
	}
	for len(out) > 0 && out[0].Role == MessageRoleTool {
		out = out[1:]
	}
	return out
}

func providerToolCalls(records []ToolCallRecord) []providers.ToolCall {
	if len(records) == 0 {
		return nil
	}
	calls := make([]providers.ToolCall, len(records))
	for i, r := range records {
		calls[i] = providers.ToolCall{ID: r.ID, Name: r.Name, Arguments: r.Arguments}
	}
	return calls
}

// ConversationText renders the user/assistant dialogue as plain text, one
// line per message. Used to gauge whether a conversation is substantial
// enough to extract from.
func (m *ShortTermMemory) ConversationText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conversation == nil {
		return ""
	}
	var b strings.Builder
	for _, msg := range m.conversation.Messages {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case MessageRoleUser:
			b.WriteString("User: ")
		case MessageRoleAssistant:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// SaveProgress persists the conversation so far without ending it.
func (m *ShortTermMemory) SaveProgress(ctx context.Context) error {
	m.mu.Lock()
	conv := m.conversation
	m.mu.Unlock()
	if conv == nil {
		return nil
	}
	return m.store.SaveConversation(ctx, conv)
}

// End closes the current conversation, records the summary, persists it and
// clears the buffer. Returns the closed conversation.
func (m *ShortTermMemory) End(ctx context.Context, summary string) (*Conversation, error) {
	m.mu.Lock()
	conv := m.conversation
	m.conversation = nil
	m.mu.Unlock()
	if conv == nil {
		return nil, nil
	}
	conv.EndedAt = time.Now().UTC()
	conv.Summary = summary
	if err := m.store.SaveConversation(ctx, conv); err != nil {
		return conv, fmt.Errorf("end conversation: %w", err)
	}
	return conv, nil
}
